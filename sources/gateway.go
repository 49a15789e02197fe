package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

// DefaultGateways are the public IPFS gateways tried for report pointers.
var DefaultGateways = []string{
	"https://ipfs.io",
	"https://cloudflare-ipfs.com",
}

// GatewayProvider fetches content-addressed report material across multiple
// IPFS HTTP gateways, in order.
type GatewayProvider struct {
	gateways []string
	client   *http.Client
}

// NewGatewayProvider creates a gateway provider. An empty gateway list
// selects DefaultGateways.
func NewGatewayProvider(gateways []string) *GatewayProvider {
	if len(gateways) == 0 {
		gateways = DefaultGateways
	}
	return &GatewayProvider{
		gateways: gateways,
		client:   &http.Client{Timeout: 20 * time.Second},
	}
}

// Name implements Provider.
func (p *GatewayProvider) Name() string { return "ipfs-gateway" }

// Resolve fetches the pointer's content from the first responding gateway.
func (p *GatewayProvider) Resolve(ctx context.Context, query interfaces.SourceQuery) (*interfaces.ResolvedSource, error) {
	if query.Pointer == "" {
		return nil, ErrNotSupported
	}

	var lastErr error
	for _, gateway := range p.gateways {
		url := fmt.Sprintf("%s/ipfs/%s", gateway, query.Pointer)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status %d from %s", resp.StatusCode, gateway)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		return &interfaces.ResolvedSource{
			Origin: interfaces.OriginIPFS,
			Source: string(body),
		}, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("all gateways failed: %w", lastErr)
	}
	return nil, ErrSourceNotFound
}

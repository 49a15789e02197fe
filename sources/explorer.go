package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

// ExplorerCredential configures access to a block-explorer API for one
// network.
type ExplorerCredential struct {
	// APIURL is the explorer API endpoint, e.g.
	// https://api.etherscan.io/api.
	APIURL string

	// APIKey authenticates requests; explorers throttle keyless clients
	// aggressively so networks without a key are skipped entirely.
	APIKey string
}

// ExplorerProvider fetches verified source from etherscan-style explorer
// APIs. Networks without configured credentials are reported as
// unsupported, letting the chain fall through to on-chain retrieval.
type ExplorerProvider struct {
	credentials map[interfaces.ChainID]ExplorerCredential
	client      *http.Client
}

// NewExplorerProvider creates an explorer provider with per-network
// credentials.
func NewExplorerProvider(credentials map[interfaces.ChainID]ExplorerCredential) *ExplorerProvider {
	return &ExplorerProvider{
		credentials: credentials,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

// Name implements Provider.
func (p *ExplorerProvider) Name() string { return "explorer" }

type explorerResponse struct {
	Status string `json:"status"`
	Result []struct {
		SourceCode   string `json:"SourceCode"`
		ContractName string `json:"ContractName"`
	} `json:"result"`
}

// Resolve queries the explorer's getsourcecode endpoint.
func (p *ExplorerProvider) Resolve(ctx context.Context, query interfaces.SourceQuery) (*interfaces.ResolvedSource, error) {
	if query.Pointer != "" {
		return nil, ErrNotSupported
	}

	cred, ok := p.credentials[query.ChainID]
	if !ok {
		return nil, ErrNotSupported
	}

	params := url.Values{}
	params.Set("module", "contract")
	params.Set("action", "getsourcecode")
	params.Set("address", query.Contract.String())
	params.Set("apikey", cred.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cred.APIURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from explorer", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed explorerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("invalid explorer response: %w", err)
	}

	if parsed.Status != "1" || len(parsed.Result) == 0 || parsed.Result[0].SourceCode == "" {
		return nil, ErrSourceNotFound
	}

	return &interfaces.ResolvedSource{
		Origin: interfaces.OriginExplorer,
		Source: parsed.Result[0].SourceCode,
	}, nil
}

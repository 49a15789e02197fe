package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

// DefaultSourcifyURL is the public Sourcify contract repository.
const DefaultSourcifyURL = "https://repo.sourcify.dev/contracts"

// SourcifyProvider fetches verified sources from a Sourcify repository,
// preferring full matches over partial ones.
type SourcifyProvider struct {
	baseURL string
	client  *http.Client
}

// NewSourcifyProvider creates a Sourcify provider. An empty baseURL selects
// the public repository.
func NewSourcifyProvider(baseURL string) *SourcifyProvider {
	if baseURL == "" {
		baseURL = DefaultSourcifyURL
	}
	return &SourcifyProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Name implements Provider.
func (p *SourcifyProvider) Name() string { return "sourcify" }

type sourcifyIndex struct {
	Files []struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	} `json:"files"`
}

// Resolve fetches the verified source bundle for an address query.
func (p *SourcifyProvider) Resolve(ctx context.Context, query interfaces.SourceQuery) (*interfaces.ResolvedSource, error) {
	if query.Pointer != "" {
		return nil, ErrNotSupported
	}

	for _, bucket := range []string{"full_match", "partial_match"} {
		result, err := p.fetchBucket(ctx, bucket, query)
		if err != nil {
			continue
		}
		return result, nil
	}

	return nil, ErrSourceNotFound
}

func (p *SourcifyProvider) fetchBucket(ctx context.Context, bucket string, query interfaces.SourceQuery) (*interfaces.ResolvedSource, error) {
	indexURL := fmt.Sprintf("%s/%s/%d/%s/sources/", p.baseURL, bucket, query.ChainID, query.Contract)

	body, err := p.get(ctx, indexURL)
	if err != nil {
		return nil, err
	}

	var index sourcifyIndex
	if err := json.Unmarshal(body, &index); err != nil {
		return nil, fmt.Errorf("invalid sources index: %w", err)
	}
	if len(index.Files) == 0 {
		return nil, ErrSourceNotFound
	}

	files := map[string]string{}
	var bundle string
	for _, f := range index.Files {
		content := f.Content
		if content == "" {
			fileBody, err := p.get(ctx, indexURL+f.Name)
			if err != nil {
				continue
			}
			content = string(fileBody)
		}
		if content == "" {
			continue
		}

		files[f.Name] = content
		bundle += fmt.Sprintf("\n\n// -------- %s --------\n%s", f.Name, content)
	}

	if bundle == "" {
		return nil, ErrSourceNotFound
	}

	return &interfaces.ResolvedSource{
		Origin: interfaces.OriginSourcify,
		Source: bundle,
		Files:  files,
	}, nil
}

func (p *SourcifyProvider) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrSourceNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}

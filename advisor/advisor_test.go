package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeModelServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestClient(endpoint string) *Client {
	return NewClient(Config{
		Endpoint: endpoint,
		APIKey:   "test-key",
		Model:    "test-model",
	})
}

func TestAnalyzeStrictJSON(t *testing.T) {
	srv := fakeModelServer(t, `{"score": 72, "summary": "Minor issues found", "risks": [{"title": "Reentrancy", "severity": "high", "details": "External call before state update", "mitigation": "Use checks-effects-interactions"}], "recommendations": ["Add reentrancy guard"]}`)
	defer srv.Close()

	advisory, err := newTestClient(srv.URL).Analyze(context.Background(), "contract Vault {}")
	require.NoError(t, err)

	assert.Equal(t, interfaces.ConfidenceStrict, advisory.Confidence)
	assert.Equal(t, 72, advisory.Score)
	assert.Equal(t, "Minor issues found", advisory.Summary)
	require.Len(t, advisory.Risks, 1)
	assert.Equal(t, "Reentrancy", advisory.Risks[0].Title)
	assert.Equal(t, []string{"Add reentrancy guard"}, advisory.Recommendations)
}

func TestAnalyzeExtractsEmbeddedJSON(t *testing.T) {
	srv := fakeModelServer(t, "Here is the audit you requested:\n```json\n{\"score\": 40, \"summary\": \"Serious issues\", \"risks\": [], \"recommendations\": []}\n```\nLet me know if you need more detail.")
	defer srv.Close()

	advisory, err := newTestClient(srv.URL).Analyze(context.Background(), "contract Vault {}")
	require.NoError(t, err)

	assert.Equal(t, interfaces.ConfidenceExtracted, advisory.Confidence)
	assert.Equal(t, 40, advisory.Score)
	assert.Equal(t, "Serious issues", advisory.Summary)
}

func TestAnalyzeFallsBackToPlaceholder(t *testing.T) {
	srv := fakeModelServer(t, "I cannot provide structured output for this contract.")
	defer srv.Close()

	advisory, err := newTestClient(srv.URL).Analyze(context.Background(), "contract Vault {}")
	require.NoError(t, err)

	assert.Equal(t, interfaces.ConfidencePlaceholder, advisory.Confidence)
	assert.Equal(t, placeholderScore, advisory.Score)
	assert.NotEmpty(t, advisory.Summary)
	assert.Empty(t, advisory.Risks)
}

func TestAnalyzeClampsScore(t *testing.T) {
	srv := fakeModelServer(t, `{"score": 250, "summary": "Overenthusiastic model", "risks": [], "recommendations": []}`)
	defer srv.Close()

	advisory, err := newTestClient(srv.URL).Analyze(context.Background(), "contract Vault {}")
	require.NoError(t, err)
	assert.Equal(t, interfaces.MaxScore, advisory.Score)
}

func TestAnalyzeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Analyze(context.Background(), "contract Vault {}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestParseAdvisoryEmptyInput(t *testing.T) {
	advisory := parseAdvisory("")
	assert.Equal(t, interfaces.ConfidencePlaceholder, advisory.Confidence)
	assert.Equal(t, placeholderScore, advisory.Score)
}

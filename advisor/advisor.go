// Package advisor generates best-effort structured security advisories for
// contract source or bytecode by prompting a language model.
//
// Models do not reliably return well-formed JSON, so parsing degrades in
// three steps: strict unmarshal, extraction of an embedded JSON object from
// surrounding prose, and finally a low-confidence placeholder advisory.
// Callers always receive a well-typed value; only transport failures are
// errors.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

const systemPrompt = "You are an expert smart contract security auditor. " +
	"Return ONLY valid JSON matching the following schema: " +
	`{"score": number (1..100), "summary": string, "risks": [{"title": string, "severity": "low"|"medium"|"high", "details": string, "mitigation": string}], "recommendations": string[]}`

const userPromptPrefix = "Audit the following contract. Identify vulnerabilities, risks, severity, and recommendations. " +
	"If the content is incomplete, mention limitations in the summary but try to infer potential risks. Code:\n"

// placeholderScore is the neutral score assigned when the model response
// cannot be parsed at all.
const placeholderScore = 50

// Config configures the advisory client.
type Config struct {
	// Endpoint is an OpenAI-compatible chat completions URL.
	Endpoint string

	// APIKey is sent as a bearer token.
	APIKey string

	// Model names the model to prompt.
	Model string

	// Log receives request diagnostics; nil falls back to slog.Default.
	Log *slog.Logger
}

// Client implements interfaces.AdvisoryGenerator against an
// OpenAI-compatible chat completions API.
type Client struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

// NewClient creates an advisory client.
func NewClient(cfg Config) *Client {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 90 * time.Second},
		log:    log,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze prompts the model with the source blob and parses the response.
// Transport and API failures are returned as errors; malformed model output
// degrades to a placeholder advisory instead.
func (c *Client) Analyze(ctx context.Context, source string) (*interfaces.Advisory, error) {
	start := time.Now()

	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPromptPrefix + source},
		},
		Temperature: 0.2,
		MaxTokens:   1500,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("advisory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("advisory API returned status %d: %s", resp.StatusCode, body)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("invalid advisory API response: %w", err)
	}

	raw := ""
	if len(chat.Choices) > 0 {
		raw = chat.Choices[0].Message.Content
	}

	advisory := parseAdvisory(raw)
	c.log.Info("Generated advisory",
		slog.String("confidence", string(advisory.Confidence)),
		slog.Int("score", advisory.Score),
		slog.Int("risks", len(advisory.Risks)),
		slog.Duration("duration", time.Since(start)))

	return advisory, nil
}

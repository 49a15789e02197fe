// Package client provides an HTTP client for the audit certificate registry
// API. It mirrors the server endpoints one method per operation and decodes
// error responses into plain errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

// CallerHeader carries the hex-encoded address of the account invoking a
// mutating registry operation. Must match the server's expectation.
const CallerHeader = "X-Registry-Caller"

// RegistryClient talks to a registry server over HTTP.
type RegistryClient struct {
	// ServerAddr is the base URL of the registry server.
	ServerAddr string

	// Caller is sent as the caller identity on mutating requests.
	Caller interfaces.Address

	// HTTPClient is used for requests; nil falls back to
	// http.DefaultClient.
	HTTPClient *http.Client
}

// IssueRequest is the body of a certificate issuance.
type IssueRequest struct {
	Beneficiary   string `json:"beneficiary"`
	Contract      string `json:"contract"`
	ChainID       int64  `json:"chain_id"`
	Score         int    `json:"score"`
	ReportPointer string `json:"report_pointer"`
}

// RoleRequest is the body of a role grant or revocation.
type RoleRequest struct {
	Role    string `json:"role"`
	Account string `json:"account"`
}

// AnalyzeRequest is the body of an advisory generation request.
type AnalyzeRequest struct {
	Source   string `json:"source,omitempty"`
	Contract string `json:"contract,omitempty"`
	ChainID  int64  `json:"chain_id,omitempty"`
}

// StoredReport describes where a stored report ended up.
type StoredReport struct {
	ContentID string `json:"content_id"`
	Location  string `json:"location"`
}

func (c *RegistryClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Issue requests a new certificate and returns the stored record.
func (c *RegistryClient) Issue(ctx context.Context, req IssueRequest) (*interfaces.Certificate, error) {
	var cert interfaces.Certificate
	err := c.doJSON(ctx, http.MethodPost, "/api/certificates", req, true, &cert)
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// Revoke revokes a certificate by id and returns the updated record.
func (c *RegistryClient) Revoke(ctx context.Context, id interfaces.CertificateID) (*interfaces.Certificate, error) {
	var cert interfaces.Certificate
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/certificates/%d/revoke", id), nil, true, &cert)
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// GetCertificate fetches a certificate by id.
func (c *RegistryClient) GetCertificate(ctx context.Context, id interfaces.CertificateID) (*interfaces.Certificate, error) {
	var cert interfaces.Certificate
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/certificates/%d", id), nil, false, &cert)
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// ListCertificates returns all certificates for a contract in issuance
// order.
func (c *RegistryClient) ListCertificates(ctx context.Context, chainID interfaces.ChainID, contract interfaces.Address) ([]interfaces.Certificate, error) {
	var body struct {
		Certificates []interfaces.Certificate `json:"certificates"`
	}
	path := fmt.Sprintf("/api/contracts/%d/%s/certificates", chainID, contract.String())
	if err := c.doJSON(ctx, http.MethodGet, path, nil, false, &body); err != nil {
		return nil, err
	}
	return body.Certificates, nil
}

// GrantRole grants a role to an account.
func (c *RegistryClient) GrantRole(ctx context.Context, role interfaces.Role, account interfaces.Address) error {
	req := RoleRequest{Role: role.String(), Account: account.String()}
	return c.doJSON(ctx, http.MethodPost, "/api/roles/grant", req, true, nil)
}

// RevokeRole revokes a role from an account.
func (c *RegistryClient) RevokeRole(ctx context.Context, role interfaces.Role, account interfaces.Address) error {
	req := RoleRequest{Role: role.String(), Account: account.String()}
	return c.doJSON(ctx, http.MethodPost, "/api/roles/revoke", req, true, nil)
}

// HasRole checks role membership.
func (c *RegistryClient) HasRole(ctx context.Context, role interfaces.Role, account interfaces.Address) (bool, error) {
	var body struct {
		Has bool `json:"has"`
	}
	path := fmt.Sprintf("/api/roles/%s/%s", role.String(), account.String())
	if err := c.doJSON(ctx, http.MethodGet, path, nil, false, &body); err != nil {
		return false, err
	}
	return body.Has, nil
}

// ResolveSource resolves contract source or bytecode through the server's
// provider chain.
func (c *RegistryClient) ResolveSource(ctx context.Context, chainID interfaces.ChainID, contract interfaces.Address) (*interfaces.ResolvedSource, error) {
	var resolved interfaces.ResolvedSource
	path := fmt.Sprintf("/api/sources/%d/%s", chainID, contract.String())
	if err := c.doJSON(ctx, http.MethodGet, path, nil, false, &resolved); err != nil {
		return nil, err
	}
	return &resolved, nil
}

// Analyze generates a security advisory for a source blob or contract
// reference.
func (c *RegistryClient) Analyze(ctx context.Context, req AnalyzeRequest) (*interfaces.Advisory, error) {
	var advisory interfaces.Advisory
	if err := c.doJSON(ctx, http.MethodPost, "/api/analyze", req, false, &advisory); err != nil {
		return nil, err
	}
	return &advisory, nil
}

// StoreReport uploads a raw report and returns its content id and storage
// location.
func (c *RegistryClient) StoreReport(ctx context.Context, report []byte) (*StoredReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ServerAddr+"/api/reports", bytes.NewReader(report))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request report endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, decodeError(resp)
	}

	var stored StoredReport
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return nil, fmt.Errorf("could not parse report response: %w", err)
	}
	return &stored, nil
}

// FetchReport downloads a stored report by content id.
func (c *RegistryClient) FetchReport(ctx context.Context, id interfaces.ContentID) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ServerAddr+"/api/reports/"+id.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request report endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	return io.ReadAll(resp.Body)
}

func (c *RegistryClient) doJSON(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.ServerAddr+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set(CallerHeader, c.Caller.String())
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("could not request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse response from %s: %w", path, err)
	}
	return nil
}

// decodeError turns an error response into a Go error, surfacing the
// server's message when the body is the expected JSON error object.
func decodeError(resp *http.Response) error {
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(bodyBytes, &parsed); err == nil && parsed.Error != "" {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, parsed.Error)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, bodyBytes)
}

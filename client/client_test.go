package client

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

func mustAddr(t *testing.T, hex string) interfaces.Address {
	t.Helper()
	addr, err := interfaces.NewAddressFromHex(hex)
	require.NoError(t, err)
	return addr
}

func TestIssueSendsCallerHeader(t *testing.T) {
	auditor := mustAddr(t, "0x00000000000000000000000000000000000000b2")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/certificates", r.URL.Path)
		assert.Equal(t, auditor.String(), r.Header.Get(CallerHeader))

		var req IssueRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 88, req.Score)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(interfaces.Certificate{ID: 1, Score: req.Score, Issuer: auditor})
	}))
	defer srv.Close()

	c := &RegistryClient{ServerAddr: srv.URL, Caller: auditor}
	cert, err := c.Issue(context.Background(), IssueRequest{
		Beneficiary: "0x00000000000000000000000000000000000000c3",
		Contract:    "0x00000000000000000000000000000000000000d4",
		ChainID:     1,
		Score:       88,
	})
	require.NoError(t, err)
	assert.Equal(t, interfaces.CertificateID(1), cert.ID)
	assert.Equal(t, auditor, cert.Issuer)
}

func TestRevokePath(t *testing.T) {
	admin := mustAddr(t, "0x00000000000000000000000000000000000000a1")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/certificates/7/revoke", r.URL.Path)
		json.NewEncoder(w).Encode(interfaces.Certificate{ID: 7, Revoked: true})
	}))
	defer srv.Close()

	c := &RegistryClient{ServerAddr: srv.URL, Caller: admin}
	cert, err := c.Revoke(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, cert.Revoked)
}

func TestErrorResponseSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "issue: unauthorized"})
	}))
	defer srv.Close()

	c := &RegistryClient{ServerAddr: srv.URL}
	_, err := c.Issue(context.Background(), IssueRequest{Score: 50})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestListCertificates(t *testing.T) {
	contract := mustAddr(t, "0x00000000000000000000000000000000000000d4")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/contracts/1/"+contract.String()+"/certificates", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"certificates": []interfaces.Certificate{{ID: 1}, {ID: 3}},
		})
	}))
	defer srv.Close()

	c := &RegistryClient{ServerAddr: srv.URL}
	certs, err := c.ListCertificates(context.Background(), 1, contract)
	require.NoError(t, err)
	require.Len(t, certs, 2)
	assert.Equal(t, interfaces.CertificateID(3), certs[1].ID)
}

func TestReportRoundTrip(t *testing.T) {
	report := []byte("report body")
	id := interfaces.ComputeID(report)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "/api/reports", r.URL.Path)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(StoredReport{ContentID: id.String(), Location: "file:///tmp/reports"})
		case http.MethodGet:
			assert.Equal(t, "/api/reports/"+id.String(), r.URL.Path)
			w.Write(report)
		}
	}))
	defer srv.Close()

	c := &RegistryClient{ServerAddr: srv.URL}
	stored, err := c.StoreReport(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, id.String(), stored.ContentID)

	fetched, err := c.FetchReport(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, report, fetched)
}

func TestHasRole(t *testing.T) {
	account := mustAddr(t, "0x00000000000000000000000000000000000000b2")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/roles/auditor/"+account.String(), r.URL.Path)
		json.NewEncoder(w).Encode(map[string]bool{"has": true})
	}))
	defer srv.Close()

	c := &RegistryClient{ServerAddr: srv.URL}
	has, err := c.HasRole(context.Background(), interfaces.RoleAuditor, account)
	require.NoError(t, err)
	assert.True(t, has)
}

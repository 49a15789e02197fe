package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/proofofaudit/audit-registry-backend/interfaces"
	"github.com/proofofaudit/audit-registry-backend/registry"
)

// Header constants used in HTTP requests.
const (
	// CallerHeader carries the hex-encoded address of the account invoking
	// a mutating registry operation.
	CallerHeader = "X-Registry-Caller"

	// maxBodySize is the maximum allowed request body size (1MB).
	maxBodySize = 1024 * 1024
)

// Handler processes HTTP requests for the audit certificate registry.
// It composes the registry service with its external collaborators: report
// storage, source resolution, and advisory generation. Collaborators may be
// nil, in which case their endpoints return 503.
type Handler struct {
	registry *registry.Service
	reports  interfaces.ReportStorage
	sources  interfaces.SourceResolver
	advisor  interfaces.AdvisoryGenerator
	log      *slog.Logger
}

// NewHandler creates a new HTTP request handler with the specified
// dependencies.
func NewHandler(svc *registry.Service, reports interfaces.ReportStorage, sources interfaces.SourceResolver, advisor interfaces.AdvisoryGenerator, log *slog.Logger) *Handler {
	return &Handler{
		registry: svc,
		reports:  reports,
		sources:  sources,
		advisor:  advisor,
		log:      log,
	}
}

// issueRequest is the body of POST /api/certificates.
type issueRequest struct {
	Beneficiary   string `json:"beneficiary"`
	Contract      string `json:"contract"`
	ChainID       int64  `json:"chain_id"`
	Score         int    `json:"score"`
	ReportPointer string `json:"report_pointer"`
}

// roleRequest is the body of the role grant and revoke endpoints.
type roleRequest struct {
	Role    string `json:"role"`
	Account string `json:"account"`
}

// analyzeRequest is the body of POST /api/analyze. Either Source is given
// directly, or Contract+ChainID name a contract to resolve first.
type analyzeRequest struct {
	Source   string `json:"source,omitempty"`
	Contract string `json:"contract,omitempty"`
	ChainID  int64  `json:"chain_id,omitempty"`
}

// HandleIssue processes certificate issuance requests.
//
// URL format: POST /api/certificates
// Required headers:
//   - X-Registry-Caller: hex-encoded auditor address
//
// Request body: JSON issueRequest
//
// Response: the stored certificate, status 201.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.callerAddress(w, r)
	if !ok {
		return
	}

	var req issueRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	beneficiary, err := interfaces.NewAddressFromHex(req.Beneficiary)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid beneficiary address: %w", err))
		return
	}
	contract, err := interfaces.NewAddressFromHex(req.Contract)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid contract address: %w", err))
		return
	}

	id, err := h.registry.Issue(caller, registry.IssueParams{
		Beneficiary:   beneficiary,
		Contract:      contract,
		ChainID:       interfaces.ChainID(req.ChainID),
		Score:         req.Score,
		ReportPointer: req.ReportPointer,
	})
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}

	cert, err := h.registry.GetCertificate(id)
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, cert)
}

// HandleRevoke processes certificate revocation requests.
//
// URL format: POST /api/certificates/{id}/revoke
// Required headers:
//   - X-Registry-Caller: hex-encoded address of the issuer or an administrator
//
// Response: the revoked certificate.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.callerAddress(w, r)
	if !ok {
		return
	}

	id, err := parseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.registry.Revoke(caller, id); err != nil {
		h.writeRegistryError(w, err)
		return
	}

	cert, err := h.registry.GetCertificate(id)
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, cert)
}

// HandleGetCertificate returns a certificate by id.
//
// URL format: GET /api/certificates/{id}
func (h *Handler) HandleGetCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := parseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	cert, err := h.registry.GetCertificate(id)
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, cert)
}

// HandleListCertificates returns all certificates issued for a contract, in
// issuance order. Revoked certificates are included.
//
// URL format: GET /api/contracts/{chain_id}/{contract_address}/certificates
func (h *Handler) HandleListCertificates(w http.ResponseWriter, r *http.Request) {
	chainID, err := parseChainID(chi.URLParam(r, "chain_id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	contract, err := interfaces.NewAddressFromHex(chi.URLParam(r, "contract_address"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid contract address: %w", err))
		return
	}

	ids, err := h.registry.GetCertificatesFor(chainID, contract)
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}

	certs := make([]*interfaces.Certificate, 0, len(ids))
	for _, id := range ids {
		cert, err := h.registry.GetCertificate(id)
		if err != nil {
			h.log.Error("Indexed certificate missing from store", "err", err, slog.Uint64("id", uint64(id)))
			h.writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
			return
		}
		certs = append(certs, cert)
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"certificates": certs})
}

// HandleGrantRole grants a role to an account. The caller must be an
// administrator.
//
// URL format: POST /api/roles/grant
func (h *Handler) HandleGrantRole(w http.ResponseWriter, r *http.Request) {
	h.handleRoleChange(w, r, h.registry.GrantRole)
}

// HandleRevokeRole revokes a role from an account. The caller must be an
// administrator.
//
// URL format: POST /api/roles/revoke
func (h *Handler) HandleRevokeRole(w http.ResponseWriter, r *http.Request) {
	h.handleRoleChange(w, r, h.registry.RevokeRole)
}

func (h *Handler) handleRoleChange(w http.ResponseWriter, r *http.Request, apply func(interfaces.Address, interfaces.Role, interfaces.Address) error) {
	caller, ok := h.callerAddress(w, r)
	if !ok {
		return
	}

	var req roleRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	role, err := interfaces.ParseRole(req.Role)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	account, err := interfaces.NewAddressFromHex(req.Account)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid account address: %w", err))
		return
	}

	if err := apply(caller, role, account); err != nil {
		h.writeRegistryError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"role": role.String(), "account": account.String()})
}

// HandleHasRole checks role membership.
//
// URL format: GET /api/roles/{role}/{account}
func (h *Handler) HandleHasRole(w http.ResponseWriter, r *http.Request) {
	role, err := interfaces.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	account, err := interfaces.NewAddressFromHex(chi.URLParam(r, "account"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid account address: %w", err))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"has": h.registry.HasRole(role, account)})
}

// HandleResolveSource resolves contract source or bytecode through the
// configured provider chain.
//
// URL format: GET /api/sources/{chain_id}/{contract_address}
// Optional query parameter: pointer - content pointer for IPFS gateway lookup
func (h *Handler) HandleResolveSource(w http.ResponseWriter, r *http.Request) {
	if h.sources == nil {
		h.writeError(w, http.StatusServiceUnavailable, errors.New("source resolution not configured"))
		return
	}

	chainID, err := parseChainID(chi.URLParam(r, "chain_id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	contract, err := interfaces.NewAddressFromHex(chi.URLParam(r, "contract_address"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid contract address: %w", err))
		return
	}

	resolved, err := h.sources.Resolve(r.Context(), interfaces.SourceQuery{
		Contract: contract,
		ChainID:  chainID,
		Pointer:  r.URL.Query().Get("pointer"),
	})
	if err != nil {
		h.log.Info("Source resolution failed", "err", err, slog.Int64("chainID", int64(chainID)), slog.String("contract", contract.String()))
		h.writeError(w, http.StatusNotFound, err)
		return
	}

	h.writeJSON(w, http.StatusOK, resolved)
}

// HandleAnalyze generates a security advisory. The source is either given
// inline or resolved from a contract reference first.
//
// URL format: POST /api/analyze
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if h.advisor == nil {
		h.writeError(w, http.StatusServiceUnavailable, errors.New("advisory generation not configured"))
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	source := req.Source
	if source == "" {
		if h.sources == nil {
			h.writeError(w, http.StatusServiceUnavailable, errors.New("source resolution not configured"))
			return
		}
		contract, err := interfaces.NewAddressFromHex(req.Contract)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid contract address: %w", err))
			return
		}
		resolved, err := h.sources.Resolve(r.Context(), interfaces.SourceQuery{
			Contract: contract,
			ChainID:  interfaces.ChainID(req.ChainID),
		})
		if err != nil {
			h.writeError(w, http.StatusNotFound, err)
			return
		}
		source = resolved.Source
	}

	advisory, err := h.advisor.Analyze(r.Context(), source)
	if err != nil {
		h.log.Error("Advisory generation failed", "err", err)
		h.writeError(w, http.StatusBadGateway, err)
		return
	}

	h.writeJSON(w, http.StatusOK, advisory)
}

// HandleStoreReport stores a raw audit report and returns its content id
// and storage location.
//
// URL format: POST /api/reports
// Request body: raw report bytes
func (h *Handler) HandleStoreReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		h.writeError(w, http.StatusServiceUnavailable, errors.New("report storage not configured"))
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read request body: %w", err))
		return
	}
	if len(data) == 0 {
		h.writeError(w, http.StatusBadRequest, errors.New("empty report body"))
		return
	}

	id, err := h.reports.Store(r.Context(), data)
	if err != nil {
		h.log.Error("Failed to store report", "err", err)
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"content_id": id.String(),
		"location":   h.reports.LocationURI(),
	})
}

// HandleFetchReport returns a stored report by content id.
//
// URL format: GET /api/reports/{content_id}
func (h *Handler) HandleFetchReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		h.writeError(w, http.StatusServiceUnavailable, errors.New("report storage not configured"))
		return
	}

	id, err := interfaces.NewContentIDFromHex(chi.URLParam(r, "content_id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid content id: %w", err))
		return
	}

	data, err := h.reports.Fetch(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrContentNotFound) {
			h.writeError(w, http.StatusNotFound, err)
			return
		}
		h.log.Error("Failed to fetch report", "err", err, slog.String("contentID", id.String()))
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// callerAddress extracts the caller identity from the request headers. On
// failure it writes a 401 response and returns ok=false.
func (h *Handler) callerAddress(w http.ResponseWriter, r *http.Request) (interfaces.Address, bool) {
	raw := r.Header.Get(CallerHeader)
	if raw == "" {
		h.writeError(w, http.StatusUnauthorized, fmt.Errorf("missing %s header", CallerHeader))
		return interfaces.Address{}, false
	}

	caller, err := interfaces.NewAddressFromHex(raw)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid %s header: %w", CallerHeader, err))
		return interfaces.Address{}, false
	}

	return caller, true
}

func parseCertificateID(raw string) (interfaces.CertificateID, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid certificate id %q", raw)
	}
	return interfaces.CertificateID(id), nil
}

func parseChainID(raw string) (interfaces.ChainID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chain id %q", raw)
	}
	return interfaces.ChainID(id), nil
}

// writeRegistryError maps registry sentinel errors onto HTTP status codes.
func (h *Handler) writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interfaces.ErrUnauthorized):
		h.writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, interfaces.ErrInvalidScore):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, interfaces.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, interfaces.ErrAlreadyExists):
		h.writeError(w, http.StatusConflict, err)
	default:
		h.log.Error("Registry operation failed", "err", err)
		h.writeError(w, http.StatusInternalServerError, err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

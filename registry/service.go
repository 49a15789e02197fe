package registry

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
	"github.com/proofofaudit/audit-registry-backend/metrics"
)

// Service is the public operation surface of the audit certificate
// registry. It composes a role store, a certificate store and the contract
// index, and enforces authorization and validation before mutating state.
//
// All writes are serialized: each Issue and Revoke runs to completion
// before the next begins. Reads go directly to the store and may run
// concurrently with writes.
type Service struct {
	writeMu  sync.Mutex
	roles    interfaces.RoleStore
	store    interfaces.RegistryStore
	notifier interfaces.Notifier
	log      *slog.Logger
	now      func() time.Time
}

// NewService creates a registry service. The notifier may be nil, in which
// case events are only logged.
func NewService(roles interfaces.RoleStore, store interfaces.RegistryStore, notifier interfaces.Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		roles:    roles,
		store:    store,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// IssueParams carries the caller-supplied inputs of an issuance.
type IssueParams struct {
	Beneficiary   interfaces.Address
	Contract      interfaces.Address
	ChainID       interfaces.ChainID
	Score         int
	ReportPointer string
}

// Issue creates a new certificate and returns its id.
//
// The caller must hold the Auditor role and the score must be within
// [1, 100]. Both checks run before any mutation, so a failed call leaves
// no trace: no record, no index entry, no id consumed.
func (s *Service) Issue(caller interfaces.Address, params IssueParams) (interfaces.CertificateID, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.roles.Has(interfaces.RoleAuditor, caller) {
		metrics.RecordOperationError("issue", "unauthorized")
		return 0, fmt.Errorf("issue: %w", interfaces.ErrUnauthorized)
	}

	if params.Score < interfaces.MinScore || params.Score > interfaces.MaxScore {
		metrics.RecordOperationError("issue", "invalid_score")
		return 0, fmt.Errorf("issue: score %d: %w", params.Score, interfaces.ErrInvalidScore)
	}

	id, err := s.store.Allocate()
	if err != nil {
		return 0, fmt.Errorf("issue: allocating id: %w", err)
	}

	cert := &interfaces.Certificate{
		ID:            id,
		Beneficiary:   params.Beneficiary,
		Contract:      params.Contract,
		ChainID:       params.ChainID,
		Score:         params.Score,
		ReportPointer: params.ReportPointer,
		Issuer:        caller,
		IssuedAt:      s.now(),
		Revoked:       false,
	}

	// Record and index land atomically. A failure abandons the allocated
	// id; it will not appear anywhere and is never reused.
	if err := s.store.InsertIndexed(cert); err != nil {
		return 0, fmt.Errorf("issue: inserting certificate %d: %w", id, err)
	}

	metrics.RecordIssued()
	s.log.Info("Certificate issued",
		slog.Uint64("id", uint64(id)),
		slog.String("beneficiary", params.Beneficiary.String()),
		slog.String("contract", params.Contract.String()),
		slog.Int64("chainID", int64(params.ChainID)),
		slog.Int("score", params.Score),
		slog.String("issuer", caller.String()))

	s.publish(interfaces.CertificateIssued{
		ID:            id,
		Beneficiary:   params.Beneficiary,
		Contract:      params.Contract,
		ChainID:       params.ChainID,
		Score:         params.Score,
		ReportPointer: params.ReportPointer,
		Issuer:        caller,
	})

	return id, nil
}

// Revoke sets the certificate's revoked flag. The caller must either be the
// original issuer still holding the Auditor role, or hold the Administrator
// role. Revoking an already revoked certificate succeeds idempotently.
func (s *Service) Revoke(caller interfaces.Address, id interfaces.CertificateID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cert, err := s.store.Get(id)
	if err != nil {
		metrics.RecordOperationError("revoke", "not_found")
		return fmt.Errorf("revoke: certificate %d: %w", id, err)
	}

	isIssuer := cert.Issuer.Equal(caller) && s.roles.Has(interfaces.RoleAuditor, caller)
	isAdmin := s.roles.Has(interfaces.RoleAdministrator, caller)
	if !isIssuer && !isAdmin {
		metrics.RecordOperationError("revoke", "unauthorized")
		return fmt.Errorf("revoke: certificate %d: %w", id, interfaces.ErrUnauthorized)
	}

	if _, err := s.store.SetRevoked(id); err != nil {
		return fmt.Errorf("revoke: certificate %d: %w", id, err)
	}

	metrics.RecordRevoked()
	s.log.Info("Certificate revoked",
		slog.Uint64("id", uint64(id)),
		slog.String("caller", caller.String()))

	s.publish(interfaces.CertificateRevoked{ID: id})
	return nil
}

// GetCertificate returns the record for id. No authorization: certificate
// data is public.
func (s *Service) GetCertificate(id interfaces.CertificateID) (*interfaces.Certificate, error) {
	return s.store.Get(id)
}

// GetCertificatesFor returns the ordered ids issued against the contract,
// possibly empty. No authorization.
func (s *Service) GetCertificatesFor(chainID interfaces.ChainID, contract interfaces.Address) ([]interfaces.CertificateID, error) {
	return s.store.Lookup(chainID, contract)
}

// GrantRole adds account to role. The caller must be an Administrator.
func (s *Service) GrantRole(caller interfaces.Address, role interfaces.Role, account interfaces.Address) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.roles.Grant(caller, role, account); err != nil {
		metrics.RecordOperationError("grant_role", "unauthorized")
		return fmt.Errorf("grant role %s: %w", role, err)
	}

	s.log.Info("Role granted",
		slog.String("role", role.String()),
		slog.String("account", account.String()),
		slog.String("caller", caller.String()))
	return nil
}

// RevokeRole removes account from role. The caller must be an
// Administrator.
func (s *Service) RevokeRole(caller interfaces.Address, role interfaces.Role, account interfaces.Address) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.roles.Revoke(caller, role, account); err != nil {
		metrics.RecordOperationError("revoke_role", "unauthorized")
		return fmt.Errorf("revoke role %s: %w", role, err)
	}

	s.log.Info("Role revoked",
		slog.String("role", role.String()),
		slog.String("account", account.String()),
		slog.String("caller", caller.String()))
	return nil
}

// HasRole reports whether account holds role.
func (s *Service) HasRole(role interfaces.Role, account interfaces.Address) bool {
	return s.roles.Has(role, account)
}

func (s *Service) publish(event interfaces.Event) {
	if s.notifier != nil {
		s.notifier.Publish(event)
	}
}

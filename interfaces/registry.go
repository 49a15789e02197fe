package interfaces

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks the role required
	// for an operation.
	ErrUnauthorized = errors.New("caller not authorized")

	// ErrInvalidScore is returned when an issuance score is outside the
	// [MinScore, MaxScore] range.
	ErrInvalidScore = errors.New("score out of range")

	// ErrNotFound is returned when no certificate exists for an id.
	ErrNotFound = errors.New("certificate not found")

	// ErrAlreadyExists is returned on an id collision during insert. With a
	// correct allocator this is unreachable and kept as a defensive check.
	ErrAlreadyExists = errors.New("certificate already exists")
)

// RoleStore holds the Administrator and Auditor membership sets.
//
// Grant and Revoke require the caller to be an existing Administrator and
// return ErrUnauthorized otherwise. Both are no-ops when the membership
// already matches. Revoke will remove the last Administrator without
// complaint; guarding against lockout is the operator's concern.
type RoleStore interface {
	Grant(caller Address, role Role, account Address) error
	Revoke(caller Address, role Role, account Address) error
	Has(role Role, account Address) bool
}

// CertificateStore is the authoritative append-only certificate record
// store, keyed by sequential ids.
type CertificateStore interface {
	// Allocate reserves and returns the next sequential id. An allocated id
	// is never handed out again, even if the corresponding insert fails.
	Allocate() (CertificateID, error)

	// Insert stores a fully populated record. Returns ErrAlreadyExists if a
	// record with the same id is present.
	Insert(cert *Certificate) error

	// Get returns the record for id, or ErrNotFound.
	Get(id CertificateID) (*Certificate, error)

	// SetRevoked marks the certificate revoked and returns the updated
	// record. Revoking an already revoked certificate succeeds and leaves
	// state unchanged. Returns ErrNotFound for unknown ids.
	SetRevoked(id CertificateID) (*Certificate, error)
}

// ContractIndex maps (chain id, contract address) to the ordered list of
// certificate ids issued against that contract, oldest first. Entries are
// permanent; revocation does not prune them.
type ContractIndex interface {
	Append(chainID ChainID, contract Address, id CertificateID) error
	Lookup(chainID ChainID, contract Address) ([]CertificateID, error)
}

// RegistryStore combines the stores a registry service operates on. Both
// the in-memory and the sqlite implementations satisfy it.
type RegistryStore interface {
	CertificateStore
	ContractIndex

	// InsertIndexed stores the record and appends its id to the contract
	// index under (cert.ChainID, cert.Contract) as a single atomic step:
	// on failure neither the record nor the index entry exists. Returns
	// ErrAlreadyExists if a record with the same id is present.
	InsertIndexed(cert *Certificate) error

	Close() error
}

// Event is a registry notification. Concrete types are CertificateIssued
// and CertificateRevoked.
type Event interface {
	EventName() string
}

// CertificateIssued is emitted after a successful issuance.
type CertificateIssued struct {
	ID            CertificateID `json:"id"`
	Beneficiary   Address       `json:"beneficiary"`
	Contract      Address       `json:"contract"`
	ChainID       ChainID       `json:"chain_id"`
	Score         int           `json:"score"`
	ReportPointer string        `json:"report_pointer"`
	Issuer        Address       `json:"issuer"`
}

// EventName implements Event.
func (CertificateIssued) EventName() string { return "CertificateIssued" }

// CertificateRevoked is emitted after every successful revoke call,
// including idempotent repeats.
type CertificateRevoked struct {
	ID CertificateID `json:"id"`
}

// EventName implements Event.
func (CertificateRevoked) EventName() string { return "CertificateRevoked" }

// Notifier fans registry events out to in-process subscribers. Delivery is
// best effort: publishing never blocks the write path.
type Notifier interface {
	Publish(event Event)
	Subscribe(buffer int) (<-chan Event, func())
}

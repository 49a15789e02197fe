package registry

import (
	"sync"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

type contractKey struct {
	chainID  interfaces.ChainID
	contract interfaces.Address
}

// MemoryStore implements interfaces.RegistryStore in memory. It backs tests
// and ephemeral single-process deployments; durable deployments use
// SqliteStore.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID interfaces.CertificateID
	certs  map[interfaces.CertificateID]*interfaces.Certificate
	index  map[contractKey][]interfaces.CertificateID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		certs:  map[interfaces.CertificateID]*interfaces.Certificate{},
		index:  map[contractKey][]interfaces.CertificateID{},
	}
}

// Allocate reserves and returns the next sequential id.
func (s *MemoryStore) Allocate() (interfaces.CertificateID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	return id, nil
}

// Insert stores a fully populated record.
func (s *MemoryStore) Insert(cert *interfaces.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.certs[cert.ID]; ok {
		return interfaces.ErrAlreadyExists
	}

	stored := *cert
	s.certs[cert.ID] = &stored
	return nil
}

// InsertIndexed stores the record and appends it to the contract index
// under one lock, so both land or neither does.
func (s *MemoryStore) InsertIndexed(cert *interfaces.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.certs[cert.ID]; ok {
		return interfaces.ErrAlreadyExists
	}

	stored := *cert
	s.certs[cert.ID] = &stored

	key := contractKey{chainID: cert.ChainID, contract: cert.Contract}
	s.index[key] = append(s.index[key], cert.ID)
	return nil
}

// Get returns a copy of the record for id.
func (s *MemoryStore) Get(id interfaces.CertificateID) (*interfaces.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cert, ok := s.certs[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}

	out := *cert
	return &out, nil
}

// SetRevoked marks the certificate revoked, idempotently.
func (s *MemoryStore) SetRevoked(id interfaces.CertificateID) (*interfaces.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cert, ok := s.certs[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}

	cert.Revoked = true
	out := *cert
	return &out, nil
}

// Append adds id to the end of the contract's certificate list.
func (s *MemoryStore) Append(chainID interfaces.ChainID, contract interfaces.Address, id interfaces.CertificateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := contractKey{chainID: chainID, contract: contract}
	s.index[key] = append(s.index[key], id)
	return nil
}

// Lookup returns the ordered certificate ids issued against the contract.
func (s *MemoryStore) Lookup(chainID interfaces.ChainID, contract interfaces.Address) ([]interfaces.CertificateID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.index[contractKey{chainID: chainID, contract: contract}]
	out := make([]interfaces.CertificateID, len(ids))
	copy(out, ids)
	return out, nil
}

// Close implements interfaces.RegistryStore.
func (s *MemoryStore) Close() error {
	return nil
}

package registry

import (
	"sync"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

// RoleStore holds the Administrator and Auditor membership sets in memory.
// Reads may run concurrently with each other and with writes.
type RoleStore struct {
	mu      sync.RWMutex
	members map[interfaces.Role]map[interfaces.Address]struct{}
}

// NewRoleStore creates a role store with creator as the initial
// Administrator.
func NewRoleStore(creator interfaces.Address) *RoleStore {
	members := map[interfaces.Role]map[interfaces.Address]struct{}{
		interfaces.RoleAdministrator: {creator: {}},
		interfaces.RoleAuditor:       {},
	}
	return &RoleStore{members: members}
}

// Grant adds account to the role's set. The caller must be an existing
// Administrator. Granting an already held role is a no-op.
func (s *RoleStore) Grant(caller interfaces.Address, role interfaces.Role, account interfaces.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[interfaces.RoleAdministrator][caller]; !ok {
		return interfaces.ErrUnauthorized
	}

	set, ok := s.members[role]
	if !ok {
		set = map[interfaces.Address]struct{}{}
		s.members[role] = set
	}
	set[account] = struct{}{}
	return nil
}

// Revoke removes account from the role's set. The caller must be an
// existing Administrator. Revoking an absent membership is a no-op.
//
// Revoke will remove the last Administrator, including the caller itself.
// Operators are expected to keep at least one Administrator around.
func (s *RoleStore) Revoke(caller interfaces.Address, role interfaces.Role, account interfaces.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[interfaces.RoleAdministrator][caller]; !ok {
		return interfaces.ErrUnauthorized
	}

	delete(s.members[role], account)
	return nil
}

// Has reports whether account holds role. It never fails.
func (s *RoleStore) Has(role interfaces.Role, account interfaces.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.members[role][account]
	return ok
}

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

func TestRoleStoreCreatorIsAdministrator(t *testing.T) {
	roles := NewRoleStore(admin)

	assert.True(t, roles.Has(interfaces.RoleAdministrator, admin))
	assert.False(t, roles.Has(interfaces.RoleAuditor, admin))
}

func TestRoleStoreGrantRequiresAdministrator(t *testing.T) {
	roles := NewRoleStore(admin)

	err := roles.Grant(stranger, interfaces.RoleAuditor, auditor)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)
	assert.False(t, roles.Has(interfaces.RoleAuditor, auditor))

	require.NoError(t, roles.Grant(admin, interfaces.RoleAuditor, auditor))
	assert.True(t, roles.Has(interfaces.RoleAuditor, auditor))

	// Granting again is a no-op.
	require.NoError(t, roles.Grant(admin, interfaces.RoleAuditor, auditor))
	assert.True(t, roles.Has(interfaces.RoleAuditor, auditor))
}

func TestRoleStoreRevoke(t *testing.T) {
	roles := NewRoleStore(admin)
	require.NoError(t, roles.Grant(admin, interfaces.RoleAuditor, auditor))

	err := roles.Revoke(auditor, interfaces.RoleAuditor, auditor)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	require.NoError(t, roles.Revoke(admin, interfaces.RoleAuditor, auditor))
	assert.False(t, roles.Has(interfaces.RoleAuditor, auditor))

	// Revoking an absent membership is a no-op.
	require.NoError(t, roles.Revoke(admin, interfaces.RoleAuditor, auditor))
}

func TestRoleStoreAccountMayHoldBothRoles(t *testing.T) {
	roles := NewRoleStore(admin)

	require.NoError(t, roles.Grant(admin, interfaces.RoleAuditor, admin))
	assert.True(t, roles.Has(interfaces.RoleAdministrator, admin))
	assert.True(t, roles.Has(interfaces.RoleAuditor, admin))
}

func TestRoleStoreLastAdministratorMayBeRemoved(t *testing.T) {
	roles := NewRoleStore(admin)

	require.NoError(t, roles.Revoke(admin, interfaces.RoleAdministrator, admin))
	assert.False(t, roles.Has(interfaces.RoleAdministrator, admin))

	// The store is now locked out of role mutation entirely.
	err := roles.Grant(admin, interfaces.RoleAuditor, auditor)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)
}

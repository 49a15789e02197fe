package registry

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

var (
	admin       = testAddr(0x01)
	auditor     = testAddr(0x02)
	beneficiary = testAddr(0x03)
	stranger    = testAddr(0x04)
	deadBeef    = mustAddr("0x000000000000000000000000000000000000dEaD")
)

const localChainID = interfaces.ChainID(31337)

func testAddr(b byte) interfaces.Address {
	var a interfaces.Address
	a[19] = b
	return a
}

func mustAddr(hex string) interfaces.Address {
	a, err := interfaces.NewAddressFromHex(hex)
	if err != nil {
		panic(err)
	}
	return a
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	roles := NewRoleStore(admin)
	require.NoError(t, roles.Grant(admin, interfaces.RoleAuditor, auditor))

	return NewService(roles, NewMemoryStore(), NewChanNotifier(logger), logger)
}

func TestIssueAndRevokeLifecycle(t *testing.T) {
	svc := newTestService(t)

	id, err := svc.Issue(auditor, IssueParams{
		Beneficiary:   beneficiary,
		Contract:      deadBeef,
		ChainID:       localChainID,
		Score:         95,
		ReportPointer: "QmHash1",
	})
	require.NoError(t, err)
	assert.Equal(t, interfaces.CertificateID(1), id)

	cert, err := svc.GetCertificate(id)
	require.NoError(t, err)
	assert.Equal(t, 95, cert.Score)
	assert.Equal(t, "QmHash1", cert.ReportPointer)
	assert.Equal(t, beneficiary, cert.Beneficiary)
	assert.Equal(t, auditor, cert.Issuer)
	assert.False(t, cert.Revoked)
	assert.False(t, cert.IssuedAt.IsZero())

	require.NoError(t, svc.Revoke(auditor, id))

	cert, err = svc.GetCertificate(id)
	require.NoError(t, err)
	assert.True(t, cert.Revoked)
}

func TestIssueRejectsOutOfRangeScores(t *testing.T) {
	svc := newTestService(t)

	for _, score := range []int{0, 101, -1, 1000} {
		_, err := svc.Issue(auditor, IssueParams{
			Beneficiary:   beneficiary,
			Contract:      deadBeef,
			ChainID:       localChainID,
			Score:         score,
			ReportPointer: "QmInvalidScore",
		})
		assert.ErrorIs(t, err, interfaces.ErrInvalidScore, "score %d", score)
	}

	// Rejected issuances must not consume ids: the next valid issuance
	// still gets id 1.
	id, err := svc.Issue(auditor, IssueParams{
		Beneficiary:   beneficiary,
		Contract:      deadBeef,
		ChainID:       localChainID,
		Score:         interfaces.MinScore,
		ReportPointer: "QmValid",
	})
	require.NoError(t, err)
	assert.Equal(t, interfaces.CertificateID(1), id)
}

func TestIssueRequiresAuditorRole(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Issue(stranger, IssueParams{
		Beneficiary:   beneficiary,
		Contract:      deadBeef,
		ChainID:       localChainID,
		Score:         80,
		ReportPointer: "QmOtroHash",
	})
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	// Admin role alone does not permit issuance either.
	_, err = svc.Issue(admin, IssueParams{
		Beneficiary:   beneficiary,
		Contract:      deadBeef,
		ChainID:       localChainID,
		Score:         80,
		ReportPointer: "QmOtroHash",
	})
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	ids, err := svc.GetCertificatesFor(localChainID, deadBeef)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestCertificateIDsAreDenseAndOrdered(t *testing.T) {
	svc := newTestService(t)
	otherContract := testAddr(0x77)

	var deadIDs []interfaces.CertificateID
	for i := 0; i < 3; i++ {
		id, err := svc.Issue(auditor, IssueParams{
			Beneficiary:   beneficiary,
			Contract:      deadBeef,
			ChainID:       localChainID,
			Score:         50 + i,
			ReportPointer: "QmHash",
		})
		require.NoError(t, err)
		assert.Equal(t, interfaces.CertificateID(2*i+1), id)
		deadIDs = append(deadIDs, id)

		// Interleave issuances against another contract.
		_, err = svc.Issue(auditor, IssueParams{
			Beneficiary:   beneficiary,
			Contract:      otherContract,
			ChainID:       localChainID,
			Score:         60,
			ReportPointer: "QmOther",
		})
		require.NoError(t, err)
	}

	ids, err := svc.GetCertificatesFor(localChainID, deadBeef)
	require.NoError(t, err)
	assert.Equal(t, deadIDs, ids)

	otherIDs, err := svc.GetCertificatesFor(localChainID, otherContract)
	require.NoError(t, err)
	assert.Equal(t, []interfaces.CertificateID{2, 4, 6}, otherIDs)
}

func TestRevokeAuthorization(t *testing.T) {
	svc := newTestService(t)

	id, err := svc.Issue(auditor, IssueParams{
		Beneficiary:   beneficiary,
		Contract:      deadBeef,
		ChainID:       localChainID,
		Score:         75,
		ReportPointer: "QmToRevoke",
	})
	require.NoError(t, err)

	// Neither issuer nor admin: rejected, state unchanged.
	err = svc.Revoke(stranger, id)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	cert, err := svc.GetCertificate(id)
	require.NoError(t, err)
	assert.False(t, cert.Revoked)

	// The beneficiary has no standing either.
	err = svc.Revoke(beneficiary, id)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	// The issuer may revoke its own certificate.
	require.NoError(t, svc.Revoke(auditor, id))

	cert, err = svc.GetCertificate(id)
	require.NoError(t, err)
	assert.True(t, cert.Revoked)

	// A second revocation by the issuer is an idempotent no-op.
	require.NoError(t, svc.Revoke(auditor, id))

	cert, err = svc.GetCertificate(id)
	require.NoError(t, err)
	assert.True(t, cert.Revoked)
}

func TestAdminMayRevokeAnyCertificate(t *testing.T) {
	svc := newTestService(t)

	id, err := svc.Issue(auditor, IssueParams{
		Beneficiary:   beneficiary,
		Contract:      deadBeef,
		ChainID:       localChainID,
		Score:         85,
		ReportPointer: "QmAdminRevoke",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(admin, id))

	cert, err := svc.GetCertificate(id)
	require.NoError(t, err)
	assert.True(t, cert.Revoked)
}

func TestRevokeUnknownCertificate(t *testing.T) {
	svc := newTestService(t)

	err := svc.Revoke(admin, 42)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestIssuerLosesRevocationRightsWithRole(t *testing.T) {
	svc := newTestService(t)

	id, err := svc.Issue(auditor, IssueParams{
		Beneficiary:   beneficiary,
		Contract:      deadBeef,
		ChainID:       localChainID,
		Score:         70,
		ReportPointer: "QmHash",
	})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeRole(admin, interfaces.RoleAuditor, auditor))

	err = svc.Revoke(auditor, id)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)
}

func TestIssueEmitsEvent(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	roles := NewRoleStore(admin)
	require.NoError(t, roles.Grant(admin, interfaces.RoleAuditor, auditor))

	notifier := NewChanNotifier(logger)
	events, cancel := notifier.Subscribe(4)
	defer cancel()

	svc := NewService(roles, NewMemoryStore(), notifier, logger)

	id, err := svc.Issue(auditor, IssueParams{
		Beneficiary:   beneficiary,
		Contract:      deadBeef,
		ChainID:       localChainID,
		Score:         95,
		ReportPointer: "QmHash1",
	})
	require.NoError(t, err)

	issued, ok := (<-events).(interfaces.CertificateIssued)
	require.True(t, ok)
	assert.Equal(t, id, issued.ID)
	assert.Equal(t, beneficiary, issued.Beneficiary)
	assert.Equal(t, 95, issued.Score)
	assert.Equal(t, "QmHash1", issued.ReportPointer)
	assert.Equal(t, auditor, issued.Issuer)

	require.NoError(t, svc.Revoke(admin, id))

	revoked, ok := (<-events).(interfaces.CertificateRevoked)
	require.True(t, ok)
	assert.Equal(t, id, revoked.ID)
}

func TestIssueAbandonsIDOnInsertFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	roles := NewRoleStore(admin)
	require.NoError(t, roles.Grant(admin, interfaces.RoleAuditor, auditor))

	store := new(MockStore)
	store.On("Allocate").Return(interfaces.CertificateID(1), nil)
	store.On("InsertIndexed", mock.Anything).Return(errors.New("disk full"))

	svc := NewService(roles, store, nil, logger)

	_, err := svc.Issue(auditor, IssueParams{
		Beneficiary:   beneficiary,
		Contract:      deadBeef,
		ChainID:       localChainID,
		Score:         90,
		ReportPointer: "QmHash",
	})
	require.Error(t, err)

	// Record and index are written through the single atomic call; nothing
	// else may touch either.
	store.AssertNotCalled(t, "Insert", mock.Anything)
	store.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestMemoryStoreInsertIndexedIsAtomic(t *testing.T) {
	store := NewMemoryStore()

	id, err := store.Allocate()
	require.NoError(t, err)

	cert := &interfaces.Certificate{
		ID:       id,
		Contract: deadBeef,
		ChainID:  localChainID,
		Score:    90,
		Issuer:   auditor,
	}
	require.NoError(t, store.Insert(cert))

	// Colliding with the existing record must leave the index untouched.
	err = store.InsertIndexed(cert)
	require.ErrorIs(t, err, interfaces.ErrAlreadyExists)

	ids, err := store.Lookup(localChainID, deadBeef)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

package registry

import (
	"github.com/stretchr/testify/mock"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

// MockStore mocks the interfaces.RegistryStore interface.
type MockStore struct {
	mock.Mock
}

// Allocate mocks the Allocate method
func (m *MockStore) Allocate() (interfaces.CertificateID, error) {
	args := m.Called()
	return args.Get(0).(interfaces.CertificateID), args.Error(1)
}

// Insert mocks the Insert method
func (m *MockStore) Insert(cert *interfaces.Certificate) error {
	args := m.Called(cert)
	return args.Error(0)
}

// InsertIndexed mocks the InsertIndexed method
func (m *MockStore) InsertIndexed(cert *interfaces.Certificate) error {
	args := m.Called(cert)
	return args.Error(0)
}

// Get mocks the Get method
func (m *MockStore) Get(id interfaces.CertificateID) (*interfaces.Certificate, error) {
	args := m.Called(id)
	cert, _ := args.Get(0).(*interfaces.Certificate)
	return cert, args.Error(1)
}

// SetRevoked mocks the SetRevoked method
func (m *MockStore) SetRevoked(id interfaces.CertificateID) (*interfaces.Certificate, error) {
	args := m.Called(id)
	cert, _ := args.Get(0).(*interfaces.Certificate)
	return cert, args.Error(1)
}

// Append mocks the Append method
func (m *MockStore) Append(chainID interfaces.ChainID, contract interfaces.Address, id interfaces.CertificateID) error {
	args := m.Called(chainID, contract, id)
	return args.Error(0)
}

// Lookup mocks the Lookup method
func (m *MockStore) Lookup(chainID interfaces.ChainID, contract interfaces.Address) ([]interfaces.CertificateID, error) {
	args := m.Called(chainID, contract)
	ids, _ := args.Get(0).([]interfaces.CertificateID)
	return ids, args.Error(1)
}

// Close mocks the Close method
func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

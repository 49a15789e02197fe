// Package interfaces defines the core types and component contracts of the
// audit certificate registry. It provides the contract between different
// components without implementation details.
package interfaces

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Address is a 20-byte account or contract address.
type Address [20]byte

// NewAddressFromBytes creates an address from a raw 20-byte slice.
func NewAddressFromBytes(addr []byte) (Address, error) {
	if len(addr) != 20 {
		return Address{}, errors.New("invalid address length: must be 20 bytes")
	}

	var res Address
	copy(res[:], addr)
	return res, nil
}

// NewAddressFromHex creates an address from a hex string, with or without
// the 0x prefix.
func NewAddressFromHex(addr string) (Address, error) {
	clean := strings.TrimPrefix(strings.ToLower(addr), "0x")
	if len(clean) != 40 {
		return Address{}, errors.New("invalid address length: hex string must be 40 characters")
	}

	addrBytes, err := hex.DecodeString(clean)
	if err != nil {
		return Address{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewAddressFromBytes(addrBytes)
}

// String returns the 0x-prefixed hex representation of the address.
func (addr Address) String() string {
	return "0x" + hex.EncodeToString(addr[:])
}

// Bytes returns the raw 20-byte address.
func (addr Address) Bytes() []byte {
	return addr[:]
}

// Equal compares two addresses for equality.
func (addr Address) Equal(other Address) bool {
	return addr == other
}

// IsZero reports whether the address is all zeroes.
func (addr Address) IsZero() bool {
	return addr == Address{}
}

// MarshalJSON encodes the address as a 0x-prefixed hex string.
func (addr Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(addr.String())
}

// UnmarshalJSON decodes a hex string address.
func (addr *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := NewAddressFromHex(s)
	if err != nil {
		return err
	}
	*addr = parsed
	return nil
}

// ChainID identifies the network an audited contract is deployed on.
type ChainID int64

// CertificateID is a sequential certificate identifier. Ids start at 1 and
// are dense: the nth issued certificate has id n.
type CertificateID uint64

// Score bounds enforced at issuance.
const (
	MinScore = 1
	MaxScore = 100
)

// Certificate is the record created by a successful issuance. Every field
// except Revoked is write-once.
type Certificate struct {
	ID            CertificateID `json:"id"`
	Beneficiary   Address       `json:"beneficiary"`
	Contract      Address       `json:"contract"`
	ChainID       ChainID       `json:"chain_id"`
	Score         int           `json:"score"`
	ReportPointer string        `json:"report_pointer"`
	Issuer        Address       `json:"issuer"`
	IssuedAt      time.Time     `json:"issued_at"`
	Revoked       bool          `json:"revoked"`
}

// Role is a registry permission set. An account may hold both roles.
type Role int

const (
	// RoleAdministrator manages role membership and may revoke any
	// certificate.
	RoleAdministrator Role = iota

	// RoleAuditor may issue certificates and revoke its own issuances.
	RoleAuditor
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleAdministrator:
		return "administrator"
	case RoleAuditor:
		return "auditor"
	default:
		return "unknown"
	}
}

// ParseRole converts a role name to a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "administrator", "admin":
		return RoleAdministrator, nil
	case "auditor":
		return RoleAuditor, nil
	default:
		return 0, fmt.Errorf("unknown role: %q", s)
	}
}

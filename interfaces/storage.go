package interfaces

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ContentID is the 32-byte SHA-256 hash identifying a stored audit report.
// Its hex form is the report pointer recorded on certificates issued
// through this service.
type ContentID [32]byte

// NewContentIDFromBytes creates a content ID from a raw 32-byte slice.
func NewContentIDFromBytes(source []byte) (ContentID, error) {
	if len(source) != 32 {
		return ContentID{}, errors.New("invalid ContentID conversion from bytes: incorrect length")
	}

	var hash [32]byte
	copy(hash[:], source)
	return ContentID(hash), nil
}

// NewContentIDFromHex creates a content ID from a hex string, with or
// without the 0x prefix.
func NewContentIDFromHex(source string) (ContentID, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return ContentID{}, errors.New("invalid content ID length: hex string must be 64 characters")
	}

	hashBytes, err := hex.DecodeString(clean)
	if err != nil {
		return ContentID{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var hash [32]byte
	copy(hash[:], hashBytes)
	return ContentID(hash), nil
}

// ComputeID calculates the content ID of a report blob.
func ComputeID(data []byte) ContentID {
	hash := sha256.Sum256(data)
	return ContentID(hash)
}

// String returns the hex representation.
func (id ContentID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw 32-byte hash.
func (id ContentID) Bytes() []byte {
	return id[:]
}

// Equal compares two content IDs.
func (id ContentID) Equal(other ContentID) bool {
	return bytes.Equal(id[:], other[:])
}

// ReportLocation is a report storage backend URI.
// Format: [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes: file, s3, ipfs, vault.
type ReportLocation string

var (
	// ErrContentNotFound is returned when a report cannot be found in the
	// storage backend.
	ErrContentNotFound = errors.New("report not found")

	// ErrBackendUnavailable is returned when a storage backend is not
	// accessible, due to network issues, authentication failures, or
	// service outages.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a report location URI is
	// malformed or uses an unsupported scheme.
	ErrInvalidLocationURI = errors.New("invalid report location URI")
)

// ReportStorage provides content-addressed audit report storage.
type ReportStorage interface {
	// Fetch retrieves a report by content ID.
	Fetch(ctx context.Context, id ContentID) ([]byte, error)

	// Store saves a report and returns its content ID.
	Store(ctx context.Context, data []byte) (ContentID, error)

	// Available checks if the backend is accessible.
	Available(ctx context.Context) bool

	// Name returns the backend type name for logging.
	Name() string

	// LocationURI returns the URI this backend was created from.
	LocationURI() string
}

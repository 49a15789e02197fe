package reportstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

// FileStore keeps audit reports on the local file system, one file per
// content id under a reports subdirectory.
type FileStore struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileStore creates a file-backed report store rooted at baseDir,
// creating the directory tree if needed.
func NewFileStore(baseDir string, log *slog.Logger) (*FileStore, error) {
	reportsDir := filepath.Join(baseDir, "reports")
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}

	return &FileStore{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Fetch retrieves a report by content id. Returns ErrContentNotFound if no
// file exists for it.
func (b *FileStore) Fetch(ctx context.Context, id interfaces.ContentID) ([]byte, error) {
	path := b.reportPath(id)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, interfaces.ErrContentNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}

	b.log.Debug("Fetched report from file",
		slog.String("path", path),
		slog.Int("size", len(data)))

	return data, nil
}

// Store writes the report under its content id.
func (b *FileStore) Store(ctx context.Context, data []byte) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	path := b.reportPath(id)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return id, fmt.Errorf("failed to write report file: %w", err)
	}

	b.log.Debug("Stored report in file",
		slog.String("path", path),
		slog.Int("size", len(data)))

	return id, nil
}

// Available checks that the base directory is accessible.
func (b *FileStore) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	return err == nil
}

// Name returns a unique identifier for this backend.
func (b *FileStore) Name() string {
	return fmt.Sprintf("file-%s", b.baseDir)
}

// LocationURI returns the URI that identifies this backend.
func (b *FileStore) LocationURI() string {
	return b.locationURI
}

func (b *FileStore) reportPath(id interfaces.ContentID) string {
	return filepath.Join(b.baseDir, "reports", id.String())
}

package reportstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

// MultiStore implements interfaces.ReportStorage over multiple backends
// with fallback. Fetch returns the first hit; Store writes to every
// available backend.
type MultiStore struct {
	backends []interfaces.ReportStorage
	log      *slog.Logger
}

// NewMultiStore creates a multi-backend report store.
func NewMultiStore(backends []interfaces.ReportStorage, log *slog.Logger) *MultiStore {
	if log == nil {
		log = slog.Default()
	}
	return &MultiStore{
		backends: backends,
		log:      log,
	}
}

// Fetch tries each backend in order, skipping unavailable ones, and returns
// the first successful result. When every backend fails, the error
// aggregates each backend's reason.
func (m *MultiStore) Fetch(ctx context.Context, id interfaces.ContentID) ([]byte, error) {
	start := time.Now()
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Report backend unavailable",
				slog.String("backend", backend.Name()),
				slog.String("content_id", id.String()))
			continue
		}

		data, err := backend.Fetch(ctx, id)
		if err == nil {
			m.log.Debug("Fetched report",
				slog.String("backend", backend.Name()),
				slog.String("content_id", id.String()),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
	}

	m.log.Error("All report backends failed to fetch",
		slog.String("content_id", id.String()),
		slog.Int("failed_backends", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil, fmt.Errorf("all backends failed to fetch report %s: %v", id, errs)
}

// Store saves the report to all available backends. It succeeds when at
// least one backend accepted the write.
func (m *MultiStore) Store(ctx context.Context, data []byte) (interfaces.ContentID, error) {
	var (
		result  interfaces.ContentID
		success bool
		errs    []error
	)

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Report backend unavailable", slog.String("backend", backend.Name()))
			continue
		}

		id, err := backend.Store(ctx, data)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			continue
		}

		if !success {
			result = id
			success = true
			m.log.Info("Stored report",
				slog.String("backend", backend.Name()),
				slog.String("content_id", id.String()))
		}
	}

	if !success {
		return result, fmt.Errorf("all backends failed to store report: %v", errs)
	}

	return result, nil
}

// Available reports whether any backend is available.
func (m *MultiStore) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend.
func (m *MultiStore) Name() string {
	return "multi-store"
}

// LocationURI returns the combined URI of all backends.
func (m *MultiStore) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}
	return "multi:[" + strings.Join(locations, ",") + "]"
}

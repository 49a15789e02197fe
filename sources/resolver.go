package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
	"github.com/proofofaudit/audit-registry-backend/metrics"
)

var (
	// ErrSourceNotFound is a provider miss: the provider was reachable but
	// has no source for the query.
	ErrSourceNotFound = errors.New("source not found")

	// ErrNotSupported means the provider cannot serve this kind of query,
	// e.g. an address lookup against an IPFS gateway.
	ErrNotSupported = errors.New("query not supported by provider")
)

// Provider is one source-acquisition strategy.
type Provider interface {
	// Name identifies the provider in logs and aggregated errors.
	Name() string

	// Resolve attempts to produce source for the query. Misses are
	// ErrSourceNotFound, inapplicable queries ErrNotSupported.
	Resolve(ctx context.Context, query interfaces.SourceQuery) (*interfaces.ResolvedSource, error)
}

// Resolver implements interfaces.SourceResolver over an ordered provider
// chain.
type Resolver struct {
	providers []Provider
	log       *slog.Logger
}

// NewResolver creates a resolver trying providers in the given order.
func NewResolver(providers []Provider, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		providers: providers,
		log:       log,
	}
}

// Resolve tries each provider in order and returns the first success.
// Providers that do not support the query are skipped silently; misses and
// errors are aggregated into the failure returned when no provider
// succeeds.
func (r *Resolver) Resolve(ctx context.Context, query interfaces.SourceQuery) (*interfaces.ResolvedSource, error) {
	start := time.Now()
	var errs []error

	for _, provider := range r.providers {
		result, err := provider.Resolve(ctx, query)
		if err == nil {
			metrics.RecordSourceResolution(provider.Name(), "hit")
			r.log.Info("Resolved source",
				slog.String("provider", provider.Name()),
				slog.String("origin", string(result.Origin)),
				slog.Duration("duration", time.Since(start)))
			return result, nil
		}

		if errors.Is(err, ErrNotSupported) {
			continue
		}

		if errors.Is(err, ErrSourceNotFound) {
			metrics.RecordSourceResolution(provider.Name(), "miss")
		} else {
			metrics.RecordSourceResolution(provider.Name(), "error")
		}

		errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), err))
		r.log.Debug("Provider failed to resolve source",
			slog.String("provider", provider.Name()),
			"err", err)
	}

	r.log.Warn("All providers failed to resolve source",
		slog.Int("failed_providers", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil, fmt.Errorf("no source or bytecode found: %v", errs)
}

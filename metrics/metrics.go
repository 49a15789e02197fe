// Package metrics exposes prometheus metrics for the audit registry on a
// dedicated listener, separate from the API server.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	certificatesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_registry_certificates_issued_total",
		Help: "Number of certificates issued since process start",
	})
	certificatesRevoked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_registry_certificates_revoked_total",
		Help: "Number of revoke operations applied since process start",
	})
	operationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_registry_operation_errors_total",
		Help: "Rejected registry operations by error kind",
	}, []string{"operation", "kind"})
	sourceResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_registry_source_resolutions_total",
		Help: "Source resolution outcomes by provider",
	}, []string{"provider", "outcome"})
	serviceUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "audit_registry_up",
		Help: "Set to 1 while the named service's metrics listener is configured",
	}, []string{"service"})
)

// RecordIssued increments the issued certificate counter.
func RecordIssued() { certificatesIssued.Inc() }

// RecordRevoked increments the revoke counter.
func RecordRevoked() { certificatesRevoked.Inc() }

// RecordOperationError counts a rejected issue/revoke/role operation.
func RecordOperationError(operation, kind string) {
	operationErrors.WithLabelValues(operation, kind).Inc()
}

// RecordSourceResolution counts a provider attempt outcome ("hit", "miss" or
// "error").
func RecordSourceResolution(provider, outcome string) {
	sourceResolutions.WithLabelValues(provider, outcome).Inc()
}

// MetricsServer serves the prometheus handler on its own address.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the given listen address. The name is
// reported as the service label on the up gauge.
func New(name, listenAddr string) (*MetricsServer, error) {
	serviceUp.WithLabelValues(name).Set(1)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:         listenAddr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}, nil
}

// ListenAndServe blocks serving metrics until Shutdown is called.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

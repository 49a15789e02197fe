package reportstore

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

// Factory creates report storage backends from location URIs and assembles
// multi-backend configurations.
type Factory struct {
	log *slog.Logger
}

// NewFactory creates a backend factory.
func NewFactory(log *slog.Logger) *Factory {
	if log == nil {
		log = slog.Default()
	}
	return &Factory{log: log}
}

// StorageFor creates a report storage backend from a location URI.
// Supported schemes: file, s3, ipfs, vault.
func (f *Factory) StorageFor(location interfaces.ReportLocation) (interfaces.ReportStorage, error) {
	u, err := url.Parse(string(location))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return f.createFileStore(u)
	case "s3":
		return f.createS3Store(u)
	case "ipfs":
		return f.createIPFSStore(u)
	case "vault":
		return f.createVaultStore(u)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", interfaces.ErrInvalidLocationURI, u.Scheme)
	}
}

// CreateMultiStore creates a multi-backend store from a list of location
// URIs, skipping URIs that fail to produce a backend. It fails when no
// backend could be created.
func (f *Factory) CreateMultiStore(locations []interfaces.ReportLocation) (interfaces.ReportStorage, error) {
	backends := make([]interfaces.ReportStorage, 0, len(locations))

	for _, loc := range locations {
		backend, err := f.StorageFor(loc)
		if err != nil {
			f.log.Warn("Failed to create report backend",
				"err", err,
				slog.String("location", string(loc)))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid report backends created")
	}

	return NewMultiStore(backends, f.log), nil
}

// createFileStore expects file:///path/to/reports.
func (f *Factory) createFileStore(u *url.URL) (interfaces.ReportStorage, error) {
	dir := u.Path
	if u.Host != "" {
		dir = u.Host + u.Path
	}
	if dir == "" {
		return nil, fmt.Errorf("%w: file URI has no path", interfaces.ErrInvalidLocationURI)
	}
	return NewFileStore(dir, f.log)
}

// createS3Store expects s3://bucket/prefix?region=...&endpoint=...
// Credentials come from access_key/secret_key params or ambient AWS config.
func (f *Factory) createS3Store(u *url.URL) (interfaces.ReportStorage, error) {
	bucket := u.Host
	if bucket == "" {
		return nil, fmt.Errorf("%w: s3 URI has no bucket", interfaces.ErrInvalidLocationURI)
	}

	region := u.Query().Get("region")
	if region == "" {
		region = "us-east-1"
	}

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
	}

	prefix := strings.TrimPrefix(u.Path, "/")
	return NewS3Store(bucket, prefix, region, u.Query().Get("endpoint"), accessKey, secretKey, f.log)
}

// createIPFSStore expects ipfs://host:port.
func (f *Factory) createIPFSStore(u *url.URL) (interfaces.ReportStorage, error) {
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: ipfs URI has no host", interfaces.ErrInvalidLocationURI)
	}

	port := u.Port()
	if port == "" {
		port = "5001"
	}
	return NewIPFSStore(host, port, f.log)
}

// createVaultStore expects vault://host:port/mount/path?token=... with an
// https scheme assumed for the Vault address.
func (f *Factory) createVaultStore(u *url.URL) (interfaces.ReportStorage, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("%w: vault URI has no host", interfaces.ErrInvalidLocationURI)
	}

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	mount := "secret"
	dataPath := "reports"
	if len(parts) > 0 && parts[0] != "" {
		mount = parts[0]
	}
	if len(parts) > 1 {
		dataPath = parts[1]
	}

	scheme := "https"
	if u.Query().Get("insecure") == "true" {
		scheme = "http"
	}
	address := fmt.Sprintf("%s://%s", scheme, u.Host)

	return NewVaultStore(address, mount, dataPath, u.Query().Get("token"), f.log)
}

// Package common holds shared constants and the logger setup used by all
// binaries in the audit registry backend.
package common

// PackageName is used as the prometheus namespace and the default service
// tag in logs.
const PackageName = "audit_registry"

// Version is set at build time via -ldflags.
var Version = "dev"

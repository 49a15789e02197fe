// Package reportstore provides content-addressed storage for audit reports
// with pluggable backends.
//
// Certificates record a report pointer; when reports are published through
// this service, the pointer is the hex SHA-256 content id assigned by this
// package. Backends are created from location URIs:
//
//   - file:///var/lib/audit-registry/reports/
//   - s3://bucket-name/prefix/?region=us-west-2
//   - ipfs://ipfs.example.com:5001/
//   - vault://vault.example.com:8200/secret/reports
//
// A MultiStore aggregates several backends: Store writes to every available
// backend, Fetch tries them in order and returns the first hit, aggregating
// per-backend failures when all miss.
package reportstore

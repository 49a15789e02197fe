// Package registry implements the audit certificate registry: an
// append-only record store for tamper-evident audit certificates, the
// role-gated write path around it, and its read-side indices.
//
// The package is built from four pieces:
//
//   - RoleStore: the Administrator and Auditor membership sets with
//     admin-gated grant and revoke operations.
//   - CertificateStore / ContractIndex: the authoritative certificate
//     records and the (chain id, contract address) secondary index. Two
//     implementations exist, an in-memory MemoryStore and a durable
//     SqliteStore.
//   - Service: the public operation surface (Issue, Revoke, GetCertificate,
//     GetCertificatesFor, GrantRole, RevokeRole) that composes the stores
//     and enforces authorization and validation before any mutation.
//   - Notifier: best-effort in-process fan-out of CertificateIssued and
//     CertificateRevoked events to indexers and UIs.
//
// # State machine
//
// A certificate passes through nonexistent -> active -> revoked. Issue
// requires the Auditor role and a score within [1, 100]; revoke requires
// the caller to be the original issuer holding the Auditor role, or any
// Administrator. Revoking an already revoked certificate is an idempotent
// no-op. Revocation never removes the certificate from the index: it is a
// status flag, not a deletion.
//
// # Consistency
//
// All writes are serialized through a single mutex inside Service, so every
// Issue and Revoke runs to completion before the next begins. Validation
// and authorization run entirely before any mutation, giving each call
// all-or-nothing semantics without a rollback log. Certificate ids are
// allocated sequentially starting at 1 and are never reused, even if the
// insert following an allocation fails.
package registry

/*
Package httpserver implements the HTTP API for the audit certificate registry.

It exposes the registry operations (issue, revoke, read), role administration,
report storage, contract source resolution, and advisory generation over a
single chi router, plus the usual health and diagnostics endpoints.

# API Endpoints

Certificate operations:

  - POST /api/certificates - issue a certificate (auditor role required)
  - POST /api/certificates/{id}/revoke - revoke a certificate (issuer or administrator)
  - GET /api/certificates/{id} - fetch a certificate by id
  - GET /api/contracts/{chain_id}/{contract_address}/certificates - list certificates for a contract

Role administration (administrator role required for mutations):

  - POST /api/roles/grant - grant a role to an account
  - POST /api/roles/revoke - revoke a role from an account
  - GET /api/roles/{role}/{account} - check role membership

Collaborators:

  - GET /api/sources/{chain_id}/{contract_address} - resolve contract source
  - POST /api/analyze - generate a security advisory for a source blob
  - POST /api/reports - store an audit report, returns its content id
  - GET /api/reports/{content_id} - fetch a stored report

Health and diagnostics:

  - GET /livez - liveness check
  - GET /readyz - readiness check
  - GET /drain - mark the server as not ready
  - GET /undrain - mark the server as ready

# Caller Identity

Mutating registry endpoints authenticate the caller through the
X-Registry-Caller header, a hex-encoded account address. Signature-based
authentication is deliberately out of scope; the server is expected to sit
behind an authenticating proxy.

# Error Mapping

Registry sentinel errors map onto HTTP status codes: authorization failures
return 401, score validation failures 400, missing certificates 404, and
duplicate inserts 409. All error responses are JSON objects with a single
"error" field.
*/
package httpserver

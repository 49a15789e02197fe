// Package sources resolves the source code or bytecode of an audited
// contract from external providers.
//
// Providers are tried in priority order and each returns a tagged outcome;
// resolution stops at the first success and aggregates every provider's
// failure reason when all fail:
//
//  1. Sourcify verified-source repository (full match, then partial match).
//  2. Block-explorer API, only for networks with a configured credential.
//  3. Direct on-chain bytecode retrieval over RPC.
//  4. Content-addressed fetch across IPFS gateways, for report pointers.
//
// The registry core never calls this package; it is an upstream producer of
// the material audits are performed on.
package sources

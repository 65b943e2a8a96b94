// Package session provides the Redis-backed store for refresh-token family records.
//
// # Key layout
//
// Each token family owns one record at "{namespace}:{subject}:{family}" holding
// a JSON document {token, created_at, used, used_at, token_family}. Consumed
// credentials are remembered as SHA-256 hashes in a per-family ledger set at
// "{namespace}.consumed:{subject}:{family}" so that presenting any ancestor of
// the current credential is recognised as reuse. Both keys expire with the
// refresh lifetime.
//
// # Atomicity
//
// The check-then-mark-used step runs in a single Lua script ([Store.Consume]).
// The successor write ([Store.Advance]) is a second script that only succeeds
// while the record still holds the consumed credential, so a revocation racing
// with a rotation can never be undone by it.
//
// # What this package must NOT do
//
//   - Import sessioncore or jwt (no upward imports).
//   - Interpret credential claims or make authorization decisions.
package session

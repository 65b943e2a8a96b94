// Package sessioncore issues, verifies and rotates bearer credentials for a
// web backend: short-lived access credentials carrying the subject's roles,
// and long-lived single-use refresh credentials grouped into token families.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// sessioncore is the public surface. It exposes [Engine], [Builder], [Config] and value
// types ([TokenPair], [RotationResult], [SessionInfo]). Flow orchestration, rate limiting
// and audit dispatch live under internal/. The credential codec, the Redis session store,
// password hashing and the role vocabulary are importable leaf packages.
//
// # Refresh rotation
//
// Every refresh credential is accepted at most once. Presenting a consumed credential
// is reported as [RotationReplay] (and *[ReplayError] from [Engine.Refresh]) and the
// configured [ReplayPolicy] revokes the family or every family of the subject. A store
// outage is reported as [RotationUnavailable], never as an authentication failure.
//
// # Performance contract
//
// ValidateAccess and Authorize never touch Redis. Login and Refresh perform a bounded
// number of Redis round-trips, each limited by Session.OperationTimeout.
package sessioncore

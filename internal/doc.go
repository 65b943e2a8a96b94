// Package internal holds helpers private to sessioncore: token and family
// identifiers, credential hashing and key segment checks.
//
// Sub-packages:
//
//   - audit: async event dispatch and sinks
//   - config: file and environment configuration for the server binary
//   - flows: orchestration for every Engine operation
//   - obs: zap logger construction and the metrics listener
//   - rate: Redis-backed fixed-window throttles for login and refresh
package internal

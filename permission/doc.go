// Package permission holds the role vocabulary and the role-satisfaction rule
// used by authorization checks.
//
// # Rule
//
// A principal satisfies a requirement when it holds at least one required
// role, or when it holds the superset role ("admin" by default), which
// satisfies every requirement.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import sessioncore, jwt, or session.
//   - Accept an empty requirement as "allow everyone".
package permission

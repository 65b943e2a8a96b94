// Package middleware exposes net/http adapters over sessioncore.Engine.
//
//   - [Authenticate] verifies the bearer access credential and stores the
//     principal in the request context.
//   - [RequireRoles] additionally requires one of a set of roles. It is
//     checked against the engine's role vocabulary when the route is built.
//
// Failures are JSON bodies: 401 with a WWW-Authenticate challenge when the
// credential is missing or invalid, 403 with error="insufficient_scope" when
// the principal lacks the required roles.
//
// This package does not parse credentials or touch Redis; every decision is
// delegated to the engine.
package middleware

// Package flows contains the orchestration behind each Engine operation.
//
// Each Run* function takes a typed dependency struct and returns a tagged
// result. The engine turns that result into metrics, audit events and public
// errors. Flows call the session store, token codec, rate limiter and user
// lookup but own none of them, hold no state between calls and never import
// sessioncore.
package flows

package middleware

import (
	"fmt"
	"net/http"
)

// RequireRoles authenticates the request and requires at least one of roles.
// The registry's superset role satisfies any requirement. It panics when
// roles is empty or names a role outside the engine's vocabulary, so a
// misconfigured route fails at startup.
func RequireRoles(auth Authorizer, roles ...string) func(http.Handler) http.Handler {
	if auth == nil {
		panic("middleware: RequireRoles needs an authorizer")
	}
	required, err := auth.Registry().Requirement(roles...)
	if err != nil {
		panic(fmt.Sprintf("middleware: RequireRoles: %v", err))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := authenticate(w, r, auth)
			if !ok {
				return
			}
			if err := auth.CheckRoles(r.Context(), res, required...); err != nil {
				writeError(w, http.StatusForbidden, `Bearer error="insufficient_scope"`, "insufficient_permissions")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuthResult(r.Context(), res)))
		})
	}
}

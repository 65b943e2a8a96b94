package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/sessioncore"
	"github.com/MrEthical07/sessioncore/permission"
)

// Authenticator verifies access credentials. *sessioncore.Engine implements it.
type Authenticator interface {
	ValidateAccess(ctx context.Context, token string) (*sessioncore.AuthResult, error)
}

// Authorizer adds role checks on top of [Authenticator].
type Authorizer interface {
	Authenticator
	CheckRoles(ctx context.Context, result *sessioncore.AuthResult, required ...string) error
	Registry() *permission.Registry
}

type authResultContextKey struct{}

// AuthResultFromContext returns the principal stored by [Authenticate] or
// [RequireRoles].
func AuthResultFromContext(ctx context.Context) (*sessioncore.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*sessioncore.AuthResult)
	return res, ok && res != nil
}

// WithAuthResult stores res in ctx the way the middleware does.
func WithAuthResult(ctx context.Context, res *sessioncore.AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

// Authenticate rejects requests without a valid bearer access credential
// with 401 and stores the principal in the request context.
func Authenticate(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := authenticate(w, r, auth)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuthResult(r.Context(), res)))
		})
	}
}

func authenticate(w http.ResponseWriter, r *http.Request, auth Authenticator) (*sessioncore.AuthResult, bool) {
	if auth == nil {
		writeError(w, http.StatusUnauthorized, `Bearer`, "unauthorized")
		return nil, false
	}

	token, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeError(w, http.StatusUnauthorized, `Bearer`, "unauthorized")
		return nil, false
	}

	res, err := auth.ValidateAccess(r.Context(), token)
	if err != nil {
		if errors.Is(err, sessioncore.ErrEngineNotReady) {
			writeError(w, http.StatusServiceUnavailable, "", "service_unavailable")
			return nil, false
		}
		writeError(w, http.StatusUnauthorized, `Bearer error="invalid_token"`, "invalid_token")
		return nil, false
	}
	return res, true
}

// BearerToken extracts the credential from an Authorization header. The
// scheme is matched case-insensitively.
func BearerToken(value string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	return token, true
}

func writeError(w http.ResponseWriter, status int, challenge, code string) {
	h := w.Header()
	if challenge != "" {
		h.Set("WWW-Authenticate", challenge)
	}
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

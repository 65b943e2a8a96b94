package jwt

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind distinguishes access credentials from refresh credentials.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

var (
	errMissingSubject = errors.New("missing sub claim")
	errMissingID      = errors.New("missing jti claim")
	errMissingIAT     = errors.New("missing iat claim")
	errMissingNBF     = errors.New("missing nbf claim")
	errMissingExp     = errors.New("missing exp claim")
	errUnknownKind    = errors.New("missing or unknown type claim")
	errTimeOrder      = errors.New("claims must satisfy exp > nbf >= iat")
)

// reservedClaims may not be overridden through extra claims.
var reservedClaims = map[string]struct{}{
	"sub": {}, "email": {}, "roles": {}, "type": {}, "iat": {}, "nbf": {},
	"exp": {}, "jti": {}, "iss": {}, "aud": {}, "token_family": {},
}

// Claims is the fixed claim schema carried by every credential.
type Claims struct {
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	Kind   Kind     `json:"type"`
	Family string   `json:"token_family,omitempty"`

	// Extra holds additional non-reserved claims written on encode. It is not
	// populated on decode.
	Extra map[string]any `json:"-"`

	jwt.RegisteredClaims
}

// MarshalJSON merges Extra into the registered claim set.
func (c Claims) MarshalJSON() ([]byte, error) {
	type plain Claims
	base, err := json.Marshal(plain(c))
	if err != nil || len(c.Extra) == 0 {
		return base, err
	}

	merged := make(map[string]json.RawMessage, len(c.Extra)+10)
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range c.Extra {
		if _, reserved := reservedClaims[k]; reserved {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = raw
	}
	return json.Marshal(merged)
}

// Validate is invoked by the golang-jwt parser after the registered time checks.
func (c *Claims) Validate() error {
	return c.checkShape()
}

func (c *Claims) checkShape() error {
	switch {
	case c.Subject == "":
		return errMissingSubject
	case c.ID == "":
		return errMissingID
	case c.IssuedAt == nil:
		return errMissingIAT
	case c.NotBefore == nil:
		return errMissingNBF
	case c.ExpiresAt == nil:
		return errMissingExp
	case !c.Kind.Valid():
		return errUnknownKind
	}
	if !c.ExpiresAt.After(c.NotBefore.Time) || c.NotBefore.Before(c.IssuedAt.Time) {
		return errTimeOrder
	}
	return nil
}

// ExpiresIn returns the remaining lifetime relative to now.
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c == nil || c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

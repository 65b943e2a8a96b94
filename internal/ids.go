package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ErrInvalidSubject is returned for subjects that cannot be used as a store key segment.
var ErrInvalidSubject = errors.New("invalid subject")

// NewTokenID mints a random jti.
func NewTokenID() string {
	return uuid.NewString()
}

// NewFamilyID mints a time-sortable token family identifier.
func NewFamilyID() string {
	return ulid.Make().String()
}

// NewRequestID mints a request correlation id.
func NewRequestID() string {
	return uuid.NewString()
}

// HashToken returns the hex SHA-256 digest of a credential string.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CheckSubject rejects subjects that would break the
// "{namespace}:{subject}:{family}" key layout.
func CheckSubject(subject string) error {
	if strings.TrimSpace(subject) == "" || strings.ContainsAny(subject, ":\r\n") {
		return ErrInvalidSubject
	}
	return nil
}

// CheckFamily applies the same key-segment rules to family ids.
func CheckFamily(family string) error {
	if strings.TrimSpace(family) == "" || strings.ContainsAny(family, ":*?[]\\\r\n") {
		return ErrInvalidSubject
	}
	return nil
}

// EscapeGlob quotes Redis glob metacharacters so s matches literally in SCAN patterns.
func EscapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

package password

import "errors"

// MaxPasswordBytes bounds the input accepted by every hasher.
const MaxPasswordBytes = 1024

// ErrEmptyPassword is returned for zero-length input.
var ErrEmptyPassword = errors.New("password cannot be empty")

// ErrPasswordTooLong is returned for input above MaxPasswordBytes.
var ErrPasswordTooLong = errors.New("password too long")

// ErrMalformedHash is returned when a stored hash cannot be parsed.
var ErrMalformedHash = errors.New("malformed password hash")

// ErrUnsupportedScheme is returned for hashes of an unknown scheme.
var ErrUnsupportedScheme = errors.New("unsupported password hash scheme")

// Password processing uses raw string bytes exactly as provided (no Unicode
// normalization).
func checkLength(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

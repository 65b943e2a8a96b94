package password

import "strings"

// Scheme identifies the algorithm of a stored hash.
type Scheme string

const (
	SchemeArgon2id Scheme = "argon2id"
	SchemeBcrypt   Scheme = "bcrypt"
)

// Identify returns the scheme of encodedHash.
func Identify(encodedHash string) (Scheme, error) {
	switch {
	case strings.HasPrefix(encodedHash, "$"+algorithmID+"$"):
		return SchemeArgon2id, nil
	case isBcrypt(encodedHash):
		return SchemeBcrypt, nil
	default:
		return "", ErrUnsupportedScheme
	}
}

// DefaultConfig returns the Argon2id parameters used for new hashes.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        1,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Verifier hashes new passwords with Argon2id and verifies both Argon2id and
// legacy bcrypt hashes. Every bcrypt hash needs an upgrade.
type Verifier struct {
	argon  *Argon2
	bcrypt *Bcrypt
	dummy  string
}

// NewVerifier builds a [Verifier] for new hashes produced with cfg.
func NewVerifier(cfg Config) (*Verifier, error) {
	argon, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	legacy, err := NewBcrypt(0)
	if err != nil {
		return nil, err
	}
	dummy, err := argon.Hash("sessioncore-timing-equalizer")
	if err != nil {
		return nil, err
	}
	return &Verifier{argon: argon, bcrypt: legacy, dummy: dummy}, nil
}

// Hash returns an Argon2id PHC hash.
func (v *Verifier) Hash(password string) (string, error) {
	return v.argon.Hash(password)
}

// Verify checks password against a hash of any supported scheme.
func (v *Verifier) Verify(password, encodedHash string) (bool, error) {
	scheme, err := Identify(encodedHash)
	if err != nil {
		return false, err
	}
	if scheme == SchemeBcrypt {
		return v.bcrypt.Verify(password, encodedHash)
	}
	return v.argon.Verify(password, encodedHash)
}

// NeedsUpgrade reports whether encodedHash should be replaced by [Verifier.Hash].
func (v *Verifier) NeedsUpgrade(encodedHash string) (bool, error) {
	scheme, err := Identify(encodedHash)
	if err != nil {
		return false, err
	}
	if scheme == SchemeBcrypt {
		return true, nil
	}
	return v.argon.NeedsUpgrade(encodedHash)
}

// Burn runs one Argon2id verification against a fixed hash so unknown
// accounts cost the same as known ones.
func (v *Verifier) Burn(password string) {
	_, _ = v.argon.Verify(password, v.dummy)
}

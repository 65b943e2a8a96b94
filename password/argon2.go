package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID = "argon2id"

	minMemoryKB    = 8 * 1024
	minSaltLength  = 16
	minKeyLength   = 16
	maxParallelism = 255
)

// Config holds Argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Argon2 hashes and verifies Argon2id PHC strings of the form
// $argon2id$v=19$m=<kib>,t=<passes>,p=<lanes>$<salt>$<key>.
type Argon2 struct {
	cfg Config
}

// phc is a decoded Argon2id hash string.
type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		p.memory, p.time, p.parallelism,
		base64.RawStdEncoding.EncodeToString(p.salt),
		base64.RawStdEncoding.EncodeToString(p.key))
}

func (p phc) derive(password string) []byte {
	return argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
}

// NewArgon2 validates cfg and returns an [Argon2] hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, fmt.Errorf("password memory must be >= %d KiB", minMemoryKB)
	case cfg.Time < 1:
		return nil, errors.New("password time must be >= 1")
	case cfg.Parallelism < 1:
		return nil, errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, fmt.Errorf("password salt length must be >= %d", minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return nil, fmt.Errorf("password key length must be >= %d", minKeyLength)
	}
	return &Argon2{cfg: cfg}, nil
}

// Hash derives an Argon2id hash with a random salt.
func (a *Argon2) Hash(password string) (string, error) {
	if err := checkLength(password); err != nil {
		return "", err
	}
	h := phc{
		memory:      a.cfg.Memory,
		time:        a.cfg.Time,
		parallelism: a.cfg.Parallelism,
		salt:        make([]byte, a.cfg.SaltLength),
		key:         make([]byte, a.cfg.KeyLength),
	}
	if _, err := rand.Read(h.salt); err != nil {
		return "", err
	}
	h.key = h.derive(password)
	return h.String(), nil
}

// Verify compares password against encodedHash in constant time.
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	if err := checkLength(password); err != nil {
		return false, err
	}
	h, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.derive(password), h.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash is cheaper than the configured
// parameters or uses a different key length.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	h, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	return h.memory < a.cfg.Memory ||
		h.time < a.cfg.Time ||
		h.parallelism < a.cfg.Parallelism ||
		uint32(len(h.key)) != a.cfg.KeyLength, nil
}

func decodePHC(encoded string) (phc, error) {
	var h phc
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return h, fmt.Errorf("%w: invalid PHC format", ErrMalformedHash)
	}
	if parts[1] != algorithmID {
		return h, ErrUnsupportedScheme
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return h, fmt.Errorf("%w: invalid argon2 version", ErrMalformedHash)
	}
	if version != argon2.Version {
		return h, fmt.Errorf("%w: unsupported argon2 version %d", ErrMalformedHash, version)
	}

	var parallelism uint32
	if n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &parallelism); err != nil || n != 3 {
		return h, fmt.Errorf("%w: invalid parameters", ErrMalformedHash)
	}
	if h.memory < minMemoryKB || h.time < 1 || parallelism < 1 || parallelism > maxParallelism {
		return h, fmt.Errorf("%w: parameters out of range", ErrMalformedHash)
	}
	h.parallelism = uint8(parallelism)

	var err error
	if h.salt, err = decodeB64(parts[4]); err != nil || len(h.salt) < minSaltLength {
		return h, fmt.Errorf("%w: invalid salt", ErrMalformedHash)
	}
	if h.key, err = decodeB64(parts[5]); err != nil || len(h.key) == 0 {
		return h, fmt.Errorf("%w: invalid key", ErrMalformedHash)
	}
	return h, nil
}

// decodeB64 accepts both unpadded and padded standard base64.
func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

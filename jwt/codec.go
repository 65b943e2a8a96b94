package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the single outcome surfaced for any verification failure.
var ErrInvalidToken = errors.New("invalid token")

// ErrWrongKind is wrapped into ErrInvalidToken when a token of the other kind is presented.
var ErrWrongKind = errors.New("unexpected token kind")

// Algorithm names a supported signing algorithm.
type Algorithm string

const (
	HS256 Algorithm = "HS256"
	HS384 Algorithm = "HS384"
	HS512 Algorithm = "HS512"
	EdDSA Algorithm = "EdDSA"
)

const minHMACSecret = 32

// ParseAlgorithm accepts the usual spellings ("hs256", "HS256", "ed25519", "EdDSA").
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "HS256":
		return HS256, nil
	case "HS384":
		return HS384, nil
	case "HS512":
		return HS512, nil
	case "EDDSA", "ED25519":
		return EdDSA, nil
	default:
		return "", fmt.Errorf("unsupported signing algorithm %q", s)
	}
}

// Config carries key material and verification policy for a [Codec].
// Secret is the HMAC key for HS* algorithms; PrivateKey and PublicKey are
// ed25519 keys (raw or PEM) for EdDSA. A codec without a private key can
// verify but not sign.
type Config struct {
	Algorithm  Algorithm
	Secret     []byte
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
	Leeway     time.Duration
	KeyID      string
	Now        func() time.Time
}

// Codec signs and verifies credentials.
type Codec struct {
	config    Config
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	now       func() time.Time
}

// NewCodec validates cfg and resolves key material once.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	algorithm, err := ParseAlgorithm(string(cfg.Algorithm))
	if err != nil {
		return nil, err
	}
	cfg.Algorithm = algorithm
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	c := &Codec{config: cfg, now: cfg.Now}
	if c.now == nil {
		c.now = time.Now
	}

	switch algorithm {
	case HS256, HS384, HS512:
		if len(cfg.Secret) < minHMACSecret {
			return nil, fmt.Errorf("%s requires a secret of at least %d bytes", algorithm, minHMACSecret)
		}
		c.method = jwt.GetSigningMethod(string(algorithm))
		c.signKey = cfg.Secret
		c.verifyKey = cfg.Secret
	case EdDSA:
		c.method = jwt.SigningMethodEdDSA
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("EdDSA requires a public key")
		}
		pub, err := parseEdPublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		c.verifyKey = pub
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			c.signKey = priv
		}
	}

	return c, nil
}

// Algorithm returns the resolved signing algorithm.
func (c *Codec) Algorithm() Algorithm {
	return c.config.Algorithm
}

// Now returns the codec clock reading.
func (c *Codec) Now() time.Time {
	return c.now()
}

// Encode signs claims. Issuer and audience default to the configured values.
func (c *Codec) Encode(claims *Claims) (string, error) {
	if claims == nil {
		return "", errors.New("nil claims")
	}
	if c.signKey == nil {
		return "", errors.New("codec has no signing key")
	}
	if claims.Issuer == "" {
		claims.Issuer = c.config.Issuer
	}
	if len(claims.Audience) == 0 && c.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.config.Audience}
	}
	if err := claims.checkShape(); err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(c.method, claims)
	if c.config.KeyID != "" {
		token.Header["kid"] = c.config.KeyID
	}
	return token.SignedString(c.signKey)
}

// Decode verifies signature, time window, issuer/audience and claim shape.
// Every failure wraps [ErrInvalidToken].
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}
	if c.config.Audience != "" {
		options = append(options, jwt.WithAudience(c.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if c.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != c.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return c.verifyKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, jwt.ErrTokenInvalidClaims)
	}
	return claims, nil
}

// DecodeKind is Decode plus a token kind check.
func (c *Codec) DecodeKind(tokenStr string, kind Kind) (*Claims, error) {
	claims, err := c.Decode(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrWrongKind)
	}
	return claims, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}

package jwt

import (
	"errors"
	"time"

	"github.com/MrEthical07/sessioncore/internal"
	"github.com/golang-jwt/jwt/v5"
)

// Default credential lifetimes.
const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// IssuerConfig controls credential lifetimes and id minting.
type IssuerConfig struct {
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	NewTokenID  func() string
	NewFamilyID func() string
}

// Issuer mints access and refresh credentials through a [Codec].
type Issuer struct {
	codec  *Codec
	config IssuerConfig
}

// Issued is a freshly signed credential together with the claims it carries.
type Issued struct {
	Token  string
	Claims *Claims
}

// NewIssuer applies lifetime defaults and validates their ordering.
func NewIssuer(codec *Codec, cfg IssuerConfig) (*Issuer, error) {
	if codec == nil {
		return nil, errors.New("issuer requires a codec")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.AccessTTL < time.Second || cfg.RefreshTTL < time.Second {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.NewTokenID == nil {
		cfg.NewTokenID = internal.NewTokenID
	}
	if cfg.NewFamilyID == nil {
		cfg.NewFamilyID = internal.NewFamilyID
	}
	return &Issuer{codec: codec, config: cfg}, nil
}

// AccessTTL returns the configured access credential lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.config.AccessTTL }

// RefreshTTL returns the configured refresh credential lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.config.RefreshTTL }

// NewFamily mints a token family id.
func (i *Issuer) NewFamily() string { return i.config.NewFamilyID() }

// IssueAccessToken mints an access credential. Roles are written as given;
// callers normalize them first.
func (i *Issuer) IssueAccessToken(subject, email string, roles []string) (Issued, error) {
	claims := i.base(subject, KindAccess, i.config.AccessTTL)
	claims.Email = email
	if len(roles) > 0 {
		claims.Roles = append([]string(nil), roles...)
	}
	return i.sign(claims)
}

// IssueRefreshToken mints a refresh credential in family, or in a new family
// when family is empty. Refresh credentials never carry roles or email.
func (i *Issuer) IssueRefreshToken(subject, family string, extra map[string]any) (Issued, error) {
	if family == "" {
		family = i.config.NewFamilyID()
	}
	if err := internal.CheckFamily(family); err != nil {
		return Issued{}, err
	}
	claims := i.base(subject, KindRefresh, i.config.RefreshTTL)
	claims.Family = family
	if len(extra) > 0 {
		claims.Extra = make(map[string]any, len(extra))
		for k, v := range extra {
			claims.Extra[k] = v
		}
	}
	return i.sign(claims)
}

func (i *Issuer) base(subject string, kind Kind, ttl time.Duration) *Claims {
	now := i.codec.Now().Truncate(time.Second)
	return &Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        i.config.NewTokenID(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (i *Issuer) sign(claims *Claims) (Issued, error) {
	token, err := i.codec.Encode(claims)
	if err != nil {
		return Issued{}, err
	}
	return Issued{Token: token, Claims: claims}, nil
}

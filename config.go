package sessioncore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/sessioncore/jwt"
	"github.com/MrEthical07/sessioncore/password"
	"github.com/MrEthical07/sessioncore/permission"
	"github.com/MrEthical07/sessioncore/session"
)

// Config is the complete engine configuration. It is copied by the builder,
// so later mutation by the caller has no effect on a built engine.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Password PasswordConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds signing keys and credential lifetimes. Secret is used by
// the HS* algorithms; PrivateKey and PublicKey by EdDSA.
type JWTConfig struct {
	Algorithm  string
	Secret     []byte
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
	Leeway     time.Duration
	KeyID      string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the refresh record keyspace. OperationTimeout bounds
// every store round-trip; zero leaves the caller's context untouched.
type SessionConfig struct {
	Namespace        string
	OperationTimeout time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

type PasswordConfig struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds throttles and the response to refresh reuse.
// MaxLoginAttempts of zero disables the login throttle.
type SecurityConfig struct {
	ProductionMode          bool
	EnableIPThrottle        bool
	EnableRefreshThrottle   bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
	ReplayPolicy            ReplayPolicy
	DefaultRole             string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Key material is left
// empty and must be supplied before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			Algorithm:  string(jwt.HS256),
			AccessTTL:  jwt.DefaultAccessTTL,
			RefreshTTL: jwt.DefaultRefreshTTL,
		},
		Session: SessionConfig{
			Namespace:        session.DefaultNamespace,
			OperationTimeout: 3 * time.Second,
		},
		Password: PasswordConfig{
			Memory:         pw.Memory,
			Time:           pw.Time,
			Parallelism:    pw.Parallelism,
			SaltLength:     pw.SaltLength,
			KeyLength:      pw.KeyLength,
			UpgradeOnLogin: true,
		},
		Security: SecurityConfig{
			EnableIPThrottle:        false,
			EnableRefreshThrottle:   true,
			MaxLoginAttempts:        5,
			LoginCooldownDuration:   10 * time.Minute,
			MaxRefreshAttempts:      20,
			RefreshCooldownDuration: time.Minute,
			ReplayPolicy:            ReplayRevokeFamily,
			DefaultRole:             permission.DefaultRole,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// HighSecurityConfig returns a production-leaning preset: short access
// lifetime, both throttles on, reuse revokes every session of the subject.
func HighSecurityConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.AccessTTL = 10 * time.Minute
	cfg.JWT.RefreshTTL = 7 * 24 * time.Hour
	cfg.JWT.Leeway = 0
	cfg.Password.Time = 3
	cfg.Security.ProductionMode = true
	cfg.Security.EnableIPThrottle = true
	cfg.Security.EnableRefreshThrottle = true
	cfg.Security.ReplayPolicy = ReplayRevokeAll
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error. Build calls it; callers
// loading configuration from the environment may call it earlier.
func (c *Config) Validate() error {
	// JWT
	alg, err := jwt.ParseAlgorithm(c.JWT.Algorithm)
	if err != nil {
		return err
	}
	switch alg {
	case jwt.EdDSA:
		if len(c.JWT.PrivateKey) == 0 && len(c.JWT.PublicKey) == 0 {
			return errors.New("EdDSA requires PrivateKey or PublicKey")
		}
	default:
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("%s secret must be at least 32 bytes", alg)
		}
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("JWT AccessTTL must be shorter than RefreshTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.JWT.Audience != "" && strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT Audience cannot be blank")
	}

	// Session
	ns := strings.TrimSpace(c.Session.Namespace)
	if ns == "" {
		return errors.New("Session Namespace must be set")
	}
	if strings.ContainsAny(ns, ":*?[]") {
		return errors.New("Session Namespace cannot contain ':' or glob characters")
	}
	if c.Session.OperationTimeout < 0 {
		return errors.New("Session OperationTimeout must be >= 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Security
	if c.Security.MaxLoginAttempts < 0 {
		return errors.New("MaxLoginAttempts must be >= 0")
	}
	if c.Security.MaxLoginAttempts > 0 && c.Security.LoginCooldownDuration <= 0 {
		return errors.New("LoginCooldownDuration must be > 0 when the login throttle is enabled")
	}
	if c.Security.EnableIPThrottle && c.Security.MaxLoginAttempts == 0 {
		return errors.New("EnableIPThrottle requires MaxLoginAttempts > 0")
	}
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("MaxRefreshAttempts must be > 0 when refresh throttle is enabled")
		}
		if c.Security.RefreshCooldownDuration <= 0 {
			return errors.New("RefreshCooldownDuration must be > 0 when refresh throttle is enabled")
		}
	}
	if _, err := c.Security.ReplayPolicy.action(); err != nil {
		return err
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Security.ProductionMode {
		if c.JWT.AccessTTL > time.Hour {
			return errors.New("ProductionMode requires JWT AccessTTL <= 1h")
		}
		if c.JWT.RefreshTTL > 30*24*time.Hour {
			return errors.New("ProductionMode requires JWT RefreshTTL <= 30d")
		}
		if c.Security.ReplayPolicy == ReplayFlagOnly {
			return errors.New("ProductionMode requires a revoking ReplayPolicy")
		}
		if c.Security.MaxLoginAttempts == 0 {
			return errors.New("ProductionMode requires the login throttle")
		}
		if c.Password.Memory < 64*1024 {
			return errors.New("ProductionMode requires Password Memory >= 65536 KB")
		}
		if c.Password.KeyLength < 32 {
			return errors.New("ProductionMode requires Password KeyLength >= 32")
		}
	}

	return nil
}

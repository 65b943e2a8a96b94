package sessioncore

import (
	"errors"
	"fmt"
	"time"

	internalaudit "github.com/MrEthical07/sessioncore/internal/audit"
	"github.com/MrEthical07/sessioncore/internal/rate"
	"github.com/MrEthical07/sessioncore/jwt"
	"github.com/MrEthical07/sessioncore/password"
	"github.com/MrEthical07/sessioncore/permission"
	"github.com/MrEthical07/sessioncore/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. It is used once, during initialization.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	registry     *permission.Registry
	userProvider UserProvider
	auditSink    AuditSink
	logger       *zap.Logger
	now          func() time.Time

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the session store and the throttles.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRoles replaces the default role vocabulary. The registry is frozen by Build.
func (b *Builder) WithRoles(registry *permission.Registry) *Builder {
	b.registry = registry
	return b
}

func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithAuditSink sets the destination for audit events. It has no effect
// unless Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for credential and record
// timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. A builder can be
// built only once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	replay, err := cfg.Security.ReplayPolicy.action()
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- ROLE REGISTRY --------
	registry := b.registry
	if registry == nil {
		registry = permission.DefaultRegistry()
	}
	registry.Freeze()
	if cfg.Security.DefaultRole != "" && !registry.Known(cfg.Security.DefaultRole) {
		return nil, fmt.Errorf("Security DefaultRole %q is not a registered role", cfg.Security.DefaultRole)
	}

	// -------- CREDENTIALS --------
	alg, err := jwt.ParseAlgorithm(cfg.JWT.Algorithm)
	if err != nil {
		return nil, err
	}
	codec, err := jwt.NewCodec(jwt.Config{
		Algorithm:  alg,
		Secret:     cloneBytes(cfg.JWT.Secret),
		PrivateKey: cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:  cloneBytes(cfg.JWT.PublicKey),
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
		Leeway:     cfg.JWT.Leeway,
		KeyID:      cfg.JWT.KeyID,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}
	issuer, err := jwt.NewIssuer(codec, jwt.IssuerConfig{
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	})
	if err != nil {
		return nil, err
	}

	ph, err := password.NewVerifier(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	// -------- SESSION STORE --------
	store := session.NewStore(b.redis, session.Config{
		Namespace: cfg.Session.Namespace,
		TTL:       cfg.JWT.RefreshTTL,
		Now:       now,
	})

	engine := &Engine{
		config:   cloneConfig(cfg),
		registry: registry,
		codec:    codec,
		issuer:   issuer,
		store:    store,
		bounded: boundedStore{
			store:   store,
			timeout: cfg.Session.OperationTimeout,
		},
		passwords:    ph,
		userProvider: b.userProvider,
		logger:       logger.Named("sessioncore"),
		metrics:      NewMetrics(cfg.Metrics),
		replay:       replay,
	}
	engine.rateLimiter = rate.New(b.redis, rate.Config{
		EnableIPThrottle:        cfg.Security.EnableIPThrottle,
		EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
		MaxLoginAttempts:        cfg.Security.MaxLoginAttempts,
		LoginCooldownDuration:   cfg.Security.LoginCooldownDuration,
		MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
		RefreshCooldownDuration: cfg.Security.RefreshCooldownDuration,
	})
	if cfg.Audit.Enabled {
		engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    true,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink)
	}
	engine.initFlowDeps()

	b.built = true

	return engine, nil
}

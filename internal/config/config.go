// Package config loads sessioncore-server settings from an optional YAML file
// and the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/MrEthical07/sessioncore"
	"github.com/MrEthical07/sessioncore/internal/obs"
	"github.com/MrEthical07/sessioncore/userstore/postgres"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr          string        `mapstructure:"http_addr"`
	MetricsAddr       string        `mapstructure:"metrics_addr"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout   time.Duration `mapstructure:"graceful_timeout"`
	TrustForwardedFor bool          `mapstructure:"trust_forwarded_for"`
}

type JWT struct {
	Secret                   string        `mapstructure:"secret"`
	Algorithm                string        `mapstructure:"algorithm"`
	Issuer                   string        `mapstructure:"issuer"`
	Audience                 string        `mapstructure:"audience"`
	KeyID                    string        `mapstructure:"key_id"`
	PrivateKeyFile           string        `mapstructure:"private_key_file"`
	PublicKeyFile            string        `mapstructure:"public_key_file"`
	AccessTokenExpireMinutes int           `mapstructure:"access_token_expire_minutes"`
	RefreshTokenExpireDays   int           `mapstructure:"refresh_token_expire_days"`
	Leeway                   time.Duration `mapstructure:"leeway"`
}

type Redis struct {
	URL                   string `mapstructure:"url"`
	RefreshTokenNamespace string `mapstructure:"refresh_token_namespace"`
	// RefreshTokenTTL is in seconds. When set it replaces the refresh
	// lifetime derived from RefreshTokenExpireDays.
	RefreshTokenTTL  int           `mapstructure:"refresh_token_ttl"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

type DB struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	Migrate         bool          `mapstructure:"migrate"`
}

func (d *DB) AsPostgresConfig() postgres.Config {
	return postgres.Config{
		URL:             d.URL,
		MaxConns:        d.MaxConns,
		MinConns:        d.MinConns,
		MaxConnLifetime: d.MaxConnLifetime,
		MaxConnIdleTime: d.MaxConnIdleTime,
		QueryTimeout:    d.QueryTimeout,
	}
}

type Kafka struct {
	Brokers    []string `mapstructure:"brokers"`
	AuditTopic string   `mapstructure:"audit_topic"`
	AlertsOnly bool     `mapstructure:"alerts_only"`
}

// Enabled reports whether audit events should be published.
func (k *Kafka) Enabled() bool { return len(k.Brokers) > 0 && k.AuditTopic != "" }

type Security struct {
	ProductionMode     bool          `mapstructure:"production_mode"`
	MaxLoginAttempts   int           `mapstructure:"max_login_attempts"`
	LoginCooldown      time.Duration `mapstructure:"login_cooldown"`
	EnableIPThrottle   bool          `mapstructure:"enable_ip_throttle"`
	MaxRefreshAttempts int           `mapstructure:"max_refresh_attempts"`
	RefreshCooldown    time.Duration `mapstructure:"refresh_cooldown"`
	ReplayPolicy       string        `mapstructure:"replay_policy"`
	AuditEnabled       bool          `mapstructure:"audit_enabled"`
	MetricsEnabled     bool          `mapstructure:"metrics_enabled"`
	LatencyHistograms  bool          `mapstructure:"latency_histograms"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Config struct {
	App      App      `mapstructure:"app"`
	Server   Server   `mapstructure:"server"`
	JWT      JWT      `mapstructure:"jwt"`
	Redis    Redis    `mapstructure:"redis"`
	DB       DB       `mapstructure:"db"`
	Kafka    Kafka    `mapstructure:"kafka"`
	Security Security `mapstructure:"security"`
	Log      Log      `mapstructure:"log"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

// AsEngineConfig maps the process settings onto the engine configuration and
// validates the result.
func (c *Config) AsEngineConfig() (sessioncore.Config, error) {
	out := sessioncore.DefaultConfig()

	out.JWT.Algorithm = c.JWT.Algorithm
	out.JWT.Secret = []byte(c.JWT.Secret)
	out.JWT.Issuer = c.JWT.Issuer
	out.JWT.Audience = c.JWT.Audience
	out.JWT.KeyID = c.JWT.KeyID
	out.JWT.Leeway = c.JWT.Leeway
	out.JWT.AccessTTL = time.Duration(c.JWT.AccessTokenExpireMinutes) * time.Minute
	out.JWT.RefreshTTL = time.Duration(c.JWT.RefreshTokenExpireDays) * 24 * time.Hour
	if c.Redis.RefreshTokenTTL > 0 {
		out.JWT.RefreshTTL = time.Duration(c.Redis.RefreshTokenTTL) * time.Second
	}

	var err error
	if out.JWT.PrivateKey, err = readKey(c.JWT.PrivateKeyFile); err != nil {
		return sessioncore.Config{}, err
	}
	if out.JWT.PublicKey, err = readKey(c.JWT.PublicKeyFile); err != nil {
		return sessioncore.Config{}, err
	}

	out.Session.Namespace = c.Redis.RefreshTokenNamespace
	out.Session.OperationTimeout = c.Redis.OperationTimeout

	s := c.Security
	out.Security.ProductionMode = s.ProductionMode
	out.Security.MaxLoginAttempts = s.MaxLoginAttempts
	out.Security.LoginCooldownDuration = s.LoginCooldown
	out.Security.EnableIPThrottle = s.EnableIPThrottle
	out.Security.EnableRefreshThrottle = s.MaxRefreshAttempts > 0
	out.Security.MaxRefreshAttempts = s.MaxRefreshAttempts
	out.Security.RefreshCooldownDuration = s.RefreshCooldown
	out.Security.ReplayPolicy = sessioncore.ReplayPolicy(s.ReplayPolicy)
	out.Audit.Enabled = s.AuditEnabled || c.Kafka.Enabled()
	out.Metrics.Enabled = s.MetricsEnabled
	out.Metrics.EnableLatencyHistograms = s.MetricsEnabled && s.LatencyHistograms

	if err := out.Validate(); err != nil {
		return sessioncore.Config{}, fmt.Errorf("engine config: %w", err)
	}
	return out, nil
}

func readKey(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key %s: %w", path, err)
	}
	return b, nil
}

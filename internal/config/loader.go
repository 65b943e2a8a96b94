package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envAliases lists extra variable names accepted for a key, in precedence
// order. Keys not listed still resolve through AutomaticEnv, so jwt.issuer
// reads JWT_ISSUER and redis.url reads REDIS_URL.
var envAliases = map[string][]string{
	"jwt.secret":                      {"JWT_SECRET", "SECRET_KEY", "AUTH_SECRET_KEY"},
	"jwt.algorithm":                   {"JWT_ALGORITHM", "AUTH_ALGORITHM"},
	"jwt.access_token_expire_minutes": {"AUTH_ACCESS_TOKEN_EXPIRE_MINUTES", "JWT_ACCESS_TOKEN_EXPIRE_MINUTES"},
	"jwt.refresh_token_expire_days":   {"AUTH_REFRESH_TOKEN_EXPIRE_DAYS", "JWT_REFRESH_TOKEN_EXPIRE_DAYS"},
	"db.url":                          {"DB_URL", "DATABASE_URL"},
}

// Load reads path (optional, YAML) and overlays the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetDefault("app.name", "sessioncore")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "")

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.metrics_addr", ":9100")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_timeout", "15s")
	v.SetDefault("server.trust_forwarded_for", false)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.audience", "sessioncore")
	v.SetDefault("jwt.key_id", "")
	v.SetDefault("jwt.private_key_file", "")
	v.SetDefault("jwt.public_key_file", "")
	v.SetDefault("jwt.access_token_expire_minutes", 30)
	v.SetDefault("jwt.refresh_token_expire_days", 7)
	v.SetDefault("jwt.leeway", "0s")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.refresh_token_namespace", "refresh_tokens")
	v.SetDefault("redis.refresh_token_ttl", 0)
	v.SetDefault("redis.operation_timeout", "3s")

	v.SetDefault("db.url", "")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime", "30m")
	v.SetDefault("db.max_conn_idle_time", "10m")
	v.SetDefault("db.query_timeout", "2s")
	v.SetDefault("db.migrate", false)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.audit_topic", "")
	v.SetDefault("kafka.alerts_only", false)

	v.SetDefault("security.production_mode", false)
	v.SetDefault("security.max_login_attempts", 5)
	v.SetDefault("security.login_cooldown", "10m")
	v.SetDefault("security.enable_ip_throttle", false)
	v.SetDefault("security.max_refresh_attempts", 20)
	v.SetDefault("security.refresh_cooldown", "1m")
	v.SetDefault("security.replay_policy", "revoke_family")
	v.SetDefault("security.audit_enabled", false)
	v.SetDefault("security.metrics_enabled", true)
	v.SetDefault("security.latency_histograms", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.JWT.Secret == "" && cfg.JWT.PrivateKeyFile == "" && cfg.JWT.PublicKeyFile == "" {
		return nil, errors.New("no signing key: set JWT_SECRET or jwt.private_key_file")
	}
	if cfg.DB.URL == "" {
		return nil, errors.New("no user database: set DB_URL or DATABASE_URL")
	}
	return &cfg, nil
}

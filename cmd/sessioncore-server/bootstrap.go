package main

import (
	"context"
	"fmt"

	"github.com/MrEthical07/sessioncore"
	"github.com/MrEthical07/sessioncore/internal/config"
	"github.com/MrEthical07/sessioncore/sinks/kafka"
	"github.com/MrEthical07/sessioncore/userstore/postgres"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type deps struct {
	engine *sessioncore.Engine
	redis  *redis.Client
	db     *postgres.DB
	audit  *kafka.Sink
}

func (d *deps) Close() {
	if d.engine != nil {
		d.engine.Close()
	}
	if d.audit != nil {
		_ = d.audit.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}

func bootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *deps, err error) {
	d := &deps{}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	engineCfg, err := cfg.AsEngineConfig()
	if err != nil {
		return nil, err
	}
	for _, w := range engineCfg.Lint().BySeverity(sessioncore.LintWarn) {
		logger.Warn("config lint", zap.String("code", w.Code), zap.String("severity", w.Severity.String()), zap.String("message", w.Message))
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	d.redis = redis.NewClient(opts)
	if err := d.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	d.db, err = postgres.Open(ctx, cfg.DB.AsPostgresConfig())
	if err != nil {
		return nil, err
	}
	users := postgres.NewUserStore(d.db)
	if cfg.DB.Migrate {
		if err := users.Migrate(ctx); err != nil {
			return nil, err
		}
	}

	b := sessioncore.New().
		WithConfig(engineCfg).
		WithRedis(d.redis).
		WithUserProvider(users).
		WithLogger(logger)
	sinks := sessioncore.MultiSink{sessioncore.NewZapSink(logger.Named("audit"))}
	if cfg.Kafka.Enabled() {
		d.audit = kafka.NewSink(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, kafka.Opts{
			Logger:     logger,
			AlertsOnly: cfg.Kafka.AlertsOnly,
		})
		sinks = append(sinks, d.audit)
	}
	b = b.WithAuditSink(sinks)

	d.engine, err = b.Build()
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return d, nil
}

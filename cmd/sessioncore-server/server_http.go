package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/sessioncore/httpapi"
	"github.com/MrEthical07/sessioncore/internal/config"
	"github.com/MrEthical07/sessioncore/internal/obs"
	"github.com/MrEthical07/sessioncore/metrics/export/prometheus"
	"go.uber.org/zap"
)

func buildHTTPServer(cfg *config.Config, d *deps, logger *zap.Logger) *http.Server {
	api := httpapi.NewServer(d.engine, httpapi.Opts{
		Logger:            logger.Named("http"),
		TrustForwardedFor: cfg.Server.TrustForwardedFor,
	})
	return &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      api.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func serveHTTP(srv *http.Server, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", srv.Addr))
	return srv.ListenAndServe()
}

func startMetrics(cfg *config.Config, d *deps, logger *zap.Logger) (*http.Server, error) {
	h, err := prometheus.Handler(d.engine)
	if err != nil {
		return nil, err
	}
	health := func(ctx context.Context) error {
		if !d.engine.Health(ctx).RedisAvailable {
			return errors.New("redis unavailable")
		}
		return nil
	}
	return obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, h, health, logger), nil
}

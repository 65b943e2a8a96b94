// Command sessioncore-server serves the session engine over HTTP, backed by
// Redis for sessions and Postgres for accounts.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/sessioncore/internal/config"
	"github.com/MrEthical07/sessioncore/internal/obs"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("SESSIONCORE_CONFIG"), "path to a YAML config file")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting sessioncore-server", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	deps, err := bootstrap(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("bootstrap", zap.Error(err))
	}
	defer deps.Close()

	metricsSrv, err := startMetrics(cfg, deps, logger)
	if err != nil {
		logger.Fatal("metrics", zap.Error(err))
	}

	httpSrv := buildHTTPServer(cfg, deps, logger)
	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, logger) }()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal")
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	_ = httpSrv.Shutdown(shCtx)
	_ = metricsSrv.Shutdown(shCtx)
	logger.Info("bye")
}

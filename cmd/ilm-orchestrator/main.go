package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Opster/opensearch-ilm-orchestrator/opensearch-gateway/services"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/admin"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/config"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/executor"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/metrics"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/orchestrator"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/store"
)

func main() {
	cfg := config.LoadFromEnv()
	logger := newLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error(err, "orchestrator exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logr.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stateStore, err := store.NewBadgerStore(cfg.StateDir)
	if err != nil {
		return err
	}
	defer stateStore.Close()

	client, err := services.NewOsClusterClient(cfg.OpenSearchURL, cfg.OpenSearchUsername, cfg.OpenSearchPassword)
	if err != nil {
		return err
	}
	if err := client.CheckVersion(); err != nil {
		return err
	}
	logger.Info("connected to engine",
		"url", cfg.OpenSearchURL,
		"version", client.MainPage.Version.Number)

	m := metrics.New()
	engine := orchestrator.Throttle(client, cfg.EngineRateLimit, m)
	exec := executor.New(engine, cfg.ActionTimeout, logger)
	orch := orchestrator.New(stateStore, engine, exec, m, logger, orchestrator.Options{
		TickInterval:             cfg.TickInterval,
		MaxConcurrentTransitions: cfg.MaxConcurrentTransitions,
		EngineCallTimeout:        cfg.ActionTimeout,
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: admin.New(orch, m, logger).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("admin API listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		_ = orch.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		stop()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(level int) logr.Logger {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-level))
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapLog, err := zapCfg.Build()
	if err != nil {
		panic(err)
	}
	return zapr.NewLogger(zapLog)
}

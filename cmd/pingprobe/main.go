package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/pingprobe/internal/config"
	"github.com/hamed0406/pingprobe/internal/httpapi"
	"github.com/hamed0406/pingprobe/internal/logging"
	"github.com/hamed0406/pingprobe/internal/metrics"
	"github.com/hamed0406/pingprobe/internal/probe"
	"github.com/hamed0406/pingprobe/internal/scheduler"
	"github.com/hamed0406/pingprobe/internal/telemetry"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Print(err)
		return 1
	}
	defer logger.Sync()

	targets, err := config.LoadTargets(cfg.ConfigPath)
	if err != nil {
		logger.Error("config_invalid", zap.String("path", cfg.ConfigPath), zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []metrics.Option
	var provider *telemetry.Provider
	tcfg := telemetry.Config{
		Endpoint:     cfg.OTLPEndpoint,
		PushInterval: cfg.OTLPInterval,
		Insecure:     cfg.OTLPInsecure,
		Version:      version,
	}
	if tcfg.Enabled() {
		provider, err = telemetry.NewProvider(ctx, tcfg)
		if err != nil {
			logger.Error("otlp_init_failed", zap.Error(err))
			return 1
		}
		opts = append(opts, metrics.WithMeter(provider.Meter()))
		logger.Info("otlp_enabled",
			zap.String("endpoint", cfg.OTLPEndpoint),
			zap.String("instance_id", provider.InstanceID),
		)
	}

	agg, err := metrics.New(targets, opts...)
	if err != nil {
		logger.Error("metrics_init_failed", zap.Error(err))
		return 1
	}
	agg.Registry().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sup, err := scheduler.NewSupervisor(logger, targets, probe.NewSet(cfg.Privileged), agg)
	if err != nil {
		logger.Error("supervisor_init_failed", zap.Error(err))
		return 1
	}

	api := httpapi.NewServer(logger, targets, agg, cfg.MetricsTokens)
	srvErr := make(chan error, 1)
	go func() {
		err := api.Run(ctx, cfg.MetricsAddr)
		if err != nil {
			logger.Error("metrics_server_failed", zap.Error(err))
			stop()
		}
		srvErr <- err
	}()

	runErr := sup.Run(ctx)
	if runErr != nil {
		// Nothing was started; take the listener down with us.
		stop()
	}

	err = multierr.Combine(runErr, <-srvErr)
	if provider != nil {
		err = multierr.Append(err, provider.Shutdown(context.Background()))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("shutdown_error", zap.Error(err))
		return 1
	}
	logger.Info("shutdown_complete")
	return 0
}

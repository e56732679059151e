// Package main implements represent-service, which annotates match documents
// received on a NATS subject and publishes the annotated documents.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/c360/represent/config"
	"github.com/c360/represent/errors"
	"github.com/c360/represent/health"
	"github.com/c360/represent/metric"
	"github.com/c360/represent/natsclient"
	"github.com/c360/represent/pkg/retry"
	"github.com/c360/represent/pkg/tlsutil"
	"github.com/c360/represent/processor/annotator"
	"github.com/c360/represent/represent"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "represent-service"
)

const connectTimeout = 10 * time.Second

// Health component names
const (
	componentNATS      = "nats"
	componentAnnotator = "annotator"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv)
	stop()
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	cli, err := parseFlags(args, stderr, getenv)
	if err != nil {
		return err
	}
	if cli.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return nil
	}

	cfg, err := loadConfig(cli, getenv)
	if err != nil {
		setupLogger("info", config.LogFormatText, stderr, "").Error("Invalid configuration", "error", err)
		return err
	}

	logger := setupLogger(cfg.Log.Level, cfg.Log.Format, stderr, uuid.NewString())
	slog.SetDefault(logger)

	if cli.Validate {
		logger.Info("Configuration is valid", "config", cfg.String())
		return nil
	}

	logger.Info("Starting represent service",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cli.ConfigPath)

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("Service failed", "error", err, "class", errors.Classify(err).String())
		return err
	}
	logger.Info("Represent service shutdown complete")
	return nil
}

func loadConfig(cli *CLIConfig, getenv func(string) string) (*config.Config, error) {
	loader := config.NewLoader()
	loader.UseEnv(getenv)
	loader.EnableValidation(false)
	if cli.ConfigPath != "" {
		loader.AddLayer(cli.ConfigPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	cli.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapFatal(err, "Service", "loadConfig", "validate configuration")
	}
	return cfg, nil
}

// serve connects to NATS and runs the annotator and the metrics server until
// ctx is cancelled or one of them fails.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	registry := metric.NewMetricsRegistry()

	engine, err := represent.NewEngine(cfg.Engine,
		represent.WithLogger(logger),
		represent.WithMetrics(registry),
		represent.WithWorkers(cfg.Workers),
	)
	if err != nil {
		return err
	}

	monitor := health.NewMonitor(appName)
	monitor.UpdateUnhealthy(componentNATS, "connecting")
	monitor.UpdateUnhealthy(componentAnnotator, "not started")

	client, err := newNATSClient(cfg, logger, registry, monitor)
	if err != nil {
		return err
	}
	if err := connectToNATS(ctx, client, logger); err != nil {
		monitor.Update(componentNATS, health.FromError(componentNATS, err))
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
		defer cancel()
		if err := client.Close(closeCtx); err != nil {
			logger.Warn("NATS close failed", "error", err)
		}
	}()

	proc, err := annotator.New(annotator.ConfigFrom(cfg), engine, client,
		annotator.WithLogger(logger),
		annotator.WithMetrics(registry),
	)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		server := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
		server.SetHealthHandler(monitor)
		g.Go(func() error {
			logger.Info("Metrics server listening", "address", server.Address())
			return server.Start()
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		if err := proc.Start(gctx); err != nil {
			monitor.Update(componentAnnotator, health.FromError(componentAnnotator, err))
			return err
		}
		monitor.UpdateHealthy(componentAnnotator, "subscribed to "+cfg.NATS.InputSubject)

		<-gctx.Done()
		logger.Info("Received shutdown signal")
		monitor.UpdateUnhealthy(componentAnnotator, "shutting down")
		return proc.Stop(cfg.Service.ShutdownTimeout)
	})

	return g.Wait()
}

func newNATSClient(
	cfg *config.Config, logger *slog.Logger, registry *metric.MetricsRegistry, monitor *health.Monitor,
) (*natsclient.Client, error) {
	opts := []natsclient.ClientOption{
		natsclient.WithLogger(logger),
		natsclient.WithMetrics(registry),
		natsclient.WithHealthChangeCallback(func(healthy bool) {
			if healthy {
				monitor.UpdateHealthy(componentNATS, "connected")
			} else {
				monitor.UpdateUnhealthy(componentNATS, "disconnected")
			}
		}),
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithReconnectWait(cfg.NATS.ReconnectWait),
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}
	if cfg.NATS.TLS.Enabled {
		tlsConfig, err := tlsutil.LoadClientTLSConfig(cfg.NATS.TLS)
		if err != nil {
			return nil, err
		}
		opts = append(opts, natsclient.WithTLSConfig(tlsConfig))
	}

	client, err := natsclient.NewClient(strings.Join(cfg.NATS.URLs, ","), opts...)
	if err != nil {
		return nil, errors.WrapFatal(err, "Service", "newNATSClient", "create NATS client")
	}
	return client, nil
}

// connectToNATS establishes the connection, retrying transient failures with backoff
func connectToNATS(ctx context.Context, client *natsclient.Client, logger *slog.Logger) error {
	logger.Info("Connecting to NATS", "url", client.URL())

	policy := retry.Startup()
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn("NATS connection attempt failed", "attempt", attempt, "retry_in", delay, "error", err)
	}

	err := retry.Do(ctx, policy, func() error {
		connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		return client.Connect(connCtx)
	})
	if err != nil {
		return errors.Wrap(err, "Service", "connectToNATS", "connect to NATS")
	}

	waitCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.WaitForConnection(waitCtx); err != nil {
		return errors.Wrap(err, "Service", "connectToNATS", "wait for NATS")
	}
	return nil
}

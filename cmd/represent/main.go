// Package main implements the represent command: it reads a match document,
// flags representative domain hits and writes the annotated document to stdout.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/google/uuid"

	"github.com/c360/represent/config"
	"github.com/c360/represent/errors"
	"github.com/c360/represent/match"
	"github.com/c360/represent/represent"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "represent"
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
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return 2
	default:
		return 1
	}
}

// run executes one annotation. stdout only ever receives the annotated document
// or the version line.
func run(
	ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string,
) error {
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
		// no configured logger yet
		setupLogger("info", config.LogFormatText, stderr, "").Error("Invalid configuration", "error", err)
		return err
	}

	runID := uuid.NewString()
	logger := setupLogger(cfg.Log.Level, cfg.Log.Format, stderr, runID)

	if cli.Validate {
		logger.Info("Configuration is valid", "config", cfg.String())
		return nil
	}

	if err := annotate(ctx, cli, cfg, stdin, stdout, logger); err != nil {
		logger.Error("Annotation failed", "error", err, "class", errors.Classify(err).String())
		return err
	}
	return nil
}

// loadConfig layers defaults, the optional config file, REPRESENT_* variables and flags
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
		return nil, errors.WrapFatal(err, "CLI", "loadConfig", "validate configuration")
	}
	return cfg, nil
}

func annotate(
	ctx context.Context, cli *CLIConfig, cfg *config.Config, stdin io.Reader, stdout io.Writer, logger *slog.Logger,
) error {
	engine, err := represent.NewEngine(cfg.Engine,
		represent.WithLogger(logger),
		represent.WithWorkers(cfg.Workers),
	)
	if err != nil {
		return err
	}

	set, err := readDocument(cli.Input, stdin)
	if err != nil {
		return err
	}
	logger.Info("Loaded match document", "input", cli.Input, "proteins", set.Len())

	summary, err := engine.AnnotateAll(ctx, set)
	if err != nil {
		return err
	}

	if err := writeDocument(cli.Output, stdout, set, cli.Indent); err != nil {
		return err
	}
	if cli.ReportPath != "" {
		if err := writeReports(cli.ReportPath, summary); err != nil {
			return err
		}
	}

	logger.Info("Annotation complete",
		"proteins", summary.Proteins,
		"candidates", summary.Candidates,
		"malformed", summary.Malformed,
		"clusters", summary.Clusters,
		"capped", summary.Capped,
		"representatives", summary.Representatives,
		"duration", summary.Duration)
	return nil
}

func readDocument(path string, stdin io.Reader) (*match.Set, error) {
	if path == "-" {
		return match.Decode(bufio.NewReader(stdin))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapFatal(err, "CLI", "readDocument", fmt.Sprintf("open %s", path))
	}
	defer f.Close()

	return match.Decode(bufio.NewReader(f))
}

func writeDocument(path string, stdout io.Writer, set *match.Set, indent bool) error {
	if path == "" {
		w := bufio.NewWriter(stdout)
		if err := match.Encode(w, set, indent); err != nil {
			return err
		}
		return errors.Wrap(w.Flush(), "CLI", "writeDocument", "flush stdout")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.WrapFatal(err, "CLI", "writeDocument", fmt.Sprintf("create %s", path))
	}
	w := bufio.NewWriter(f)
	if err := match.Encode(w, set, indent); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "CLI", "writeDocument", fmt.Sprintf("write %s", path))
	}
	return errors.Wrap(f.Close(), "CLI", "writeDocument", fmt.Sprintf("close %s", path))
}

func writeReports(path string, summary represent.Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return errors.Wrap(err, "CLI", "writeReports", "encode reports")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapFatal(err, "CLI", "writeReports", fmt.Sprintf("write %s", path))
	}
	return nil
}

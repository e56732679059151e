package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/c360/represent/config"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	NATSURL     string
	MetricsPort int
	Validate    bool
	ShowVersion bool

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer, getenv func(string) string) (*CLIConfig, error) {
	cfg := &CLIConfig{set: map[string]bool{}}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.ConfigPath, "config", getenv(config.EnvPrefix+"_CONFIG"),
		"Path to a JSON or YAML configuration file (env: REPRESENT_CONFIG)")
	fs.StringVar(&cfg.ConfigPath, "c", getenv(config.EnvPrefix+"_CONFIG"),
		"Shorthand for -config")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", "", "Log format: json, text")
	fs.StringVar(&cfg.NATSURL, "nats", "", "NATS server URL, overrides nats.urls")
	fs.IntVar(&cfg.MetricsPort, "metrics-port", 0, "Prometheus port, overrides metrics.port")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")

	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, `%s - annotate match documents received over NATS

Usage: %s [options]

Options:
`, appName, appName)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	fs.Visit(func(f *flag.Flag) { cfg.set[f.Name] = true })
	return cfg, nil
}

func (c *CLIConfig) apply(cfg *config.Config) {
	if c.set["log-level"] {
		cfg.Log.Level = c.LogLevel
	}
	if c.set["log-format"] {
		cfg.Log.Format = c.LogFormat
	}
	if c.set["nats"] {
		cfg.NATS.URLs = []string{c.NATSURL}
	}
	if c.set["metrics-port"] {
		cfg.Metrics.Port = c.MetricsPort
	}
}

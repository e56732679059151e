package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/c360/represent/config"
	"github.com/c360/represent/errors"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	Input      string
	ConfigPath string
	Output     string
	ReportPath string

	LogLevel   string
	LogFormat  string
	Workers    int
	Strategy   string
	MaxDomains int
	Threshold  float64
	Databases  string
	Indent     bool

	Validate    bool
	ShowVersion bool

	// set records which flags were given explicitly
	set map[string]bool
}

// errUsage marks command-line mistakes; main exits with status 2 for them
var errUsage = errors.New("usage error")

func parseFlags(args []string, stderr io.Writer, getenv func(string) string) (*CLIConfig, error) {
	cfg := &CLIConfig{set: map[string]bool{}}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.ConfigPath, "config", getenv(config.EnvPrefix+"_CONFIG"),
		"Path to a JSON or YAML configuration file (env: REPRESENT_CONFIG)")
	fs.StringVar(&cfg.ConfigPath, "c", getenv(config.EnvPrefix+"_CONFIG"),
		"Shorthand for -config")
	fs.StringVar(&cfg.Output, "o", "", "Write the annotated document to this file instead of stdout")
	fs.StringVar(&cfg.ReportPath, "report", "", "Write per-protein selection reports as JSON to this file")

	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", "", "Log format: json, text")
	fs.IntVar(&cfg.Workers, "workers", 0, "Proteins annotated in parallel (0 = GOMAXPROCS)")
	fs.StringVar(&cfg.Strategy, "strategy", "", "Subset enumeration: exhaustive, maximal")
	fs.IntVar(&cfg.MaxDomains, "max-domains", 0, "Candidates considered per overlap cluster")
	fs.Float64Var(&cfg.Threshold, "overlap-threshold", 0, "Overlap fraction at which candidates conflict")
	fs.StringVar(&cfg.Databases, "databases", "", "Comma-separated eligible member databases, highest priority first")
	fs.BoolVar(&cfg.Indent, "indent", false, "Pretty-print the annotated document")

	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")

	fs.Usage = func() { printUsage(fs, stderr) }

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	fs.Visit(func(f *flag.Flag) { cfg.set[f.Name] = true })

	if cfg.ShowVersion || cfg.Validate {
		return cfg, nil
	}

	switch fs.NArg() {
	case 1:
		cfg.Input = fs.Arg(0)
	case 0:
		fs.Usage()
		return nil, fmt.Errorf("%w: missing match document path", errUsage)
	default:
		fs.Usage()
		return nil, fmt.Errorf("%w: expected one match document, got %d arguments", errUsage, fs.NArg())
	}
	return cfg, nil
}

// apply copies explicitly given flags over the loaded configuration
func (c *CLIConfig) apply(cfg *config.Config) {
	if c.set["log-level"] {
		cfg.Log.Level = c.LogLevel
	}
	if c.set["log-format"] {
		cfg.Log.Format = c.LogFormat
	}
	if c.set["workers"] {
		cfg.Workers = c.Workers
	}
	if c.set["strategy"] {
		cfg.Engine.Strategy = c.Strategy
	}
	if c.set["max-domains"] {
		cfg.Engine.MaxDomainsPerGroup = c.MaxDomains
	}
	if c.set["overlap-threshold"] {
		cfg.Engine.OverlapThreshold = c.Threshold
	}
	if c.set["databases"] {
		var dbs []string
		for _, db := range strings.Split(c.Databases, ",") {
			if db = strings.TrimSpace(db); db != "" {
				dbs = append(dbs, db)
			}
		}
		cfg.Engine.Databases = dbs
	}
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintf(w, `%s - flag representative domain hits in a match document

Usage: %s [options] <matches.json | ->

Reads a sequence -> accession -> match JSON document, sets the representative
flag of every location of an eligible member database, and writes the document
to stdout. Logs go to stderr.

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  %s matches.json > annotated.json
  %s -strategy=maximal -max-domains=30 -o annotated.json matches.json
  cat matches.json | %s -log-format=json -

Version: %s
Build: %s
`, appName, appName, appName, Version, BuildTime)
}

package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/c360/represent/errors"
	"github.com/c360/represent/pkg/tlsutil"
	"github.com/c360/represent/represent"
)

// Log formats
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the complete application configuration
type Config struct {
	Engine represent.Config `json:"engine"`
	// Workers is the number of proteins annotated in parallel; 0 selects GOMAXPROCS
	Workers int           `json:"workers"`
	Log     LogConfig     `json:"log"`
	NATS    NATSConfig    `json:"nats"`
	Service ServiceConfig `json:"service"`
	Metrics MetricsConfig `json:"metrics"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// NATSConfig defines NATS connection and subject settings
type NATSConfig struct {
	URLs          []string             `json:"urls,omitempty"`
	MaxReconnects int                  `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration        `json:"reconnect_wait,omitempty"`
	Username      string               `json:"username,omitempty"`
	Password      string               `json:"password,omitempty"`
	Token         string               `json:"token,omitempty"`
	TLS           tlsutil.ClientConfig `json:"tls,omitempty"`

	// InputSubject carries match documents to annotate
	InputSubject string `json:"input_subject"`
	// OutputSubject receives annotated documents
	OutputSubject string `json:"output_subject"`
	// Queue is the queue group shared by service replicas; empty disables queueing
	Queue string `json:"queue,omitempty"`
}

// ServiceConfig bounds message intake of the annotation service
type ServiceConfig struct {
	// RateLimit is the sustained number of documents accepted per second; 0 disables limiting
	RateLimit float64 `json:"rate_limit"`
	Burst     int     `json:"burst"`
	// QueueSize is how many documents may wait for a worker
	QueueSize int `json:"queue_size"`
	// Workers is how many documents are annotated concurrently
	Workers         int           `json:"workers"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	// Indent pretty-prints published documents
	Indent bool `json:"indent"`
	// ReplayWindow is how many recent message ids are remembered so redelivered
	// documents are answered without publishing them again; 0 disables it
	ReplayWindow int `json:"replay_window"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`
}

// Default returns a runnable configuration
func Default() *Config {
	return &Config{
		Engine: represent.DefaultConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatText,
		},
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			InputSubject:  "represent.matches",
			OutputSubject: "represent.annotated",
			Queue:         "represent",
		},
		Service: ServiceConfig{
			RateLimit:       50,
			Burst:           10,
			QueueSize:       64,
			Workers:         4,
			ShutdownTimeout: 10 * time.Second,
			ReplayWindow:    1024,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if c.Workers < 0 {
		return invalid("workers must not be negative")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid(fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case LogFormatJSON, LogFormatText:
	default:
		return invalid(fmt.Sprintf("unknown log format %q", c.Log.Format))
	}

	if !isValidNATSSubject(c.NATS.InputSubject) {
		return invalid(fmt.Sprintf("nats.input_subject %q is not a valid subject", c.NATS.InputSubject))
	}
	if !isValidNATSSubject(c.NATS.OutputSubject) || strings.ContainsAny(c.NATS.OutputSubject, "*>") {
		return invalid(fmt.Sprintf("nats.output_subject %q is not a valid publish subject", c.NATS.OutputSubject))
	}
	if c.NATS.InputSubject == c.NATS.OutputSubject {
		return invalid("nats.input_subject and nats.output_subject must differ")
	}
	if err := c.NATS.TLS.Validate(); err != nil {
		return err
	}

	if c.Service.RateLimit < 0 {
		return invalid("service.rate_limit must not be negative")
	}
	if c.Service.RateLimit > 0 && c.Service.Burst < 1 {
		return invalid("service.burst must be at least 1 when rate limiting")
	}
	if c.Service.QueueSize < 1 || c.Service.Workers < 1 {
		return invalid("service.queue_size and service.workers must be at least 1")
	}
	if c.Service.ReplayWindow < 0 {
		return invalid("service.replay_window must not be negative")
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return invalid(fmt.Sprintf("metrics.port %d out of range", c.Metrics.Port))
	}
	return nil
}

func invalid(msg string) error {
	return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", msg)
}

// isValidNATSSubject checks every dot-separated token of a subject. Tokens are
// alphanumeric with dashes and underscores, or a wildcard.
func isValidNATSSubject(s string) bool {
	if s == "" {
		return false
	}
	tokens := strings.Split(s, ".")
	for i, tok := range tokens {
		switch {
		case tok == "*":
			continue
		case tok == ">":
			if i != len(tokens)-1 {
				return false
			}
			continue
		case tok == "":
			return false
		}
		for _, r := range tok {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
				return false
			}
		}
	}
	return true
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return Default()
	}

	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// String returns a JSON representation of the config with credentials masked
func (c *Config) String() string {
	masked := c.Clone()
	if masked.NATS.Password != "" {
		masked.NATS.Password = "***"
	}
	if masked.NATS.Token != "" {
		masked.NATS.Token = "***"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

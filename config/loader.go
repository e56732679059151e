package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/represent/errors"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "REPRESENT"

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	getenv     func(string) string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: true,
		envPrefix:  EnvPrefix,
		getenv:     os.Getenv,
	}
}

// AddLayer adds a configuration file layer. Later layers override earlier ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// UseEnv replaces the environment lookup used for overrides. A nil func keeps os.Getenv.
func (l *Loader) UseEnv(getenv func(string) string) {
	if getenv != nil {
		l.getenv = getenv
	}
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load starts from Default, merges every layer, applies environment overrides
// and validates the result.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapFatal(err, "Loader", "Load", fmt.Sprintf("load %s", path))
		}
		cfg, err = mergeFromMap(cfg, raw)
		if err != nil {
			return nil, errors.WrapFatal(fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
				"Loader", "Load", fmt.Sprintf("merge %s", path))
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, errors.WrapFatal(err, "Loader", "Load", "apply environment overrides")
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// loadRaw reads a JSON or YAML file into a generic map
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
		}
	default:
		if err := validateJSONDepth(data); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON structure: %v", errors.ErrInvalidConfig, err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
		}
	}

	if err := parseDurations(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	return raw, nil
}

// parseDurations converts duration strings to nanoseconds for JSON unmarshaling
func parseDurations(data map[string]any) error {
	fields := []struct{ section, key string }{
		{"nats", "reconnect_wait"},
		{"service", "shutdown_timeout"},
	}
	for _, f := range fields {
		section, ok := data[f.section].(map[string]any)
		if !ok {
			continue
		}
		s, ok := section[f.key].(string)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%s.%s: %v", f.section, f.key, err)
		}
		section[f.key] = d.Nanoseconds()
	}
	return nil
}

// mergeFromMap merges configuration from a raw map, only overriding fields present in the map
func mergeFromMap(base *Config, override map[string]any) (*Config, error) {
	if override == nil {
		return base, nil
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	mergedJSON, err := json.Marshal(deepMergeMaps(baseMap, override))
	if err != nil {
		return nil, err
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence.
// Lists are replaced, not appended.
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// applyEnvOverrides applies REPRESENT_* environment variables
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	strOverrides := map[string]*string{
		"LOG_LEVEL":           &cfg.Log.Level,
		"LOG_FORMAT":          &cfg.Log.Format,
		"STRATEGY":            &cfg.Engine.Strategy,
		"NATS_USERNAME":       &cfg.NATS.Username,
		"NATS_PASSWORD":       &cfg.NATS.Password,
		"NATS_TOKEN":          &cfg.NATS.Token,
		"NATS_INPUT_SUBJECT":  &cfg.NATS.InputSubject,
		"NATS_OUTPUT_SUBJECT": &cfg.NATS.OutputSubject,
		"NATS_QUEUE":          &cfg.NATS.Queue,
	}
	for suffix, target := range strOverrides {
		val, err := l.env(suffix)
		if err != nil {
			return err
		}
		if val != "" {
			*target = val
		}
	}

	intOverrides := map[string]*int{
		"WORKERS":               &cfg.Workers,
		"MAX_DOMAINS_PER_GROUP": &cfg.Engine.MaxDomainsPerGroup,
		"METRICS_PORT":          &cfg.Metrics.Port,
	}
	for suffix, target := range intOverrides {
		val, err := l.env(suffix)
		if err != nil {
			return err
		}
		if val == "" {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%w: %s_%s: %v", errors.ErrInvalidConfig, l.envPrefix, suffix, err)
		}
		*target = n
	}

	val, err := l.env("OVERLAP_THRESHOLD")
	if err != nil {
		return err
	}
	if val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("%w: %s_OVERLAP_THRESHOLD: %v", errors.ErrInvalidConfig, l.envPrefix, err)
		}
		cfg.Engine.OverlapThreshold = f
	}

	for suffix, target := range map[string]*[]string{
		"DATABASES": &cfg.Engine.Databases,
		"NATS_URLS": &cfg.NATS.URLs,
	} {
		val, err := l.env(suffix)
		if err != nil {
			return err
		}
		if val != "" {
			*target = splitList(val)
		}
	}
	return nil
}

func (l *Loader) env(suffix string) (string, error) {
	key := l.envPrefix + "_" + suffix
	val := l.getenv(key)
	if err := validateEnvVar(key, val); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	return strings.TrimSpace(val), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package represent

import (
	"fmt"
	"strings"

	"github.com/c360/represent/errors"
)

// Defaults for the selection tunables
const (
	DefaultMaxDomainsPerGroup = 20
	DefaultOverlapThreshold   = 0.3
)

// Subset enumeration strategies
const (
	// StrategyExhaustive visits every pairwise-compatible subset of a cluster
	StrategyExhaustive = "exhaustive"
	// StrategyMaximal visits maximal cliques only (Bron–Kerbosch with pivoting)
	StrategyMaximal = "maximal"
)

// DefaultDatabases is the eligible member database list, highest priority first
var DefaultDatabases = []string{"PFAM", "CDD", "PROSITE_PROFILES", "SMART", "NCBIFAM"}

// Config holds the engine tunables. It is passed to NewEngine by value and never
// changed afterwards.
type Config struct {
	// Databases lists eligible member databases; a database's index is its rank
	Databases []string `json:"databases"             yaml:"databases"`
	// MaxDomainsPerGroup caps how many candidates of one cluster are considered
	MaxDomainsPerGroup int `json:"max_domains_per_group" yaml:"max_domains_per_group"`
	// OverlapThreshold is the overlap fraction at which two candidates stop being compatible
	OverlapThreshold float64 `json:"overlap_threshold"     yaml:"overlap_threshold"`
	// Strategy selects the subset enumerator
	Strategy string `json:"strategy"              yaml:"strategy"`
}

// DefaultConfig returns the standard tunables
func DefaultConfig() Config {
	dbs := make([]string, len(DefaultDatabases))
	copy(dbs, DefaultDatabases)
	return Config{
		Databases:          dbs,
		MaxDomainsPerGroup: DefaultMaxDomainsPerGroup,
		OverlapThreshold:   DefaultOverlapThreshold,
		Strategy:           StrategyExhaustive,
	}
}

// Validate checks the configuration for errors
func (c Config) Validate() error {
	if len(c.Databases) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "databases must not be empty")
	}
	seen := make(map[string]bool, len(c.Databases))
	for _, db := range c.Databases {
		name := NormalizeDatabase(db)
		if name == "" {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "database name must not be empty")
		}
		if seen[name] {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				fmt.Sprintf("database %s listed twice", name))
		}
		seen[name] = true
	}
	if c.MaxDomainsPerGroup < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"max_domains_per_group must be at least 1")
	}
	if c.OverlapThreshold <= 0 || c.OverlapThreshold > 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"overlap_threshold must be in (0, 1]")
	}
	switch c.Strategy {
	case StrategyExhaustive, StrategyMaximal:
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("unknown strategy %q", c.Strategy))
	}
	return nil
}

// ranks maps normalised database names to their priority rank
func (c Config) ranks() map[string]int {
	ranks := make(map[string]int, len(c.Databases))
	for i, db := range c.Databases {
		ranks[NormalizeDatabase(db)] = i
	}
	return ranks
}

// NormalizeDatabase maps member database spellings onto one key:
// "PROSITE profiles", "prosite-profiles" and "PROSITE_PROFILES" are the same database.
func NormalizeDatabase(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}
		return r
	}, name)
}

package model

import (
	"fmt"
	"time"
)

// Config holds all factgate configuration. Constructed once at process
// start (flags > env > config file > defaults) and passed by reference;
// nothing mutates it after validation.
type Config struct {
	Verification VerificationConfig `yaml:"verification" mapstructure:"verification"`
	Scoring      ScoringConfig      `yaml:"scoring" mapstructure:"scoring"`
	Resolver     ResolverConfig     `yaml:"resolver" mapstructure:"resolver"`
	Matcher      MatcherConfig      `yaml:"matcher" mapstructure:"matcher"`
	Audit        AuditConfig        `yaml:"audit" mapstructure:"audit"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// VerificationConfig controls the policy gate
type VerificationConfig struct {
	Enabled       bool    `yaml:"enabled" mapstructure:"enabled"`
	StrictMode    bool    `yaml:"strict_mode" mapstructure:"strict_mode"`
	MinConfidence float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
	WarnBelow     float64 `yaml:"warn_below" mapstructure:"warn_below"` // Permissive-mode annotation sub-threshold
	AutoCorrect   bool    `yaml:"auto_correct" mapstructure:"auto_correct"`
}

// ScoringConfig holds the deviation classification bands.
// These are tunable defaults, expected to be validated against a labeled
// regression set rather than treated as fixed constants.
type ScoringConfig struct {
	ExactBand     float64 `yaml:"exact_band" mapstructure:"exact_band"`         // <= band -> EXACT
	ToleranceBand float64 `yaml:"tolerance_band" mapstructure:"tolerance_band"` // <= band -> WITHIN_TOLERANCE
	MinorBand     float64 `yaml:"minor_band" mapstructure:"minor_band"`         // <= band -> MINOR_DEVIATION, above -> GROSS_MISMATCH

	// PercentSanityBound is the largest magnitude a value can have and
	// still plausibly be a percentage. A "percentage" claim beyond it
	// against a percent fact is scale confusion (a dollar figure wearing
	// a % sign), classified WRONG_CATEGORY rather than numeric drift.
	PercentSanityBound float64 `yaml:"percent_sanity_bound" mapstructure:"percent_sanity_bound"`
}

// ResolverConfig controls concurrent ground-truth lookups
type ResolverConfig struct {
	Workers          int           `yaml:"workers" mapstructure:"workers"`
	LookupTimeout    time.Duration `yaml:"lookup_timeout" mapstructure:"lookup_timeout"`
	LookupsPerSecond float64       `yaml:"lookups_per_second" mapstructure:"lookups_per_second"` // 0 = unlimited
}

// MatcherConfig controls fuzzy label matching in the extractor
type MatcherConfig struct {
	MaxEditDistance int           `yaml:"max_edit_distance" mapstructure:"max_edit_distance"`
	WindowTokens    int           `yaml:"window_tokens" mapstructure:"window_tokens"` // Label search window around a number
	CacheTTL        time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// AuditConfig controls the audit recorder
type AuditConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	DBPath    string `yaml:"db_path" mapstructure:"db_path"`
	QueueSize int    `yaml:"queue_size" mapstructure:"queue_size"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Verification: VerificationConfig{
			Enabled:       true,
			StrictMode:    false,
			MinConfidence: 0.85,
			WarnBelow:     0.95,
			AutoCorrect:   false,
		},
		Scoring: ScoringConfig{
			ExactBand:          0.005,
			ToleranceBand:      0.05,
			MinorBand:          0.25,
			PercentSanityBound: 1e4,
		},
		Resolver: ResolverConfig{
			Workers:          8,
			LookupTimeout:    2 * time.Second,
			LookupsPerSecond: 0,
		},
		Matcher: MatcherConfig{
			MaxEditDistance: 2,
			WindowTokens:    6,
			CacheTTL:        10 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:   true,
			DBPath:    "factgate.db",
			QueueSize: 64,
		},
		Output: OutputConfig{
			Verbose:       false,
			IncludeFooter: true,
		},
	}
}

// Validate rejects misconfiguration at process start, before any request
// is served.
func (c *Config) Validate() error {
	if c.Verification.MinConfidence < 0 || c.Verification.MinConfidence > 1 {
		return fmt.Errorf("verification.min_confidence must be in [0,1], got %v", c.Verification.MinConfidence)
	}
	if c.Verification.WarnBelow < 0 || c.Verification.WarnBelow > 1 {
		return fmt.Errorf("verification.warn_below must be in [0,1], got %v", c.Verification.WarnBelow)
	}
	if c.Scoring.ExactBand <= 0 || c.Scoring.ToleranceBand <= c.Scoring.ExactBand || c.Scoring.MinorBand <= c.Scoring.ToleranceBand {
		return fmt.Errorf("scoring bands must satisfy 0 < exact < tolerance < minor, got %v/%v/%v",
			c.Scoring.ExactBand, c.Scoring.ToleranceBand, c.Scoring.MinorBand)
	}
	if c.Scoring.PercentSanityBound <= 0 {
		return fmt.Errorf("scoring.percent_sanity_bound must be positive, got %v", c.Scoring.PercentSanityBound)
	}
	if c.Resolver.Workers <= 0 {
		return fmt.Errorf("resolver.workers must be positive, got %d", c.Resolver.Workers)
	}
	if c.Resolver.LookupTimeout <= 0 {
		return fmt.Errorf("resolver.lookup_timeout must be positive, got %v", c.Resolver.LookupTimeout)
	}
	if c.Matcher.MaxEditDistance < 0 {
		return fmt.Errorf("matcher.max_edit_distance must be non-negative, got %d", c.Matcher.MaxEditDistance)
	}
	if c.Audit.QueueSize <= 0 {
		return fmt.Errorf("audit.queue_size must be positive, got %d", c.Audit.QueueSize)
	}
	return nil
}

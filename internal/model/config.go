package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the full landchain configuration
type Config struct {
	Engine       EngineConfig       `yaml:"engine" mapstructure:"engine"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Fetch        FetchConfig        `yaml:"fetch" mapstructure:"fetch"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// EngineConfig holds the jurisdiction- and dataset-specific heuristics of the computation
type EngineConfig struct {
	// DefaultLeaseTermYears applies when a lease states no primary term.
	// Three years is the common statutory primary term in North Dakota.
	DefaultLeaseTermYears int `yaml:"default_lease_term_years" mapstructure:"default_lease_term_years" validate:"gte=1,lte=99"`

	// EstimateUnresolvedAcreage substitutes a quarter section (160 ac), labelled as an estimate
	EstimateUnresolvedAcreage bool    `yaml:"estimate_unresolved_acreage" mapstructure:"estimate_unresolved_acreage"`
	EstimatedAcres            float64 `yaml:"estimated_acres" mapstructure:"estimated_acres" validate:"gt=0"`

	// SumTolerance bounds how far the active interests may drift from 100%
	SumTolerance float64 `yaml:"sum_tolerance" mapstructure:"sum_tolerance" validate:"gt=0,lt=0.01"`

	// Bare years are ordered as this nominal month/day
	YearOnlyMonth int `yaml:"year_only_month" mapstructure:"year_only_month" validate:"gte=1,lte=12"`
	YearOnlyDay   int `yaml:"year_only_day" mapstructure:"year_only_day" validate:"gte=1,lte=28"`

	ProductionKeywords []string `yaml:"production_keywords" mapstructure:"production_keywords" validate:"min=1,dive,required"`

	// NameMatcher selects party-name comparison: "substring" (word-boundary containment)
	// or "edit-distance" (normalized Levenshtein within NameMaxEditRatio)
	NameMatcher      string  `yaml:"name_matcher" mapstructure:"name_matcher" validate:"omitempty,oneof=substring edit-distance"`
	NameMaxEditRatio float64 `yaml:"name_max_edit_ratio" mapstructure:"name_max_edit_ratio" validate:"gte=0,lt=1"`

	UnknownOwnerName        string `yaml:"unknown_owner_name" mapstructure:"unknown_owner_name" validate:"required"`
	ResearchPlaceholderName string `yaml:"research_placeholder_name" mapstructure:"research_placeholder_name" validate:"required"`
	Limitations             string `yaml:"limitations" mapstructure:"limitations"`
}

// LLMConfig configures the optional AI row extractor
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=openai ollama"`
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"` // Never written to config files
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`

	// Proxies for provider calls; empty falls back to HTTP_PROXY/HTTPS_PROXY
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy" validate:"omitempty,url"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy" validate:"omitempty,url"`
}

// FetchConfig configures downloads of documents referenced by URL
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent" validate:"required"`
	MaxBytes  int64         `yaml:"max_bytes" mapstructure:"max_bytes" validate:"gt=0"`

	// RespectRobots skips documents a portal's robots.txt disallows and honors its crawl delay
	RespectRobots bool `yaml:"respect_robots" mapstructure:"respect_robots"`

	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy" validate:"omitempty,url"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy" validate:"omitempty,url"`
}

// CacheConfig configures the extraction response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig bounds parallel tract processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
}

// RateLimitingConfig throttles calls to the external extraction provider
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size" validate:"gte=1"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultLimitations is the standard limitations paragraph attached to every report
const DefaultLimitations = "This report is a mechanical reconstruction of recorded instruments supplied by the caller. " +
	"It is not a title opinion and must not be relied upon as one. Unrecorded instruments, adverse possession, " +
	"pooling and spacing orders, and instruments outside the supplied runsheet are not considered. " +
	"Every review flag must be resolved by a qualified landman or attorney before relying on the figures."

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			DefaultLeaseTermYears:     3,
			EstimateUnresolvedAcreage: false,
			EstimatedAcres:            160,
			SumTolerance:              1e-6,
			YearOnlyMonth:             7,
			YearOnlyDay:               1,
			ProductionKeywords: []string{
				"producing", "production", "well", "wells", "division order",
				"royalty", "royalties", "spud", "shut-in", "shut in",
			},
			NameMatcher:             "substring",
			NameMaxEditRatio:        0.2,
			UnknownOwnerName:        "Unknown Owner",
			ResearchPlaceholderName: "Unknown Owner - Requires Additional Research",
			Limitations:             DefaultLimitations,
		},
		LLM: LLMConfig{
			Provider:  "",
			Timeout:   60,
			MaxTokens: 2000,
		},
		Fetch: FetchConfig{
			Timeout:       60 * time.Second,
			UserAgent:     "landchain/0.1 (+https://github.com/ppiankov/landchain)",
			MaxBytes:      10 << 20,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".landchain-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 1,
			BurstSize:         2,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}

var configValidate = validator.New()

// Validate checks the configuration and reports every failing field at once
func (c *Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

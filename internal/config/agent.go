// Package config loads the content agent configuration: the provider roster,
// admission limits, the retry policy and the synthesis parameters.
//
// Sources, in increasing precedence:
//   - DefaultAgentConfig
//   - the YAML file named by AGENT_CONFIG_FILE
//   - environment variables
//
// Scalar environment values are fail-open (see internal/pkg/config). A missing
// or unreadable file and an empty provider roster are hard errors.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"content-agent/internal/domain/entity"
	pkgconfig "content-agent/internal/pkg/config"
	"content-agent/internal/recovery"
	"content-agent/internal/resilience/retry"
	"content-agent/pkg/ratelimit"
)

// Environment variable names.
const (
	EnvConfigFile = "AGENT_CONFIG_FILE"
	EnvProviders  = "PROVIDERS"
)

// ProviderSettings describes one provider endpoint and its admission limits.
type ProviderSettings struct {
	Name      string   `yaml:"name"`
	Type      string   `yaml:"type"`
	APIKey    string   `yaml:"api_key"`
	Model     string   `yaml:"model"`
	BaseURL   string   `yaml:"base_url"`
	MaxTokens int      `yaml:"max_tokens"`
	Script    []string `yaml:"script"`

	// Priority orders the chain, lower first.
	Priority int `yaml:"priority"`

	// RateLimit is the number of calls allowed per RateWindow. Zero disables it.
	RateLimit   int           `yaml:"rate_limit"`
	RateWindow  time.Duration `yaml:"rate_window"`
	MinInterval time.Duration `yaml:"min_interval"`

	// Timeout bounds one call. Zero selects the chain default.
	Timeout time.Duration `yaml:"timeout"`
}

// Limit returns the admission limit of the provider.
func (p ProviderSettings) Limit() ratelimit.Limit {
	return ratelimit.Limit{Max: p.RateLimit, Window: p.RateWindow, MinInterval: p.MinInterval}
}

// EnvPrefix returns the prefix of the provider's environment variables, the
// upper-cased name with every other character replaced by '_'.
func (p ProviderSettings) EnvPrefix() string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, p.Name)
}

// RetrySettings mirrors retry.Policy in a serialisable form.
type RetrySettings struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Multiplier  float64       `yaml:"multiplier"`
	Jitter      float64       `yaml:"jitter"`
}

// Policy converts the settings into a retry policy with the default
// retryable set.
func (r RetrySettings) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    r.MaxAttempts,
		BaseDelay:      r.BaseDelay,
		MaxDelay:       r.MaxDelay,
		Multiplier:     r.Multiplier,
		JitterFraction: r.Jitter,
	}
}

// ContentSettings holds the niches to plan for and the synthesis parameters.
type ContentSettings struct {
	Niches      []entity.Niche `yaml:"niches"`
	SynthCount  int            `yaml:"synth_count"`
	MaxHashtags int            `yaml:"max_hashtags"`
}

// AgentConfig is the complete agent configuration.
type AgentConfig struct {
	Providers []ProviderSettings `yaml:"providers"`
	Retry     RetrySettings      `yaml:"retry"`
	Content   ContentSettings    `yaml:"content"`
}

// DefaultAgentConfig returns the defaults. The provider roster is empty and
// must come from the file or PROVIDERS.
func DefaultAgentConfig() AgentConfig {
	p := retry.DefaultPolicy()
	return AgentConfig{
		Retry: RetrySettings{
			MaxAttempts: p.MaxAttempts,
			BaseDelay:   p.BaseDelay,
			MaxDelay:    p.MaxDelay,
			Multiplier:  p.Multiplier,
			Jitter:      p.JitterFraction,
		},
		Content: ContentSettings{
			SynthCount:  recovery.DefaultSynthCount,
			MaxHashtags: recovery.DefaultMaxHashtags,
		},
	}
}

// LoadAgentFile reads a YAML file over the defaults.
// The path parameter is expected to come from a trusted source (environment or CLI flag).
func LoadAgentFile(path string) (*AgentConfig, error) {
	// #nosec G304 -- path is provided by the operator, not by request input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultAgentConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadAgentConfig builds the configuration from AGENT_CONFIG_FILE and the
// environment, then validates it. metrics may be nil.
func LoadAgentConfig(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) (*AgentConfig, error) {
	cfg := DefaultAgentConfig()
	if path := strings.TrimSpace(os.Getenv(EnvConfigFile)); path != "" {
		loaded, err := LoadAgentFile(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	tracker := pkgconfig.NewTracker(logger, metrics)
	applyProviderEnv(tracker, &cfg)
	applyRetryEnv(tracker, &cfg.Retry)
	applyContentEnv(tracker, &cfg.Content)
	tracker.Finish()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent configuration: %w", err)
	}
	return &cfg, nil
}

// applyProviderEnv reorders the roster by PROVIDERS and applies the
// per-provider variables. Providers missing from a set PROVIDERS are dropped.
func applyProviderEnv(t *pkgconfig.Tracker, cfg *AgentConfig) {
	names := pkgconfig.LoadEnvList(EnvProviders, nil).Value
	if len(names) > 0 {
		roster := make([]ProviderSettings, 0, len(names))
		for i, name := range names {
			p := ProviderSettings{Name: name}
			for _, existing := range cfg.Providers {
				if strings.EqualFold(existing.Name, name) {
					p = existing
					break
				}
			}
			p.Priority = i
			roster = append(roster, p)
		}
		cfg.Providers = roster
	}

	for i := range cfg.Providers {
		applyOneProvider(t, &cfg.Providers[i])
	}
}

func applyOneProvider(t *pkgconfig.Tracker, p *ProviderSettings) {
	prefix := p.EnvPrefix()
	field := strings.ToLower(prefix)

	p.Type = pkgconfig.LoadEnvString(prefix+"_TYPE", p.Type, nil).Value
	p.APIKey = pkgconfig.LoadEnvString(prefix+"_API_KEY", p.APIKey, nil).Value
	if p.APIKey == "" && isAnthropic(*p) {
		p.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	p.Model = pkgconfig.LoadEnvString(prefix+"_MODEL", p.Model, nil).Value
	p.BaseURL = pkgconfig.LoadEnvString(prefix+"_BASE_URL", p.BaseURL, nil).Value

	p.Priority = pkgconfig.Track(t, field+"_priority",
		pkgconfig.LoadEnvInt(prefix+"_PRIORITY", p.Priority, nil))
	p.MaxTokens = pkgconfig.Track(t, field+"_max_tokens",
		pkgconfig.LoadEnvInt(prefix+"_MAX_TOKENS", p.MaxTokens, pkgconfig.IntRange(0, 200000)))
	p.RateLimit = pkgconfig.Track(t, field+"_rate_limit",
		pkgconfig.LoadEnvInt(prefix+"_RATE_LIMIT", p.RateLimit, pkgconfig.IntRange(0, 100000)))
	p.RateWindow = pkgconfig.Track(t, field+"_rate_window",
		pkgconfig.LoadEnvDuration(prefix+"_RATE_WINDOW", p.RateWindow, pkgconfig.DurationRange(0, 24*time.Hour)))
	p.MinInterval = pkgconfig.Track(t, field+"_min_interval",
		pkgconfig.LoadEnvDuration(prefix+"_MIN_INTERVAL", p.MinInterval, pkgconfig.DurationRange(0, time.Hour)))
	p.Timeout = pkgconfig.Track(t, field+"_timeout",
		pkgconfig.LoadEnvDuration(prefix+"_TIMEOUT", p.Timeout, pkgconfig.DurationRange(0, 10*time.Minute)))
}

func isAnthropic(p ProviderSettings) bool {
	t := strings.ToLower(p.Type)
	if t == "" {
		t = strings.ToLower(p.Name)
	}
	return t == "claude" || t == "anthropic"
}

func applyRetryEnv(t *pkgconfig.Tracker, r *RetrySettings) {
	r.MaxAttempts = pkgconfig.Track(t, "retry_max_attempts",
		pkgconfig.LoadEnvInt("RETRY_MAX_ATTEMPTS", r.MaxAttempts, pkgconfig.IntRange(1, 10)))
	r.BaseDelay = pkgconfig.Track(t, "retry_base_delay",
		pkgconfig.LoadEnvDuration("RETRY_BASE_DELAY", r.BaseDelay, pkgconfig.DurationRange(0, time.Minute)))
	r.MaxDelay = pkgconfig.Track(t, "retry_max_delay",
		pkgconfig.LoadEnvDuration("RETRY_MAX_DELAY", r.MaxDelay, pkgconfig.DurationRange(0, 10*time.Minute)))
	r.Multiplier = pkgconfig.Track(t, "retry_multiplier",
		pkgconfig.LoadEnvFloat("RETRY_MULTIPLIER", r.Multiplier, pkgconfig.FloatRange(1, 10)))
	r.Jitter = pkgconfig.Track(t, "retry_jitter",
		pkgconfig.LoadEnvFloat("RETRY_JITTER", r.Jitter, pkgconfig.FloatRange(0, 1)))
}

// applyContentEnv lets CONTENT_NICHE replace the niche list with a single
// niche. CONTENT_KEYWORDS, CONTENT_BRAND_VOICE and CONTENT_TARGET_AUDIENCE
// describe that niche, or the default niche when no list is configured.
func applyContentEnv(t *pkgconfig.Tracker, c *ContentSettings) {
	name := pkgconfig.LoadEnvString("CONTENT_NICHE", "", nil).Value
	if name != "" || len(c.Niches) == 0 {
		c.Niches = []entity.Niche{{
			Name:           name,
			Keywords:       pkgconfig.LoadEnvList("CONTENT_KEYWORDS", nil).Value,
			BrandVoice:     pkgconfig.LoadEnvString("CONTENT_BRAND_VOICE", "", nil).Value,
			TargetAudience: pkgconfig.LoadEnvString("CONTENT_TARGET_AUDIENCE", "", nil).Value,
		}}
	}

	c.SynthCount = pkgconfig.Track(t, "synth_count",
		pkgconfig.LoadEnvInt("SYNTH_COUNT", c.SynthCount, pkgconfig.IntRange(1, 50)))
	c.MaxHashtags = pkgconfig.Track(t, "max_hashtags",
		pkgconfig.LoadEnvInt("MAX_HASHTAGS", c.MaxHashtags, pkgconfig.IntRange(1, 30)))
}

// Validate reports every problem found, joined.
func (c *AgentConfig) Validate() error {
	var errs []error

	if len(c.Providers) == 0 {
		errs = append(errs, fmt.Errorf("no providers configured: set %s or %s", EnvProviders, EnvConfigFile))
	}
	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, fmt.Errorf("provider at index %d has no name", i))
			continue
		}
		key := strings.ToLower(p.Name)
		if seen[key] {
			errs = append(errs, fmt.Errorf("duplicate provider %s", p.Name))
		}
		seen[key] = true
		if err := p.Limit().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("provider %s: %w", p.Name, err))
		}
		if p.RateLimit < 0 {
			errs = append(errs, fmt.Errorf("provider %s: rate limit must not be negative", p.Name))
		}
		if p.Timeout < 0 {
			errs = append(errs, fmt.Errorf("provider %s: timeout must not be negative", p.Name))
		}
	}

	if err := c.Retry.Policy().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("retry: %w", err))
	}
	if c.Content.SynthCount < 1 {
		errs = append(errs, fmt.Errorf("synth count must be at least 1, got %d", c.Content.SynthCount))
	}
	if c.Content.MaxHashtags < 1 {
		errs = append(errs, fmt.Errorf("max hashtags must be at least 1, got %d", c.Content.MaxHashtags))
	}

	return errors.Join(errs...)
}

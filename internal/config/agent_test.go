package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-agent/internal/domain/entity"
	pkgconfig "content-agent/internal/pkg/config"
	"content-agent/internal/resilience/retry"
	"content-agent/pkg/ratelimit"
)

const sampleYAML = `
providers:
  - name: claude
    api_key: from-file
    priority: 5
    rate_limit: 50
    rate_window: 1m
    timeout: 45s
  - name: deepseek
    api_key: ds-key
    model: deepseek-reasoner
    priority: 1
    min_interval: 200ms
  - name: offline
    type: scripted
    priority: 9
    script:
      - "error:network"
      - "[]"
retry:
  max_attempts: 4
  base_delay: 500ms
  max_delay: 5s
  multiplier: 3
  jitter: 0.2
content:
  synth_count: 3
  max_hashtags: 6
  niches:
    - niche: indie music
      keywords: [guitar, vinyl]
      brand_voice: warm
    - niche: ai technology
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAgentFile(t *testing.T) {
	cfg, err := LoadAgentFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	require.Len(t, cfg.Providers, 3)
	assert.Equal(t, ProviderSettings{
		Name: "claude", APIKey: "from-file", Priority: 5,
		RateLimit: 50, RateWindow: time.Minute, Timeout: 45 * time.Second,
	}, cfg.Providers[0])
	assert.Equal(t, 200*time.Millisecond, cfg.Providers[1].MinInterval)
	assert.Equal(t, []string{"error:network", "[]"}, cfg.Providers[2].Script)

	assert.Equal(t, RetrySettings{
		MaxAttempts: 4, BaseDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second, Multiplier: 3, Jitter: 0.2,
	}, cfg.Retry)
	assert.Equal(t, 3, cfg.Content.SynthCount)
	assert.Equal(t, 6, cfg.Content.MaxHashtags)
	assert.Equal(t, []entity.Niche{
		{Name: "indie music", Keywords: []string{"guitar", "vinyl"}, BrandVoice: "warm"},
		{Name: "ai technology"},
	}, cfg.Content.Niches)
}

func TestLoadAgentFile_KeepsDefaultsForMissingSections(t *testing.T) {
	cfg, err := LoadAgentFile(writeConfig(t, "providers:\n  - name: openai\n"))
	require.NoError(t, err)

	def := DefaultAgentConfig()
	assert.Equal(t, def.Retry, cfg.Retry)
	assert.Equal(t, def.Content.SynthCount, cfg.Content.SynthCount)
}

func TestLoadAgentFile_Errors(t *testing.T) {
	_, err := LoadAgentFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = LoadAgentFile(writeConfig(t, "providers: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestLoadAgentConfig_FromEnvOnly(t *testing.T) {
	t.Setenv(EnvProviders, "claude, openai")
	t.Setenv("CLAUDE_API_KEY", "sk-ant-test")
	t.Setenv("CLAUDE_RATE_LIMIT", "20")
	t.Setenv("CLAUDE_RATE_WINDOW", "30s")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("OPENAI_TIMEOUT", "15s")
	t.Setenv("CONTENT_NICHE", "ai technology")
	t.Setenv("CONTENT_KEYWORDS", "machine learning, robots")
	t.Setenv("SYNTH_COUNT", "4")

	cfg, err := LoadAgentConfig(nil, nil)
	require.NoError(t, err)

	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, ProviderSettings{
		Name: "claude", APIKey: "sk-ant-test", Priority: 0, RateLimit: 20, RateWindow: 30 * time.Second,
	}, cfg.Providers[0])
	assert.Equal(t, ProviderSettings{
		Name: "openai", APIKey: "sk-test", Model: "gpt-4o", Priority: 1, Timeout: 15 * time.Second,
	}, cfg.Providers[1])
	assert.Equal(t, []entity.Niche{{Name: "ai technology", Keywords: []string{"machine learning", "robots"}}}, cfg.Content.Niches)
	assert.Equal(t, 4, cfg.Content.SynthCount)
	assert.Equal(t, DefaultAgentConfig().Retry, cfg.Retry)
}

func TestLoadAgentConfig_EnvOverridesFile(t *testing.T) {
	t.Setenv(EnvConfigFile, writeConfig(t, sampleYAML))
	t.Setenv(EnvProviders, "deepseek,claude")
	t.Setenv("CLAUDE_API_KEY", "from-env")
	t.Setenv("DEEPSEEK_PRIORITY", "7")
	t.Setenv("RETRY_MAX_ATTEMPTS", "2")

	cfg, err := LoadAgentConfig(nil, nil)
	require.NoError(t, err)

	require.Len(t, cfg.Providers, 2, "providers missing from PROVIDERS are dropped")
	assert.Equal(t, "deepseek", cfg.Providers[0].Name)
	assert.Equal(t, 7, cfg.Providers[0].Priority, "explicit priority beats position")
	assert.Equal(t, "deepseek-reasoner", cfg.Providers[0].Model)
	assert.Equal(t, "claude", cfg.Providers[1].Name)
	assert.Equal(t, 1, cfg.Providers[1].Priority, "position replaces the file priority")
	assert.Equal(t, "from-env", cfg.Providers[1].APIKey)
	assert.Equal(t, 50, cfg.Providers[1].RateLimit)
	assert.Equal(t, 2, cfg.Retry.MaxAttempts)
	assert.Equal(t, 3.0, cfg.Retry.Multiplier)
	assert.Len(t, cfg.Content.Niches, 2)
}

func TestLoadAgentConfig_AnthropicKeyFallback(t *testing.T) {
	t.Setenv(EnvProviders, "primary")
	t.Setenv("PRIMARY_TYPE", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-shared")

	cfg, err := LoadAgentConfig(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "sk-ant-shared", cfg.Providers[0].APIKey)
}

func TestLoadAgentConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv(EnvProviders, "claude")
	t.Setenv("CLAUDE_RATE_LIMIT", "lots")
	t.Setenv("RETRY_MULTIPLIER", "0.5")
	t.Setenv("MAX_HASHTAGS", "0")

	m := pkgconfig.NewConfigMetricsWith(prometheus.NewRegistry(), "agent_test")
	cfg, err := LoadAgentConfig(nil, m)
	require.NoError(t, err)

	def := DefaultAgentConfig()
	assert.Equal(t, 0, cfg.Providers[0].RateLimit)
	assert.Equal(t, def.Retry.Multiplier, cfg.Retry.Multiplier)
	assert.Equal(t, def.Content.MaxHashtags, cfg.Content.MaxHashtags)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("claude_rate_limit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("retry_multiplier")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbackActive))
}

func TestLoadAgentConfig_Errors(t *testing.T) {
	t.Run("no providers", func(t *testing.T) {
		_, err := LoadAgentConfig(nil, nil)
		assert.ErrorContains(t, err, "no providers configured")
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := LoadAgentConfig(nil, nil)
		assert.ErrorContains(t, err, "failed to read config file")
	})
}

func TestAgentConfig_Validate(t *testing.T) {
	valid := func() AgentConfig {
		cfg := DefaultAgentConfig()
		cfg.Providers = []ProviderSettings{{Name: "claude"}}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*AgentConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*AgentConfig) {}},
		{name: "unnamed provider", mutate: func(c *AgentConfig) { c.Providers[0].Name = " " }, wantErr: "has no name"},
		{
			name:    "duplicate provider",
			mutate:  func(c *AgentConfig) { c.Providers = append(c.Providers, ProviderSettings{Name: "Claude"}) },
			wantErr: "duplicate provider Claude",
		},
		{name: "negative window", mutate: func(c *AgentConfig) { c.Providers[0].RateWindow = -time.Second }, wantErr: "window must not be negative"},
		{name: "negative rate", mutate: func(c *AgentConfig) { c.Providers[0].RateLimit = -1 }, wantErr: "rate limit must not be negative"},
		{name: "negative timeout", mutate: func(c *AgentConfig) { c.Providers[0].Timeout = -time.Second }, wantErr: "timeout must not be negative"},
		{name: "zero attempts", mutate: func(c *AgentConfig) { c.Retry.MaxAttempts = 0 }, wantErr: "retry: max attempts"},
		{name: "zero synth count", mutate: func(c *AgentConfig) { c.Content.SynthCount = 0 }, wantErr: "synth count"},
		{name: "zero hashtags", mutate: func(c *AgentConfig) { c.Content.MaxHashtags = 0 }, wantErr: "max hashtags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestProviderSettings_Helpers(t *testing.T) {
	p := ProviderSettings{Name: "z.ai-glm", RateLimit: 10, RateWindow: time.Minute, MinInterval: time.Second}

	assert.Equal(t, "Z_AI_GLM", p.EnvPrefix())
	assert.Equal(t, ratelimit.Limit{Max: 10, Window: time.Minute, MinInterval: time.Second}, p.Limit())
}

func TestRetrySettings_Policy(t *testing.T) {
	p := DefaultAgentConfig().Retry.Policy()
	def := retry.DefaultPolicy()

	assert.Equal(t, def.MaxAttempts, p.MaxAttempts)
	assert.Equal(t, def.BaseDelay, p.BaseDelay)
	assert.Equal(t, def.MaxDelay, p.MaxDelay)
	assert.Equal(t, def.Multiplier, p.Multiplier)
	assert.Equal(t, def.JitterFraction, p.JitterFraction)
	assert.NoError(t, p.Validate())
}

package config

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFromYAML(t *testing.T, yaml string) *Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yaml)))
	cfg, err := unmarshal(v)
	require.NoError(t, err)
	return cfg
}

func TestUnmarshal_DefaultsApplied(t *testing.T) {
	cfg := loadFromYAML(t, "database:\n  dsn: postgres://u:p@localhost/db\n")

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{SourceKKTIX, SourceIndievox, SourceAccupass}, cfg.Sync.EnabledSources)
	assert.Equal(t, DefaultQuality(), cfg.Quality)
	require.Contains(t, cfg.Sources, SourceKKTIX)
	assert.Len(t, cfg.Sources[SourceKKTIX].Organizations, len(defaultKKTIXOrganizations))
	assert.Equal(t, 20, cfg.Sources[SourceIndievox].MaxItems)
	assert.Equal(t, 30, cfg.Sources[SourceAccupass].MaxItems)
	assert.Equal(t, "live_music", cfg.Sources[SourceIndievox].DefaultCategory)
}

func TestUnmarshal_SourceOverrideKeepsOtherDefaults(t *testing.T) {
	cfg := loadFromYAML(t, `
sources:
  accupass:
    max_items: 5
    queries: ["jazz"]
`)
	acc := cfg.Sources[SourceAccupass]
	assert.Equal(t, 5, acc.MaxItems)
	assert.Equal(t, []string{"jazz"}, acc.Queries)
	assert.Equal(t, "https://www.accupass.com", acc.BaseURL)
	assert.Equal(t, 2000, acc.DiscoverDelayMs)
}

func TestUnmarshal_ExplicitZeroDisablesRetryAndDelay(t *testing.T) {
	cfg := loadFromYAML(t, `
sources:
  indievox:
    retry_count: 0
    request_delay_ms: 0
  accupass:
    max_items: 5
`)
	ind := cfg.Sources[SourceIndievox]
	assert.Equal(t, 0, ind.RetryCount)
	assert.Equal(t, 0, ind.RequestDelayMs)
	assert.Equal(t, 20, ind.MaxItems)

	acc := cfg.Sources[SourceAccupass]
	assert.Equal(t, 2, acc.RetryCount)
	assert.Equal(t, 1500, acc.RequestDelayMs)
}

func TestValidate(t *testing.T) {
	cfg := loadFromYAML(t, "database:\n  dsn: postgres://u:p@localhost/db\nllm:\n  api_key: sk-test\n")
	require.NoError(t, cfg.Validate())

	missingDSN := *cfg
	missingDSN.Database.DSN = ""
	err := missingDSN.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigInvalid))

	missingKey := *cfg
	missingKey.LLM.APIKey = ""
	assert.ErrorIs(t, missingKey.Validate(), ErrConfigInvalid)

	missingKey.LLM.Degraded = true
	assert.NoError(t, missingKey.Validate())

	unknown := *cfg
	unknown.Sync.EnabledSources = []string{"tixcraft"}
	assert.ErrorIs(t, unknown.Validate(), ErrConfigInvalid)
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://env/db")
	t.Setenv("LLM_API_KEY", "sk-env")
	t.Setenv("SCRAPER_PROXY", "http://proxy:3128")

	cfg := loadFromYAML(t, "database:\n  dsn: postgres://yaml/db\n")
	overrideFromEnv(cfg)

	assert.Equal(t, "postgres://env/db", cfg.Database.DSN)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	for name, sc := range cfg.Sources {
		assert.Equal(t, "http://proxy:3128", sc.Proxy, name)
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/txmatch/internal/common"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.InDelta(t, 0.80, cfg.Matching.Threshold, 1e-9)
	assert.InDelta(t, 1.0, cfg.Matching.MappingConfidence, 1e-9)
	assert.Equal(t, ScorerBase, cfg.Matching.Scorer)
	assert.Equal(t, BackendFile, cfg.StorageBackend)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey())
	assert.Equal(t, 15*time.Minute, cfg.LLM.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 5, cfg.LLM.Concurrency)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Server.TLS)
	assert.True(t, strings.HasSuffix(cfg.Server.CertDir, "txmatch/certs"))
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
chart:
  path: $TXMATCH_TEST_DIR/chart.yaml
storage:
  backend: SQLite
database:
  path: /tmp/txmatch.db
matching:
  threshold: 0.9
  scorer: account
llm:
  provider: anthropic
  anthropic_api_key: key-from-file
  rate_limit: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("TXMATCH_TEST_DIR", "/srv/books")

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "/srv/books/chart.yaml", cfg.ChartPath)
	assert.Equal(t, BackendSQLite, cfg.StorageBackend)
	assert.InDelta(t, 0.9, cfg.Matching.Threshold, 1e-9)
	assert.Equal(t, ScorerAccount, cfg.Matching.Scorer)
	assert.Equal(t, "key-from-file", cfg.LLM.APIKey())
	assert.Equal(t, 0, cfg.LLM.RateLimit)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TXMATCH_MATCHING_THRESHOLD", "0.65")

	v := viper.New()
	v.SetEnvPrefix("TXMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.InDelta(t, 0.65, cfg.Matching.Threshold, 1e-9)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		values  map[string]any
		wantErr error
		name    string
	}{
		{name: "threshold too high", values: map[string]any{"matching.threshold": 1.5}, wantErr: common.ErrInvalidConfig},
		{name: "negative mapping confidence", values: map[string]any{"matching.mapping_confidence": -0.1}, wantErr: common.ErrInvalidConfig},
		{name: "unknown scorer", values: map[string]any{"matching.scorer": "fuzzy"}, wantErr: common.ErrInvalidConfig},
		{name: "unknown backend", values: map[string]any{"storage.backend": "postgres"}, wantErr: common.ErrInvalidConfig},
		{name: "unknown provider", values: map[string]any{"llm.provider": "cohere"}, wantErr: common.ErrInvalidConfig},
		{name: "zero concurrency", values: map[string]any{"llm.concurrency": 0}, wantErr: common.ErrInvalidConfig},
		{name: "bad log level", values: map[string]any{"logging.level": "loud"}, wantErr: common.ErrInvalidConfig},
		{name: "bad log format", values: map[string]any{"logging.format": "xml"}, wantErr: common.ErrInvalidConfig},
		{name: "empty chart path", values: map[string]any{"chart.path": ""}, wantErr: common.ErrMissingConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for key, value := range tt.values {
				v.Set(key, value)
			}
			_, err := Load(v)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("TXMATCH_DATA", "/data")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "rules.json"), ExpandPath("~/rules.json"))
	assert.Equal(t, "/data/rules.json", ExpandPath("$TXMATCH_DATA/rules.json"))
	assert.Equal(t, "~other/rules.json", ExpandPath("~other/rules.json"))
}

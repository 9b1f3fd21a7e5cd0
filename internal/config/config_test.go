package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/session-indexer/internal/classify"
	"github.com/jonathan/session-indexer/internal/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 100, cfg.Reindex.BatchSize)
	assert.Equal(t, 4, cfg.Reindex.Concurrency)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 1.0, cfg.Scoring.Weights.Sum(), 1e-9)
	assert.Contains(t, cfg.Names.Coaches, "Jenny")
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
store:
  driver: sqlite
  sqlite_path: /tmp/sessions.db
reindex:
  batch_size: 25
names:
  coaches: [Olivia]
  students: [Henry]
  data_source_codes: [X]
recommend:
  score_floor: 0.3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/sessions.db", cfg.Store.SQLitePath)
	assert.Equal(t, 25, cfg.Reindex.BatchSize)
	assert.Equal(t, 4, cfg.Reindex.Concurrency)
	assert.Equal(t, []string{"Olivia"}, cfg.Names.Coaches)
	assert.Equal(t, []string{"X"}, cfg.Names.DataSourceCodes)
	assert.InDelta(t, 0.3, cfg.Recommend.ScoreFloor, 1e-9)
	assert.InDelta(t, 0.6, cfg.Recommend.MustWatchThreshold, 1e-9)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "store: [unclosed")

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to load config file")
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: sqlite
reindex:
  batch_size: 25
`)
	t.Setenv("SESSION_INDEXER_STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/sessions")
	t.Setenv("SESSION_INDEXER_BATCH_SIZE", "50")
	t.Setenv("SESSION_INDEXER_COACHES", "Olivia, Jenny")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/sessions", cfg.Store.DatabaseURL)
	assert.Equal(t, 50, cfg.Reindex.BatchSize)
	assert.Equal(t, []string{"Olivia", "Jenny"}, cfg.Names.Coaches)
}

func TestLoad_ServerEnv(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Chdir(t.TempDir())
	t.Setenv("SESSION_INDEXER_CORS_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("RATE_LIMIT_DEFAULT_WINDOW", "30s")
	t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.1")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSAllowedOrigins)
	assert.False(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Server.RateLimit.DefaultWindow)
	assert.Equal(t, []string{"10.0.0.1"}, cfg.Server.RateLimit.Whitelist)
	assert.NotEmpty(t, cfg.Server.RateLimit.Endpoints)
}

func TestLoad_PathFromEnv(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_CustomRules(t *testing.T) {
	path := writeConfig(t, `
rules:
  - type: GAME_PLAN
    patterns: ["roadmap"]
    priority: 1
    required: true
  - type: EXECUTION
    patterns: ["check-in"]
    priority: 3
    required: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.ClassifierRules(), 2)
	assert.Equal(t, types.SessionTypeGamePlan, cfg.ClassifierRules()[0].Type)
	assert.Equal(t, []string{"roadmap"}, cfg.ClassifierRules()[0].Patterns)
}

func TestValidate_WeightsMustSumToOne(t *testing.T) {
	cfg := Default()
	cfg.Scoring.Weights.CoachAffinity = 0.5

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config error")
}

func TestValidate_NegativeValues(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"batch size", func(c *Config) { c.Reindex.BatchSize = -1 }},
		{"concurrency", func(c *Config) { c.Reindex.Concurrency = 0 }},
		{"score floor", func(c *Config) { c.Recommend.ScoreFloor = -0.1 }},
		{"cap", func(c *Config) { c.Recommend.MustWatchCap = 0 }},
		{"port", func(c *Config) { c.Server.Port = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_DriverRequirements(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = DriverPostgres
	assert.Error(t, cfg.Validate())

	cfg.Store.DatabaseURL = "postgres://localhost/sessions"
	assert.NoError(t, cfg.Validate())

	cfg.Store.Driver = "mongo"
	assert.Error(t, cfg.Validate())
}

func TestValidate_DataSourceCodes(t *testing.T) {
	cfg := Default()
	cfg.Names.DataSourceCodes = []string{"AB"}
	assert.Error(t, cfg.Validate())
}

func TestValidate_BadRulePattern(t *testing.T) {
	cfg := Default()
	cfg.Rules = []classify.Rule{{Type: types.SessionTypeExecution, Patterns: []string{"("}}}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config error")
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestTagDictionaries_DefaultsWhenUnset(t *testing.T) {
	cfg := Default()
	dicts := cfg.TagDictionaries()
	assert.NotEmpty(t, dicts.Track.Categories)
}

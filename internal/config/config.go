// Package config provides layered configuration loading and validation.
//
// Values are resolved from three layers, later layers winning: built-in defaults,
// an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/jonathan/session-indexer/internal/classify"
	"github.com/jonathan/session-indexer/internal/parsing"
	"github.com/jonathan/session-indexer/internal/ranking"
	"github.com/jonathan/session-indexer/internal/recommend"
	"github.com/jonathan/session-indexer/internal/reindex"
	"github.com/jonathan/session-indexer/internal/server/ratelimit"
	"github.com/jonathan/session-indexer/internal/tagging"
)

// ConfigPathEnvVar names the environment variable that points at a YAML config file.
const ConfigPathEnvVar = "SESSION_INDEXER_CONFIG"

// DefaultConfigPaths are searched in order when no path is given.
var DefaultConfigPaths = []string{
	"session_indexer.yaml",
	"session_indexer.yml",
	"/etc/session-indexer/config.yaml",
}

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the complete runtime configuration.
type Config struct {
	Log          LogConfig             `koanf:"log"`
	Store        StoreConfig           `koanf:"store"`
	Reindex      reindex.Config        `koanf:"reindex"`
	Names        parsing.Vocabulary    `koanf:"names"`
	Rules        []classify.Rule       `koanf:"rules"`
	Dictionaries *tagging.Dictionaries `koanf:"dictionaries"`
	Scoring      ranking.Config        `koanf:"scoring"`
	Recommend    recommend.Config      `koanf:"recommend"`
	Server       ServerConfig          `koanf:"server"`
}

// LogConfig selects logger output.
type LogConfig struct {
	Mode  string `koanf:"mode" validate:"oneof=development production"`
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// StoreConfig selects and locates the record store.
type StoreConfig struct {
	Driver      string `koanf:"driver" validate:"oneof=memory sqlite postgres"`
	DatabaseURL string `koanf:"database_url"`
	SQLitePath  string `koanf:"sqlite_path"`
	// SeedFile optionally preloads the memory store from a JSON array of session records.
	SeedFile string `koanf:"seed_file"`
}

// ServerConfig configures the HTTP API. Empty CORSAllowedOrigins allows any origin.
type ServerConfig struct {
	Host               string           `koanf:"host"`
	Port               int              `koanf:"port" validate:"gte=1,lte=65535"`
	CORSAllowedOrigins []string         `koanf:"cors_allowed_origins"`
	RateLimit          ratelimit.Config `koanf:"rate_limit"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Mode:  "development",
			Level: "info",
		},
		Store: StoreConfig{
			Driver:     DriverMemory,
			SQLitePath: "session_indexer.db",
		},
		Reindex:   reindex.DefaultConfig(),
		Names:     parsing.DefaultVocabulary(),
		Scoring:   ranking.DefaultConfig(),
		Recommend: recommend.DefaultConfig(),
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			RateLimit: ratelimit.DefaultConfig(),
		},
	}
}

// Load resolves configuration from defaults, the YAML file at path (or the first
// default path that exists), and the environment, then validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional unless named explicitly)
	configPath, explicit := resolvePath(path)
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			if explicit {
				return nil, fmt.Errorf("config error: config file not found: %s", configPath)
			}
		} else if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field bounds and cross-field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := c.Scoring.Weights.Validate(); err != nil {
		return fmt.Errorf("config error: scoring: %w", err)
	}
	if c.Store.Driver == DriverPostgres && c.Store.DatabaseURL == "" {
		return fmt.Errorf("config error: 'store.database_url' is required for the postgres driver")
	}
	if c.Store.Driver == DriverSQLite && c.Store.SQLitePath == "" {
		return fmt.Errorf("config error: 'store.sqlite_path' is required for the sqlite driver")
	}
	if len(c.Names.Coaches) == 0 || len(c.Names.Students) == 0 {
		return fmt.Errorf("config error: 'names.coaches' and 'names.students' must not be empty")
	}
	for _, code := range c.Names.DataSourceCodes {
		if len(strings.TrimSpace(code)) != 1 {
			return fmt.Errorf("config error: data source code %q must be a single letter", code)
		}
	}
	if _, err := classify.New(c.ClassifierRules()); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// ClassifierRules returns the configured rule table, or the built-in one.
func (c *Config) ClassifierRules() []classify.Rule {
	if len(c.Rules) > 0 {
		return c.Rules
	}
	return classify.DefaultRules()
}

// TagDictionaries returns the configured keyword dictionaries, or the built-in ones.
func (c *Config) TagDictionaries() tagging.Dictionaries {
	if c.Dictionaries != nil {
		return *c.Dictionaries
	}
	return tagging.DefaultDictionaries()
}

func resolvePath(path string) (string, bool) {
	if path != "" {
		return path, true
	}
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		return envPath, true
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p, false
		}
	}
	return "", false
}

// envMappings maps lowercased environment variable names to config paths.
var envMappings = map[string]string{
	"session_indexer_log_mode":     "log.mode",
	"session_indexer_log_level":    "log.level",
	"session_indexer_store_driver": "store.driver",
	"session_indexer_database_url": "store.database_url",
	"database_url":                 "store.database_url",
	"session_indexer_sqlite_path":  "store.sqlite_path",
	"session_indexer_seed_file":    "store.seed_file",
	"session_indexer_batch_size":   "reindex.batch_size",
	"session_indexer_concurrency":  "reindex.concurrency",
	"session_indexer_coaches":      "names.coaches",
	"session_indexer_students":     "names.students",
	"session_indexer_source_codes": "names.data_source_codes",
	"session_indexer_host":         "server.host",
	"session_indexer_port":         "server.port",
	"port":                         "server.port",
	"session_indexer_cors_origins": "server.cors_allowed_origins",
	"rate_limit_enabled":           "server.rate_limit.enabled",
	"rate_limit_default_limit":     "server.rate_limit.default_limit",
	"rate_limit_default_window":    "server.rate_limit.default_window",
	"rate_limit_whitelist":         "server.rate_limit.whitelist",
}

// envTransformFunc maps environment variable names to koanf paths. Unmapped
// variables return "" and are skipped.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// sliceFields are list values that may arrive from the environment as comma-separated strings.
var sliceFields = []string{
	"names.coaches",
	"names.students",
	"names.data_source_codes",
	"server.cors_allowed_origins",
	"server.rate_limit.whitelist",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, field := range sliceFields {
		raw, ok := k.Get(field).(string)
		if !ok {
			continue
		}
		parts := strings.Split(raw, ",")
		values := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				values = append(values, p)
			}
		}
		if err := k.Set(field, values); err != nil {
			return fmt.Errorf("failed to set %s: %w", field, err)
		}
	}
	return nil
}

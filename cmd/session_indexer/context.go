package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/jonathan/session-indexer/internal/classify"
	"github.com/jonathan/session-indexer/internal/config"
	"github.com/jonathan/session-indexer/internal/db"
	"github.com/jonathan/session-indexer/internal/enrich"
	"github.com/jonathan/session-indexer/internal/logger"
	"github.com/jonathan/session-indexer/internal/parsing"
	"github.com/jonathan/session-indexer/internal/ranking"
	"github.com/jonathan/session-indexer/internal/recommend"
	"github.com/jonathan/session-indexer/internal/sqlitestore"
	"github.com/jonathan/session-indexer/internal/store"
	"github.com/jonathan/session-indexer/internal/tagging"
	"github.com/jonathan/session-indexer/internal/types"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logOnce sync.Once
	log     *logger.Logger
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// logger builds the configured logger once. A logger that cannot be built falls
// back to a no-op so commands still run.
func (c *commandContext) logger() *logger.Logger {
	c.logOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.log = logger.Nop()
			return
		}
		log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v; logging disabled\n", err)
			log = logger.Nop()
		}
		c.log = log
	})
	return c.log
}

// enricher builds the parser, classifier and extractor from configuration.
func (c *commandContext) enricher() (*enrich.Enricher, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	classifier, err := classify.New(cfg.ClassifierRules())
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}
	return enrich.New(
		parsing.NewParser(cfg.Names),
		classifier,
		tagging.NewExtractor(cfg.TagDictionaries()),
	), nil
}

// recommender builds the scoring service over st.
func (c *commandContext) recommender(st store.RecordStore, e *enrich.Enricher) (*recommend.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	scorer, err := ranking.NewScorer(cfg.Scoring, e.Extractor())
	if err != nil {
		return nil, fmt.Errorf("failed to build scorer: %w", err)
	}
	return recommend.NewService(st, scorer, cfg.Recommend, e.Classifier().RequiredTypes()), nil
}

// openStore opens the configured record store. The caller closes it.
func (c *commandContext) openStore(ctx context.Context, e *enrich.Enricher) (store.RecordStore, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		database, err := db.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx); err != nil {
			_ = database.Close()
			return nil, err
		}
		return database, nil
	case config.DriverSQLite:
		return sqlitestore.Open(ctx, cfg.Store.SQLitePath)
	default:
		mem := store.NewMemory()
		if cfg.Store.SeedFile != "" {
			if err := seedMemory(ctx, mem, e, cfg.Store.SeedFile); err != nil {
				return nil, err
			}
		}
		return mem, nil
	}
}

// seedMemory loads a JSON array of records into mem. Entries that carry no
// session type are treated as raw records and enriched on load.
func seedMemory(ctx context.Context, mem *store.Memory, e *enrich.Enricher, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var recs []types.SessionRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	for i := range recs {
		if recs[i].SessionType != "" {
			continue
		}
		enriched, err := e.ClassifyAndEnrich(recs[i].RawRecord)
		if err != nil {
			return fmt.Errorf("seed file %s: %w", path, err)
		}
		recs[i] = enriched
	}
	return mem.CommitBatch(ctx, recs)
}

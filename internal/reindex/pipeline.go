// Package reindex re-derives enriched fields over the whole stored corpus with a
// backup-then-commit protocol and reports what changed.
package reindex

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/session-indexer/internal/enrich"
	"github.com/jonathan/session-indexer/internal/logger"
	"github.com/jonathan/session-indexer/internal/store"
	"github.com/jonathan/session-indexer/internal/types"
)

// BackupPrefix prefixes every snapshot namespace.
const BackupPrefix = "backup_"

// Config bounds batch size and parallelism.
type Config struct {
	BatchSize   int `koanf:"batch_size" yaml:"batch_size" validate:"gte=1,lte=10000"`
	Concurrency int `koanf:"concurrency" yaml:"concurrency" validate:"gte=1,lte=64"`
}

// DefaultConfig returns the production batch settings.
func DefaultConfig() Config {
	return Config{BatchSize: 100, Concurrency: 4}
}

// ProgressEvent is emitted after each batch finishes.
type ProgressEvent struct {
	RunID     string `json:"run_id"`
	Batch     int    `json:"batch"`
	Batches   int    `json:"batches"`
	Processed int    `json:"processed"`
	Updated   int    `json:"updated"`
	Errors    int    `json:"errors"`
}

// ProgressCallback receives batch progress. It may be called from several goroutines.
type ProgressCallback func(event ProgressEvent)

// Options selects run behaviour.
type Options struct {
	DryRun     bool
	OnProgress ProgressCallback
}

// Pipeline reindexes a record store.
type Pipeline struct {
	store    store.RecordStore
	enricher *enrich.Enricher
	log      *logger.Logger
	cfg      Config
	now      func() time.Time
	newID    func() string
}

// New builds a pipeline. A nil logger discards output.
func New(s store.RecordStore, e *enrich.Enricher, log *logger.Logger, cfg Config) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Pipeline{
		store:    s,
		enricher: e,
		log:      log,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// batchResult is the immutable outcome of one batch. Results are folded into the
// report once, in batch order, after every batch has finished.
type batchResult struct {
	index      int
	ran        bool
	processed  int
	updated    int
	unchanged  int
	errors     []types.RecordError
	byType     map[types.SessionType]int
	byCategory map[string]int
}

// ReindexAll re-runs enrichment over every stored record. Setup failures return an
// *InitializationError and leave the store untouched. Per-record failures are
// collected in the report. Cancelling ctx stops the run at the next batch boundary.
func (p *Pipeline) ReindexAll(ctx context.Context, opts Options) (*types.ReindexReport, error) {
	runID := p.newID()
	sm := newMachine(opts.DryRun)
	log := p.log.With("run_id", runID, "dry_run", opts.DryRun)

	report := &types.ReindexReport{
		RunID:      runID,
		DryRun:     opts.DryRun,
		StartedAt:  p.now(),
		Errors:     make([]types.RecordError, 0),
		ByType:     make(map[types.SessionType]int),
		ByCategory: make(map[string]int),
	}

	records, err := p.store.ListRecords(ctx, store.Query{OrderBy: store.OrderByExternalID})
	if err != nil {
		_ = sm.to(StateAborted)
		log.Error("failed to list corpus", "error", err)
		return nil, &InitializationError{Step: "list", Message: "failed to list records", Cause: err}
	}

	if !opts.DryRun {
		namespace := BackupPrefix + runID
		copied, err := p.store.Snapshot(ctx, namespace)
		if err != nil {
			_ = sm.to(StateAborted)
			log.Error("backup snapshot failed", "namespace", namespace, "error", err)
			return nil, &InitializationError{Step: "snapshot", Message: "failed to back up corpus", Cause: err}
		}
		if err := sm.to(StateBackedUp); err != nil {
			return nil, err
		}
		report.BackupNamespace = namespace
		log.Info("corpus backed up", "namespace", namespace, "records", copied)

		if err := sm.to(StateCommitting); err != nil {
			return nil, err
		}
	}

	batches := partition(records, p.cfg.BatchSize)
	report.Batches = len(batches)
	results := make([]batchResult, len(batches))

	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Concurrency)
	for i, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = p.processBatch(ctx, log, i, batch, opts.DryRun)
			if opts.OnProgress != nil {
				r := results[i]
				opts.OnProgress(ProgressEvent{
					RunID:     runID,
					Batch:     i,
					Batches:   len(batches),
					Processed: r.processed,
					Updated:   r.updated,
					Errors:    len(r.errors),
				})
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		fold(report, r)
	}
	report.Cancelled = ctx.Err() != nil
	report.FinishedAt = p.now()

	if err := sm.to(StateDone); err != nil {
		return nil, err
	}
	log.Info("reindex finished",
		"processed", report.Processed,
		"updated", report.Updated,
		"unchanged", report.Unchanged,
		"errors", report.ErrorCount(),
		"cancelled", report.Cancelled,
	)
	return report, nil
}

// processBatch re-enriches each record, stages only changed ones and commits them atomically.
func (p *Pipeline) processBatch(ctx context.Context, log *logger.Logger, index int, batch []types.SessionRecord, dryRun bool) batchResult {
	res := batchResult{
		index:      index,
		ran:        true,
		errors:     make([]types.RecordError, 0),
		byType:     make(map[types.SessionType]int),
		byCategory: make(map[string]int),
	}

	staged := make([]types.SessionRecord, 0, len(batch))
	for i := range batch {
		existing := &batch[i]
		res.processed++

		enriched, err := p.enricher.Reenrich(*existing)
		if err != nil {
			log.Warn("record enrichment failed", "external_id", existing.ExternalID, "error", err)
			res.errors = append(res.errors, types.RecordError{
				ExternalID: existing.ExternalID,
				Stage:      types.StageEnrich,
				Message:    err.Error(),
			})
			continue
		}

		res.byType[enriched.SessionType]++
		res.byCategory[enriched.StudentProfile.Track]++

		if enriched.SameEnrichment(existing) {
			res.unchanged++
			continue
		}
		now := p.now()
		enriched.IndexedAt = &now
		staged = append(staged, enriched)
	}

	if len(staged) == 0 || dryRun {
		res.updated = len(staged)
		return res
	}

	// A batch that reached its commit finishes even if the run is cancelled.
	if err := p.store.CommitBatch(context.WithoutCancel(ctx), staged); err != nil {
		werr := &WriteError{Batch: index, Records: len(staged), Cause: err}
		log.Error("batch commit failed", "batch", index, "error", werr)
		for _, rec := range staged {
			res.errors = append(res.errors, types.RecordError{
				ExternalID: rec.ExternalID,
				Stage:      types.StageCommit,
				Message:    werr.Error(),
			})
		}
		return res
	}

	res.updated = len(staged)
	log.Info("batch committed", "batch", index, "records", len(batch), "updated", res.updated)
	return res
}

func fold(report *types.ReindexReport, r batchResult) {
	if !r.ran {
		return
	}
	report.Processed += r.processed
	report.Updated += r.updated
	report.Unchanged += r.unchanged
	report.Errors = append(report.Errors, r.errors...)
	for t, n := range r.byType {
		report.ByType[t] += n
	}
	for c, n := range r.byCategory {
		report.ByCategory[c] += n
	}
}

func partition(records []types.SessionRecord, size int) [][]types.SessionRecord {
	if size < 1 {
		panic(fmt.Sprintf("invalid batch size %d", size))
	}
	batches := make([][]types.SessionRecord, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		batches = append(batches, records[start:end])
	}
	return batches
}

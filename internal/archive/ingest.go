package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/session-indexer/internal/enrich"
	"github.com/jonathan/session-indexer/internal/logger"
	"github.com/jonathan/session-indexer/internal/store"
	"github.com/jonathan/session-indexer/internal/types"
)

// IngestReport summarizes one ingest run.
type IngestReport struct {
	Listed    int                 `json:"listed"`
	Skipped   int                 `json:"skipped"`
	Created   int                 `json:"created"`
	Updated   int                 `json:"updated"`
	Unchanged int                 `json:"unchanged"`
	Errors    []types.RecordError `json:"errors"`
}

// Ingester enriches archive entries and upserts the ones that changed.
type Ingester struct {
	source   Source
	enricher *enrich.Enricher
	store    store.RecordStore
	log      *logger.Logger
	now      func() time.Time
}

// NewIngester wires an ingester. A nil logger discards output.
func NewIngester(src Source, e *enrich.Enricher, s store.RecordStore, log *logger.Logger) *Ingester {
	if log == nil {
		log = logger.Nop()
	}
	return &Ingester{
		source:   src,
		enricher: e,
		store:    s,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Ingest lists the archive and writes new or changed records. Listing failures
// abort the run; per-entry failures are collected in the report.
func (in *Ingester) Ingest(ctx context.Context) (*IngestReport, error) {
	entries, err := in.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}

	report := &IngestReport{Listed: len(entries), Errors: []types.RecordError{}}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !Indexable(entry) {
			report.Skipped++
			continue
		}

		raw := ToRawRecord(entry)
		rec, err := in.enricher.ClassifyAndEnrich(raw)
		if err != nil {
			in.log.Warn("skipping malformed archive entry", "path", entry.Path, "error", err)
			report.Errors = append(report.Errors, types.RecordError{
				ExternalID: raw.ExternalID, Stage: types.StageEnrich, Message: err.Error(),
			})
			continue
		}

		existing, err := in.store.GetRecord(ctx, raw.ExternalID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			existing = nil
		case err != nil:
			return report, fmt.Errorf("failed to read record %s: %w", raw.ExternalID, err)
		}
		if existing != nil && existing.SameEnrichment(&rec) && sameRaw(&existing.RawRecord, &rec.RawRecord) {
			report.Unchanged++
			continue
		}

		stamp := in.now()
		rec.IndexedAt = &stamp
		if err := in.store.UpsertRecord(ctx, &rec); err != nil {
			in.log.Error("failed to write archive record", "path", entry.Path, "error", err)
			report.Errors = append(report.Errors, types.RecordError{
				ExternalID: raw.ExternalID, Stage: types.StageCommit, Message: err.Error(),
			})
			continue
		}
		if existing == nil {
			report.Created++
		} else {
			report.Updated++
		}
	}

	in.log.Info("archive ingest complete",
		"listed", report.Listed, "created", report.Created, "updated", report.Updated,
		"unchanged", report.Unchanged, "skipped", report.Skipped, "errors", len(report.Errors))
	return report, nil
}

func sameRaw(a, b *types.RawRecord) bool {
	return a.Filename == b.Filename &&
		a.FolderPath == b.FolderPath &&
		a.MediaType == b.MediaType &&
		a.SizeBytes == b.SizeBytes &&
		sameTime(a.ModifiedAt, b.ModifiedAt)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

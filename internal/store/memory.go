package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonathan/session-indexer/internal/types"
)

// Memory is a RecordStore kept in process memory. Records are deep-copied on the
// way in and out so callers never share state with the store.
type Memory struct {
	mu      sync.RWMutex
	records map[string]types.SessionRecord
	backups map[string]map[string]types.SessionRecord

	// FailCommit, when set, is consulted before each CommitBatch. A non-nil
	// return aborts the batch without writing anything.
	FailCommit func(recs []types.SessionRecord) error
	// FailSnapshot, when set, makes Snapshot return its error.
	FailSnapshot error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]types.SessionRecord),
		backups: make(map[string]map[string]types.SessionRecord),
	}
}

// ListRecords implements RecordStore.
func (m *Memory) ListRecords(ctx context.Context, q Query) ([]types.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.SessionRecord, 0, len(m.records))
	for _, rec := range m.records {
		if q.Matches(&rec) {
			out = append(out, cloneRecord(rec))
		}
	}
	SortRecords(out, q.OrderBy)
	return ApplyLimit(out, q.Limit), nil
}

// GetRecord implements RecordStore.
func (m *Memory) GetRecord(ctx context.Context, externalID string) (*types.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[externalID]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneRecord(rec)
	return &out, nil
}

// UpsertRecord implements RecordStore.
func (m *Memory) UpsertRecord(ctx context.Context, rec *types.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ExternalID == "" {
		return fmt.Errorf("record has no external id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[rec.ExternalID] = cloneRecord(*rec)
	return nil
}

// CommitBatch implements RecordStore.
func (m *Memory) CommitBatch(ctx context.Context, recs []types.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i := range recs {
		if recs[i].ExternalID == "" {
			return fmt.Errorf("record %d in batch has no external id", i)
		}
	}
	if m.FailCommit != nil {
		if err := m.FailCommit(recs); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range recs {
		m.records[rec.ExternalID] = cloneRecord(rec)
	}
	return nil
}

// Snapshot implements RecordStore.
func (m *Memory) Snapshot(ctx context.Context, namespace string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if m.FailSnapshot != nil {
		return 0, m.FailSnapshot
	}
	if namespace == "" {
		return 0, fmt.Errorf("backup namespace is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.backups[namespace]; exists {
		return 0, fmt.Errorf("backup namespace %q already exists", namespace)
	}
	backup := make(map[string]types.SessionRecord, len(m.records))
	for id, rec := range m.records {
		backup[id] = cloneRecord(rec)
	}
	m.backups[namespace] = backup
	return len(backup), nil
}

// Backup returns a copy of a snapshot namespace, or nil if it does not exist.
func (m *Memory) Backup(namespace string) []types.SessionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	backup, ok := m.backups[namespace]
	if !ok {
		return nil
	}
	out := make([]types.SessionRecord, 0, len(backup))
	for _, rec := range backup {
		out = append(out, cloneRecord(rec))
	}
	SortRecords(out, OrderByExternalID)
	return out
}

// Len returns the number of distinct records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close implements RecordStore.
func (m *Memory) Close() error {
	return nil
}

func cloneRecord(rec types.SessionRecord) types.SessionRecord {
	out := rec
	out.SourceTags = cloneStrings(rec.SourceTags)
	out.Topics = cloneStrings(rec.Topics)
	out.Tags = cloneStrings(rec.Tags)
	out.Participants.Coach = clonePtr(rec.Participants.Coach)
	out.Participants.Student = clonePtr(rec.Participants.Student)
	out.SessionWeek = clonePtr(rec.SessionWeek)
	out.SessionDate = clonePtr(rec.SessionDate)
	out.DataSourceTag = clonePtr(rec.DataSourceTag)
	out.CreatedAt = clonePtr(rec.CreatedAt)
	out.ModifiedAt = clonePtr(rec.ModifiedAt)
	out.IndexedAt = clonePtr(rec.IndexedAt)
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

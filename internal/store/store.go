// Package store defines the record store contract used by the indexing pipeline
// and provides an in-memory implementation.
package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/jonathan/session-indexer/internal/types"
)

// ErrNotFound is returned when a record lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// OrderBy selects the retrieval order of ListRecords.
type OrderBy string

// Supported orderings. All orderings break ties by external id.
const (
	OrderByExternalID  OrderBy = "external_id"
	OrderBySessionDate OrderBy = "session_date_desc"
	OrderByPriority    OrderBy = "priority"
)

// Query filters records by equality and date range. Zero values mean "any".
type Query struct {
	Coach       string            `json:"coach,omitempty"`
	Student     string            `json:"student,omitempty"`
	SessionType types.SessionType `json:"session_type,omitempty"`
	Since       *time.Time        `json:"since,omitempty"`
	Until       *time.Time        `json:"until,omitempty"`
	OrderBy     OrderBy           `json:"order_by,omitempty"`
	Limit       int               `json:"limit,omitempty"`
}

// RecordStore is the persistence boundary of the indexer. Calls carry no implicit
// timeout; callers apply their own deadline through ctx.
type RecordStore interface {
	// ListRecords returns records matching q in the requested order.
	ListRecords(ctx context.Context, q Query) ([]types.SessionRecord, error)
	// GetRecord returns one record by external id, or ErrNotFound.
	GetRecord(ctx context.Context, externalID string) (*types.SessionRecord, error)
	// UpsertRecord creates or replaces one record keyed by external id.
	UpsertRecord(ctx context.Context, rec *types.SessionRecord) error
	// CommitBatch writes every record atomically: all succeed or none do.
	CommitBatch(ctx context.Context, recs []types.SessionRecord) error
	// Snapshot copies every current record into the named backup namespace.
	// It returns the number of records copied.
	Snapshot(ctx context.Context, namespace string) (int, error)
	// Close releases resources held by the store.
	Close() error
}

// Matches reports whether a record satisfies the query's filters (ordering and limit aside).
// Name comparison is case-insensitive.
func (q *Query) Matches(rec *types.SessionRecord) bool {
	if q.Coach != "" && !strings.EqualFold(q.Coach, rec.Coach()) {
		return false
	}
	if q.Student != "" && !strings.EqualFold(q.Student, rec.Student()) {
		return false
	}
	if q.SessionType != "" && q.SessionType != rec.SessionType {
		return false
	}
	if q.Since != nil || q.Until != nil {
		if rec.SessionDate == nil {
			return false
		}
		if q.Since != nil && rec.SessionDate.Before(*q.Since) {
			return false
		}
		if q.Until != nil && rec.SessionDate.After(*q.Until) {
			return false
		}
	}
	return true
}

// SortRecords orders records in place according to ob.
func SortRecords(recs []types.SessionRecord, ob OrderBy) {
	slices.SortStableFunc(recs, func(a, b types.SessionRecord) int {
		switch ob {
		case OrderBySessionDate:
			if c := compareDatesDesc(a.SessionDate, b.SessionDate); c != 0 {
				return c
			}
		case OrderByPriority:
			if a.Priority != b.Priority {
				return a.Priority - b.Priority
			}
		}
		return strings.Compare(a.ExternalID, b.ExternalID)
	})
}

// compareDatesDesc orders newer dates first and missing dates last.
func compareDatesDesc(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.After(*b):
		return -1
	case a.Before(*b):
		return 1
	default:
		return 0
	}
}

// ApplyLimit truncates recs to q.Limit when positive.
func ApplyLimit(recs []types.SessionRecord, limit int) []types.SessionRecord {
	if limit > 0 && len(recs) > limit {
		return recs[:limit]
	}
	return recs
}

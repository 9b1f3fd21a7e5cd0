package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonathan/session-indexer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func seed(t *testing.T, m *Memory) {
	t.Helper()
	recs := []types.SessionRecord{
		{RawRecord: types.RawRecord{ExternalID: "c"}, Participants: types.Participants{Coach: strPtr("Jenny"), Student: strPtr("Arshiya")}, SessionType: types.SessionTypeGamePlan, Priority: 1, SessionDate: datePtr(2024, 9, 15)},
		{RawRecord: types.RawRecord{ExternalID: "a"}, Participants: types.Participants{Coach: strPtr("Kelvin"), Student: strPtr("Aarnav")}, SessionType: types.SessionTypeExecution, Priority: 3, SessionDate: datePtr(2024, 3, 15)},
		{RawRecord: types.RawRecord{ExternalID: "b"}, Participants: types.Participants{Coach: strPtr("Jenny"), Student: strPtr("Arshiya")}, SessionType: types.SessionTypeExecution, Priority: 3},
	}
	require.NoError(t, m.CommitBatch(context.Background(), recs))
}

func TestMemory_ListRecords_Filters(t *testing.T) {
	m := NewMemory()
	seed(t, m)
	ctx := context.Background()

	recs, err := m.ListRecords(ctx, Query{Student: "arshiya"})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = m.ListRecords(ctx, Query{SessionType: types.SessionTypeExecution, Coach: "Kelvin"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "a", recs[0].ExternalID)

	since := datePtr(2024, 6, 1)
	recs, err = m.ListRecords(ctx, Query{Since: since})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "c", recs[0].ExternalID)
}

func TestMemory_ListRecords_Ordering(t *testing.T) {
	m := NewMemory()
	seed(t, m)
	ctx := context.Background()

	recs, err := m.ListRecords(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(recs))

	recs, err = m.ListRecords(ctx, Query{OrderBy: OrderBySessionDate})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, ids(recs))

	recs, err = m.ListRecords(ctx, Query{OrderBy: OrderByPriority, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, ids(recs))
}

func TestMemory_GetRecord_NotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.GetRecord(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_UpsertRecord_NeverDuplicates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	rec := &types.SessionRecord{RawRecord: types.RawRecord{ExternalID: "x", Title: "one"}}
	require.NoError(t, m.UpsertRecord(ctx, rec))
	rec.Title = "two"
	require.NoError(t, m.UpsertRecord(ctx, rec))

	assert.Equal(t, 1, m.Len())
	got, err := m.GetRecord(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "two", got.Title)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m := NewMemory()
	seed(t, m)
	ctx := context.Background()

	got, err := m.GetRecord(ctx, "c")
	require.NoError(t, err)
	*got.Participants.Coach = "Mutated"

	again, err := m.GetRecord(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "Jenny", again.Coach())
}

func TestMemory_CommitBatch_AtomicFailure(t *testing.T) {
	m := NewMemory()
	m.FailCommit = func([]types.SessionRecord) error { return errors.New("disk full") }

	err := m.CommitBatch(context.Background(), []types.SessionRecord{{RawRecord: types.RawRecord{ExternalID: "a"}}})
	assert.Error(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestMemory_Snapshot(t *testing.T) {
	m := NewMemory()
	seed(t, m)
	ctx := context.Background()

	n, err := m.Snapshot(ctx, "backup_1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, m.UpsertRecord(ctx, &types.SessionRecord{RawRecord: types.RawRecord{ExternalID: "a", Title: "changed"}}))
	backup := m.Backup("backup_1")
	require.Len(t, backup, 3)
	assert.Empty(t, backup[0].Title)

	_, err = m.Snapshot(ctx, "backup_1")
	assert.Error(t, err)
}

func TestMemory_CancelledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.ListRecords(ctx, Query{})
	assert.ErrorIs(t, err, context.Canceled)
}

func ids(recs []types.SessionRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ExternalID)
	}
	return out
}

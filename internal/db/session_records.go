package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/session-indexer/internal/store"
	"github.com/jonathan/session-indexer/internal/types"
)

const upsertRecordSQL = `INSERT INTO session_records
	(external_id, coach_key, student_key, session_type, session_date, priority, payload, indexed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (external_id) DO UPDATE SET
		coach_key = $2, student_key = $3, session_type = $4, session_date = $5,
		priority = $6, payload = $7, indexed_at = $8, updated_at = NOW()`

// recordArgs returns the indexed columns and JSON payload of rec in upsertRecordSQL order.
func recordArgs(rec *types.SessionRecord) ([]any, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record %s: %w", rec.ExternalID, err)
	}
	return []any{
		rec.ExternalID,
		strings.ToLower(rec.Coach()),
		strings.ToLower(rec.Student()),
		string(rec.SessionType),
		rec.SessionDate,
		rec.Priority,
		payload,
		rec.IndexedAt,
	}, nil
}

// buildListQuery renders q as a parameterized SELECT over session_records.
func buildListQuery(q store.Query) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if q.Coach != "" {
		add("coach_key = $%d", strings.ToLower(q.Coach))
	}
	if q.Student != "" {
		add("student_key = $%d", strings.ToLower(q.Student))
	}
	if q.SessionType != "" {
		add("session_type = $%d", string(q.SessionType))
	}
	if q.Since != nil {
		add("session_date >= $%d", *q.Since)
	}
	if q.Until != nil {
		add("session_date <= $%d", *q.Until)
	}

	var sb strings.Builder
	sb.WriteString("SELECT payload FROM session_records")
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderClause(q.OrderBy))
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	return sb.String(), args
}

func orderClause(ob store.OrderBy) string {
	switch ob {
	case store.OrderBySessionDate:
		return "session_date DESC NULLS LAST, external_id"
	case store.OrderByPriority:
		return "priority, external_id"
	default:
		return "external_id"
	}
}

// ListRecords returns records matching q in the requested order.
func (db *DB) ListRecords(ctx context.Context, q store.Query) ([]types.SessionRecord, error) {
	sql, args := buildListQuery(q)
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var out []types.SessionRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var rec types.SessionRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record payload: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return out, nil
}

// GetRecord returns one record by external id.
func (db *DB) GetRecord(ctx context.Context, externalID string) (*types.SessionRecord, error) {
	var payload []byte
	err := db.pool.QueryRow(ctx,
		`SELECT payload FROM session_records WHERE external_id = $1`,
		externalID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get record %s: %w", externalID, err)
	}
	var rec types.SessionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", externalID, err)
	}
	return &rec, nil
}

// UpsertRecord creates or replaces one record keyed by external id.
func (db *DB) UpsertRecord(ctx context.Context, rec *types.SessionRecord) error {
	args, err := recordArgs(rec)
	if err != nil {
		return err
	}
	if _, err := db.pool.Exec(ctx, upsertRecordSQL, args...); err != nil {
		return fmt.Errorf("failed to upsert record %s: %w", rec.ExternalID, err)
	}
	return nil
}

// CommitBatch upserts every record in one transaction.
func (db *DB) CommitBatch(ctx context.Context, recs []types.SessionRecord) error {
	if len(recs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range recs {
		args, err := recordArgs(&recs[i])
		if err != nil {
			return err
		}
		batch.Queue(upsertRecordSQL, args...)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	results := tx.SendBatch(ctx, batch)
	for i := range recs {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to upsert record %s: %w", recs[i].ExternalID, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Snapshot copies every current record into the named backup namespace.
func (db *DB) Snapshot(ctx context.Context, namespace string) (int, error) {
	if namespace == "" {
		return 0, fmt.Errorf("snapshot namespace is required")
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`INSERT INTO session_record_backups (namespace, external_id, payload)
		 SELECT $1, external_id, payload FROM session_records`,
		namespace,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to snapshot records: %w", err)
	}
	copied := int(tag.RowsAffected())

	if _, err := tx.Exec(ctx,
		`INSERT INTO session_record_backup_namespaces (namespace, records) VALUES ($1, $2)`,
		namespace, copied,
	); err != nil {
		return 0, fmt.Errorf("snapshot namespace %s already exists or could not be recorded: %w", namespace, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return copied, nil
}

// Backup returns the records held in a snapshot namespace, ordered by external id.
func (db *DB) Backup(ctx context.Context, namespace string) ([]types.SessionRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT payload FROM session_record_backups WHERE namespace = $1 ORDER BY external_id`,
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup %s: %w", namespace, err)
	}
	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.SessionRecord, error) {
		var payload []byte
		var rec types.SessionRecord
		if err := row.Scan(&payload); err != nil {
			return rec, err
		}
		return rec, json.Unmarshal(payload, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode backup %s: %w", namespace, err)
	}
	return recs, nil
}

var _ store.RecordStore = (*DB)(nil)

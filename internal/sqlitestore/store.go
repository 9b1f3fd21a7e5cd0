// Package sqlitestore persists session records in a single SQLite file.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jonathan/session-indexer/internal/store"
	"github.com/jonathan/session-indexer/internal/types"
)

// Store is a RecordStore backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// dateLayout is fixed-width so lexical order matches chronological order.
	dateLayout = "2006-01-02T15:04:05.000000000Z"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_records (
    external_id  TEXT PRIMARY KEY,
    coach_key    TEXT NOT NULL DEFAULT '',
    student_key  TEXT NOT NULL DEFAULT '',
    session_type TEXT NOT NULL,
    session_date TEXT,
    priority     INTEGER NOT NULL,
    payload      TEXT NOT NULL,
    updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_records_student ON session_records (student_key);
CREATE INDEX IF NOT EXISTS idx_session_records_coach ON session_records (coach_key);
CREATE TABLE IF NOT EXISTS session_record_backups (
    namespace   TEXT NOT NULL,
    external_id TEXT NOT NULL,
    payload     TEXT NOT NULL,
    PRIMARY KEY (namespace, external_id)
);
CREATE TABLE IF NOT EXISTS backup_namespaces (
    namespace  TEXT PRIMARY KEY,
    records    INTEGER NOT NULL,
    created_at TEXT NOT NULL
);`

const upsertSQL = `INSERT INTO session_records
	(external_id, coach_key, student_key, session_type, session_date, priority, payload, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (external_id) DO UPDATE SET
		coach_key = excluded.coach_key,
		student_key = excluded.student_key,
		session_type = excluded.session_type,
		session_date = excluded.session_date,
		priority = excluded.priority,
		payload = excluded.payload,
		updated_at = excluded.updated_at`

// Open creates or opens the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(dateLayout)
}

func recordArgs(rec *types.SessionRecord, now time.Time) ([]any, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record %s: %w", rec.ExternalID, err)
	}
	return []any{
		rec.ExternalID,
		strings.ToLower(rec.Coach()),
		strings.ToLower(rec.Student()),
		string(rec.SessionType),
		formatDate(rec.SessionDate),
		rec.Priority,
		string(payload),
		now.UTC().Format(dateLayout),
	}, nil
}

func buildListQuery(q store.Query) (string, []any) {
	var (
		where []string
		args  []any
	)
	if q.Coach != "" {
		where, args = append(where, "coach_key = ?"), append(args, strings.ToLower(q.Coach))
	}
	if q.Student != "" {
		where, args = append(where, "student_key = ?"), append(args, strings.ToLower(q.Student))
	}
	if q.SessionType != "" {
		where, args = append(where, "session_type = ?"), append(args, string(q.SessionType))
	}
	if q.Since != nil {
		where, args = append(where, "session_date >= ?"), append(args, formatDate(q.Since))
	}
	if q.Until != nil {
		where, args = append(where, "session_date <= ?"), append(args, formatDate(q.Until))
	}

	var sb strings.Builder
	sb.WriteString("SELECT payload FROM session_records")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	switch q.OrderBy {
	case store.OrderBySessionDate:
		sb.WriteString(" ORDER BY session_date IS NULL, session_date DESC, external_id")
	case store.OrderByPriority:
		sb.WriteString(" ORDER BY priority, external_id")
	default:
		sb.WriteString(" ORDER BY external_id")
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	return sb.String(), args
}

func decodeRows(rows *sql.Rows) ([]types.SessionRecord, error) {
	defer rows.Close()
	var out []types.SessionRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec types.SessionRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// ListRecords returns records matching q in the requested order.
func (s *Store) ListRecords(ctx context.Context, q store.Query) ([]types.SessionRecord, error) {
	query, args := buildListQuery(q)
	var out []types.SessionRecord
	err := retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = decodeRows(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}

// GetRecord returns one record by external id, or store.ErrNotFound.
func (s *Store) GetRecord(ctx context.Context, externalID string) (*types.SessionRecord, error) {
	var payload string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT payload FROM session_records WHERE external_id = ?", externalID,
		).Scan(&payload)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", externalID, err)
	}
	var rec types.SessionRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", externalID, err)
	}
	return &rec, nil
}

// UpsertRecord creates or replaces one record keyed by external id.
func (s *Store) UpsertRecord(ctx context.Context, rec *types.SessionRecord) error {
	args, err := recordArgs(rec, time.Now())
	if err != nil {
		return err
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, upsertSQL, args...)
		return err
	})
}

// CommitBatch upserts every record inside one transaction.
func (s *Store) CommitBatch(ctx context.Context, recs []types.SessionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([][]any, len(recs))
	for i := range recs {
		args, err := recordArgs(&recs[i], now)
		if err != nil {
			return err
		}
		rows[i] = args
	}

	return retryOnBusy(ctx, func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, upsertSQL)
			if err != nil {
				return fmt.Errorf("prepare upsert: %w", err)
			}
			defer stmt.Close()
			for i, args := range rows {
				if _, err := stmt.ExecContext(ctx, args...); err != nil {
					return fmt.Errorf("upsert record %s: %w", recs[i].ExternalID, err)
				}
			}
			return nil
		})
	})
}

// Snapshot copies every current record into the named backup namespace.
// Reusing a namespace is an error.
func (s *Store) Snapshot(ctx context.Context, namespace string) (int, error) {
	if namespace == "" {
		return 0, fmt.Errorf("snapshot namespace is required")
	}
	var copied int
	err := retryOnBusy(ctx, func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			var exists int
			if err := tx.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM backup_namespaces WHERE namespace = ?", namespace,
			).Scan(&exists); err != nil {
				return err
			}
			if exists > 0 {
				return fmt.Errorf("snapshot namespace %s already exists", namespace)
			}
			res, err := tx.ExecContext(ctx,
				`INSERT INTO session_record_backups (namespace, external_id, payload)
				 SELECT ?, external_id, payload FROM session_records`, namespace)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			copied = int(n)
			_, err = tx.ExecContext(ctx,
				"INSERT INTO backup_namespaces (namespace, records, created_at) VALUES (?, ?, ?)",
				namespace, copied, time.Now().UTC().Format(dateLayout))
			return err
		})
	})
	if err != nil {
		return 0, fmt.Errorf("snapshot %s: %w", namespace, err)
	}
	return copied, nil
}

// Backup returns the records held in a snapshot namespace, ordered by external id.
func (s *Store) Backup(ctx context.Context, namespace string) ([]types.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM session_record_backups WHERE namespace = ? ORDER BY external_id", namespace)
	if err != nil {
		return nil, fmt.Errorf("read backup %s: %w", namespace, err)
	}
	return decodeRows(rows)
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

var _ store.RecordStore = (*Store)(nil)

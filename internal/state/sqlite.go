package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/imamik/pvecfg/internal/resource"
)

// SQLiteStore keeps records in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and initializes the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Writes are serialized by SQLite anyway; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reconciliation_record (
			kind TEXT NOT NULL,
			id TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			outcome TEXT NOT NULL,
			pass_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (kind, id)
		);
		CREATE INDEX IF NOT EXISTS idx_reconciliation_record_kind ON reconciliation_record(kind);
	`)
	if err != nil {
		return fmt.Errorf("failed to create reconciliation_record table: %w", err)
	}
	return nil
}

// Get retrieves the record for key, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, key resource.Key) (*Record, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM reconciliation_record
		WHERE kind = ? AND id = ?
	`, string(key.Kind), key.ID).Scan(&payload)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", key, err)
	}

	return decodeRecord([]byte(payload))
}

// Put inserts or replaces the record in a single statement.
func (s *SQLiteStore) Put(ctx context.Context, record *Record) error {
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", record.Key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_record (kind, id, fingerprint, outcome, pass_id, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			outcome = excluded.outcome,
			pass_id = excluded.pass_id,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, string(record.Key.Kind), record.Key.ID, record.Fingerprint, string(record.Outcome),
		record.PassID, string(payload), record.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to write record %s: %w", record.Key, err)
	}

	log.Debug().
		Str("kind", string(record.Key.Kind)).
		Str("id", record.Key.ID).
		Str("outcome", string(record.Outcome)).
		Msg("state record written")
	return nil
}

// Delete removes the record for key. Deleting a missing record is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key resource.Key) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM reconciliation_record WHERE kind = ? AND id = ?
	`, string(key.Kind), key.ID)
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", key, err)
	}
	return nil
}

// List returns all records.
func (s *SQLiteStore) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM reconciliation_record`)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		record, err := decodeRecord([]byte(payload))
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortRecords(records)
	return records, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodeRecord(payload []byte) (*Record, error) {
	var record Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &record, nil
}

package formatted

import (
	"context"
	"database/sql"
	"time"

	"textforward/internal/adapters/storage"
	domain "textforward/internal/domain/formatted"
)

// SQLiteStore implements the formatted Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new formatted-record store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Append persists a new record. The created_at column is filled by SQLite's
// own clock (strftime at insert time), not by the caller, so ordering across
// concurrent submissions is consistent with the store.
// PRE: record has been validated; record.ID is set
// POST: Returns the stored record with CreatedAt assigned by the store
func (s *SQLiteStore) Append(ctx context.Context, r domain.Record) (domain.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO formatted_text (id, original_text, formatting_parameters, formatted_text, recipient_email, correlation_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		 RETURNING created_at`,
		r.ID, r.OriginalText, r.FormattingParameters, r.FormattedText, r.RecipientEmail, r.CorrelationID)

	var createdAt string
	if err := row.Scan(&createdAt); err != nil {
		return domain.Record{}, err
	}
	r.CreatedAt, _ = time.Parse(storage.TimestampLayout, createdAt)
	return r, nil
}

// GetByID retrieves a record by its ID.
// PRE: id is non-empty
// POST: Returns the record or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, original_text, formatting_parameters, formatted_text, recipient_email, correlation_id, created_at
		 FROM formatted_text WHERE id = ?`, id)
	return scanRecord(row)
}

// ListRecent returns the most recently created records.
// PRE: limit > 0
// POST: Returns up to limit records ordered by created_at desc
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, original_text, formatting_parameters, formatted_text, recipient_email, correlation_id, created_at
		 FROM formatted_text ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		r, err := scanRecordFromRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// scanRecord scans a single row into a Record.
func scanRecord(row *sql.Row) (domain.Record, error) {
	var r domain.Record
	var createdAt string
	err := row.Scan(&r.ID, &r.OriginalText, &r.FormattingParameters, &r.FormattedText,
		&r.RecipientEmail, &r.CorrelationID, &createdAt)
	if err != nil {
		return domain.Record{}, err
	}
	r.CreatedAt, _ = time.Parse(storage.TimestampLayout, createdAt)
	return r, nil
}

// scanRecordFromRows scans a single row from Rows into a Record.
func scanRecordFromRows(rows *sql.Rows) (domain.Record, error) {
	var r domain.Record
	var createdAt string
	err := rows.Scan(&r.ID, &r.OriginalText, &r.FormattingParameters, &r.FormattedText,
		&r.RecipientEmail, &r.CorrelationID, &createdAt)
	if err != nil {
		return domain.Record{}, err
	}
	r.CreatedAt, _ = time.Parse(storage.TimestampLayout, createdAt)
	return r, nil
}

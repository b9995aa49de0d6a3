package mailrequest

import (
	"context"
	"database/sql"
	"time"

	"textforward/internal/adapters/storage"
	domain "textforward/internal/domain/mailrequest"
)

// SQLiteStore implements the mail-request Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new mail-request store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Enqueue persists a new mail request with a server-assigned timestamp.
// PRE: request has been validated; request.ID is set
// POST: Returns the stored request with CreatedAt assigned by the store
func (s *SQLiteStore) Enqueue(ctx context.Context, r domain.Request) (domain.Request, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO mail_request (id, recipient, subject, body, correlation_id, created_at)
		 VALUES (?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		 RETURNING created_at`,
		r.ID, r.To, r.Template.Subject, r.Template.Text, r.CorrelationID)

	var createdAt string
	if err := row.Scan(&createdAt); err != nil {
		return domain.Request{}, err
	}
	r.CreatedAt, _ = time.Parse(storage.TimestampLayout, createdAt)
	return r, nil
}

// ListAfter returns requests appended after the given sequence number, oldest
// first. The rowid serves as the creation sequence.
// PRE: limit > 0
// POST: Returns up to limit observed requests ordered by sequence
func (s *SQLiteStore) ListAfter(ctx context.Context, afterSeq int64, limit int) ([]Observed, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rowid, id, recipient, subject, body, correlation_id, created_at
		 FROM mail_request WHERE rowid > ? ORDER BY rowid ASC LIMIT ?`, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observed []Observed
	for rows.Next() {
		var o Observed
		var createdAt string
		err := rows.Scan(&o.Seq, &o.Request.ID, &o.Request.To, &o.Request.Template.Subject,
			&o.Request.Template.Text, &o.Request.CorrelationID, &createdAt)
		if err != nil {
			return nil, err
		}
		o.Request.CreatedAt, _ = time.Parse(storage.TimestampLayout, createdAt)
		observed = append(observed, o)
	}
	return observed, rows.Err()
}

// ListRecent returns the most recently enqueued requests.
// PRE: limit > 0
// POST: Returns up to limit requests ordered by created_at desc
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]domain.Request, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recipient, subject, body, correlation_id, created_at
		 FROM mail_request ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []domain.Request
	for rows.Next() {
		r, err := scanRequestFromRows(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// scanRequestFromRows scans a single row from Rows into a Request.
func scanRequestFromRows(rows *sql.Rows) (domain.Request, error) {
	var r domain.Request
	var createdAt string
	err := rows.Scan(&r.ID, &r.To, &r.Template.Subject, &r.Template.Text, &r.CorrelationID, &createdAt)
	if err != nil {
		return domain.Request{}, err
	}
	r.CreatedAt, _ = time.Parse(storage.TimestampLayout, createdAt)
	return r, nil
}

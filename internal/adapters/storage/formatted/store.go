package formatted

import (
	"context"

	domain "textforward/internal/domain/formatted"
)

// Store defines the interface for formatted-record persistence.
// The collection is append-only: there is no update or delete.
type Store interface {
	// Append persists a new record, assigning the timestamp server-side.
	// PRE: record has been validated; record.ID is set
	// POST: Returns the stored record with CreatedAt assigned by the store
	Append(ctx context.Context, r domain.Record) (domain.Record, error)

	// GetByID retrieves a record by its ID.
	// PRE: id is non-empty
	// POST: Returns the record or an error if not found
	GetByID(ctx context.Context, id string) (domain.Record, error)

	// ListRecent returns the most recently created records.
	// PRE: limit > 0
	// POST: Returns up to limit records ordered by created_at desc
	ListRecent(ctx context.Context, limit int) ([]domain.Record, error)
}

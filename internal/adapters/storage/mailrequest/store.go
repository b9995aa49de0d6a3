package mailrequest

import (
	"context"

	domain "textforward/internal/domain/mailrequest"
)

// Observed is a mail request paired with its append sequence number.
// The sequence (SQLite rowid) is what the watcher uses as a high-water mark
// when delivering creation events to the dispatcher.
type Observed struct {
	Seq     int64
	Request domain.Request
}

// Store defines the interface for mail-request persistence.
// The collection is append-only; the dispatcher never marks entries processed.
type Store interface {
	// Enqueue persists a new mail request, assigning the timestamp server-side.
	// PRE: request has been validated; request.ID is set
	// POST: Returns the stored request with CreatedAt assigned by the store
	Enqueue(ctx context.Context, r domain.Request) (domain.Request, error)

	// ListAfter returns requests appended after the given sequence number,
	// oldest first. Passing 0 returns everything, which is how a restarted
	// watcher replays the collection (at-least-once delivery).
	// PRE: limit > 0
	// POST: Returns up to limit observed requests ordered by sequence
	ListAfter(ctx context.Context, afterSeq int64, limit int) ([]Observed, error)

	// ListRecent returns the most recently enqueued requests.
	// PRE: limit > 0
	// POST: Returns up to limit requests ordered by created_at desc
	ListRecent(ctx context.Context, limit int) ([]domain.Request, error)
}

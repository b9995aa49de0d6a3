package mailrequest

import (
	"errors"
	"time"
)

// DefaultSubject is the subject line used for formatted-text notifications.
const DefaultSubject = "Formatted Text"

// Domain errors
var (
	ErrEmptyRecipient = errors.New("recipient address is required")
	ErrEmptySubject   = errors.New("subject is required")
)

// Template holds the message content for an outbound mail.
type Template struct {
	Subject string
	Text    string
}

// Request is a queued mail. Requests are append-only and are consumed by the
// dispatcher, which never marks them processed: redelivery after a watcher
// restart is possible and accepted.
type Request struct {
	ID            string
	To            string
	Template      Template
	CorrelationID string
	CreatedAt     time.Time // assigned by the store at write time
}

// Validate checks that the Request has valid data before it is enqueued.
// PRE: Request struct is populated
// POST: Returns nil if valid, error otherwise
func (r *Request) Validate() error {
	if r.To == "" {
		return ErrEmptyRecipient
	}
	if r.Template.Subject == "" {
		return ErrEmptySubject
	}
	return nil
}

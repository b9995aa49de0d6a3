package formatted

import (
	"errors"
	"time"
)

// Domain errors
var (
	ErrEmptyOriginalText  = errors.New("original text is required")
	ErrEmptyParameters    = errors.New("formatting parameters are required")
	ErrEmptyFormattedText = errors.New("formatted text is required")
	ErrEmptyRecipient     = errors.New("recipient email is required")
)

// Record is an immutable transcript of one formatting call. Records are
// append-only: they are created exactly once per successful formatting call
// and never updated or deleted.
type Record struct {
	ID                   string
	OriginalText         string
	FormattingParameters string
	FormattedText        string
	RecipientEmail       string
	CorrelationID        string // shared with the sibling mail request for operator correlation
	CreatedAt            time.Time // assigned by the store at write time, never by the caller
}

// Validate checks that the Record has valid data before it is appended.
// CreatedAt is intentionally not checked: the store assigns it.
// PRE: Record struct is populated
// POST: Returns nil if valid, error otherwise
func (r *Record) Validate() error {
	if r.OriginalText == "" {
		return ErrEmptyOriginalText
	}
	if r.FormattingParameters == "" {
		return ErrEmptyParameters
	}
	if r.FormattedText == "" {
		return ErrEmptyFormattedText
	}
	if r.RecipientEmail == "" {
		return ErrEmptyRecipient
	}
	return nil
}

package submission

import (
	"net/mail"
	"strings"
)

// DefaultFormattingParameters is the instruction used when the form field is
// left at its prefilled value.
const DefaultFormattingParameters = "Ensure consistent capitalization and punctuation. Remove extra whitespace."

// Form field names, used as keys in FieldErrors.
const (
	FieldText                 = "text"
	FieldFormattingParameters = "formattingParameters"
	FieldEmail                = "email"
)

// Validation messages surfaced to the submitter.
const (
	MsgEmptyText                 = "Text cannot be empty."
	MsgEmptyFormattingParameters = "Formatting parameters cannot be empty."
	MsgInvalidEmail              = "Please enter a valid email address."
)

// FormatRequest is a validated submission. It is transient: the pipeline
// consumes it and persists a formatted record instead.
type FormatRequest struct {
	Text                 string
	FormattingParameters string
	Email                string
}

// FieldErrors maps a field name to its validation messages in the order they
// were recorded. Only the first message per field is surfaced to the caller.
type FieldErrors map[string][]string

// Add appends a message to the given field's error list.
// PRE: field is one of the Field* constants
// POST: message appended, ordering preserved
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// First returns the first message recorded for the field, or "" if none.
func (fe FieldErrors) First(field string) string {
	if msgs := fe[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Any reports whether any field has at least one error.
func (fe FieldErrors) Any() bool {
	return len(fe) > 0
}

// Validate checks the three raw form fields against the structural rules.
// It is pure and performs no I/O. Any invalid field aborts the pipeline, so a
// non-empty FieldErrors means no downstream component may be invoked.
// PRE: raw strings as received from the form boundary
// POST: returns a normalized FormatRequest and nil, or a zero request and the
// per-field error map
func Validate(text, formattingParameters, email string) (FormatRequest, FieldErrors) {
	fe := FieldErrors{}

	if text == "" {
		fe.Add(FieldText, MsgEmptyText)
	}
	if formattingParameters == "" {
		fe.Add(FieldFormattingParameters, MsgEmptyFormattingParameters)
	}
	if addr, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		fe.Add(FieldEmail, MsgInvalidEmail)
	} else {
		email = addr.Address
	}

	if fe.Any() {
		return FormatRequest{}, fe
	}
	return FormatRequest{
		Text:                 text,
		FormattingParameters: formattingParameters,
		Email:                email,
	}, nil
}

package formatter

import (
	"context"
	"errors"
)

// ErrBadOutput indicates the model responded but the response did not match
// the expected output shape.
var ErrBadOutput = errors.New("formatter returned malformed output")

// FormatRequest contains the inputs for one formatting call.
type FormatRequest struct {
	Text                 string // The unformatted text
	FormattingParameters string // Natural-language formatting instructions
}

// FormatResult contains the response from the formatting provider.
type FormatResult struct {
	FormattedText string
}

// Formatter is the interface for reformatting text via an external generative
// model. Implementations are opaque, possibly slow, and possibly failing;
// callers attempt each call exactly once and do not retry.
type Formatter interface {
	Format(ctx context.Context, req FormatRequest) (FormatResult, error)
}

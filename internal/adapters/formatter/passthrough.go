package formatter

import (
	"context"
	"log/slog"
)

// PassthroughFormatter is a no-op formatter for development and testing.
// It logs the call and returns the input text unchanged.
type PassthroughFormatter struct{}

// NewPassthroughFormatter creates a new PassthroughFormatter.
func NewPassthroughFormatter() *PassthroughFormatter {
	return &PassthroughFormatter{}
}

// Format returns the input text without calling any external service.
// PRE: req is a valid FormatRequest
// POST: Returns the original text as the formatted text
func (f *PassthroughFormatter) Format(_ context.Context, req FormatRequest) (FormatResult, error) {
	slog.Info("passthrough_format", "input_len", len(req.Text), "parameters", req.FormattingParameters)
	return FormatResult{FormattedText: req.Text}, nil
}

package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"textforward/internal/adapters/formatter"
	formattedStore "textforward/internal/adapters/storage/formatted"
	mailStore "textforward/internal/adapters/storage/mailrequest"
	formattedDomain "textforward/internal/domain/formatted"
	mailDomain "textforward/internal/domain/mailrequest"
	"textforward/internal/domain/submission"
)

// Pipeline errors. The HTTP boundary maps these onto user-facing messages;
// the wrapped cause goes to the log only.
var (
	ErrFormattingService = errors.New("formatting service failed")
	ErrPersistence       = errors.New("failed to save formatted text")
)

// BestEffortNotification names the policy for mail-enqueue failures: the
// persisted formatted record is the success criterion, the notification is
// not. An enqueue failure is logged and swallowed; the submitter still gets a
// success response. Flipping this to false makes enqueue failures fatal to
// the request.
const BestEffortNotification = true

// FormatForwardInput carries the three raw form fields.
type FormatForwardInput struct {
	Text                 string
	FormattingParameters string
	Email                string
}

// FormatForwardDeps holds dependencies for the pipeline. Everything the
// pipeline touches is injected here; no package-level client handles.
type FormatForwardDeps struct {
	Formatter      formatter.Formatter
	FormattedStore formattedStore.Store
	MailStore      mailStore.Store
	GenerateID     func() string
}

// FormatForwardResult is the outcome of a pipeline run.
type FormatForwardResult struct {
	Record      formattedDomain.Record
	FieldErrors submission.FieldErrors // non-nil when validation failed; nothing else ran

	// NotificationQueued is false when the mail enqueue failed and was
	// swallowed under BestEffortNotification. The user-visible contract is
	// unchanged; this exists so callers and tests can observe the policy.
	NotificationQueued bool
}

// ExecuteFormatAndForward runs the validate → format → persist → enqueue
// pipeline for one submission. The four steps are strictly sequential; each
// external call is attempted exactly once, with no retries.
//
// Failure semantics, in order:
//   - validation failure: FieldErrors set, zero downstream calls, nil error
//   - formatter failure: ErrFormattingService, nothing written
//   - persistence failure: ErrPersistence, mail enqueue not attempted
//   - enqueue failure: logged and swallowed (BestEffortNotification)
//
// The formatted record and the mail request are two independent appends with
// no transaction spanning them; a crash between the two leaves a record with
// no mail request, which is accepted.
func ExecuteFormatAndForward(ctx context.Context, input FormatForwardInput, deps FormatForwardDeps) (FormatForwardResult, error) {
	req, fieldErrors := submission.Validate(input.Text, input.FormattingParameters, input.Email)
	if fieldErrors.Any() {
		return FormatForwardResult{FieldErrors: fieldErrors}, nil
	}

	correlationID := deps.GenerateID()

	formatted, err := deps.Formatter.Format(ctx, formatter.FormatRequest{
		Text:                 req.Text,
		FormattingParameters: req.FormattingParameters,
	})
	if err != nil {
		slog.Error("format_pipeline_failed", "stage", "formatter", "correlation_id", correlationID, "error", err.Error())
		return FormatForwardResult{}, fmt.Errorf("%w: %w", ErrFormattingService, err)
	}

	record := formattedDomain.Record{
		ID:                   deps.GenerateID(),
		OriginalText:         req.Text,
		FormattingParameters: req.FormattingParameters,
		FormattedText:        formatted.FormattedText,
		RecipientEmail:       req.Email,
		CorrelationID:        correlationID,
	}
	if err := record.Validate(); err != nil {
		slog.Error("format_pipeline_failed", "stage", "validate_record", "correlation_id", correlationID, "error", err.Error())
		return FormatForwardResult{}, fmt.Errorf("%w: %w", ErrFormattingService, err)
	}

	stored, err := deps.FormattedStore.Append(ctx, record)
	if err != nil {
		slog.Error("format_pipeline_failed", "stage", "persist", "correlation_id", correlationID, "error", err.Error())
		return FormatForwardResult{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	slog.Info("formatted_record_saved", "record_id", stored.ID, "correlation_id", correlationID, "recipient", stored.RecipientEmail)

	result := FormatForwardResult{Record: stored, NotificationQueued: true}

	mail := mailDomain.Request{
		ID:            deps.GenerateID(),
		To:            req.Email,
		Template:      mailDomain.Template{Subject: mailDomain.DefaultSubject, Text: formatted.FormattedText},
		CorrelationID: correlationID,
	}
	if _, err := deps.MailStore.Enqueue(ctx, mail); err != nil {
		if !BestEffortNotification {
			return FormatForwardResult{}, fmt.Errorf("failed to queue mail: %w", err)
		}
		slog.Error("mail_enqueue_failed", "correlation_id", correlationID, "recipient", req.Email, "error", err.Error())
		result.NotificationQueued = false
		return result, nil
	}

	slog.Info("mail_queued", "mail_id", mail.ID, "correlation_id", correlationID, "recipient", req.Email)
	return result, nil
}

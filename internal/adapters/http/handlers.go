package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"textforward/internal/application/orchestrators"
	"textforward/internal/domain/submission"
)

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in the formatted text is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// isHTMLRequest reports whether the client prefers a rendered page.
func isHTMLRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "application/xhtml+xml")
}

// formState is the result object returned to the form boundary.
type formState struct {
	Message       string              `json:"message"`
	FormattedText string              `json:"formattedText,omitempty"`
	Error         string              `json:"error,omitempty"`
	FieldErrors   map[string][]string `json:"fieldErrors,omitempty"`
}

// User-facing messages. Field-level messages live in the submission package.
const (
	msgSuccess          = "Text formatted, saved, and email queued successfully!"
	msgValidationFailed = "Validation failed. Please check your input."
	msgActionFailed     = "Action failed."
	errValidation       = "Validation Error"
	errFormatting       = "AI formatting failed. Please try again."
	errGeneric          = "An unexpected error occurred."
)

// pageData feeds the index template.
type pageData struct {
	CSRFField            template.HTML
	Text                 string
	FormattingParameters string
	Email                string
	State                *formState
	Preview              template.HTML // goldmark-rendered formatted text
	FirstError           func(field string) string
}

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>TextForward</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 44rem; margin: 2rem auto; padding: 0 1rem; }
label { display: block; margin-top: 1rem; font-weight: 600; }
textarea, input { width: 100%; padding: .5rem; margin-top: .25rem; }
textarea { min-height: 8rem; }
button { margin-top: 1rem; padding: .5rem 1.5rem; }
.error { color: #b00020; }
.message { margin-top: 1rem; padding: .75rem; background: #eef6ee; }
.message.failed { background: #fdecea; }
.result { margin-top: 1rem; padding: .75rem; border: 1px solid #ccc; white-space: pre-wrap; }
</style>
</head>
<body>
<h1>TextForward</h1>
<p>Paste text, describe how it should be formatted, and the result is saved and emailed to the recipient.</p>
{{ if .State }}
<div class="message{{ if .State.Error }} failed{{ end }}">{{ .State.Message }}{{ if .State.Error }} — {{ .State.Error }}{{ end }}</div>
{{ end }}
<form method="POST" action="/format">
{{ .CSRFField }}
<label for="text">Text</label>
<textarea id="text" name="text" placeholder="Paste or type your text here...">{{ .Text }}</textarea>
{{ if call .FirstError "text" }}<p class="error">{{ call .FirstError "text" }}</p>{{ end }}
<label for="formattingParameters">Formatting parameters</label>
<input id="formattingParameters" name="formattingParameters" value="{{ .FormattingParameters }}" placeholder="e.g., Convert to bullet points, Fix grammar">
{{ if call .FirstError "formattingParameters" }}<p class="error">{{ call .FirstError "formattingParameters" }}</p>{{ end }}
<label for="email">Recipient email</label>
<input id="email" name="email" type="email" value="{{ .Email }}" placeholder="recipient@example.com">
{{ if call .FirstError "email" }}<p class="error">{{ call .FirstError "email" }}</p>{{ end }}
<button type="submit">Format and forward</button>
</form>
{{ if .Preview }}
<h2>Formatted text</h2>
<div class="result">{{ .Preview }}</div>
{{ end }}
</body>
</html>`

// renderIndex renders the form page with the given submission state.
func (app *App) renderIndex(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	data.CSRFField = csrf.TemplateField(r)
	if data.FormattingParameters == "" && data.State == nil {
		data.FormattingParameters = submission.DefaultFormattingParameters
	}
	if data.FirstError == nil {
		data.FirstError = func(string) string { return "" }
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// handleIndex handles GET /: the submission form with the default instruction prefilled.
func (app *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	app.renderIndex(w, r, http.StatusOK, pageData{})
}

// handleFormat handles POST /format: the full validate → format → persist →
// enqueue pipeline. Accepts an HTML form post (CSRF-protected) or a JSON body
// {text, formattingParameters, email}; responds with a rendered page or a
// formState object accordingly.
func (app *App) handleFormat(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var input orchestrators.FormatForwardInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Text                 string `json:"text"`
			FormattingParameters string `json:"formattingParameters"`
			Email                string `json:"email"`
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "malformed JSON body", http.StatusBadRequest)
			return
		}
		input = orchestrators.FormatForwardInput(body)
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "malformed form", http.StatusBadRequest)
			return
		}
		input = orchestrators.FormatForwardInput{
			Text:                 r.FormValue("text"),
			FormattingParameters: r.FormValue("formattingParameters"),
			Email:                r.FormValue("email"),
		}
	}

	deps := orchestrators.FormatForwardDeps{
		Formatter:      app.Formatter,
		FormattedStore: app.FormattedStore,
		MailStore:      app.MailStore,
		GenerateID:     app.GenerateID,
	}

	result, err := orchestrators.ExecuteFormatAndForward(r.Context(), input, deps)

	var state formState
	status := http.StatusOK
	switch {
	case err != nil && errors.Is(err, orchestrators.ErrFormattingService):
		state = formState{Message: msgActionFailed, Error: errFormatting}
		status = http.StatusBadGateway
	case err != nil:
		state = formState{Message: msgActionFailed, Error: errGeneric}
		status = http.StatusInternalServerError
	case result.FieldErrors.Any():
		state = formState{
			Message:     msgValidationFailed,
			Error:       errValidation,
			FieldErrors: result.FieldErrors,
		}
		status = http.StatusBadRequest
	default:
		state = formState{Message: msgSuccess, FormattedText: result.Record.FormattedText}
	}

	if isHTMLRequest(r) {
		data := pageData{
			Text:                 input.Text,
			FormattingParameters: input.FormattingParameters,
			Email:                input.Email,
			State:                &state,
			FirstError:           result.FieldErrors.First,
		}
		if state.FormattedText != "" {
			data.Preview = renderMarkdown(state.FormattedText)
		}
		app.renderIndex(w, r, status, data)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(state)
}

// renderMarkdown converts the formatted text to escaped HTML for the preview.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// parseLimit reads ?limit=N with a default and a cap.
func parseLimit(r *http.Request, def, max int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			if n > max {
				return max
			}
			return n
		}
	}
	return def
}

// handleHistory handles GET /api/history: the most recent formatted records.
func (app *App) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	records, err := app.FormattedStore.ListRecent(r.Context(), parseLimit(r, 20, 100))
	if err != nil {
		internalError(w, err)
		return
	}

	type item struct {
		ID                   string    `json:"id"`
		OriginalText         string    `json:"originalText"`
		FormattingParameters string    `json:"formattingParameters"`
		FormattedText        string    `json:"formattedText"`
		RecipientEmail       string    `json:"recipientEmail"`
		CorrelationID        string    `json:"correlationId"`
		CreatedAt            time.Time `json:"createdAt"`
	}
	items := make([]item, 0, len(records))
	for _, rec := range records {
		items = append(items, item(rec))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"records": items})
}

// handleMailLog handles GET /api/mail: the most recently queued mail requests.
func (app *App) handleMailLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	requests, err := app.MailStore.ListRecent(r.Context(), parseLimit(r, 20, 100))
	if err != nil {
		internalError(w, err)
		return
	}

	type item struct {
		ID            string    `json:"id"`
		To            string    `json:"to"`
		Subject       string    `json:"subject"`
		Text          string    `json:"text"`
		CorrelationID string    `json:"correlationId"`
		CreatedAt     time.Time `json:"createdAt"`
	}
	items := make([]item, 0, len(requests))
	for _, req := range requests {
		items = append(items, item{
			ID:            req.ID,
			To:            req.To,
			Subject:       req.Template.Subject,
			Text:          req.Template.Text,
			CorrelationID: req.CorrelationID,
			CreatedAt:     req.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"mail": items})
}

// handleHealthz handles GET /healthz with a DB ping.
func (app *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if app.DB != nil {
		if err := app.DB.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

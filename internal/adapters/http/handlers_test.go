package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"textforward/internal/adapters/formatter"
	mailStore "textforward/internal/adapters/storage/mailrequest"
	formattedDomain "textforward/internal/domain/formatted"
	mailDomain "textforward/internal/domain/mailrequest"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type mockFormatter struct {
	result string
	err    error
}

func (m *mockFormatter) Format(_ context.Context, _ formatter.FormatRequest) (formatter.FormatResult, error) {
	if m.err != nil {
		return formatter.FormatResult{}, m.err
	}
	return formatter.FormatResult{FormattedText: m.result}, nil
}

type mockFormattedStore struct {
	records []formattedDomain.Record
}

func (m *mockFormattedStore) Append(_ context.Context, r formattedDomain.Record) (formattedDomain.Record, error) {
	r.CreatedAt = fixedTime
	m.records = append(m.records, r)
	return r, nil
}

func (m *mockFormattedStore) GetByID(_ context.Context, id string) (formattedDomain.Record, error) {
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return formattedDomain.Record{}, errors.New("not found")
}

func (m *mockFormattedStore) ListRecent(_ context.Context, limit int) ([]formattedDomain.Record, error) {
	if limit > len(m.records) {
		limit = len(m.records)
	}
	return m.records[:limit], nil
}

type mockMailStore struct {
	requests []mailDomain.Request
}

func (m *mockMailStore) Enqueue(_ context.Context, r mailDomain.Request) (mailDomain.Request, error) {
	r.CreatedAt = fixedTime
	m.requests = append(m.requests, r)
	return r, nil
}

func (m *mockMailStore) ListAfter(_ context.Context, afterSeq int64, limit int) ([]mailStore.Observed, error) {
	var observed []mailStore.Observed
	for i, r := range m.requests {
		if int64(i+1) > afterSeq {
			observed = append(observed, mailStore.Observed{Seq: int64(i + 1), Request: r})
		}
	}
	return observed, nil
}

func (m *mockMailStore) ListRecent(_ context.Context, limit int) ([]mailDomain.Request, error) {
	if limit > len(m.requests) {
		limit = len(m.requests)
	}
	return m.requests[:limit], nil
}

// newTestHandler wires a full middleware-wrapped handler over mocks.
func newTestHandler(t *testing.T, f *mockFormatter, fs *mockFormattedStore, ms *mockMailStore) http.Handler {
	t.Helper()
	n := 0
	app := &App{
		FormattedStore: fs,
		MailStore:      ms,
		Formatter:      f,
		GenerateID: func() string {
			n++
			return fmt.Sprintf("test-id-%03d", n)
		},
	}
	return NewMux(app)
}

func postJSON(t *testing.T, h http.Handler, path string, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", path, strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) formState {
	t.Helper()
	var state formState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return state
}

// TestHandleFormat_JSONSuccess tests the JSON happy path end to end: persisted
// record, queued mail, success message.
func TestHandleFormat_JSONSuccess(t *testing.T) {
	f := &mockFormatter{result: "hello world"}
	fs := &mockFormattedStore{}
	ms := &mockMailStore{}
	h := newTestHandler(t, f, fs, ms)

	rec := postJSON(t, h, "/format", map[string]string{
		"text":                 "hello   world",
		"formattingParameters": "trim extra spaces",
		"email":                "a@b.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	state := decodeState(t, rec)
	if state.Message != msgSuccess {
		t.Errorf("expected success message, got %q", state.Message)
	}
	if state.FormattedText != "hello world" {
		t.Errorf("expected formatted text in response, got %q", state.FormattedText)
	}
	if state.Error != "" {
		t.Errorf("expected no error, got %q", state.Error)
	}

	if len(fs.records) != 1 {
		t.Errorf("expected 1 persisted record, got %d", len(fs.records))
	}
	if len(ms.requests) != 1 {
		t.Fatalf("expected 1 queued mail, got %d", len(ms.requests))
	}
	if ms.requests[0].To != "a@b.com" {
		t.Errorf("expected mail queued for a@b.com, got %q", ms.requests[0].To)
	}
}

// TestHandleFormat_ValidationErrors tests the 400 response shape for invalid input.
func TestHandleFormat_ValidationErrors(t *testing.T) {
	h := newTestHandler(t, &mockFormatter{result: "x"}, &mockFormattedStore{}, &mockMailStore{})

	rec := postJSON(t, h, "/format", map[string]string{
		"text":                 "",
		"formattingParameters": "p",
		"email":                "not-an-email",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	state := decodeState(t, rec)
	if state.Message != msgValidationFailed {
		t.Errorf("expected validation message, got %q", state.Message)
	}
	if state.Error != errValidation {
		t.Errorf("expected %q, got %q", errValidation, state.Error)
	}
	if len(state.FieldErrors["text"]) == 0 {
		t.Error("expected a text field error")
	}
	if len(state.FieldErrors["email"]) == 0 {
		t.Error("expected an email field error")
	}
	if len(state.FieldErrors["formattingParameters"]) != 0 {
		t.Errorf("unexpected parameters error: %v", state.FieldErrors["formattingParameters"])
	}
}

// TestHandleFormat_FormatterFailure tests the 502 mapping for upstream failures.
func TestHandleFormat_FormatterFailure(t *testing.T) {
	f := &mockFormatter{err: errors.New("quota exceeded")}
	fs := &mockFormattedStore{}
	ms := &mockMailStore{}
	h := newTestHandler(t, f, fs, ms)

	rec := postJSON(t, h, "/format", map[string]string{
		"text":                 "x",
		"formattingParameters": "p",
		"email":                "a@b.com",
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}

	state := decodeState(t, rec)
	if state.Error != errFormatting {
		t.Errorf("expected %q, got %q", errFormatting, state.Error)
	}
	if len(fs.records) != 0 {
		t.Errorf("expected nothing persisted, got %d records", len(fs.records))
	}
	if len(ms.requests) != 0 {
		t.Errorf("expected nothing queued, got %d requests", len(ms.requests))
	}
}

// TestHandleFormat_MalformedJSON tests the strict decoder.
func TestHandleFormat_MalformedJSON(t *testing.T) {
	h := newTestHandler(t, &mockFormatter{result: "x"}, &mockFormattedStore{}, &mockMailStore{})

	req := httptest.NewRequest("POST", "/format", strings.NewReader(`{"text": "x", "unknown": true}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown field, got %d", rec.Code)
	}
}

// TestHandleFormat_MethodNotAllowed tests the method guard.
func TestHandleFormat_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, &mockFormatter{result: "x"}, &mockFormattedStore{}, &mockMailStore{})

	req := httptest.NewRequest("GET", "/format", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

// TestHandleFormat_FormPostRequiresCSRF tests that a browser-style form post
// without a token is rejected while JSON posts are exempt.
func TestHandleFormat_FormPostRequiresCSRF(t *testing.T) {
	h := newTestHandler(t, &mockFormatter{result: "x"}, &mockFormattedStore{}, &mockMailStore{})

	form := url.Values{}
	form.Set("text", "x")
	form.Set("formattingParameters", "p")
	form.Set("email", "a@b.com")
	req := httptest.NewRequest("POST", "/format", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for form post without CSRF token, got %d", rec.Code)
	}
}

// TestHandleIndex tests that the form page renders with the default instruction.
func TestHandleIndex(t *testing.T) {
	h := newTestHandler(t, &mockFormatter{result: "x"}, &mockFormattedStore{}, &mockMailStore{})

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `action="/format"`) {
		t.Error("expected submission form in page")
	}
	if !strings.Contains(body, "Ensure consistent capitalization") {
		t.Error("expected default formatting instruction prefilled")
	}
}

// TestHandleHistory tests the record listing endpoint.
func TestHandleHistory(t *testing.T) {
	fs := &mockFormattedStore{}
	h := newTestHandler(t, &mockFormatter{result: "x"}, fs, &mockMailStore{})

	fs.Append(context.Background(), formattedDomain.Record{
		ID:                   "rec-001",
		OriginalText:         "a",
		FormattingParameters: "p",
		FormattedText:        "A",
		RecipientEmail:       "a@b.com",
		CorrelationID:        "corr-001",
	})

	req := httptest.NewRequest("GET", "/api/history", nil)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		Records []struct {
			ID            string `json:"id"`
			FormattedText string `json:"formattedText"`
			CorrelationID string `json:"correlationId"`
		} `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(payload.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(payload.Records))
	}
	if payload.Records[0].ID != "rec-001" || payload.Records[0].FormattedText != "A" {
		t.Errorf("unexpected record payload: %+v", payload.Records[0])
	}
}

// TestHandleMailLog tests the queued-mail listing endpoint.
func TestHandleMailLog(t *testing.T) {
	ms := &mockMailStore{}
	h := newTestHandler(t, &mockFormatter{result: "x"}, &mockFormattedStore{}, ms)

	ms.Enqueue(context.Background(), mailDomain.Request{
		ID:            "mail-001",
		To:            "a@b.com",
		Template:      mailDomain.Template{Subject: mailDomain.DefaultSubject, Text: "hello"},
		CorrelationID: "corr-001",
	})

	req := httptest.NewRequest("GET", "/api/mail", nil)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		Mail []struct {
			ID      string `json:"id"`
			To      string `json:"to"`
			Subject string `json:"subject"`
		} `json:"mail"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(payload.Mail) != 1 {
		t.Fatalf("expected 1 mail entry, got %d", len(payload.Mail))
	}
	if payload.Mail[0].To != "a@b.com" || payload.Mail[0].Subject != mailDomain.DefaultSubject {
		t.Errorf("unexpected mail payload: %+v", payload.Mail[0])
	}
}

// TestHandleHealthz tests the liveness endpoint without a database.
func TestHandleHealthz(t *testing.T) {
	h := newTestHandler(t, &mockFormatter{result: "x"}, &mockFormattedStore{}, &mockMailStore{})

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("expected ok body, got %q", rec.Body.String())
	}
}

// TestSecurityHeaders tests that the hardening headers reach the client.
func TestSecurityHeaders(t *testing.T) {
	h := newTestHandler(t, &mockFormatter{result: "x"}, &mockFormattedStore{}, &mockMailStore{})

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	for _, header := range []string{"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options"} {
		if rec.Header().Get(header) == "" {
			t.Errorf("expected %s header", header)
		}
	}
}

package formatted

import (
	"errors"
	"testing"
)

func validRecord() Record {
	return Record{
		ID:                   "rec-001",
		OriginalText:         "hello   world",
		FormattingParameters: "trim extra spaces",
		FormattedText:        "hello world",
		RecipientEmail:       "a@b.com",
	}
}

// TestRecordValidate_Valid tests a fully populated record.
func TestRecordValidate_Valid(t *testing.T) {
	r := validRecord()
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestRecordValidate_MissingFields tests each required field.
func TestRecordValidate_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Record)
		want   error
	}{
		{"empty original", func(r *Record) { r.OriginalText = "" }, ErrEmptyOriginalText},
		{"empty parameters", func(r *Record) { r.FormattingParameters = "" }, ErrEmptyParameters},
		{"empty formatted", func(r *Record) { r.FormattedText = "" }, ErrEmptyFormattedText},
		{"empty recipient", func(r *Record) { r.RecipientEmail = "" }, ErrEmptyRecipient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(&r)
			if err := r.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// TestRecordValidate_NoCreatedAtRequirement verifies a record is valid before
// the store assigns its timestamp.
func TestRecordValidate_NoCreatedAtRequirement(t *testing.T) {
	r := validRecord()
	if !r.CreatedAt.IsZero() {
		t.Fatal("test record should have zero CreatedAt")
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("record without CreatedAt should validate: %v", err)
	}
}

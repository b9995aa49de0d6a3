package formatter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// promptTemplate embeds both inputs verbatim. The instruction string is not
// escaped or sanitized; the model is trusted to treat it as data.
const promptTemplate = `You are a text formatting expert. You will format the given text based on the provided formatting parameters.

Text: %s
Formatting Parameters: %s

Formatted Text:`

// formatOutput mirrors the JSON schema the model is asked to produce.
type formatOutput struct {
	FormattedText string `json:"formattedText"`
}

// GenAIFormatter reformats text via the Gemini API with a structured-output
// schema, so a response that is not {"formattedText": ...} is an error rather
// than silently passed through.
type GenAIFormatter struct {
	client *genai.Client
	model  string
}

// NewGenAIFormatter creates a formatter backed by the Gemini API.
// PRE: apiKey is a valid Google AI API key
// POST: Returns a ready-to-use formatter
func NewGenAIFormatter(ctx context.Context, apiKey, model string) (*GenAIFormatter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIFormatter{client: client, model: model}, nil
}

// Format performs a single generative call. Network, auth, and quota failures
// surface as errors; so does any response violating the output schema.
// PRE: req.Text and req.FormattingParameters are non-empty
// POST: Returns the reformatted text exactly once attempted, no retries
func (f *GenAIFormatter) Format(ctx context.Context, req FormatRequest) (FormatResult, error) {
	prompt := fmt.Sprintf(promptTemplate, req.Text, req.FormattingParameters)

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"formattedText": {Type: genai.TypeString, Description: "The formatted text."},
			},
			Required: []string{"formattedText"},
		},
	}

	resp, err := f.client.Models.GenerateContent(ctx, f.model, genai.Text(prompt), config)
	if err != nil {
		slog.Error("genai_format_failed", "error", err.Error(), "model", f.model)
		return FormatResult{}, fmt.Errorf("genai format failed: %w", err)
	}

	raw := resp.Text()
	var out formatOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		slog.Error("genai_format_bad_output", "model", f.model, "error", err.Error())
		return FormatResult{}, fmt.Errorf("%w: %v", ErrBadOutput, err)
	}
	if out.FormattedText == "" {
		return FormatResult{}, fmt.Errorf("%w: empty formattedText", ErrBadOutput)
	}

	slog.Info("genai_formatted", "model", f.model, "input_len", len(req.Text), "output_len", len(out.FormattedText))
	return FormatResult{FormattedText: out.FormattedText}, nil
}

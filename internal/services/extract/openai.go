package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultModel is the default model to use
	DefaultModel = "gpt-4o-mini"
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// OpenAIExtractor implements the Extractor interface using OpenAI's API
type OpenAIExtractor struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIExtractor creates a new OpenAI-backed extractor
func NewOpenAIExtractor(apiKey string, model string) *OpenAIExtractor {
	return NewOpenAIExtractorWithLogger(apiKey, DefaultBaseURL, model, nil, false)
}

// NewOpenAIExtractorWithLogger creates a new OpenAI-backed extractor with logger support
func NewOpenAIExtractorWithLogger(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool) *OpenAIExtractor {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIExtractor{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// Extract analyzes a clinical note and returns the follow-up items it
// implies. Note text is never logged, even in debug mode.
func (e *OpenAIExtractor) Extract(ctx context.Context, noteText string) (*Extraction, error) {
	if noteText == "" {
		return Empty(), nil
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a clinical assistant that reads doctor notes and extracts follow-up actions for the patient. Respond with valid JSON only."),
		openai.UserMessage(buildExtractionPrompt(noteText)),
	}
	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(e.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	if e.logger != nil && e.debugMode {
		e.logger.Debug("llm_api_request",
			zap.String("operation", "extract_note"),
			zap.String("model", e.model),
			zap.Int("note_length", len(noteText)),
			zap.Int("message_count", len(messages)),
		)
	}

	start := time.Now()
	resp, err := e.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if e.logger != nil && e.debugMode {
			e.logger.Debug("llm_api_error",
				zap.String("operation", "extract_note"),
				zap.String("model", e.model),
				zap.Error(err),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return nil, fmt.Errorf("failed to extract note: %w", apiErr)
		}
		return nil, fmt.Errorf("failed to extract note: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content
	if e.logger != nil && e.debugMode {
		e.logger.Debug("llm_api_response",
			zap.String("operation", "extract_note"),
			zap.String("model", e.model),
			zap.Int("response_length", len(content)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return parseExtractionResponse(content)
}

func parseExtractionResponse(content string) (*Extraction, error) {
	var parsed struct {
		Checklist []ChecklistItem `json:"checklist"`
		Plan      []PlanItem      `json:"plan"`
	}
	raw := content
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		// Models sometimes wrap the JSON in prose or code fences;
		// scan for the outermost object and retry.
		if len(raw) > 0 && raw[0] != '{' {
			start := bytes.Index([]byte(raw), []byte("{"))
			end := bytes.LastIndex([]byte(raw), []byte("}"))
			if start != -1 && end != -1 && end > start {
				raw = raw[start : end+1]
			}
		}
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse extraction response: %w", err)
		}
	}

	ex := Empty()
	for _, item := range parsed.Checklist {
		if item.Description == "" {
			continue
		}
		ex.Checklist = append(ex.Checklist, item)
	}
	for _, item := range parsed.Plan {
		if item.Description == "" {
			continue
		}
		ex.Plan = append(ex.Plan, item)
	}
	return ex, nil
}

func buildExtractionPrompt(noteText string) string {
	return fmt.Sprintf(`Read the following doctor note and extract the follow-up actions it implies for the patient.

Doctor note:
"""
%s
"""

Respond with a JSON object in this format:
{
  "checklist": [{"description": "..."}],
  "plan": [{"description": "...", "frequency": "daily", "duration": 7}]
}

Guidelines:
- "checklist": one-time actions the patient must do once (e.g. "book a blood test", "pick up prescription")
- "plan": recurring actions the patient must repeat over a period (e.g. "take amoxicillin", "check blood pressure")
- "frequency" must be "daily"
- "duration" is the number of days the plan item should continue
- Omit anything that is not an action for the patient
- If the note contains no follow-up actions, return empty lists

Return only valid JSON.`, noteText)
}

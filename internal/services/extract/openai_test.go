package extract

import (
	"errors"
	"testing"
	"time"
)

func TestParseExtractionResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		content       string
		wantErr       bool
		wantChecklist int
		wantPlan      int
	}{
		{
			name:          "valid response",
			content:       `{"checklist":[{"description":"book a blood test"}],"plan":[{"description":"take amoxicillin","frequency":"daily","duration":7}]}`,
			wantChecklist: 1,
			wantPlan:      1,
		},
		{
			name:          "empty lists",
			content:       `{"checklist":[],"plan":[]}`,
			wantChecklist: 0,
			wantPlan:      0,
		},
		{
			name:          "json wrapped in code fence",
			content:       "```json\n{\"checklist\":[{\"description\":\"schedule x-ray\"}],\"plan\":[]}\n```",
			wantChecklist: 1,
			wantPlan:      0,
		},
		{
			name:          "json wrapped in prose",
			content:       `Here is the extraction: {"checklist":[],"plan":[{"description":"walk 20 minutes","frequency":"daily","duration":14}]} Let me know if you need more.`,
			wantChecklist: 0,
			wantPlan:      1,
		},
		{
			name:    "not json at all",
			content: "I could not find any follow-up actions in this note.",
			wantErr: true,
		},
		{
			name:    "truncated json",
			content: `{"checklist":[{"description":"boo`,
			wantErr: true,
		},
		{
			name:          "items without descriptions are dropped",
			content:       `{"checklist":[{"description":""},{"description":"refill prescription"}],"plan":[{"description":"","frequency":"daily","duration":5}]}`,
			wantChecklist: 1,
			wantPlan:      0,
		},
		{
			name:          "missing keys yield empty extraction",
			content:       `{}`,
			wantChecklist: 0,
			wantPlan:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ex, err := parseExtractionResponse(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(ex.Checklist) != tt.wantChecklist {
				t.Errorf("checklist length = %d, want %d", len(ex.Checklist), tt.wantChecklist)
			}
			if len(ex.Plan) != tt.wantPlan {
				t.Errorf("plan length = %d, want %d", len(ex.Plan), tt.wantPlan)
			}
		})
	}
}

func TestPlanItemDurationParsing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"number", `{"plan":[{"description":"d","frequency":"daily","duration":7}]}`, 7},
		{"numeric string", `{"plan":[{"description":"d","frequency":"daily","duration":"10"}]}`, 10},
		{"string with unit", `{"plan":[{"description":"d","frequency":"daily","duration":"14 days"}]}`, 14},
		{"unparseable string", `{"plan":[{"description":"d","frequency":"daily","duration":"two weeks"}]}`, 0},
		{"missing", `{"plan":[{"description":"d","frequency":"daily"}]}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ex, err := parseExtractionResponse(tt.content)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(ex.Plan) != 1 {
				t.Fatalf("plan length = %d, want 1", len(ex.Plan))
			}
			if ex.Plan[0].Duration != tt.want {
				t.Errorf("duration = %d, want %d", ex.Plan[0].Duration, tt.want)
			}
		})
	}
}

func TestIsRateLimitError(t *testing.T) {
	t.Parallel()

	if IsRateLimitError(nil) {
		t.Error("nil should not be a rate limit error")
	}
	if !IsRateLimitError(errors.New("429 too many requests")) {
		t.Error("429 message should be a rate limit error")
	}
	if !IsRateLimitError(&APIError{StatusCode: 429}) {
		t.Error("429 APIError should be a rate limit error")
	}
	if IsRateLimitError(&APIError{StatusCode: 429, IsPermanent: true}) {
		t.Error("permanent 429 should not count as a rate limit error")
	}
}

func TestIsQuotaError(t *testing.T) {
	t.Parallel()

	if IsQuotaError(nil) {
		t.Error("nil should not be a quota error")
	}
	if !IsQuotaError(errors.New("insufficient_quota: check your billing")) {
		t.Error("insufficient_quota message should be a quota error")
	}
	if !IsQuotaError(&APIError{Code: "insufficient_quota"}) {
		t.Error("insufficient_quota APIError should be a quota error")
	}
	if IsQuotaError(errors.New("connection refused")) {
		t.Error("transport error should not be a quota error")
	}
}

func TestGetRetryDelay(t *testing.T) {
	t.Parallel()

	rateErr := errors.New("429 rate limit exceeded")
	if got := GetRetryDelay(rateErr, 0); got != 60*time.Second {
		t.Errorf("rate limit attempt 0 = %v, want 60s", got)
	}
	if got := GetRetryDelay(rateErr, 100); got != 15*time.Minute {
		t.Errorf("rate limit delay should cap at 15m, got %v", got)
	}

	quotaErr := errors.New("insufficient_quota")
	if got := GetRetryDelay(quotaErr, 0); got != time.Hour {
		t.Errorf("quota attempt 0 = %v, want 1h", got)
	}
	if got := GetRetryDelay(quotaErr, 100); got != 24*time.Hour {
		t.Errorf("quota delay should cap at 24h, got %v", got)
	}

	plainErr := errors.New("connection reset")
	if got := GetRetryDelay(plainErr, 1); got != 10*time.Second {
		t.Errorf("default attempt 1 = %v, want 10s", got)
	}
	if got := GetRetryDelay(plainErr, -5); got != 5*time.Second {
		t.Errorf("negative attempt should clamp to base delay, got %v", got)
	}
}

// Package extract turns free-text clinical notes into structured
// follow-up obligations by calling an external text-understanding
// capability.
package extract

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
)

// ChecklistItem is a proposed one-time obligation
type ChecklistItem struct {
	Description string `json:"description"`
}

// PlanItem is a proposed recurring obligation
type PlanItem struct {
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
	Duration    int    `json:"duration"`
}

// UnmarshalJSON tolerates the upstream returning duration as a number,
// a numeric string, or something like "7 days". Unparseable durations
// decode as zero and the intake pipeline applies its default.
func (p *PlanItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Description string          `json:"description"`
		Frequency   string          `json:"frequency"`
		Duration    json.RawMessage `json:"duration"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Description = raw.Description
	p.Frequency = raw.Frequency
	p.Duration = parseDuration(raw.Duration)
	return nil
}

func parseDuration(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	// Accept "7" or "7 days"
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return n
}

// Extraction is the result of analyzing one note. Failed distinguishes
// "the capability returned nothing" from "the call itself failed";
// both currently yield zero obligations downstream.
type Extraction struct {
	Checklist []ChecklistItem `json:"checklist"`
	Plan      []PlanItem      `json:"plan"`
	Failed    bool            `json:"-"`
}

// Empty returns an extraction with no items
func Empty() *Extraction {
	return &Extraction{Checklist: []ChecklistItem{}, Plan: []PlanItem{}}
}

// FailedExtraction returns an empty extraction marked as failed
func FailedExtraction() *Extraction {
	ex := Empty()
	ex.Failed = true
	return ex
}

// Extractor is the boundary to the text-understanding capability. A test
// double must be substitutable without changing pipeline code.
type Extractor interface {
	Extract(ctx context.Context, noteText string) (*Extraction, error)
}

package evaluator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DimensionScore is the normalized score of one dimension.
type DimensionScore struct {
	Dimension  string   `json:"dimension"`
	Score      float64  `json:"score"`
	Confidence float64  `json:"confidence"`
	Baseline   *float64 `json:"baseline,omitempty"`
	Delta      *float64 `json:"delta,omitempty"`
}

// DimensionReason explains one dimension's score. Evidence is never empty.
type DimensionReason struct {
	Dimension string   `json:"dimension"`
	Headline  string   `json:"headline"`
	Rationale string   `json:"rationale"`
	Evidence  []string `json:"evidence"`
}

// Record is the per-turn evaluation artifact. Scores and Reasons always hold
// exactly the schema's dimensions, in schema order.
type Record struct {
	Scores           []DimensionScore  `json:"scores"`
	Reasons          []DimensionReason `json:"reasons"`
	Aggregate        float64           `json:"aggregate"`
	Fallback         bool              `json:"fallback"`
	GlobalViolations []string          `json:"globalViolations,omitempty"`
}

// ParsedRecord is the untrusted scoring structure decoded from model output.
// It accepts both the "scores" shape and the "principles" shape. Only the
// entry lists must have the right JSON type; any other field of the wrong
// type decodes as missing so the remaining entries survive.
type ParsedRecord struct {
	Scores           []ParsedEntry
	Principles       []ParsedEntry
	GlobalViolations []string
	Confidence       *float64
}

func (p *ParsedRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if err := decodeEntries(fields["scores"], &p.Scores); err != nil {
		return fmt.Errorf("scores: %w", err)
	}
	if err := decodeEntries(fields["principles"], &p.Principles); err != nil {
		return fmt.Errorf("principles: %w", err)
	}
	p.GlobalViolations = lenientStrings(fields["globalViolations"])
	p.Confidence = lenientNumber(fields["confidence"])
	return nil
}

func decodeEntries(raw json.RawMessage, dst *[]ParsedEntry) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// Entries returns every scoring entry in source order.
func (p *ParsedRecord) Entries() []ParsedEntry {
	out := make([]ParsedEntry, 0, len(p.Scores)+len(p.Principles))
	out = append(out, p.Scores...)
	return append(out, p.Principles...)
}

// ParsedEntry is one dimension's entry as supplied by the model. Numeric
// fields are pointers so a missing value differs from zero.
type ParsedEntry struct {
	Dimension  string
	Category   string
	Principle  string
	Name       string
	Score      *float64
	Confidence *float64
	Headline   string
	Rationale  string
	Evidence   []string
}

// UnmarshalJSON never fails on field types: numbers may arrive as numeric
// strings, evidence as a string or a list, and anything else is dropped.
// An entry that is not an object decodes empty and is ignored downstream.
func (e *ParsedEntry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if json.Unmarshal(data, &fields) != nil {
		*e = ParsedEntry{}
		return nil
	}
	*e = ParsedEntry{
		Dimension:  lenientString(fields["dimension"]),
		Category:   lenientString(fields["category"]),
		Principle:  lenientString(fields["principle"]),
		Name:       lenientString(fields["name"]),
		Score:      lenientNumber(fields["score"]),
		Confidence: lenientNumber(fields["confidence"]),
		Headline:   lenientString(fields["headline"]),
		Rationale:  lenientString(fields["rationale"]),
		Evidence:   lenientStrings(fields["evidence"]),
	}
	return nil
}

// ID returns the first identifier field the model filled in.
func (e ParsedEntry) ID() string {
	for _, id := range []string{e.Dimension, e.Category, e.Principle, e.Name} {
		if id = strings.TrimSpace(id); id != "" {
			return id
		}
	}
	return ""
}

func lenientString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// lenientNumber accepts a JSON number or a numeric string.
func lenientNumber(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return &f
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return nil
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return &f
	}
	return nil
}

// lenientStrings accepts a string or a list; non-string list items are skipped.
func lenientStrings(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '"' {
		if s := lenientString(raw); s != "" {
			return []string{s}
		}
		return nil
	}
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
		}
	}
	return out
}

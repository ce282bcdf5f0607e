package evaluator

import (
	"math"
	"strings"

	"github.com/jacksenechal/humanebench-eval/internal/schema"
)

const (
	// DefaultConfidence is used when the model supplies none.
	DefaultConfidence = 0.5
	// EvidenceSnippetLen caps how much raw input is quoted as synthesized evidence.
	EvidenceSnippetLen = 160

	missingRationale = "No rationale supplied by the evaluator."
)

// Normalize reduces an untrusted parsed record to a complete Record over s.
// Entries for unknown dimensions are ignored; if a dimension appears more than
// once the last entry wins. Missing or non-finite values fall back to the
// dimension defaults. Normalize never fails.
func Normalize(parsed *ParsedRecord, rawInputEvidence string, s *schema.Schema) Record {
	if parsed == nil {
		parsed = &ParsedRecord{}
	}

	byID := make(map[string]ParsedEntry)
	for _, e := range parsed.Entries() {
		byID[e.ID()] = e
	}

	recordConfidence := DefaultConfidence
	if c, ok := finite(parsed.Confidence); ok {
		recordConfidence = c
	}

	rec := Record{
		Scores:           make([]DimensionScore, 0, len(s.Dimensions)),
		Reasons:          make([]DimensionReason, 0, len(s.Dimensions)),
		GlobalViolations: nonBlank(parsed.GlobalViolations),
	}
	values := make([]float64, 0, len(s.Dimensions))

	for _, d := range s.Dimensions {
		src, found := byID[d.ID]

		score := d.DefaultScore()
		if v, ok := finite(src.Score); found && ok {
			score = v
		}
		score = d.Legalize(score)

		confidence := recordConfidence
		if v, ok := finite(src.Confidence); found && ok {
			confidence = v
		}

		rec.Scores = append(rec.Scores, newScore(d, score, clampUnit(confidence)))
		values = append(values, score)

		reason := DimensionReason{
			Dimension: d.ID,
			Headline:  orDefault(src.Headline, d.Label+" signal"),
			Rationale: orDefault(src.Rationale, missingRationale),
			Evidence:  nonBlank(src.Evidence),
		}
		if len(reason.Evidence) == 0 {
			reason.Evidence = []string{inputSnippet(rawInputEvidence)}
		}
		rec.Reasons = append(rec.Reasons, reason)
	}

	rec.Aggregate = s.Aggregate(values)
	return rec
}

func newScore(d schema.Dimension, score, confidence float64) DimensionScore {
	ds := DimensionScore{
		Dimension:  d.ID,
		Score:      score,
		Confidence: confidence,
	}
	if d.Continuous() {
		baseline := d.Baseline
		delta := score - baseline
		ds.Baseline = &baseline
		ds.Delta = &delta
	}
	return ds
}

func finite(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func nonBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// inputSnippet quotes the first EvidenceSnippetLen characters of the input.
func inputSnippet(input string) string {
	runes := []rune(input)
	if len(runes) > EvidenceSnippetLen {
		runes = runes[:EvidenceSnippetLen]
	}
	return `Input: "` + string(runes) + `"`
}

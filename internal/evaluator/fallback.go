package evaluator

import "github.com/jacksenechal/humanebench-eval/internal/schema"

// Fixed reason text carried by every dimension of a fallback record.
const (
	// FallbackHeadline marks a dimension scored without model input.
	FallbackHeadline = "Evaluation fallback"
	// FallbackRationale explains why the defaults were used.
	FallbackRationale = "Evaluation parse failed; baseline fallback used."
)

// Fallback builds a complete baseline record without any model input. It is
// used when the scoring call fails or its output cannot be parsed.
func Fallback(rawInputEvidence string, s *schema.Schema) Record {
	rec := Record{
		Scores:   make([]DimensionScore, 0, len(s.Dimensions)),
		Reasons:  make([]DimensionReason, 0, len(s.Dimensions)),
		Fallback: true,
	}
	values := make([]float64, 0, len(s.Dimensions))

	for _, d := range s.Dimensions {
		score := d.DefaultScore()
		rec.Scores = append(rec.Scores, newScore(d, score, DefaultConfidence))
		rec.Reasons = append(rec.Reasons, DimensionReason{
			Dimension: d.ID,
			Headline:  FallbackHeadline,
			Rationale: FallbackRationale,
			Evidence:  []string{rawInputEvidence},
		})
		values = append(values, score)
	}

	rec.Aggregate = s.Aggregate(values)
	return rec
}

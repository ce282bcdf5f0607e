package slack

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jacksenechal/humanebench-eval/internal/evaluator"
	"github.com/jacksenechal/humanebench-eval/internal/pipeline"
	"github.com/jacksenechal/humanebench-eval/internal/schema"
)

// Flag is one reason a turn was reported.
type Flag struct {
	Dimension string
	Label     string
	Score     float64
	Headline  string
}

// DefaultThreshold is the aggregate breach level used when none is configured.
func DefaultThreshold(s *schema.Schema) float64 {
	if s.HigherIsWorse {
		return 0.5
	}
	return 0
}

// Detect returns the dimensions of rec sitting at their quantized floor, and
// whether the aggregate crossed threshold in the schema's harmful direction.
// Fallback records are never reported.
func Detect(rec evaluator.Record, s *schema.Schema, threshold float64) (flags []Flag, breached bool) {
	if rec.Fallback {
		return nil, false
	}
	for i, sc := range rec.Scores {
		d, ok := s.Lookup(sc.Dimension)
		if !ok || d.Continuous() || len(d.Levels) == 0 {
			continue
		}
		if sc.Score <= slices.Min(d.Levels) {
			f := Flag{Dimension: d.ID, Label: d.Label, Score: sc.Score}
			if i < len(rec.Reasons) {
				f.Headline = rec.Reasons[i].Headline
			}
			flags = append(flags, f)
		}
	}
	if s.HigherIsWorse {
		return flags, rec.Aggregate > threshold
	}
	return flags, rec.Aggregate < threshold
}

// IncidentNotifier posts a Slack summary for turns that look harmful.
type IncidentNotifier struct {
	poster    *Poster
	schema    *schema.Schema
	threshold float64
}

var _ pipeline.Sink = (*IncidentNotifier)(nil)

// NewIncidentNotifier reports turns against s. A nil threshold uses DefaultThreshold.
func NewIncidentNotifier(p *Poster, s *schema.Schema, threshold *float64) *IncidentNotifier {
	t := DefaultThreshold(s)
	if threshold != nil {
		t = *threshold
	}
	return &IncidentNotifier{poster: p, schema: s, threshold: t}
}

func (n *IncidentNotifier) Export(ctx context.Context, evt pipeline.TurnEvent) error {
	flags, breached := Detect(evt.Eval, n.schema, n.threshold)
	if len(flags) == 0 && !breached {
		return nil
	}
	ts, err := n.poster.Post(ctx, formatIncident(evt, flags, breached, n.schema.HigherIsWorse, n.threshold), "session "+evt.SessionID+" · turn "+evt.TurnID)
	if err != nil {
		return fmt.Errorf("post incident: %w", err)
	}
	n.poster.logger.Info("posted incident to slack", "ts", ts, "session_id", evt.SessionID, "turn_id", evt.TurnID)
	return nil
}

func formatIncident(evt pipeline.TurnEvent, flags []Flag, breached, higherIsWorse bool, threshold float64) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Humaneness incident* (%s schema, evaluator %s)\n", evt.Schema, evt.EvalModel)
	fmt.Fprintf(&sb, "*Aggregate:* %.3f", evt.Eval.Aggregate)
	if breached {
		direction := "below"
		if higherIsWorse {
			direction = "above"
		}
		fmt.Fprintf(&sb, " (%s %.3f)", direction, threshold)
	}
	sb.WriteString("\n")

	if len(flags) > 0 {
		sb.WriteString("\n*Lowest-level dimensions:*\n")
		for _, f := range flags {
			fmt.Fprintf(&sb, "• %s: %+.1f", f.Label, f.Score)
			if f.Headline != "" {
				fmt.Fprintf(&sb, " · %s", f.Headline)
			}
			sb.WriteString("\n")
		}
	}

	if len(evt.Eval.GlobalViolations) > 0 {
		fmt.Fprintf(&sb, "\n*Violations:* %s\n", strings.Join(evt.Eval.GlobalViolations, "; "))
	}

	fmt.Fprintf(&sb, "\n*User:* %s\n*Assistant:* %s", truncate(evt.Input, 300), truncate(evt.Reply, 500))
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

package hermes

import (
	"context"
	"fmt"
	"time"

	"github.com/jacksenechal/humanebench-eval/internal/pipeline"
)

// SubjectTurnEvaluated carries one message per recorded turn.
const SubjectTurnEvaluated = "humanebench.turn.evaluated"

// TurnEvaluated is the bus representation of a recorded turn. Free text
// (input, reply, rationales) stays out of the event.
type TurnEvaluated struct {
	SessionID  string             `json:"session_id"`
	TurnID     string             `json:"turn_id"`
	MessageID  string             `json:"message_id"`
	Schema     string             `json:"schema"`
	EvalModel  string             `json:"eval_model"`
	Aggregate  float64            `json:"aggregate"`
	Fallback   bool               `json:"fallback"`
	Scores     map[string]float64 `json:"scores"`
	Violations []string           `json:"violations,omitempty"`
	ToneLabel  string             `json:"tone_label"`
	CreatedAt  time.Time          `json:"created_at"`
}

// NewTurnEvaluated flattens a pipeline event for publishing.
func NewTurnEvaluated(evt pipeline.TurnEvent) TurnEvaluated {
	scores := make(map[string]float64, len(evt.Eval.Scores))
	for _, s := range evt.Eval.Scores {
		scores[s.Dimension] = s.Score
	}
	return TurnEvaluated{
		SessionID:  evt.SessionID,
		TurnID:     evt.TurnID,
		MessageID:  evt.MessageID,
		Schema:     evt.Schema,
		EvalModel:  evt.EvalModel,
		Aggregate:  evt.Eval.Aggregate,
		Fallback:   evt.Eval.Fallback,
		Scores:     scores,
		Violations: evt.Eval.GlobalViolations,
		ToneLabel:  evt.ToneLabel,
		CreatedAt:  evt.CreatedAt,
	}
}

type publisher interface {
	Publish(subject string, data any) error
}

// TurnSink publishes every recorded turn on SubjectTurnEvaluated.
type TurnSink struct {
	pub publisher
}

var _ pipeline.Sink = (*TurnSink)(nil)

func NewTurnSink(c *Client) *TurnSink {
	return &TurnSink{pub: c}
}

func (s *TurnSink) Export(_ context.Context, evt pipeline.TurnEvent) error {
	if err := s.pub.Publish(SubjectTurnEvaluated, NewTurnEvaluated(evt)); err != nil {
		return fmt.Errorf("publish %s: %w", SubjectTurnEvaluated, err)
	}
	return nil
}

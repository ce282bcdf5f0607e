package pipeline

import (
	"context"
	"time"

	"github.com/jacksenechal/humanebench-eval/internal/evaluator"
)

// TurnEvent describes a completed turn to post-turn sinks.
type TurnEvent struct {
	SessionID  string           `json:"session_id"`
	TurnID     string           `json:"turn_id"`
	MessageID  string           `json:"message_id"`
	Schema     string           `json:"schema"`
	ChatModel  string           `json:"chat_model"`
	EvalModel  string           `json:"eval_model"`
	Input      string           `json:"input"`
	Reply      string           `json:"reply"`
	Eval       evaluator.Record `json:"eval"`
	CasualTone float64          `json:"casual_tone"`
	ToneLabel  string           `json:"tone_label"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Sink receives every completed turn. Exports run in the background after the
// response is returned; errors are logged and dropped.
type Sink interface {
	Export(ctx context.Context, evt TurnEvent) error
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(ctx context.Context, evt TurnEvent) error

func (f SinkFunc) Export(ctx context.Context, evt TurnEvent) error {
	return f(ctx, evt)
}

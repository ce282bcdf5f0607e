package evaluator

import (
	"context"
	"log/slog"
	"time"

	"github.com/jacksenechal/humanebench-eval/internal/conversation"
	"github.com/jacksenechal/humanebench-eval/internal/llm"
	"github.com/jacksenechal/humanebench-eval/internal/prompts"
	"github.com/jacksenechal/humanebench-eval/internal/schema"
)

// Scorer asks the evaluator model to score a reply and always returns a
// complete Record, degrading to Fallback on any failure.
type Scorer struct {
	llm     llm.Provider
	model   string
	schema  *schema.Schema
	timeout time.Duration
	logger  *slog.Logger
}

// NewScorer creates a Scorer. A zero timeout leaves the call bounded only by ctx.
func NewScorer(provider llm.Provider, model string, s *schema.Schema, timeout time.Duration, logger *slog.Logger) *Scorer {
	return &Scorer{llm: provider, model: model, schema: s, timeout: timeout, logger: logger}
}

// Schema returns the schema records are normalized against.
func (s *Scorer) Schema() *schema.Schema {
	return s.schema
}

// Model returns the evaluator model identifier.
func (s *Scorer) Model() string {
	return s.model
}

// Score evaluates reply in the context of history and input. The raw user
// input doubles as the evidence quoted when the model supplies none.
func (s *Scorer) Score(ctx context.Context, history []conversation.Message, input, reply string) Record {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	prompt := prompts.ScoringPrompt(s.schema, history, input, reply)

	start := time.Now()
	raw, err := s.llm.Generate(ctx, s.model, prompt)
	if err != nil {
		s.logger.Warn("scoring call failed, using fallback",
			"model", s.model,
			"status", llm.StatusCode(err),
			"elapsed", time.Since(start),
			"error", err,
		)
		return Fallback(input, s.schema)
	}

	parsed, ok := ExtractStructured(raw)
	if !ok {
		s.logger.Warn("failed to parse scoring response, using fallback",
			"model", s.model,
			"raw_len", len(raw),
		)
		s.logger.Debug("unparsed scoring response", "raw", raw)
		return Fallback(input, s.schema)
	}

	rec := Normalize(parsed, input, s.schema)
	s.logger.Info("scoring complete",
		"model", s.model,
		"schema", s.schema.Name,
		"entries", len(parsed.Entries()),
		"aggregate", rec.Aggregate,
		"elapsed", time.Since(start),
	)
	return rec
}

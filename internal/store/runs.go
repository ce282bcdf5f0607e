package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jacksenechal/humanebench-eval/internal/pipeline"
)

// WriteTurn archives one evaluated turn: a run row plus one evaluation row per
// dimension, in a single transaction.
func (s *Store) WriteTurn(ctx context.Context, evt pipeline.TurnEvent) (uuid.UUID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	violations := evt.Eval.GlobalViolations
	if violations == nil {
		violations = []string{}
	}

	runID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO evaluation_runs (id, session_id, turn_id, message_id, schema_name, chat_model, evaluator_model,
			user_prompt, ai_response, overall_score, fallback, global_violations, tone_label, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		runID, evt.SessionID, evt.TurnID, evt.MessageID, evt.Schema, evt.ChatModel, evt.EvalModel,
		evt.Input, evt.Reply, evt.Eval.Aggregate, evt.Eval.Fallback, violations, evt.ToneLabel, evt.CreatedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}

	for i, sc := range evt.Eval.Scores {
		var headline, rationale string
		evidence := []string{}
		if i < len(evt.Eval.Reasons) {
			r := evt.Eval.Reasons[i]
			headline, rationale = r.Headline, r.Rationale
			if r.Evidence != nil {
				evidence = r.Evidence
			}
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO evaluations (id, run_id, dimension, score, confidence, headline, rationale, evidence, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.New(), runID, sc.Dimension, sc.Score, sc.Confidence, headline, rationale, evidence, evt.CreatedAt,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert evaluation %s: %w", sc.Dimension, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}

// TurnSink archives every recorded turn.
type TurnSink struct {
	store *Store
}

var _ pipeline.Sink = (*TurnSink)(nil)

func NewTurnSink(s *Store) *TurnSink {
	return &TurnSink{store: s}
}

func (t *TurnSink) Export(ctx context.Context, evt pipeline.TurnEvent) error {
	_, err := t.store.WriteTurn(ctx, evt)
	return err
}

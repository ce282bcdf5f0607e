package evaluator

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jacksenechal/humanebench-eval/internal/conversation"
	"github.com/jacksenechal/humanebench-eval/internal/llm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type slowProvider struct{}

func (slowProvider) Generate(ctx context.Context, model, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestScore_Success(t *testing.T) {
	s := mustSchema(t, "principles")
	mock := &llm.Mock{Responses: map[string]string{
		"eval": "```json\n{\"scores\":[{\"principle\":\"respect_attention\",\"score\":-1,\"confidence\":0.8,\"headline\":\"Padding\",\"rationale\":\"Long detour\",\"evidence\":[\"...\"]}]}\n```",
	}}
	scorer := NewScorer(mock, "eval", s, time.Second, discardLogger())

	history := []conversation.Message{{Role: conversation.RoleUser, Content: "earlier"}}
	rec := scorer.Score(context.Background(), history, "hello", "hi there")
	assertComplete(t, rec, s)

	if rec.Fallback {
		t.Fatal("expected normalized record, got fallback")
	}
	if rec.Scores[0].Score != -1 || rec.Reasons[0].Headline != "Padding" {
		t.Errorf("unexpected first dimension: %+v %+v", rec.Scores[0], rec.Reasons[0])
	}

	calls := mock.Calls()
	if len(calls) != 1 || calls[0].Model != "eval" {
		t.Fatalf("expected one call to eval model, got %+v", calls)
	}
	if !strings.Contains(calls[0].Prompt, "Assistant: hi there") || !strings.Contains(calls[0].Prompt, "USER: earlier") {
		t.Errorf("expected scoring prompt with history and reply, got:\n%s", calls[0].Prompt)
	}
}

func TestScore_UnparseableFallsBack(t *testing.T) {
	s := mustSchema(t, "principles")
	mock := &llm.Mock{Responses: map[string]string{"eval": "I cannot comply."}}
	scorer := NewScorer(mock, "eval", s, time.Second, discardLogger())

	rec := scorer.Score(context.Background(), nil, "user input", "reply")
	assertComplete(t, rec, s)
	if !rec.Fallback {
		t.Fatal("expected fallback record")
	}
	for _, r := range rec.Reasons {
		if r.Headline != "Evaluation fallback" {
			t.Errorf("%s: expected fallback headline, got %q", r.Dimension, r.Headline)
		}
		if r.Evidence[0] != "user input" {
			t.Errorf("%s: expected raw input as evidence, got %v", r.Dimension, r.Evidence)
		}
	}
}

func TestScore_TransportErrorFallsBack(t *testing.T) {
	s := mustSchema(t, "risk")
	mock := &llm.Mock{Errors: map[string]error{
		"eval": &llm.StatusError{Provider: "gemini", Model: "eval", StatusCode: 500, Body: "boom"},
	}}
	scorer := NewScorer(mock, "eval", s, time.Second, discardLogger())

	rec := scorer.Score(context.Background(), nil, "x", "y")
	if !rec.Fallback {
		t.Fatal("expected fallback record on transport error")
	}
	assertComplete(t, rec, s)
}

func TestScore_TimeoutFallsBack(t *testing.T) {
	s := mustSchema(t, "risk")
	scorer := NewScorer(slowProvider{}, "eval", s, 20*time.Millisecond, discardLogger())

	start := time.Now()
	rec := scorer.Score(context.Background(), nil, "x", "y")
	if !rec.Fallback {
		t.Fatal("expected fallback record on timeout")
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("timeout not honoured, took %s", time.Since(start))
	}
}

func TestScore_CanceledContextFallsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scorer := NewScorer(&llm.Mock{}, "eval", mustSchema(t, "risk"), 0, discardLogger())

	if rec := scorer.Score(ctx, nil, "x", "y"); !rec.Fallback {
		t.Error("expected fallback on canceled context")
	}
}

func TestScore_MistypedFieldKeepsOtherEntries(t *testing.T) {
	s := mustSchema(t, "principles")
	mock := &llm.Mock{Responses: map[string]string{
		"eval": `{"scores":[
			{"dimension":"respect_attention","score":-1,"headline":"Engagement bait"},
			{"dimension":"accountability","score":"1.0","confidence":"high"}
		]}`,
	}}
	scorer := NewScorer(mock, "eval", s, time.Second, discardLogger())

	rec := scorer.Score(context.Background(), nil, "hello", "hi there")
	assertComplete(t, rec, s)

	if rec.Fallback {
		t.Fatal("expected normalized record, got fallback")
	}
	if rec.Scores[0].Score != -1 {
		t.Errorf("expected respect_attention -1 to survive, got %g", rec.Scores[0].Score)
	}
	var acc DimensionScore
	for _, sc := range rec.Scores {
		if sc.Dimension == "accountability" {
			acc = sc
		}
	}
	if acc.Score != 1 || acc.Confidence != DefaultConfidence {
		t.Errorf("expected accountability 1 with default confidence, got %+v", acc)
	}
}

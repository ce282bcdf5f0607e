package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jacksenechal/humanebench-eval/internal/evaluator"
	"github.com/jacksenechal/humanebench-eval/internal/llm"
	"github.com/jacksenechal/humanebench-eval/internal/schema"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRunner(t *testing.T, mock *llm.Mock, parallel int) (*Runner, *schema.Schema) {
	t.Helper()
	s, err := schema.Builtin("risk")
	if err != nil {
		t.Fatal(err)
	}
	scorer := evaluator.NewScorer(mock, "eval", s, time.Second, discardLogger())
	return NewRunner(mock, "chat", scorer, parallel, discardLogger()), s
}

func TestReadJSONL(t *testing.T) {
	in := `{"id":"a","input":"hello","reply":"hi"}

{"input":"no id","history":[{"role":"user","content":"earlier"}]}
`
	items, err := ReadJSONL(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	if diff := cmp.Diff([]string{"a", "line-3"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if len(items[1].History) != 1 || items[1].History[0].Content != "earlier" {
		t.Errorf("expected history to decode, got %+v", items[1].History)
	}
}

func TestReadJSONL_BadLine(t *testing.T) {
	_, err := ReadJSONL(strings.NewReader("{\"input\":\"ok\"}\n{broken\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line-numbered error, got %v", err)
	}
}

func TestRun(t *testing.T) {
	mock := &llm.Mock{
		Responses: map[string]string{
			"chat": "generated reply",
			"eval": `{"scores":[{"category":"malicious","score":0.9}]}`,
		},
	}
	r, _ := newRunner(t, mock, 3)

	items := []Item{
		{ID: "1", Input: "hello", Reply: "given reply"},
		{ID: "2", Input: "hey thanks, cool"},
		{ID: "3", Input: "   "},
	}
	results, err := r.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].ID != "1" || results[0].Reply != "given reply" {
		t.Errorf("expected supplied reply to be kept, got %+v", results[0])
	}
	if results[1].Reply != "generated reply" || results[1].ToneLabel != "casual" {
		t.Errorf("expected generated reply and casual tone, got %+v", results[1])
	}
	if results[0].Eval == nil || results[0].Eval.Scores[1].Score != 0.9 {
		t.Errorf("expected malicious 0.9, got %+v", results[0].Eval)
	}
	if results[2].Eval != nil || results[2].Err == "" {
		t.Errorf("expected blank input to be rejected, got %+v", results[2])
	}

	chatCalls := 0
	for _, c := range mock.Calls() {
		if c.Model == "chat" {
			chatCalls++
		}
	}
	if chatCalls != 1 {
		t.Errorf("expected exactly one reply generation, got %d", chatCalls)
	}
}

func TestRun_ReplyFailureIsPerItem(t *testing.T) {
	mock := &llm.Mock{Errors: map[string]error{"chat": errors.New("quota exceeded")}}
	r, _ := newRunner(t, mock, 2)

	results, err := r.Run(context.Background(), []Item{{ID: "x", Input: "hi"}, {ID: "y", Input: "hi", Reply: "ok"}})
	if err != nil {
		t.Fatalf("per-item failures must not abort the run: %v", err)
	}
	if !strings.Contains(results[0].Err, "quota exceeded") {
		t.Errorf("expected reply error on first item, got %+v", results[0])
	}
	if results[1].Eval == nil {
		t.Error("expected second item to be evaluated")
	}
}

func TestRun_Cancelled(t *testing.T) {
	r, _ := newRunner(t, &llm.Mock{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Run(ctx, []Item{{ID: "1", Input: "hi"}}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWriteTable(t *testing.T) {
	mock := &llm.Mock{Responses: map[string]string{"eval": `{"scores":[]}`}}
	r, s := newRunner(t, mock, 1)
	results, err := r.Run(context.Background(), []Item{
		{ID: "ok", Input: "hello", Reply: "hi"},
		{ID: "bad", Input: ""},
	})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteTable(&buf, s, results); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"malicious", "AGGREGATE", "+0.08", "error: input is required", "MEAN"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected table to contain %q, got:\n%s", want, out)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	rec := evaluator.Record{Aggregate: 0.5}
	if err := WriteJSON(&buf, []Result{{ID: "a", Eval: &rec}}); err != nil {
		t.Fatal(err)
	}
	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("expected valid JSON: %v", err)
	}
	if got[0]["id"] != "a" {
		t.Errorf("unexpected output %v", got)
	}
}

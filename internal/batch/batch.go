package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jacksenechal/humanebench-eval/internal/conversation"
	"github.com/jacksenechal/humanebench-eval/internal/evaluator"
	"github.com/jacksenechal/humanebench-eval/internal/llm"
	"github.com/jacksenechal/humanebench-eval/internal/prompts"
	"github.com/jacksenechal/humanebench-eval/internal/signals"
)

// maxLineBytes bounds a single JSONL record.
const maxLineBytes = 4 << 20

// Item is one prompt to evaluate. When Reply is empty the reply model
// generates one first.
type Item struct {
	ID      string                 `json:"id"`
	Input   string                 `json:"input"`
	Reply   string                 `json:"reply,omitempty"`
	History []conversation.Message `json:"history,omitempty"`
}

// Result is the evaluation of one Item. Err is set when the item could not be
// evaluated at all; scoring failures still yield a fallback record.
type Result struct {
	ID         string            `json:"id"`
	Input      string            `json:"input"`
	Reply      string            `json:"reply"`
	Eval       *evaluator.Record `json:"eval,omitempty"`
	CasualTone float64           `json:"casualTone"`
	ToneLabel  string            `json:"toneLabel"`
	Err        string            `json:"error,omitempty"`
}

// ReadJSONL decodes one Item per non-blank line. Items without an id are
// numbered by line.
func ReadJSONL(r io.Reader) ([]Item, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	var items []Item
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var it Item
		if err := json.Unmarshal([]byte(text), &it); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if it.ID == "" {
			it.ID = fmt.Sprintf("line-%d", line)
		}
		items = append(items, it)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return items, nil
}

// Runner evaluates items concurrently with bounded parallelism.
type Runner struct {
	llm       llm.Provider
	chatModel string
	scorer    *evaluator.Scorer
	parallel  int
	logger    *slog.Logger
}

func NewRunner(provider llm.Provider, chatModel string, scorer *evaluator.Scorer, parallel int, logger *slog.Logger) *Runner {
	if parallel < 1 {
		parallel = 1
	}
	return &Runner{llm: provider, chatModel: chatModel, scorer: scorer, parallel: parallel, logger: logger}
}

// Run evaluates every item and returns results in input order. Per-item
// failures are reported in Result.Err; only cancellation of ctx aborts the run.
func (r *Runner) Run(ctx context.Context, items []Item) ([]Result, error) {
	results := make([]Result, len(items))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = r.evaluate(gCtx, it)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (r *Runner) evaluate(ctx context.Context, it Item) Result {
	res := Result{ID: it.ID, Input: strings.TrimSpace(it.Input), Reply: it.Reply}
	if res.Input == "" {
		res.Err = "input is required"
		return res
	}

	if res.Reply == "" {
		reply, err := r.llm.Generate(ctx, r.chatModel, prompts.ReplyPrompt(it.History, res.Input))
		if err != nil {
			r.logger.Warn("batch reply failed", "id", it.ID, "status", llm.StatusCode(err), "error", err)
			res.Err = fmt.Sprintf("generate reply: %v", err)
			return res
		}
		res.Reply = reply
	}

	rec := r.scorer.Score(ctx, it.History, res.Input, res.Reply)
	res.Eval = &rec
	res.CasualTone = signals.Tone(it.History, res.Input)
	res.ToneLabel = signals.ToneLabel(res.CasualTone)
	return res
}

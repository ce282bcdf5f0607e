package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jacksenechal/humanebench-eval/internal/conversation"
	"github.com/jacksenechal/humanebench-eval/internal/evaluator"
	"github.com/jacksenechal/humanebench-eval/internal/llm"
	"github.com/jacksenechal/humanebench-eval/internal/prompts"
	"github.com/jacksenechal/humanebench-eval/internal/session"
	"github.com/jacksenechal/humanebench-eval/internal/signals"
	"github.com/jacksenechal/humanebench-eval/internal/telemetry"
)

var (
	ErrEmptyInput    = errors.New("input is required")
	ErrNotConfigured = errors.New("pipeline is missing a model provider")
)

// DefaultSinkTimeout bounds each background sink export.
const DefaultSinkTimeout = 10 * time.Second

// Request is one user message plus the prior conversation.
type Request struct {
	Input   string                 `json:"input"`
	History []conversation.Message `json:"history"`
}

type Tracking struct {
	CasualTone float64 `json:"casualTone"`
	ToneLabel  string  `json:"toneLabel"`
}

type TurnRef struct {
	TurnID    string `json:"turnId"`
	MessageID string `json:"messageId"`
}

// Response is the outcome of one turn.
type Response struct {
	SessionID      string           `json:"sessionId"`
	AssistantReply string           `json:"assistantReply"`
	Eval           evaluator.Record `json:"eval"`
	Tracking       Tracking         `json:"tracking"`
	Turn           TurnRef          `json:"turn"`
}

// Exporter forwards turns to an external evaluation service.
type Exporter interface {
	Go(ctx context.Context, p telemetry.Payload)
	Wait()
}

type namedSink struct {
	name string
	sink Sink
}

// Pipeline runs the reply, score and record cycle for each user message.
type Pipeline struct {
	llm       llm.Provider
	chatModel string
	scorer    *evaluator.Scorer
	sessions  *session.Registry
	telemetry Exporter
	logger    *slog.Logger

	sinks       []namedSink
	sinkTimeout time.Duration
	wg          sync.WaitGroup
}

func New(provider llm.Provider, chatModel string, scorer *evaluator.Scorer, sessions *session.Registry, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		llm:         provider,
		chatModel:   chatModel,
		scorer:      scorer,
		sessions:    sessions,
		logger:      logger,
		sinkTimeout: DefaultSinkTimeout,
	}
}

// SetTelemetry enables per-turn export to an external evaluation service.
func (p *Pipeline) SetTelemetry(e Exporter) {
	p.telemetry = e
}

// AddSink registers a post-turn sink. Not safe to call once Run is in use.
func (p *Pipeline) AddSink(name string, s Sink) {
	p.sinks = append(p.sinks, namedSink{name: name, sink: s})
}

// Sessions exposes the registry for read-side endpoints.
func (p *Pipeline) Sessions() *session.Registry {
	return p.sessions
}

// Run processes one user message within sessionID. An empty sessionID starts
// a new session. A session that does not exist yet is only created once the
// reply succeeds, so failed turns leave nothing behind.
//
// Turns of an existing session are serialised end to end. The first turns of
// a new id may generate replies concurrently; scoring and recording are
// serialised either way.
func (p *Pipeline) Run(ctx context.Context, sessionID string, req Request) (Response, error) {
	input := strings.TrimSpace(req.Input)
	if input == "" {
		return Response{}, ErrEmptyInput
	}
	if p.llm == nil || p.scorer == nil || p.sessions == nil {
		return Response{}, ErrNotConfigured
	}

	var sess *session.Session
	if sessionID != "" {
		if existing, err := p.sessions.Get(sessionID); err == nil {
			sess = existing
			unlock := sess.LockTurn()
			defer unlock()
		}
	}

	history := req.History
	log := p.logger.With("session_id", sessionID)

	reply, err := p.llm.Generate(ctx, p.chatModel, prompts.ReplyPrompt(history, input))
	if err != nil {
		log.Error("reply generation failed", "model", p.chatModel, "status", llm.StatusCode(err), "error", err)
		return Response{}, fmt.Errorf("generate reply: %w", err)
	}

	if sess == nil {
		if sessionID == "" {
			sess = p.sessions.Create()
		} else {
			sess = p.sessions.GetOrCreate(sessionID)
		}
		unlock := sess.LockTurn()
		defer unlock()
		log = p.logger.With("session_id", sess.ID)
	}

	if p.telemetry != nil {
		p.telemetry.Go(ctx, telemetry.NewPayload(sess.ID, p.chatModel, input, reply, history))
	}

	rec := p.scorer.Score(ctx, history, input, reply)
	tone := signals.Tone(history, input)

	turn := sess.Record(sess.NextTurnID(), uuid.NewString(), rec)

	log.Info("turn recorded",
		"turn_id", turn.TurnID,
		"aggregate", rec.Aggregate,
		"fallback", rec.Fallback,
		"casual_tone", tone,
	)

	p.dispatch(ctx, TurnEvent{
		SessionID:  sess.ID,
		TurnID:     turn.TurnID,
		MessageID:  turn.MessageID,
		Schema:     p.scorer.Schema().Name,
		ChatModel:  p.chatModel,
		EvalModel:  p.scorer.Model(),
		Input:      input,
		Reply:      reply,
		Eval:       turn.Eval,
		CasualTone: tone,
		ToneLabel:  signals.ToneLabel(tone),
		CreatedAt:  turn.CreatedAt,
	})

	return Response{
		SessionID:      sess.ID,
		AssistantReply: reply,
		Eval:           turn.Eval,
		Tracking:       Tracking{CasualTone: tone, ToneLabel: signals.ToneLabel(tone)},
		Turn:           TurnRef{TurnID: turn.TurnID, MessageID: turn.MessageID},
	}, nil
}

func (p *Pipeline) dispatch(ctx context.Context, evt TurnEvent) {
	ctx = context.WithoutCancel(ctx)
	for _, s := range p.sinks {
		p.wg.Add(1)
		go func(s namedSink) {
			defer p.wg.Done()
			sctx, cancel := context.WithTimeout(ctx, p.sinkTimeout)
			defer cancel()
			if err := s.sink.Export(sctx, evt); err != nil {
				p.logger.Warn("sink export failed",
					"sink", s.name,
					"session_id", evt.SessionID,
					"turn_id", evt.TurnID,
					"error", err,
				)
			}
		}(s)
	}
}

// Wait blocks until in-flight sink and telemetry exports finish.
func (p *Pipeline) Wait() {
	p.wg.Wait()
	if p.telemetry != nil {
		p.telemetry.Wait()
	}
}

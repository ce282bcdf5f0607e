package session

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jacksenechal/humanebench-eval/internal/evaluator"
)

// Turn is one completed request/reply/evaluation cycle. Immutable once recorded.
type Turn struct {
	TurnID    string           `json:"turnId"`
	MessageID string           `json:"messageId"`
	Eval      evaluator.Record `json:"eval"`
	CreatedAt time.Time        `json:"createdAt"`
}

// TrendPoint is one charting sample: a turn label and its aggregate score.
type TrendPoint struct {
	Label     string  `json:"label"`
	Aggregate float64 `json:"aggregate"`
}

// Accumulator owns a session's append-only turn history.
type Accumulator struct {
	mu       sync.RWMutex
	turns    []Turn
	recorded int
	maxTurns int
	now      func() time.Time
}

// NewAccumulator creates an empty history. maxTurns > 0 keeps only the most
// recent maxTurns turns; 0 keeps everything.
func NewAccumulator(maxTurns int) *Accumulator {
	return &Accumulator{maxTurns: maxTurns, now: time.Now}
}

// NextTurnID returns the identifier the next recorded turn should use.
func (a *Accumulator) NextTurnID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return fmt.Sprintf("t-%d", a.recorded+1)
}

// Record appends a turn built from rec and returns it.
func (a *Accumulator) Record(turnID, messageID string, rec evaluator.Record) Turn {
	turn := Turn{
		TurnID:    turnID,
		MessageID: messageID,
		Eval:      cloneRecord(rec),
		CreatedAt: a.now().UTC(),
	}

	a.mu.Lock()
	a.turns = append(a.turns, turn)
	a.recorded++
	if a.maxTurns > 0 && len(a.turns) > a.maxTurns {
		a.turns = slices.Clone(a.turns[len(a.turns)-a.maxTurns:])
	}
	a.mu.Unlock()

	return cloneTurn(turn)
}

// Latest returns the most recently recorded turn.
func (a *Accumulator) Latest() (Turn, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.turns) == 0 {
		return Turn{}, false
	}
	return cloneTurn(a.turns[len(a.turns)-1]), true
}

// Trend returns (label, aggregate) pairs in recording order.
func (a *Accumulator) Trend() []TrendPoint {
	a.mu.RLock()
	defer a.mu.RUnlock()
	points := make([]TrendPoint, len(a.turns))
	for i, t := range a.turns {
		points[i] = TrendPoint{Label: t.TurnID, Aggregate: t.Eval.Aggregate}
	}
	return points
}

// Turns returns a copy of the retained history.
func (a *Accumulator) Turns() []Turn {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Turn, len(a.turns))
	for i, t := range a.turns {
		out[i] = cloneTurn(t)
	}
	return out
}

// Len returns the number of retained turns.
func (a *Accumulator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.turns)
}

func cloneTurn(t Turn) Turn {
	t.Eval = cloneRecord(t.Eval)
	return t
}

func cloneRecord(r evaluator.Record) evaluator.Record {
	r.Scores = slices.Clone(r.Scores)
	for i, s := range r.Scores {
		if s.Baseline != nil {
			b := *s.Baseline
			r.Scores[i].Baseline = &b
		}
		if s.Delta != nil {
			d := *s.Delta
			r.Scores[i].Delta = &d
		}
	}
	r.Reasons = slices.Clone(r.Reasons)
	for i := range r.Reasons {
		r.Reasons[i].Evidence = slices.Clone(r.Reasons[i].Evidence)
	}
	r.GlobalViolations = slices.Clone(r.GlobalViolations)
	return r
}

package llm

import (
	"context"
	"sync"
)

var mockReplies = []string{
	"That is interesting. Want me to break it down further?",
	"I can help with that. Tell me your preferred approach.",
	"Good direction. We can test this with a safer variant first.",
	"I see the context. I will keep this concise and practical.",
}

// Call records one Generate invocation on a Mock.
type Call struct {
	Model  string
	Prompt string
}

// Mock is a deterministic in-process Provider. Without overrides it answers
// every prompt with a canned reply chosen by prompt length.
type Mock struct {
	// Responses fixes the output per model.
	Responses map[string]string
	// Errors makes Generate fail per model. Checked before Responses.
	Errors map[string]error

	mu    sync.Mutex
	calls []Call
}

func (m *Mock) Generate(ctx context.Context, model, prompt string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Model: model, Prompt: prompt})
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err, ok := m.Errors[model]; ok {
		return "", err
	}
	if r, ok := m.Responses[model]; ok {
		return r, nil
	}
	return mockReplies[len(prompt)%len(mockReplies)], nil
}

// Calls returns a copy of every call made so far.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

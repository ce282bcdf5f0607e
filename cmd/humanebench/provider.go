package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jacksenechal/humanebench-eval/internal/anthropic"
	"github.com/jacksenechal/humanebench-eval/internal/config"
	"github.com/jacksenechal/humanebench-eval/internal/gemini"
	"github.com/jacksenechal/humanebench-eval/internal/llm"
	"github.com/jacksenechal/humanebench-eval/internal/schema"
)

// providerHTTPTimeout bounds any single upstream call, including reply
// generation which has no timeout of its own.
const providerHTTPTimeout = 90 * time.Second

func newProvider(cfg config.Config, s *schema.Schema) (llm.Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return gemini.NewClient(cfg.GeminiAPIKey, providerHTTPTimeout), nil
	case config.ProviderAnthropic:
		return anthropic.NewClient(cfg.AnthropicAPIKey, providerHTTPTimeout), nil
	case config.ProviderMock:
		canned, err := cannedScoring(s)
		if err != nil {
			return nil, err
		}
		return &llm.Mock{Responses: map[string]string{cfg.EvalModel: canned}}, nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

// cannedScoring is the mock evaluator's answer: every dimension at its
// default, so offline runs exercise the normal parse path.
func cannedScoring(s *schema.Schema) (string, error) {
	type entry struct {
		Dimension  string   `json:"dimension"`
		Score      float64  `json:"score"`
		Confidence float64  `json:"confidence"`
		Headline   string   `json:"headline"`
		Rationale  string   `json:"rationale"`
		Evidence   []string `json:"evidence"`
	}
	entries := make([]entry, len(s.Dimensions))
	for i, d := range s.Dimensions {
		entries[i] = entry{
			Dimension:  d.ID,
			Score:      d.DefaultScore(),
			Confidence: 0.5,
			Headline:   d.Label + " unchanged",
			Rationale:  "Offline mock evaluator; no model judgement.",
			Evidence:   []string{"mock"},
		}
	}
	data, err := json.Marshal(map[string]any{"scores": entries})
	if err != nil {
		return "", fmt.Errorf("build mock scoring response: %w", err)
	}
	return "```json\n" + string(data) + "\n```", nil
}

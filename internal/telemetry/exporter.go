package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jacksenechal/humanebench-eval/internal/conversation"
)

// HistoryWindow is how many trailing messages accompany each export.
const HistoryWindow = 8

// HistoryEntry is the role/content pair the evaluation service expects.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Payload is the body POSTed to the external evaluation service.
type Payload struct {
	UserPrompt     string         `json:"user_prompt"`
	AIResponse     string         `json:"ai_response"`
	Model          string         `json:"model"`
	ConversationID string         `json:"conversation_id"`
	History        []HistoryEntry `json:"history"`
}

// NewPayload builds an export body, keeping only the last HistoryWindow messages.
func NewPayload(conversationID, model, input, reply string, history []conversation.Message) Payload {
	tail := conversation.Tail(history, HistoryWindow)
	entries := make([]HistoryEntry, len(tail))
	for i, m := range tail {
		entries[i] = HistoryEntry{Role: string(m.Role), Content: m.Content}
	}
	return Payload{
		UserPrompt:     input,
		AIResponse:     reply,
		Model:          model,
		ConversationID: conversationID,
		History:        entries,
	}
}

// Exporter forwards turns to an external evaluation service. Delivery is
// best effort: failures are logged and never reach the caller.
type Exporter struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewExporter posts to baseURL + "/evaluate".
func NewExporter(baseURL string, timeout time.Duration, logger *slog.Logger) *Exporter {
	return &Exporter{
		endpoint: strings.TrimRight(baseURL, "/") + "/evaluate",
		timeout:  timeout,
		client:   &http.Client{},
		logger:   logger,
	}
}

// Go sends p in the background. The request is detached from ctx's
// cancellation so a finished HTTP request does not abort the export.
func (e *Exporter) Go(ctx context.Context, p Payload) {
	ctx = context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.Send(ctx, p); err != nil {
			e.logger.Debug("telemetry export failed", "conversation_id", p.ConversationID, "error", err)
		}
	}()
}

// Wait blocks until exports started by Go have finished.
func (e *Exporter) Wait() {
	e.wg.Wait()
}

// Send posts p synchronously, bounded by the exporter timeout.
func (e *Exporter) Send(ctx context.Context, p Payload) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("post telemetry: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telemetry endpoint returned %d", resp.StatusCode)
	}
	return nil
}

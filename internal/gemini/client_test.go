package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jacksenechal/humanebench-eval/internal/llm"
)

func TestGenerate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-test:generateContent" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "k&y" {
			t.Errorf("expected escaped api key, got %q", r.URL.Query().Get("key"))
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "hello" {
			t.Errorf("unexpected contents: %+v", req.Contents)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "hi "}, {"text": "there "}}}},
			},
		})
	}))
	defer server.Close()

	c := NewClient("k&y", 5*time.Second)
	c.SetBaseURL(server.URL + "/models/")

	got, err := c.Generate(context.Background(), "gemini-test", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hi \nthere" {
		t.Errorf("expected joined parts, got %q", got)
	}
}

func TestGenerate_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	c := NewClient("k", 5*time.Second)
	c.SetBaseURL(server.URL + "/")

	got, err := c.Generate(context.Background(), "m", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestGenerate_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("overloaded"))
	}))
	defer server.Close()

	c := NewClient("k", 5*time.Second)
	c.SetBaseURL(server.URL + "/")

	_, err := c.Generate(context.Background(), "m", "hello")
	if err == nil {
		t.Fatal("expected error for 503")
	}
	if llm.StatusCode(err) != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d (%v)", llm.StatusCode(err), err)
	}
}

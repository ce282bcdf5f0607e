package llm

import (
	"context"
	"errors"
	"fmt"
)

// Provider generates text from a prompt with the named model.
type Provider interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// StatusError is returned when an upstream model API answers with a non-success status.
type StatusError struct {
	Provider   string
	Model      string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s error (%d): %s", e.Provider, e.Model, e.StatusCode, e.Body)
}

// StatusCode extracts the upstream HTTP status from err, or 0 if err carries none.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

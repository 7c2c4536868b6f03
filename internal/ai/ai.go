// Package ai defines the text generator contract used when the catalog has no answer.
package ai

import (
	"context"
	"errors"
	"fmt"
)

// Role of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Generator turns a conversation into a reply text.
type Generator interface {
	Generate(ctx context.Context, conversation []Message) (string, error)
	Model() string
}

// ErrEmptyResponse is returned when a model answers without any text.
var ErrEmptyResponse = errors.New("model returned empty response")

// Error classifies a generator failure. Retryable failures (rate limits,
// overloaded backends) may succeed with another model.
type Error struct {
	Model     string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Model, kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a retryable generator failure.
func IsRetryable(err error) bool {
	var aiErr *Error
	if errors.As(err, &aiErr) {
		return aiErr.Retryable
	}
	return false
}

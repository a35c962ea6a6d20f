package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/casualjim/hoot/messages"
	"github.com/google/uuid"
)

var (
	// ErrEmptyResponse is returned when a backend answers without any text.
	ErrEmptyResponse = errors.New("provider returned an empty response")
	// ErrMissingCredentials is returned when a backend that needs an API key has none.
	ErrMissingCredentials = errors.New("missing API credentials")
	// ErrEmptyMessage is returned when a request carries no current message.
	ErrEmptyMessage = errors.New("completion request has no message")
)

// Provider defines the contract for language-model backends. Implementations must be
// safe for concurrent use.
type Provider interface {
	// Name identifies the backend in logs and errors.
	Name() string
	// Generate produces the model's reply for a single request.
	Generate(context.Context, CompletionParams) (string, error)
}

// CompletionParams encapsulates everything a backend needs for one generation.
type CompletionParams struct {
	// RunID identifies the conversation turn this request belongs to
	RunID uuid.UUID

	// Instructions is the system prompt
	Instructions string

	// Message is the text the model should respond to
	Message string

	// History holds prior turns, oldest first
	History []messages.Turn

	// Prevents unkeyed literals
	_ struct{}
}

// Validate checks the request before it goes over the wire.
func (p CompletionParams) Validate() error {
	if strings.TrimSpace(p.Message) == "" {
		return ErrEmptyMessage
	}
	return nil
}

// Error wraps a backend failure with the backend and model that produced it.
type Error struct {
	Provider string
	Model    string
	Err      error
}

func (e *Error) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Provider, e.Model, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns err annotated with the backend name and model. A nil err stays nil.
func Wrap(name, model string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Provider: name, Model: model, Err: err}
}

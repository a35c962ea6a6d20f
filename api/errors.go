package api

import (
	"errors"
	"fmt"
)

// Kind classifies failures that propagate out of a respond call.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInput is a rejected user input, e.g. an empty message.
	KindInput
	// KindConfig is a missing or unsupported model provider, or any other
	// misconfiguration detected before the first model call.
	KindConfig
	// KindProvider is a failed, empty or malformed model response.
	KindProvider
	// KindStorage is a transcript read or write failure.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindConfig:
		return "configuration"
	case KindProvider:
		return "provider"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyMessage        = errors.New("message cannot be empty")
	ErrMissingProvider     = errors.New("model provider not specified")
	ErrUnsupportedProvider = errors.New("unsupported model provider")
)

// Error is a typed failure of a respond call.
type Error struct {
	Kind           Kind
	ConversationID string
	// Iteration is the 1-based loop iteration, 0 when the failure happened
	// before the loop started.
	Iteration int
	Err       error
}

func (e *Error) Error() string {
	if e.Iteration > 0 {
		return fmt.Sprintf("%s error (conversation %s, iteration %d): %v", e.Kind, e.ConversationID, e.Iteration, e.Err)
	}
	if e.ConversationID != "" {
		return fmt.Sprintf("%s error (conversation %s): %v", e.Kind, e.ConversationID, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a kind. A nil err yields nil.
func NewError(kind Kind, conversationID string, iteration int, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, ConversationID: conversationID, Iteration: iteration, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/casualjim/hoot/messages"
)

// ErrEmptyConversationID is returned when an operation is called without a
// conversation id.
var ErrEmptyConversationID = errors.New("conversation id is required")

// Store persists conversation transcripts. Implementations must be safe for
// concurrent use.
type Store interface {
	// Append stores t at the end of the conversation and returns it with Seq set.
	// A zero Timestamp is replaced by the current time.
	Append(ctx context.Context, conversationID string, t messages.Turn) (messages.Turn, error)
	// Tail returns the last limit turns, oldest first. limit <= 0 returns everything.
	Tail(ctx context.Context, conversationID string, limit int) ([]messages.Turn, error)
	// List returns the whole transcript, oldest first.
	List(ctx context.Context, conversationID string) ([]messages.Turn, error)
	// Clear removes one conversation.
	Clear(ctx context.Context, conversationID string) error
	// ClearAll removes every conversation.
	ClearAll(ctx context.Context) error
	// Close releases the underlying resources.
	Close() error
}

// Error is a storage failure annotated with the operation and conversation.
type Error struct {
	Op             string
	ConversationID string
	Err            error
}

func (e *Error) Error() string {
	if e.ConversationID == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s [%s]: %v", e.Op, e.ConversationID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap annotates err with op and conversationID. A nil err stays nil.
func Wrap(op, conversationID string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, ConversationID: conversationID, Err: err}
}

// CheckID validates a conversation id for op.
func CheckID(op, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return Wrap(op, conversationID, ErrEmptyConversationID)
	}
	return nil
}

// TailOf returns the last limit elements of turns. limit <= 0 returns all of them.
func TailOf(turns []messages.Turn, limit int) []messages.Turn {
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns
}

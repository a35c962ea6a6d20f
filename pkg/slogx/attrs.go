package slogx

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

const (
	// KeyLoggerName is the key for the logger name attribute.
	KeyLoggerName = "logger"

	KeyConversation = "conversation_id"
	KeyRun          = "run_id"
	KeyIteration    = "iteration"
	KeyTool         = "tool"
)

// Error returns a slog.Attr representing the provided error.
// The attribute key is "error" and the value is the error's message.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// Stringer creates a slog.Attr with the string representation of value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

// LoggerName creates a slog.Attr with the provided logger name.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// Conversation tags a record with the conversation it belongs to.
func Conversation(id string) slog.Attr {
	return slog.String(KeyConversation, id)
}

// Run tags a record with the id of a single respond invocation.
func Run(id uuid.UUID) slog.Attr {
	return slog.String(KeyRun, id.String())
}

// Iteration tags a record with the 1-based loop iteration.
func Iteration(n int) slog.Attr {
	return slog.Int(KeyIteration, n)
}

// Tool tags a record with a tool name.
func Tool(name string) slog.Attr {
	return slog.String(KeyTool, name)
}

package executor

import (
	"errors"
	"strings"

	"github.com/casualjim/hoot/being"
	"github.com/casualjim/hoot/events"
	"github.com/google/uuid"
)

const (
	// DefaultMaxIterations bounds the model calls of one turn.
	DefaultMaxIterations = 5
	// DefaultHistoryLimit bounds the persisted turns sent to the model.
	DefaultHistoryLimit = 20
)

// NewRunCommand creates a command for one turn. An empty conversationID falls
// back to the being's context id.
func NewRunCommand(conversationID string, b *being.Being, message string) (RunCommand, error) {
	var err error
	if b == nil {
		err = errors.Join(err, errors.New("being is required"))
	}
	if strings.TrimSpace(conversationID) == "" && b != nil {
		conversationID = b.ContextID
	}
	if strings.TrimSpace(conversationID) == "" {
		err = errors.Join(err, errors.New("conversation id is required"))
	}
	if err != nil {
		return RunCommand{}, err
	}

	return RunCommand{
		id:             uuid.Must(uuid.NewV7()),
		ConversationID: conversationID,
		Being:          b,
		Message:        message,
		MaxIterations:  DefaultMaxIterations,
		HistoryLimit:   DefaultHistoryLimit,
	}, nil
}

type RunCommand struct {
	id               uuid.UUID
	ConversationID   string
	Being            *being.Being
	Message          string
	RetrievalContext string
	MaxIterations    int
	HistoryLimit     int
	Hook             events.Hook
}

// Validate checks the structural requirements of the command. The message is
// checked by Run so that an empty one surfaces as an input error.
func (r *RunCommand) Validate() error {
	var err error
	if r.Being == nil {
		err = errors.Join(err, errors.New("being cannot be nil"))
	}
	if strings.TrimSpace(r.ConversationID) == "" {
		err = errors.Join(err, errors.New("conversation id cannot be empty"))
	}
	if r.MaxIterations < 1 {
		err = errors.Join(err, errors.New("max iterations must be at least 1"))
	}
	return err
}

func (r *RunCommand) ID() uuid.UUID {
	if r.id == uuid.Nil {
		r.id = uuid.Must(uuid.NewV7())
	}
	return r.id
}

func (r RunCommand) WithRetrievalContext(text string) RunCommand {
	r.RetrievalContext = text
	return r
}

func (r RunCommand) WithMaxIterations(n int) RunCommand {
	r.MaxIterations = n
	return r
}

func (r RunCommand) WithHistoryLimit(n int) RunCommand {
	r.HistoryLimit = n
	return r
}

func (r RunCommand) WithHook(hook events.Hook) RunCommand {
	r.Hook = hook
	return r
}

func (r *RunCommand) hook() events.Hook {
	if r.Hook == nil {
		return events.NopHook{}
	}
	return r.Hook
}

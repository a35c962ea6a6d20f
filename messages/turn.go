package messages

import (
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// Turn is one entry in a conversation transcript.
type Turn struct {
	// Seq is the insertion sequence assigned when the turn is persisted.
	// Turns that only live in a working history have Seq 0.
	Seq       uint64          `json:"seq,omitempty"`
	Role      Role            `json:"role"`
	Content   string          `json:"content"`
	ToolName  string          `json:"tool_name,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

// New creates a turn stamped with the current time.
func New(role Role, content string) Turn {
	return Turn{
		Role:      role,
		Content:   content,
		Timestamp: strfmt.DateTime(time.Now()),
	}
}

func User(content string) Turn      { return New(RoleUser, content) }
func Assistant(content string) Turn { return New(RoleAssistant, content) }
func System(content string) Turn    { return New(RoleSystem, content) }

// Tool creates a tool-role turn carrying the text rendering of a tool result.
func Tool(name, content string) Turn {
	t := New(RoleTool, content)
	t.ToolName = name
	return t
}

// Time returns the creation time of the turn.
func (t Turn) Time() time.Time { return time.Time(t.Timestamp) }

// Before reports whether t was created before o. Persisted turns are ordered
// by their store sequence; the timestamp only orders turns without one.
func (t Turn) Before(o Turn) bool {
	if t.Seq > 0 && o.Seq > 0 {
		return t.Seq < o.Seq
	}
	ta, tb := t.Time(), o.Time()
	if !ta.Equal(tb) {
		return ta.Before(tb)
	}
	return t.Seq < o.Seq
}

// Validate checks that the turn can be persisted.
func (t Turn) Validate() error {
	if !t.Role.Valid() {
		return fmt.Errorf("invalid role %q", t.Role)
	}
	if t.Role == RoleTool && t.ToolName == "" {
		return fmt.Errorf("tool turn without tool name")
	}
	return nil
}

func (t Turn) String() string {
	if t.Role == RoleTool {
		return fmt.Sprintf("%s(%s): %s", t.Role, t.ToolName, t.Content)
	}
	return fmt.Sprintf("%s: %s", t.Role, t.Content)
}

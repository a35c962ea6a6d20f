package events

import (
	"fmt"
	"time"

	"github.com/casualjim/hoot/messages"
	"github.com/go-openapi/strfmt"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Event type markers used in the JSON envelope.
const (
	TypeTurnAppended   = "turn_appended"
	TypeToolDispatched = "tool_dispatched"
	TypeLoopDetected   = "loop_detected"
	TypeCompleted      = "completed"
	TypeFailed         = "failed"
)

// Event is implemented by the event types of this package only.
type Event interface {
	Type() string
	Metadata() Meta
	isEvent()
}

// Meta is shared by every event.
type Meta struct {
	RunID          uuid.UUID       `json:"run_id"`
	ConversationID string          `json:"conversation_id"`
	Timestamp      strfmt.DateTime `json:"timestamp"`
}

// NewMeta stamps a Meta with the current time.
func NewMeta(runID uuid.UUID, conversationID string) Meta {
	return Meta{RunID: runID, ConversationID: conversationID, Timestamp: strfmt.DateTime(time.Now())}
}

func (m Meta) Metadata() Meta { return m }

// TurnAppended reports a turn added to the working history.
type TurnAppended struct {
	Meta
	Iteration int           `json:"iteration"`
	Turn      messages.Turn `json:"turn"`
}

// ToolDispatched reports one tool invocation and its rendered result.
type ToolDispatched struct {
	Meta
	Iteration int           `json:"iteration"`
	Tool      string        `json:"tool"`
	Arguments string        `json:"arguments"`
	Result    string        `json:"result"`
	Failed    bool          `json:"failed,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// LoopDetected reports that the circuit breaker tripped.
type LoopDetected struct {
	Meta
	Iteration     int    `json:"iteration"`
	Signature     string `json:"signature"`
	Repeats       int    `json:"repeats"`
	Clarification string `json:"clarification"`
}

// Completed reports the final reply of a turn.
type Completed struct {
	Meta
	Iterations int    `json:"iterations"`
	Text       string `json:"text"`
	Exhausted  bool   `json:"exhausted,omitempty"`
}

// Failed reports an aborted turn.
type Failed struct {
	Meta
	Iteration int    `json:"iteration"`
	Kind      string `json:"kind"`
	Error     string `json:"error"`
}

func (TurnAppended) Type() string   { return TypeTurnAppended }
func (ToolDispatched) Type() string { return TypeToolDispatched }
func (LoopDetected) Type() string   { return TypeLoopDetected }
func (Completed) Type() string      { return TypeCompleted }
func (Failed) Type() string         { return TypeFailed }

func (TurnAppended) isEvent()   {}
func (ToolDispatched) isEvent() {}
func (LoopDetected) isEvent()   {}
func (Completed) isEvent()      {}
func (Failed) isEvent()         {}

// ToJSON encodes ev in a {"type": ..., "event": ...} envelope.
func ToJSON(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("nil event")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", ev.Type(), err)
	}
	out, err := sjson.SetBytes([]byte(`{}`), "type", ev.Type())
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(out, "event", payload)
}

// FromJSON decodes an envelope produced by ToJSON.
func FromJSON(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid event json")
	}
	typ := gjson.GetBytes(data, "type")
	if !typ.Exists() {
		return nil, fmt.Errorf("missing event type")
	}
	raw := gjson.GetBytes(data, "event")
	if !raw.Exists() || !raw.IsObject() {
		return nil, fmt.Errorf("missing event payload")
	}

	switch typ.String() {
	case TypeTurnAppended:
		return decode[TurnAppended](raw.Raw)
	case TypeToolDispatched:
		return decode[ToolDispatched](raw.Raw)
	case TypeLoopDetected:
		return decode[LoopDetected](raw.Raw)
	case TypeCompleted:
		return decode[Completed](raw.Raw)
	case TypeFailed:
		return decode[Failed](raw.Raw)
	default:
		return nil, fmt.Errorf("unknown event type %q", typ.String())
	}
}

func decode[T Event](raw string) (Event, error) {
	var ev T
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", ev.Type(), err)
	}
	return ev, nil
}

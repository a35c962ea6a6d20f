package executor

import (
	"strconv"
	"strings"

	"github.com/casualjim/hoot/internal/shorttermmemory"
	"github.com/casualjim/hoot/messages"
	"github.com/casualjim/hoot/toolcall"
)

// Clarification replaces the current message when the repeat breaker trips.
const Clarification = "I seem to be repeating the same tool call without making progress. Could you clarify what you need?"

// maxRepeats is the number of identical consecutive single calls that are still
// dispatched.
const maxRepeats = 2

// orchestration is the per-turn state. It is owned by a single Run call.
type orchestration struct {
	original      string
	current       string
	history       *shorttermmemory.Aggregator
	lastSignature toolcall.Signature
	repeatCount   int
	toolResults   []string
	iterations    int
	lastText      string
}

func newOrchestration(message string, persisted []messages.Turn) *orchestration {
	return &orchestration{
		original: message,
		current:  message,
		history:  shorttermmemory.New(persisted...),
	}
}

// observe records a single-call signature and reports whether the call repeats
// too often to be dispatched again.
func (o *orchestration) observe(sig toolcall.Signature) bool {
	if !o.lastSignature.IsZero() && sig == o.lastSignature {
		o.repeatCount++
	} else {
		o.lastSignature = sig
		o.repeatCount = 1
	}
	return o.repeatCount > maxRepeats
}

// resetStreak forgets the last single call; a batch breaks a repeat streak.
func (o *orchestration) resetStreak() {
	o.lastSignature = toolcall.Signature{}
	o.repeatCount = 0
}

// synthesize builds the follow-up message from the original request and every
// tool result gathered so far in this turn.
func (o *orchestration) synthesize() string {
	var b strings.Builder
	b.WriteString("The user asked: ")
	b.WriteString(o.original)
	b.WriteString("\n\nTool results so far:\n")
	for i, r := range o.toolResults {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(r)
		b.WriteByte('\n')
	}
	b.WriteString("\nUsing these results, answer the user's request. If you still need information, call another tool.")
	return b.String()
}

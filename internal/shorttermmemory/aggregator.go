package shorttermmemory

import (
	"iter"
	"slices"

	"github.com/casualjim/hoot/messages"
	"github.com/google/uuid"
)

// BuildContext returns persisted followed by additions, oldest first.
// Persisted turns are ordered by store sequence, never by wall clock alone.
// Only the last limit persisted turns are kept; limit <= 0 keeps them all.
// Additions are never dropped.
func BuildContext(persisted, additions []messages.Turn, limit int) []messages.Turn {
	tail := slices.Clone(persisted)
	slices.SortStableFunc(tail, func(a, b messages.Turn) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		default:
			return 0
		}
	})
	if limit > 0 && len(tail) > limit {
		tail = tail[len(tail)-limit:]
	}

	out := make([]messages.Turn, 0, len(tail)+len(additions))
	out = append(out, tail...)
	return append(out, additions...)
}

// Aggregator is the working history of one respond call. It is not safe for
// concurrent use; a respond call owns its aggregator.
type Aggregator struct {
	id      uuid.UUID
	turns   []messages.Turn
	initLen int
}

// New creates an aggregator seeded with the persisted tail of a
// conversation.
func New(persisted ...messages.Turn) *Aggregator {
	return &Aggregator{
		id:      uuid.Must(uuid.NewV7()),
		turns:   slices.Clone(persisted),
		initLen: len(persisted),
	}
}

// ID returns the unique identifier of this aggregator.
func (a *Aggregator) ID() uuid.UUID {
	return a.id
}

// Len returns the total number of turns held.
func (a *Aggregator) Len() int {
	return len(a.turns)
}

// TurnLen returns the number of turns added since the aggregator was created
// or forked.
func (a *Aggregator) TurnLen() int {
	return len(a.turns) - a.initLen
}

// Add appends a turn.
func (a *Aggregator) Add(t messages.Turn) {
	a.turns = append(a.turns, t)
}

// Messages returns a copy of all turns in insertion order.
func (a *Aggregator) Messages() []messages.Turn {
	return slices.Clone(a.turns)
}

// MessagesIter iterates over all turns without copying.
func (a *Aggregator) MessagesIter() iter.Seq[messages.Turn] {
	return slices.Values(a.turns)
}

// Persisted returns a copy of the seed turns.
func (a *Aggregator) Persisted() []messages.Turn {
	return slices.Clone(a.turns[:a.initLen])
}

// Additions returns a copy of the turns added since creation or fork.
func (a *Aggregator) Additions() []messages.Turn {
	return slices.Clone(a.turns[a.initLen:])
}

// Context assembles the model context, keeping at most limit persisted turns.
func (a *Aggregator) Context(limit int) []messages.Turn {
	return BuildContext(a.turns[:a.initLen], a.turns[a.initLen:], limit)
}

// Fork creates a new aggregator whose seed is everything held by a. Turns
// added to the fork do not affect a.
func (a *Aggregator) Fork() *Aggregator {
	return &Aggregator{
		id:      uuid.Must(uuid.NewV7()),
		turns:   slices.Clone(a.turns),
		initLen: len(a.turns),
	}
}

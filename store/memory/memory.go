// Package memory is an in-process store.Store. Transcripts live as long as the
// process; it backs tests and ephemeral chat sessions.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/casualjim/hoot/messages"
	"github.com/casualjim/hoot/store"
	"github.com/go-openapi/strfmt"
)

var _ store.Store = (*Store)(nil)

type conversation struct {
	seq   uint64
	turns []messages.Turn
}

type Store struct {
	mu    sync.RWMutex
	convs map[string]*conversation
}

func New() *Store {
	return &Store{convs: make(map[string]*conversation)}
}

func (s *Store) Append(ctx context.Context, conversationID string, t messages.Turn) (messages.Turn, error) {
	if err := store.CheckID("append", conversationID); err != nil {
		return messages.Turn{}, err
	}
	if err := ctx.Err(); err != nil {
		return messages.Turn{}, store.Wrap("append", conversationID, err)
	}
	if err := t.Validate(); err != nil {
		return messages.Turn{}, store.Wrap("append", conversationID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[conversationID]
	if !ok {
		c = &conversation{}
		s.convs[conversationID] = c
	}
	c.seq++
	t.Seq = c.seq
	if t.Time().IsZero() {
		t.Timestamp = strfmt.DateTime(time.Now())
	}
	c.turns = append(c.turns, t)
	return t, nil
}

func (s *Store) Tail(ctx context.Context, conversationID string, limit int) ([]messages.Turn, error) {
	if err := store.CheckID("tail", conversationID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap("tail", conversationID, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return nil, nil
	}
	return slices.Clone(store.TailOf(c.turns, limit)), nil
}

func (s *Store) List(ctx context.Context, conversationID string) ([]messages.Turn, error) {
	return s.Tail(ctx, conversationID, 0)
}

// Conversations returns the ids of all stored conversations, sorted.
func (s *Store) Conversations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.convs))
}

func (s *Store) Clear(ctx context.Context, conversationID string) error {
	if err := store.CheckID("clear", conversationID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.convs, conversationID)
	s.mu.Unlock()
	return nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	clear(s.convs)
	s.mu.Unlock()
	return nil
}

func (s *Store) Close() error { return nil }

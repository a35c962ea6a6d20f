// Package storetest holds the behavioral suite every store.Store implementation
// must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/casualjim/hoot/messages"
	"github.com/casualjim/hoot/store"
	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory creates a fresh, empty store for one test.
type Factory func(t *testing.T) store.Store

type acceptanceTest struct {
	name string
	test func(t *testing.T, newStore Factory)
}

// Run exercises a store implementation against the shared contract.
func Run(t *testing.T, newStore Factory) {
	tests := []acceptanceTest{
		{"assigns increasing sequence numbers", testSequence},
		{"keeps explicit timestamps", testTimestamps},
		{"returns the tail oldest first", testTail},
		{"isolates conversations", testIsolation},
		{"clears one conversation", testClear},
		{"clears everything", testClearAll},
		{"rejects empty conversation ids", testEmptyID},
		{"rejects invalid turns", testInvalidTurn},
		{"handles concurrent appends", testConcurrentAppends},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.test(t, newStore)
		})
	}
}

func testSequence(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()

	var last uint64
	for i := range 3 {
		got, err := s.Append(ctx, "c1", messages.User(fmt.Sprintf("m%d", i)))
		require.NoError(t, err)
		assert.Greater(t, got.Seq, last)
		assert.False(t, got.Time().IsZero())
		last = got.Seq
	}
}

func testTimestamps(t *testing.T, newStore Factory) {
	s := newStore(t)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	turn := messages.Assistant("hi")
	turn.Timestamp = strfmt.DateTime(ts)

	_, err := s.Append(context.Background(), "c1", turn)
	require.NoError(t, err)

	all, err := s.List(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, ts.Equal(all[0].Time()))
	assert.Equal(t, messages.RoleAssistant, all[0].Role)
}

func testTail(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()
	for i := range 5 {
		_, err := s.Append(ctx, "c1", messages.User(fmt.Sprintf("m%d", i)))
		require.NoError(t, err)
	}
	_, err := s.Append(ctx, "c1", messages.Tool("get_current_time", "now"))
	require.NoError(t, err)

	tail, err := s.Tail(ctx, "c1", 3)
	require.NoError(t, err)
	require.Len(t, tail, 3)
	assert.Equal(t, "m3", tail[0].Content)
	assert.Equal(t, "m4", tail[1].Content)
	assert.Equal(t, "get_current_time", tail[2].ToolName)

	all, err := s.Tail(ctx, "c1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	none, err := s.Tail(ctx, "missing", 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testIsolation(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.Append(ctx, "a", messages.User("for a"))
	require.NoError(t, err)
	_, err = s.Append(ctx, "b", messages.User("for b"))
	require.NoError(t, err)

	a, err := s.List(ctx, "a")
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, "for a", a[0].Content)
}

func testClear(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.Append(ctx, "a", messages.User("x"))
	require.NoError(t, err)
	_, err = s.Append(ctx, "b", messages.User("y"))
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx, "a"))
	require.NoError(t, s.Clear(ctx, "never-existed"))

	a, err := s.List(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, a)
	b, err := s.List(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, b, 1)

	again, err := s.Append(ctx, "a", messages.User("fresh"))
	require.NoError(t, err)
	assert.Positive(t, again.Seq)
}

func testClearAll(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_, err := s.Append(ctx, id, messages.User("x"))
		require.NoError(t, err)
	}
	require.NoError(t, s.ClearAll(ctx))
	for _, id := range []string{"a", "b", "c"} {
		turns, err := s.List(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, turns)
	}
}

func testEmptyID(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, "", messages.User("x"))
	assert.ErrorIs(t, err, store.ErrEmptyConversationID)
	_, err = s.Tail(ctx, " ", 1)
	assert.ErrorIs(t, err, store.ErrEmptyConversationID)
	assert.ErrorIs(t, s.Clear(ctx, ""), store.ErrEmptyConversationID)

	var se *store.Error
	assert.ErrorAs(t, err, &se)
}

func testInvalidTurn(t *testing.T, newStore Factory) {
	s := newStore(t)
	_, err := s.Append(context.Background(), "c1", messages.Turn{Role: messages.RoleTool, Content: "no name"})
	require.Error(t, err)
	var se *store.Error
	assert.ErrorAs(t, err, &se)
}

func testConcurrentAppends(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Append(ctx, "c1", messages.User(fmt.Sprintf("m%d", i)))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := s.List(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, all, n)
	seen := make(map[uint64]bool, n)
	for i, turn := range all {
		assert.False(t, seen[turn.Seq])
		seen[turn.Seq] = true
		if i > 0 {
			assert.Greater(t, turn.Seq, all[i-1].Seq)
		}
	}
}

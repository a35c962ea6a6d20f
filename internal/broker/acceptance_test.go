package broker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/casualjim/hoot/events"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokerFactory creates a new broker instance for testing
type brokerFactory func(t *testing.T) Broker

type acceptanceTest struct {
	name string
	test func(t *testing.T, createBroker brokerFactory)
}

func runAcceptanceTests(t *testing.T, name string, factory brokerFactory) {
	tests := []acceptanceTest{
		{"creates unique topics", testUniqueTopics},
		{"reuses existing topics", testReuseTopics},
		{"publishes events to all subscribers", testPublishToAllSubscribers},
		{"handles subscription lifecycle", testSubscriptionLifecycle},
		{"handles context cancellation", testContextCancellation},
		{"handles concurrent operations", testConcurrentOperations},
		{"validates hook requirement", testHookValidation},
		{"publishes through a hook", testPublishingHook},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", name, tt.name), func(t *testing.T) {
			tt.test(t, factory)
		})
	}
}

func TestBrokerImplementations(t *testing.T) {
	t.Run("Local", func(t *testing.T) {
		runAcceptanceTests(t, "Local", func(t *testing.T) Broker {
			return Local()
		})
	})

	t.Run("NATS", func(t *testing.T) {
		url := os.Getenv("NATS_URL")
		if url == "" {
			url = nats.DefaultURL
		}
		probe, err := nats.Connect(url)
		if err != nil {
			t.Skipf("no NATS server at %s: %v", url, err)
		}
		probe.Close()

		runAcceptanceTests(t, "NATS", func(t *testing.T) Broker {
			nc, err := nats.Connect(url)
			require.NoError(t, err)
			t.Cleanup(func() { nc.Close() })
			return NATS(nc, "hoot.test."+uuid.NewString())
		})
	})
}

type recordingHook struct {
	events.NopHook
	mu        sync.Mutex
	completed []events.Completed
	tools     []events.ToolDispatched
	wg        *sync.WaitGroup
}

func newRecordingHook() *recordingHook {
	return &recordingHook{}
}

func (r *recordingHook) OnCompleted(_ context.Context, e events.Completed) {
	r.mu.Lock()
	r.completed = append(r.completed, e)
	r.mu.Unlock()
	if r.wg != nil {
		r.wg.Done()
	}
}

func (r *recordingHook) OnToolDispatched(_ context.Context, e events.ToolDispatched) {
	r.mu.Lock()
	r.tools = append(r.tools, e)
	r.mu.Unlock()
	if r.wg != nil {
		r.wg.Done()
	}
}

func (r *recordingHook) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.completed), len(r.tools)
}

func waitFor(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for events to be processed")
	}
}

func completed(text string) events.Completed {
	return events.Completed{Meta: events.NewMeta(uuid.New(), "test"), Text: text, Iterations: 1}
}

func testUniqueTopics(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	topic1 := broker.Topic(context.Background(), "test1")
	topic2 := broker.Topic(context.Background(), "test2")
	assert.NotSame(t, topic1, topic2)
}

func testReuseTopics(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	topic1 := broker.Topic(context.Background(), "test")
	topic2 := broker.Topic(context.Background(), "test")
	assert.Same(t, topic1, topic2)
}

func testPublishToAllSubscribers(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	topic := broker.Topic(context.Background(), "test")
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(4)
	recorder1 := newRecordingHook()
	recorder2 := newRecordingHook()
	recorder1.wg = &wg
	recorder2.wg = &wg

	sub1, err := topic.Subscribe(ctx, recorder1)
	require.NoError(t, err)
	defer sub1.Unsubscribe()
	sub2, err := topic.Subscribe(ctx, recorder2)
	require.NoError(t, err)
	defer sub2.Unsubscribe()
	assert.NotEqual(t, sub1.ID(), sub2.ID())

	require.NoError(t, topic.Publish(ctx, completed("done")))
	require.NoError(t, topic.Publish(ctx, events.ToolDispatched{
		Meta: events.NewMeta(uuid.New(), "test"),
		Tool: "weather",
	}))

	waitFor(t, &wg)

	for _, r := range []*recordingHook{recorder1, recorder2} {
		c, tl := r.counts()
		assert.Equal(t, 1, c)
		assert.Equal(t, 1, tl)
		r.mu.Lock()
		assert.Equal(t, "done", r.completed[0].Text)
		assert.Equal(t, "weather", r.tools[0].Tool)
		r.mu.Unlock()
	}
}

func testSubscriptionLifecycle(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	topic := broker.Topic(context.Background(), "test")
	ctx := context.Background()

	recorder := newRecordingHook()
	sub, err := topic.Subscribe(ctx, recorder)
	require.NoError(t, err)

	sub.Unsubscribe()
	sub.Unsubscribe()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, topic.Publish(ctx, completed("late")))
	time.Sleep(100 * time.Millisecond)

	c, _ := recorder.counts()
	assert.Zero(t, c)
}

func testContextCancellation(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	topic := broker.Topic(context.Background(), "test")

	ctx, cancel := context.WithCancel(context.Background())
	recorder := newRecordingHook()
	sub, err := topic.Subscribe(ctx, recorder)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	cancel()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, topic.Publish(context.Background(), completed("late")))
	time.Sleep(100 * time.Millisecond)

	c, _ := recorder.counts()
	assert.Zero(t, c)
}

func testConcurrentOperations(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	topic := broker.Topic(context.Background(), "test")
	ctx := context.Background()

	const (
		numSubscribers = 5
		numEvents      = 40
	)
	var processWg sync.WaitGroup
	processWg.Add(numSubscribers * numEvents)

	recorders := make([]*recordingHook, numSubscribers)
	for i := range recorders {
		recorders[i] = newRecordingHook()
		recorders[i].wg = &processWg
		sub, err := topic.Subscribe(ctx, recorders[i])
		require.NoError(t, err)
		t.Cleanup(sub.Unsubscribe)
	}

	var publishWg sync.WaitGroup
	for i := range numEvents {
		publishWg.Add(1)
		go func() {
			defer publishWg.Done()
			assert.NoError(t, topic.Publish(ctx, completed(fmt.Sprintf("message-%d", i))))
		}()
	}
	publishWg.Wait()
	waitFor(t, &processWg)

	for _, r := range recorders {
		c, _ := r.counts()
		assert.Equal(t, numEvents, c)
	}
}

func testHookValidation(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	topic := broker.Topic(context.Background(), "test")

	_, err := topic.Subscribe(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hook is required")
}

func testPublishingHook(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	topic := broker.Topic(context.Background(), "conv")
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	recorder := newRecordingHook()
	recorder.wg = &wg
	sub, err := topic.Subscribe(ctx, recorder)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	hook := PublishingHook(topic)
	hook.OnCompleted(ctx, completed("via hook"))
	waitFor(t, &wg)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.Len(t, recorder.completed, 1)
	assert.Equal(t, "via hook", recorder.completed[0].Text)
}

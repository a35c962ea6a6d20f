package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/hoot/events"
	"github.com/google/uuid"
)

const (
	defaultSlowSubscriberTimeout = 100 * time.Millisecond
	subscriberBuffer             = 50
)

type localBroker struct {
	topics                *haxmap.Map[string, *topic]
	slowSubscriberTimeout time.Duration
}

// Local returns an in-process broker.
func Local() *localBroker {
	return &localBroker{
		topics:                haxmap.New[string, *topic](),
		slowSubscriberTimeout: defaultSlowSubscriberTimeout,
	}
}

// WithSlowSubscriberTimeout configures how long Publish waits on a full subscriber
// before dropping it.
func (b *localBroker) WithSlowSubscriberTimeout(timeout time.Duration) *localBroker {
	b.slowSubscriberTimeout = timeout
	return b
}

func (b *localBroker) Topic(ctx context.Context, id string) Topic {
	t, _ := b.topics.GetOrCompute(id, func() *topic {
		return &topic{
			ID:                    id,
			subscriptions:         haxmap.New[string, *subscription](),
			slowSubscriberTimeout: b.slowSubscriberTimeout,
		}
	})
	return t
}

type topic struct {
	ID                    string
	subscriptions         *haxmap.Map[string, *subscription]
	slowSubscriberTimeout time.Duration
}

func (t *topic) Publish(ctx context.Context, event events.Event) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	t.subscriptions.ForEach(func(id string, sub *subscription) bool {
		if sub == nil {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-sub.ctx.Done():
			sub.Unsubscribe()
			return true
		default:
		}

		if !sub.send(ctx, event, t.slowSubscriberTimeout) {
			sub.Unsubscribe()
		}
		return ctx.Err() == nil
	})
	return ctx.Err()
}

func (t *topic) Subscribe(ctx context.Context, hook events.Hook) (Subscription, error) {
	if hook == nil {
		return nil, fmt.Errorf("hook is required")
	}
	id := uuid.NewString()
	sub := &subscription{
		id:      id,
		ctx:     ctx,
		channel: make(chan events.Event, subscriberBuffer),
		done:    make(chan struct{}),
		onClose: func() { t.subscriptions.Del(id) },
		hook:    hook,
	}
	t.subscriptions.Set(id, sub)
	go sub.forwardToHook()
	return sub, nil
}

type subscription struct {
	id        string
	ctx       context.Context
	channel   chan events.Event
	done      chan struct{}
	closeOnce sync.Once
	onClose   func()
	hook      events.Hook
}

func (s *subscription) ID() string {
	return s.id
}

func (s *subscription) Unsubscribe() {
	s.closeOnce.Do(func() {
		if s.onClose != nil {
			s.onClose()
		}
		close(s.done)
	})
}

// send delivers event unless the subscriber stays full past timeout. It reports
// whether the subscriber should be kept.
func (s *subscription) send(ctx context.Context, event events.Event, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.done:
		return false
	case <-ctx.Done():
		return true
	case <-s.ctx.Done():
		return false
	case s.channel <- event:
		return true
	case <-timer.C:
		return false
	}
}

func (s *subscription) forwardToHook() {
	for {
		select {
		case event := <-s.channel:
			events.Dispatch(s.ctx, s.hook, event)
		case <-s.done:
			return
		case <-s.ctx.Done():
			s.Unsubscribe()
			return
		}
	}
}

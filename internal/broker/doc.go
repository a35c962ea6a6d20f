// Package broker distributes orchestration events to observers outside the loop:
// the chat REPL, other processes listening on NATS, anything holding an
// events.Hook.
//
// Design decisions:
//   - Context-first: subscriptions end when their context is cancelled
//   - Topic-based: one topic per conversation id
//   - Hook integration: subscribers are plain events.Hook values
//   - Bounded delivery: the local broker drops subscribers that stay full past a
//     timeout instead of stalling the publisher
//
// Interface hierarchy:
//   - Broker: hands out topics
//     └── Topic: publish and subscribe
//     └── Subscription: explicit lifecycle with a unique id
//
// PublishingHook closes the loop: the executor calls it like any hook and it
// republishes each event on a topic.
package broker

// Package events describes what happens while a conversation turn is orchestrated
// and lets observers react to it.
//
// Design decisions:
//   - Closed set: five concrete event types cover the loop (turn appended, tool
//     dispatched, loop detected, completed, failed)
//   - Shared metadata: every event carries the run id, the conversation id and a
//     timestamp
//   - Hooks over channels: the orchestrator calls a Hook synchronously; transport to
//     other processes is the broker's job
//   - Self-describing JSON: ToJSON wraps an event in a {"type", "event"} envelope so
//     FromJSON can rebuild the concrete type on the other side of a broker
//
// Event hierarchy:
//   - Event: sealed interface
//     ├── TurnAppended: a turn joined the working history
//     ├── ToolDispatched: a tool ran (successfully or not)
//     ├── LoopDetected: the same tool call repeated without progress
//     ├── Completed: the turn produced its reply
//     └── Failed: the turn aborted with an error
//
// Example usage:
//
//	hook := events.Multi(events.LogHook(slog.Default()), myHook)
//	events.Dispatch(ctx, hook, events.Completed{Meta: meta, Text: "done"})
package events

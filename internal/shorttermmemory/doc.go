// Package shorttermmemory holds the working history of a single respond call
// and assembles the ordered context handed to the model.
//
// The working history has two parts: the persisted tail read from the store
// when the call starts, and the turns added during the call (the user turn,
// each assistant reply and each tool result). The persisted part is bounded
// to the most recent N turns so prompts stay small; the additions are never
// truncated because the model must see everything that happened this turn.
//
// Ordering is chronological, oldest first. Persisted turns are ordered by
// timestamp with ties broken by their store sequence; additions keep the
// order in which they were added.
//
// Example:
//
//	agg := shorttermmemory.New(tail...)
//	agg.Add(messages.User("roll 3 dice"))
//	history := agg.Context(20)
package shorttermmemory

// Package messages defines the conversation turn, the atomic unit of a
// transcript.
//
// A Turn is a value: once created it is never modified. Transcripts grow by
// appending turns, in the order they were created. The store assigns each
// persisted turn a per-conversation insertion sequence (Seq) that orders turns
// created within the same clock tick.
//
// Example usage:
//
//	t := messages.User("what's the weather in Montreal?")
//	r := messages.Tool("weather", "The weather in Montreal is currently sunny and 25°C.")
package messages

// Package store defines the persistence contract for conversation transcripts.
//
// A transcript is an append-only list of turns keyed by conversation id. Append
// assigns each turn a per-conversation sequence number, which together with the
// timestamp gives a total order. Implementations live in the memory and bolt
// subpackages.
package store

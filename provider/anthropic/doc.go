// Package anthropic implements provider.Provider on top of the Anthropic Messages API.
//
// The system prompt travels in the dedicated system field. Consecutive transcript
// entries with the same role are merged because the API requires strict user and
// assistant alternation starting with a user message.
package anthropic

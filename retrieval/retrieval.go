// Package retrieval defines how supplementary knowledge is fetched for a message.
// The returned text is appended to the system prompt; an empty string means no
// retrieval context.
package retrieval

import "context"

// DefaultTopK is the number of passages fetched when the caller does not say.
const DefaultTopK = 3

// Retriever finds passages relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) (string, error)
}

// Nop never returns context.
type Nop struct{}

func (Nop) Retrieve(context.Context, string, int) (string, error) { return "", nil }

// Func adapts a function to Retriever.
type Func func(ctx context.Context, query string, topK int) (string, error)

func (f Func) Retrieve(ctx context.Context, query string, topK int) (string, error) {
	return f(ctx, query, topK)
}

// Package dialogue provides the components that answer free-form questions:
// the Delegate contract the command router calls, a static fallback, and a
// retrieval manager that ranks knowledge base threads.
package dialogue

import "context"

// Delegate answers a free-form question. Implementations are constructed
// once at startup and must be safe to call repeatedly.
type Delegate interface {
	GenerateAnswer(ctx context.Context, question string) (string, error)
}

// DelegateFunc adapts a plain function to the Delegate interface.
type DelegateFunc func(ctx context.Context, question string) (string, error)

// GenerateAnswer calls f(ctx, question).
func (f DelegateFunc) GenerateAnswer(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}

package handlers

import "context"

// NewSnitchHandler returns the /snitch handler.
func NewSnitchHandler(deps HandlerDeps) CommandHandler {
	return func(ctx context.Context) string {
		deps.Logger.InfoContext(ctx, "Serving /snitch")
		return deps.Messages.Snitch
	}
}

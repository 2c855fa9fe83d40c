package handlers

import "context"

// CommandHandler produces the reply for one master command.
type CommandHandler func(ctx context.Context) string

// RegisterMasterCommands returns the table of master commands, matched exactly and
// case-sensitively against the whole message text.
func RegisterMasterCommands(deps HandlerDeps) map[string]CommandHandler {
	return map[string]CommandHandler{
		"/report": NewReportHandler(deps),
		"/snitch": NewSnitchHandler(deps),
	}
}

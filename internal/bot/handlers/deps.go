package handlers

import (
	"log/slog"
	"time"

	"github.com/edgard/projectbot/internal/config"
	"github.com/edgard/projectbot/internal/dialogue"
)

// HandlerDeps provides dependencies for the router and its command handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Messages config.MessagesConfig
	Delegate dialogue.Delegate

	// Master is the username allowed to run master commands when
	// EnforceMaster is set.
	Master        string
	EnforceMaster bool

	// StartedAt and Now drive the /report uptime. Now defaults to time.Now.
	StartedAt time.Time
	Now       func() time.Time
}

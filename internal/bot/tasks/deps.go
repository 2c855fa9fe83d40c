// Package tasks implements the bot's scheduled tasks and their registration.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/projectbot/internal/database"
	"github.com/edgard/projectbot/internal/metrics"
)

// Status is a snapshot of the poll loop for the heartbeat.
type Status struct {
	Offset    int64
	Processed int64
	Uptime    time.Duration
}

// StatusSource reports the current poll loop status.
type StatusSource interface {
	Status() Status
}

// KnowledgeReloader reloads the retrieval corpus and returns its size.
type KnowledgeReloader interface {
	Reload(ctx context.Context) (int, error)
}

// TaskDeps contains the dependencies of scheduled tasks. Store and
// Knowledge are nil unless the retrieval delegate is configured; the tasks
// that need them are then not registered.
type TaskDeps struct {
	Logger    *slog.Logger
	Status    StatusSource
	Store     database.Store
	Knowledge KnowledgeReloader
	Metrics   *metrics.Metrics
}

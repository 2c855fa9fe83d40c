package tasks

import (
	"context"
	"fmt"
)

// newReloadKnowledgeTask re-reads the knowledge base so threads imported
// while the bot runs become answerable.
func newReloadKnowledgeTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", ReloadKnowledgeTask)

	return func(ctx context.Context) error {
		n, err := deps.Knowledge.Reload(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Knowledge base reload failed", "error", err)
			return fmt.Errorf("reload knowledge: %w", err)
		}
		deps.Metrics.SetKnowledgeThreads(n)
		log.DebugContext(ctx, "Knowledge base reloaded", "threads", n)
		return nil
	}
}

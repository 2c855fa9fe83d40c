package tasks

import "context"

// newHeartbeatTask logs the poll loop status so a stuck loop shows up in
// the logs.
func newHeartbeatTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", HeartbeatTask)

	return func(ctx context.Context) error {
		st := deps.Status.Status()
		log.InfoContext(ctx, "Bot is alive",
			"uptime", st.Uptime.String(), "offset", st.Offset, "updates_processed", st.Processed)
		return nil
	}
}

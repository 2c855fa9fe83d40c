package tasks

import "context"

// ScheduledTaskFunc is the signature of every scheduled task. The context is
// cancelled when the scheduler shuts down.
type ScheduledTaskFunc func(ctx context.Context) error

// Task names, matching the keys under scheduler.tasks in the configuration.
const (
	HeartbeatTask       = "heartbeat"
	SQLMaintenanceTask  = "sql_maintenance"
	ReloadKnowledgeTask = "reload_knowledge"
)

// RegisterAllTasks returns every task whose dependencies are available,
// keyed by name.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := make(map[string]ScheduledTaskFunc)

	if deps.Status != nil {
		tasks[HeartbeatTask] = newHeartbeatTask(deps)
	}
	if deps.Store != nil {
		tasks[SQLMaintenanceTask] = newSQLMaintenanceTask(deps)
	}
	if deps.Knowledge != nil {
		tasks[ReloadKnowledgeTask] = newReloadKnowledgeTask(deps)
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}

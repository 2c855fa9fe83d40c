package bot_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edgard/projectbot/internal/bot"
	"github.com/edgard/projectbot/internal/bot/tasks"
	"github.com/edgard/projectbot/internal/config"
	"github.com/edgard/projectbot/internal/dialogue"
	"github.com/edgard/projectbot/internal/logger"
	"github.com/edgard/projectbot/internal/metrics"
	"github.com/edgard/projectbot/internal/telegram"
)

func TestBotRun_TransportErrorPropagates(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{fetchErr: &telegram.TransportError{Method: "getUpdates", Err: errors.New("timeout")}}
	p := newPoller(t, transport, newRouter(t, dialogue.NewStatic("x")), nil)

	sched, err := bot.NewScheduler(logger.Discard(), &config.SchedulerConfig{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	b := bot.NewBot(logger.Discard(), p, sched, nil, "")
	err = b.Run(context.Background())

	var transportErr *telegram.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Run() error = %v, want *TransportError", err)
	}
}

func TestBotRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	p := newPoller(t, transport, newRouter(t, dialogue.NewStatic("x")), nil)

	m := metrics.New()
	taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{Logger: logger.Discard(), Status: p, Metrics: m})
	sched, err := bot.NewScheduler(logger.Discard(), &config.SchedulerConfig{
		Tasks: map[string]config.TaskConfig{
			tasks.HeartbeatTask: {Enabled: true, Schedule: "0 */30 * * * *"},
		},
	}, taskMap, m)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.NewBot(logger.Discard(), p, sched, m, "127.0.0.1:0").Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

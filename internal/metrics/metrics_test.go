package metrics_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/edgard/projectbot/internal/metrics"
)

func TestMetrics_Record(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.UpdatesReceived(3)
	m.AnswerProduced("start")
	m.AnswerProduced("dialogue")
	m.AnswerProduced("dialogue")
	m.SendFailed()
	m.SetOffset(43)
	m.ObservePoll(250 * time.Millisecond)
	m.TaskRun("heartbeat", nil)
	m.TaskRun("heartbeat", errors.New("boom"))
	m.SetKnowledgeThreads(12)

	expected := `
# HELP projectbot_answers_total Answers produced, by router route.
# TYPE projectbot_answers_total counter
projectbot_answers_total{route="dialogue"} 2
projectbot_answers_total{route="start"} 1
# HELP projectbot_send_failures_total sendMessage calls that failed.
# TYPE projectbot_send_failures_total counter
projectbot_send_failures_total 1
# HELP projectbot_update_offset Current getUpdates offset.
# TYPE projectbot_update_offset gauge
projectbot_update_offset 43
# HELP projectbot_updates_received_total Updates returned by getUpdates.
# TYPE projectbot_updates_received_total counter
projectbot_updates_received_total 3
# HELP projectbot_task_runs_total Scheduled task executions, by task and result.
# TYPE projectbot_task_runs_total counter
projectbot_task_runs_total{result="error",task="heartbeat"} 1
projectbot_task_runs_total{result="success",task="heartbeat"} 1
# HELP projectbot_knowledge_threads Threads loaded into the retrieval ranker.
# TYPE projectbot_knowledge_threads gauge
projectbot_knowledge_threads 12
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"projectbot_answers_total",
		"projectbot_send_failures_total",
		"projectbot_update_offset",
		"projectbot_updates_received_total",
		"projectbot_task_runs_total",
		"projectbot_knowledge_threads",
	)
	if err != nil {
		t.Error(err)
	}

	n, err := testutil.GatherAndCount(m.Registry(), "projectbot_poll_duration_seconds")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("poll duration series = %d, want 1", n)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics
	m.UpdatesReceived(1)
	m.AnswerProduced("start")
	m.SendFailed()
	m.SetOffset(1)
	m.ObservePoll(time.Second)
	m.TaskRun("x", nil)
	m.SetKnowledgeThreads(1)
	if m.Registry() != nil {
		t.Error("nil Metrics returned a registry")
	}
}

func TestHandler(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.SetOffset(7)
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	body := get(t, srv.URL+"/metrics")
	if !strings.Contains(body, "projectbot_update_offset 7") {
		t.Errorf("/metrics missing offset gauge:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("/metrics missing Go runtime collector")
	}
	if got := get(t, srv.URL+"/healthz"); got != "ok" {
		t.Errorf("/healthz = %q, want ok", got)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- metrics.New().Serve(ctx, ln, nil) }()

	if got := get(t, "http://"+ln.Addr().String()+"/healthz"); got != "ok" {
		t.Errorf("/healthz = %q", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

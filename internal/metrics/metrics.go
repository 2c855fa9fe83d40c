// Package metrics exposes the bot's Prometheus metrics and the HTTP server
// that serves them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edgard/projectbot/internal/logger"
)

const (
	namespace       = "projectbot"
	shutdownTimeout = 5 * time.Second
)

// Metrics holds the bot's collectors on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	updatesReceived  prometheus.Counter
	answers          *prometheus.CounterVec
	sendFailures     prometheus.Counter
	offset           prometheus.Gauge
	pollDuration     prometheus.Histogram
	taskRuns         *prometheus.CounterVec
	knowledgeThreads prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		updatesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_received_total",
			Help:      "Updates returned by getUpdates.",
		}),
		answers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answers produced, by router route.",
		}, []string{"route"}),
		sendFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "sendMessage calls that failed.",
		}),
		offset: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "update_offset",
			Help:      "Current getUpdates offset.",
		}),
		pollDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of getUpdates long-poll requests.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 20, 30, 45, 60},
		}),
		taskRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_runs_total",
			Help:      "Scheduled task executions, by task and result.",
		}, []string{"task", "result"}),
		knowledgeThreads: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "knowledge_threads",
			Help:      "Threads loaded into the retrieval ranker.",
		}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// UpdatesReceived adds n fetched updates.
func (m *Metrics) UpdatesReceived(n int) {
	if m == nil {
		return
	}
	m.updatesReceived.Add(float64(n))
}

// AnswerProduced counts one answer on route.
func (m *Metrics) AnswerProduced(route string) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(route).Inc()
}

// SendFailed counts one failed sendMessage.
func (m *Metrics) SendFailed() {
	if m == nil {
		return
	}
	m.sendFailures.Inc()
}

// SetOffset records the current update offset.
func (m *Metrics) SetOffset(offset int64) {
	if m == nil {
		return
	}
	m.offset.Set(float64(offset))
}

// ObservePoll records the duration of one getUpdates call.
func (m *Metrics) ObservePoll(d time.Duration) {
	if m == nil {
		return
	}
	m.pollDuration.Observe(d.Seconds())
}

// TaskRun counts one execution of task; err decides the result label.
func (m *Metrics) TaskRun(task string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.taskRuns.WithLabelValues(task, result).Inc()
}

// SetKnowledgeThreads records the size of the loaded knowledge base.
func (m *Metrics) SetKnowledgeThreads(n int) {
	if m == nil {
		return
	}
	m.knowledgeThreads.Set(float64(n))
}

// Handler serves /metrics from the private registry plus /healthz.
func (m *Metrics) Handler() http.Handler {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return router
}

// ListenAndServe serves Handler on addr until ctx is cancelled.
func (m *Metrics) ListenAndServe(ctx context.Context, addr string, log *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return m.Serve(ctx, ln, log)
}

// Serve serves Handler on ln until ctx is cancelled, then shuts the server
// down gracefully. It returns nil after a clean shutdown.
func (m *Metrics) Serve(ctx context.Context, ln net.Listener, log *slog.Logger) error {
	if log == nil {
		log = logger.Discard()
	}
	log = log.With("component", "metrics_server")

	srv := &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Metrics server listening", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Metrics server shutdown failed", "error", err)
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	log.Info("Metrics server stopped")
	return nil
}

// Package bot wires the poll loop, the scheduler and the metrics server
// together and manages their lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/projectbot/internal/logger"
	"github.com/edgard/projectbot/internal/metrics"
)

// Bot runs the bot's components until the context is cancelled or one of
// them fails.
type Bot struct {
	logger      *slog.Logger
	poller      *Poller
	scheduler   *Scheduler
	metrics     *metrics.Metrics
	metricsAddr string
}

// NewBot creates the orchestrator. scheduler and m may be nil; the metrics
// server only runs when both m and metricsAddr are set.
func NewBot(log *slog.Logger, poller *Poller, scheduler *Scheduler, m *metrics.Metrics, metricsAddr string) *Bot {
	if log == nil {
		log = logger.Discard()
	}
	return &Bot{
		logger:      log.With("component", "bot_orchestrator"),
		poller:      poller,
		scheduler:   scheduler,
		metrics:     m,
		metricsAddr: metricsAddr,
	}
}

// Run starts every component and blocks. It returns nil after a shutdown
// triggered by ctx, or the first component error otherwise.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := b.poller.Run(gCtx)
		if err != nil {
			return fmt.Errorf("poll loop: %w", err)
		}
		if gCtx.Err() == nil {
			return errors.New("poll loop stopped unexpectedly")
		}
		return nil
	})

	if b.scheduler != nil {
		g.Go(func() error {
			if err := b.scheduler.Start(gCtx); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}
			<-gCtx.Done()
			if err := b.scheduler.Stop(); err != nil {
				b.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	if b.metrics != nil && b.metricsAddr != "" {
		g.Go(func() error {
			return b.metrics.ListenAndServe(gCtx, b.metricsAddr, b.logger)
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully")
	return nil
}

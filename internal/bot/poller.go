package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/edgard/projectbot/internal/bot/handlers"
	"github.com/edgard/projectbot/internal/bot/tasks"
	"github.com/edgard/projectbot/internal/logger"
	"github.com/edgard/projectbot/internal/metrics"
)

const (
	defaultPollTimeout  = 30 * time.Second
	defaultPollInterval = time.Second
)

// Transport is the part of the Telegram client the poll loop uses.
type Transport interface {
	FetchUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]models.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Responder turns an incoming message into a reply.
type Responder interface {
	Answer(ctx context.Context, req handlers.Request) (handlers.Reply, error)
}

// PollerOptions configures a Poller.
type PollerOptions struct {
	Transport Transport
	Responder Responder
	Logger    *slog.Logger
	Metrics   *metrics.Metrics

	// PollTimeout is how long the server may hold each getUpdates call.
	PollTimeout time.Duration
	// PollInterval is the pause before every fetch.
	PollInterval time.Duration
	// InitialOffset is the offset of the first fetch.
	InitialOffset int64
}

// Poller is the long-polling loop: fetch updates after the current offset,
// answer each message, send the answer back. It is strictly sequential.
type Poller struct {
	transport     Transport
	responder     Responder
	log           *slog.Logger
	metrics       *metrics.Metrics
	pollTimeout   time.Duration
	pollInterval  time.Duration
	initialOffset int64
	startedAt     time.Time

	// offset and processed mirror the loop's state for Status.
	offset    atomic.Int64
	processed atomic.Int64
}

// NewPoller creates a poll loop.
func NewPoller(opts PollerOptions) (*Poller, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("poller requires a transport")
	}
	if opts.Responder == nil {
		return nil, fmt.Errorf("poller requires a responder")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.PollTimeout < 0 {
		opts.PollTimeout = defaultPollTimeout
	}
	if opts.PollInterval < 0 {
		opts.PollInterval = defaultPollInterval
	}

	p := &Poller{
		transport:     opts.Transport,
		responder:     opts.Responder,
		log:           opts.Logger.With("component", "poller"),
		metrics:       opts.Metrics,
		pollTimeout:   opts.PollTimeout,
		pollInterval:  opts.PollInterval,
		initialOffset: opts.InitialOffset,
		startedAt:     time.Now(),
	}
	p.offset.Store(opts.InitialOffset)
	return p, nil
}

// Run polls until ctx is cancelled, returning nil in that case. A transport
// failure while fetching, or an error answering a message, stops the loop
// and is returned.
func (p *Poller) Run(ctx context.Context) error {
	offset := p.initialOffset
	p.log.InfoContext(ctx, "Poll loop started", "offset", offset, "poll_timeout", p.pollTimeout)

	for {
		if err := sleepContext(ctx, p.pollInterval); err != nil {
			p.log.InfoContext(ctx, "Poll loop stopped", "offset", offset)
			return nil
		}

		next, err := p.PollOnce(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				p.log.InfoContext(ctx, "Poll loop stopped", "offset", next)
				return nil
			}
			return err
		}
		offset = next
	}
}

// PollOnce performs one fetch and processes the returned batch, returning
// the advanced offset. On error the returned offset reflects every update
// consumed before the failure.
func (p *Poller) PollOnce(ctx context.Context, offset int64) (int64, error) {
	pollID := uuid.NewString()
	log := p.log.With("poll_id", pollID)

	start := time.Now()
	updates, err := p.transport.FetchUpdates(ctx, offset, p.pollTimeout)
	p.metrics.ObservePoll(time.Since(start))
	if err != nil {
		return offset, fmt.Errorf("fetch updates at offset %d: %w", offset, err)
	}
	if len(updates) == 0 {
		return offset, nil
	}

	log.DebugContext(ctx, "Fetched updates", "count", len(updates), "offset", offset)
	p.metrics.UpdatesReceived(len(updates))
	return p.processUpdates(ctx, log, offset, updates)
}

// ProcessUpdates handles one batch in the order given. For every update the
// offset is first advanced to max(offset, update_id+1), then a message with
// non-empty text is answered and the answer sent. A failed send is logged
// and skipped; a failed answer stops the batch.
func (p *Poller) ProcessUpdates(ctx context.Context, offset int64, updates []models.Update) (int64, error) {
	return p.processUpdates(ctx, p.log, offset, updates)
}

func (p *Poller) processUpdates(ctx context.Context, log *slog.Logger, offset int64, updates []models.Update) (int64, error) {
	for _, update := range updates {
		offset = max(offset, update.ID+1)
		p.offset.Store(offset)
		p.metrics.SetOffset(offset)

		msg := update.Message
		if msg == nil || msg.Text == "" {
			log.DebugContext(ctx, "Skipping update without text", "update_id", update.ID)
			continue
		}
		p.processed.Add(1)

		req := handlers.Request{Text: msg.Text}
		if msg.From != nil {
			req.Username = msg.From.Username
		}
		log.InfoContext(ctx, "Update received",
			"update_id", update.ID, "chat_id", msg.Chat.ID, "username", req.Username,
			"text", logger.Truncate(msg.Text, 200))

		reply, err := p.responder.Answer(ctx, req)
		if err != nil {
			return offset, fmt.Errorf("answer update %d: %w", update.ID, err)
		}
		p.metrics.AnswerProduced(string(reply.Route))
		log.InfoContext(ctx, "Answer", "update_id", update.ID, "route", reply.Route,
			"answer", logger.Truncate(reply.Text, 200))

		if err := p.transport.SendMessage(ctx, msg.Chat.ID, reply.Text); err != nil {
			p.metrics.SendFailed()
			log.ErrorContext(ctx, "Failed to send answer", "update_id", update.ID, "chat_id", msg.Chat.ID, "error", err)
		}
	}
	return offset, nil
}

// Status reports the loop's progress for the heartbeat task.
func (p *Poller) Status() tasks.Status {
	return tasks.Status{
		Offset:    p.offset.Load(),
		Processed: p.processed.Load(),
		Uptime:    time.Since(p.startedAt).Round(time.Second),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

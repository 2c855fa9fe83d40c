package bot_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/edgard/projectbot/internal/bot"
	"github.com/edgard/projectbot/internal/bot/handlers"
	"github.com/edgard/projectbot/internal/config"
	"github.com/edgard/projectbot/internal/dialogue"
	"github.com/edgard/projectbot/internal/logger"
	"github.com/edgard/projectbot/internal/metrics"
	"github.com/edgard/projectbot/internal/telegram"
)

const greeting = "Hi, I am your project bot. How can I help you today?"

var testMessages = config.MessagesConfig{
	Start:            greeting,
	UnseenCharacters: "Hmm, unseen characters ...",
	Report:           "I survived {} ",
	Snitch:           "Nada to read, Mate.",
	UnknownCommand:   "Sorry, Mate! can't Comprehend",
	NotMaster:        "Sorry, Mate! Master commands are not for you.",
}

type sentMessage struct {
	chatID int64
	text   string
}

// fakeTransport serves a fixed update log and honours the getUpdates
// contract: only updates with update_id >= offset are returned.
type fakeTransport struct {
	mu       sync.Mutex
	updates  []models.Update
	fetchErr error
	sendErr  func(chatID int64) error
	offsets  []int64
	sent     []sentMessage
}

func (f *fakeTransport) FetchUpdates(_ context.Context, offset int64, _ time.Duration) ([]models.Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsets = append(f.offsets, offset)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []models.Update
	for _, u := range f.updates {
		if u.ID >= offset {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeTransport) SendMessage(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		if err := f.sendErr(chatID); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (f *fakeTransport) sentMessages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func textUpdate(id, chatID int64, text string) models.Update {
	return models.Update{
		ID: id,
		Message: &models.Message{
			ID:   int(id),
			Chat: models.Chat{ID: chatID},
			From: &models.User{ID: chatID, Username: "user"},
			Text: text,
		},
	}
}

func newRouter(t *testing.T, delegate dialogue.Delegate) *handlers.Router {
	t.Helper()
	r, err := handlers.NewRouter(handlers.HandlerDeps{
		Logger:   logger.Discard(),
		Messages: testMessages,
		Delegate: delegate,
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func newPoller(t *testing.T, transport bot.Transport, responder bot.Responder, m *metrics.Metrics) *bot.Poller {
	t.Helper()
	p, err := bot.NewPoller(bot.PollerOptions{
		Transport:    transport,
		Responder:    responder,
		Logger:       logger.Discard(),
		Metrics:      m,
		PollTimeout:  0,
		PollInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewPoller() error = %v", err)
	}
	return p
}

func TestNewPoller_RequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := bot.NewPoller(bot.PollerOptions{Responder: newRouter(t, dialogue.NewStatic("x"))}); err == nil {
		t.Error("NewPoller() without transport should fail")
	}
	if _, err := bot.NewPoller(bot.PollerOptions{Transport: &fakeTransport{}}); err == nil {
		t.Error("NewPoller() without responder should fail")
	}
}

func TestProcessUpdates_OffsetIsMaxPlusOne(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ids  []int64
	}{
		{name: "out of order", ids: []int64{5, 3, 9}},
		{name: "ascending", ids: []int64{3, 5, 9}},
		{name: "descending", ids: []int64{9, 5, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			transport := &fakeTransport{}
			p := newPoller(t, transport, newRouter(t, dialogue.NewStatic("answer")), nil)

			var updates []models.Update
			for _, id := range tt.ids {
				updates = append(updates, textUpdate(id, 100, "question"))
			}

			offset, err := p.ProcessUpdates(context.Background(), 0, updates)
			if err != nil {
				t.Fatalf("ProcessUpdates() error = %v", err)
			}
			if offset != 10 {
				t.Errorf("offset = %d, want 10", offset)
			}
			if got := len(transport.sentMessages()); got != len(tt.ids) {
				t.Errorf("sent %d messages, want %d", got, len(tt.ids))
			}
			if st := p.Status(); st.Offset != 10 || st.Processed != int64(len(tt.ids)) {
				t.Errorf("Status() = %+v", st)
			}
		})
	}
}

func TestProcessUpdates_NeverMovesOffsetBackwards(t *testing.T) {
	t.Parallel()

	p := newPoller(t, &fakeTransport{}, newRouter(t, dialogue.NewStatic("x")), nil)
	offset, err := p.ProcessUpdates(context.Background(), 50, []models.Update{{ID: 7}, {ID: 12}})
	if err != nil {
		t.Fatal(err)
	}
	if offset != 50 {
		t.Errorf("offset = %d, want 50", offset)
	}
}

func TestProcessUpdates_SkipsUpdatesWithoutText(t *testing.T) {
	t.Parallel()

	delegate := dialogue.DelegateFunc(func(context.Context, string) (string, error) {
		t.Error("delegate called for an update without text")
		return "", nil
	})
	transport := &fakeTransport{}
	p := newPoller(t, transport, newRouter(t, delegate), nil)

	updates := []models.Update{
		{ID: 1},
		{ID: 2, Message: &models.Message{Chat: models.Chat{ID: 100}}},
		{ID: 3, EditedMessage: &models.Message{Chat: models.Chat{ID: 100}, Text: "edited"}},
	}
	offset, err := p.ProcessUpdates(context.Background(), 0, updates)
	if err != nil {
		t.Fatal(err)
	}
	if offset != 4 {
		t.Errorf("offset = %d, want 4", offset)
	}
	if n := len(transport.sentMessages()); n != 0 {
		t.Errorf("sent %d messages, want 0", n)
	}
}

func TestPollOnce_StartScenario(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{updates: []models.Update{textUpdate(42, 100, "/start")}}
	m := metrics.New()
	p := newPoller(t, transport, newRouter(t, dialogue.NewStatic("unused")), m)

	offset, err := p.PollOnce(context.Background(), 0)
	if err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}
	if offset != 43 {
		t.Errorf("offset = %d, want 43", offset)
	}

	sent := transport.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want exactly 1", len(sent))
	}
	if sent[0] != (sentMessage{chatID: 100, text: greeting}) {
		t.Errorf("sent %+v, want greeting to chat 100", sent[0])
	}

	expected := `
# HELP projectbot_answers_total Answers produced, by router route.
# TYPE projectbot_answers_total counter
projectbot_answers_total{route="start"} 1
# HELP projectbot_update_offset Current getUpdates offset.
# TYPE projectbot_update_offset gauge
projectbot_update_offset 43
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"projectbot_answers_total", "projectbot_update_offset"); err != nil {
		t.Error(err)
	}
}

func TestPollOnce_AtLeastOnceAfterCrash(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{updates: []models.Update{
		textUpdate(1, 100, "first"),
		textUpdate(2, 100, "second"),
	}}

	// The first process dies while answering update 2.
	crash := errors.New("process crashed")
	crashing := newRouter(t, dialogue.DelegateFunc(func(_ context.Context, q string) (string, error) {
		if q == "second" {
			return "", crash
		}
		return "answer to " + q, nil
	}))
	offset, err := newPoller(t, transport, crashing, nil).PollOnce(context.Background(), 0)
	if !errors.Is(err, crash) {
		t.Fatalf("PollOnce() error = %v, want %v", err, crash)
	}
	if offset != 3 {
		t.Fatalf("offset after crash = %d, want 3", offset)
	}

	// The offset persisted before the crash covers update 1 only.
	restartOffset := int64(2)
	var seen []string
	healthy := newRouter(t, dialogue.DelegateFunc(func(_ context.Context, q string) (string, error) {
		seen = append(seen, q)
		return "answer to " + q, nil
	}))
	offset, err = newPoller(t, transport, healthy, nil).PollOnce(context.Background(), restartOffset)
	if err != nil {
		t.Fatalf("PollOnce() after restart error = %v", err)
	}
	if offset != 3 {
		t.Errorf("offset after restart = %d, want 3", offset)
	}
	if len(seen) != 1 || seen[0] != "second" {
		t.Errorf("questions after restart = %q, want only [second]", seen)
	}

	sent := transport.sentMessages()
	if len(sent) != 2 || sent[0].text != "answer to first" || sent[1].text != "answer to second" {
		t.Errorf("sent = %+v", sent)
	}
}

func TestPollOnce_SendFailureContinues(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{
		updates: []models.Update{textUpdate(10, 1, "a"), textUpdate(11, 2, "b")},
		sendErr: func(chatID int64) error {
			if chatID == 1 {
				return &telegram.TransportError{Method: "sendMessage", Err: errors.New("chat not found")}
			}
			return nil
		},
	}
	m := metrics.New()
	p := newPoller(t, transport, newRouter(t, dialogue.NewStatic("ok")), m)

	offset, err := p.PollOnce(context.Background(), 0)
	if err != nil {
		t.Fatalf("PollOnce() error = %v, want nil", err)
	}
	if offset != 12 {
		t.Errorf("offset = %d, want 12", offset)
	}
	sent := transport.sentMessages()
	if len(sent) != 1 || sent[0].chatID != 2 {
		t.Errorf("sent = %+v, want one message to chat 2", sent)
	}
	expected := `
# HELP projectbot_send_failures_total sendMessage calls that failed.
# TYPE projectbot_send_failures_total counter
projectbot_send_failures_total 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "projectbot_send_failures_total"); err != nil {
		t.Error(err)
	}
}

func TestRun_FetchErrorStopsLoop(t *testing.T) {
	t.Parallel()

	fetchErr := &telegram.TransportError{Method: "getUpdates", Err: errors.New("connection refused")}
	transport := &fakeTransport{fetchErr: fetchErr}
	p := newPoller(t, transport, newRouter(t, dialogue.NewStatic("x")), nil)

	err := p.Run(context.Background())
	var transportErr *telegram.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Run() error = %v, want *TransportError", err)
	}
}

func TestRun_ResponderErrorStopsLoop(t *testing.T) {
	t.Parallel()

	boom := errors.New("delegate exploded")
	transport := &fakeTransport{updates: []models.Update{textUpdate(1, 100, "hello")}}
	p := newPoller(t, transport, newRouter(t, dialogue.DelegateFunc(func(context.Context, string) (string, error) {
		return "", boom
	})), nil)

	if err := p.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if n := len(transport.sentMessages()); n != 0 {
		t.Errorf("sent %d messages, want 0", n)
	}
}

func TestRun_ThreadsOffsetAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{updates: []models.Update{textUpdate(7, 100, "/snitch")}}
	p := newPoller(t, transport, newRouter(t, dialogue.NewStatic("x")), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for {
		transport.mu.Lock()
		fetches := len(transport.offsets)
		transport.mu.Unlock()
		if fetches >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("poll loop did not fetch three times")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v, want nil on cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if transport.offsets[0] != 0 || transport.offsets[1] != 8 || transport.offsets[2] != 8 {
		t.Errorf("fetch offsets = %v, want [0 8 8 ...]", transport.offsets)
	}
	if len(transport.sent) != 1 || transport.sent[0].text != "Nada to read, Mate." {
		t.Errorf("sent = %+v, want the snitch reply once", transport.sent)
	}
}

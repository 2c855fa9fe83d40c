package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edgard/projectbot/internal/database"
	"github.com/edgard/projectbot/internal/logger"
)

const threadAnswerFormat = "I think its about %s\nThis thread might help you: https://stackoverflow.com/questions/%d"

// ThreadSource supplies the knowledge base the manager ranks.
type ThreadSource interface {
	ListThreads(ctx context.Context) ([]database.Thread, error)
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Source ThreadSource
	// Chitchat answers questions no thread matches well enough.
	Chitchat Delegate
	// MinScore is the lowest cosine similarity accepted as a match.
	MinScore float64
	Logger   *slog.Logger
}

// Manager answers programming questions by pointing at the most similar
// knowledge base thread, and hands everything else to a chit-chat delegate.
type Manager struct {
	source   ThreadSource
	chitchat Delegate
	minScore float64
	ranker   *Ranker
	log      *slog.Logger
}

// NewManager creates a retrieval manager. Call Reload to load the corpus.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Source == nil {
		return nil, errors.New("dialogue manager requires a thread source")
	}
	if opts.Chitchat == nil {
		return nil, errors.New("dialogue manager requires a chit-chat delegate")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	return &Manager{
		source:   opts.Source,
		chitchat: opts.Chitchat,
		minScore: opts.MinScore,
		ranker:   NewRanker(),
		log:      opts.Logger.With("component", "dialogue_manager"),
	}, nil
}

// Reload reads every thread from the source and swaps the ranked corpus.
// It returns the number of threads loaded.
func (m *Manager) Reload(ctx context.Context) (int, error) {
	threads, err := m.source.ListThreads(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	m.ranker.Load(threads)
	m.log.InfoContext(ctx, "Knowledge base loaded", "threads", len(threads))
	return len(threads), nil
}

// Threads returns the number of threads currently ranked.
func (m *Manager) Threads() int {
	return m.ranker.Len()
}

// GenerateAnswer implements Delegate.
func (m *Manager) GenerateAnswer(ctx context.Context, question string) (string, error) {
	match, ok := m.ranker.Best(question)
	if ok && match.Score >= m.minScore {
		m.log.DebugContext(ctx, "Question matched a thread",
			"tag", match.Thread.Tag, "post_id", match.Thread.PostID, "score", match.Score)
		return fmt.Sprintf(threadAnswerFormat, match.Thread.Tag, match.Thread.PostID), nil
	}

	m.log.DebugContext(ctx, "No thread matched, using chit-chat", "score", match.Score)
	answer, err := m.chitchat.GenerateAnswer(ctx, question)
	if err != nil {
		return "", fmt.Errorf("chit-chat delegate failed: %w", err)
	}
	return answer, nil
}

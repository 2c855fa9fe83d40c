package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the knowledge base operations. Methods accept a context for
// cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveThreads inserts threads, replacing the tag and title of any thread
	// whose post ID is already stored. It returns the number of rows written.
	SaveThreads(ctx context.Context, threads []Thread) (int, error)

	// ListThreads returns every stored thread ordered by ID.
	ListThreads(ctx context.Context) ([]Thread, error)

	// CountThreads returns the number of stored threads.
	CountThreads(ctx context.Context) (int, error)

	// DeleteAllThreads empties the knowledge base.
	DeleteAllThreads(ctx context.Context) error

	// RunSQLMaintenance performs database maintenance such as VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const upsertThreadQuery = `
    INSERT INTO threads (tag, post_id, title, created_at)
    VALUES (:tag, :post_id, :title, :created_at)
    ON CONFLICT (post_id) DO UPDATE SET tag = excluded.tag, title = excluded.title;
`

func (s *sqlxStore) SaveThreads(ctx context.Context, threads []Thread) (int, error) {
	if len(threads) == 0 {
		return 0, nil
	}

	for i, t := range threads {
		if t.Tag == "" || t.Title == "" {
			return 0, fmt.Errorf("thread %d (post %d) must have a tag and a title", i, t.PostID)
		}
		if t.PostID <= 0 {
			return 0, fmt.Errorf("thread %d must have a positive post_id, got %d", i, t.PostID)
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving threads", "error", err)
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	stmt, err := tx.PrepareNamedContext(ctx, upsertThreadQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare thread upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range threads {
		if threads[i].CreatedAt.IsZero() {
			threads[i].CreatedAt = now
		}
		if _, err := stmt.ExecContext(ctx, &threads[i]); err != nil {
			s.logger.ErrorContext(ctx, "Error saving thread", "post_id", threads[i].PostID, "error", err)
			return 0, fmt.Errorf("failed to save thread %d: %w", threads[i].PostID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit thread import", "error", err)
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Threads saved", "count", len(threads))
	return len(threads), nil
}

func (s *sqlxStore) ListThreads(ctx context.Context) ([]Thread, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var threads []Thread
	err := s.db.SelectContext(ctx, &threads, `SELECT id, tag, post_id, title, created_at FROM threads ORDER BY id`)
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while listing threads", "error", err)
		return nil, err
	case err != nil:
		s.logger.ErrorContext(ctx, "Error listing threads", "error", err)
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	return threads, nil
}

func (s *sqlxStore) CountThreads(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM threads`); err != nil {
		return 0, fmt.Errorf("failed to count threads: %w", err)
	}
	return count, nil
}

func (s *sqlxStore) DeleteAllThreads(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM threads`)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting threads", "error", err)
		return fmt.Errorf("failed to delete threads: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		s.logger.InfoContext(ctx, "Deleted all threads", "count", n)
	}
	return nil
}

// RunSQLMaintenance executes VACUUM, which SQLite requires to run outside a
// transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)")

	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}

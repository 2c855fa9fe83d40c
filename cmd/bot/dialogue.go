package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/projectbot/internal/bot/tasks"
	"github.com/edgard/projectbot/internal/config"
	"github.com/edgard/projectbot/internal/database"
	"github.com/edgard/projectbot/internal/dialogue"
	"github.com/edgard/projectbot/internal/gemini"
)

// dialogueStack is the delegate selected by dialogue.provider together with
// the knowledge base it was built on, if any.
type dialogueStack struct {
	delegate dialogue.Delegate

	// Set only for the retrieval provider.
	db      *sqlx.DB
	store   database.Store
	manager *dialogue.Manager
}

// Close releases the knowledge base connection.
func (s *dialogueStack) Close() {
	if s.db != nil {
		database.CloseDB(s.db)
	}
}

// newDialogueStack builds the delegate once, before the poll loop starts.
func newDialogueStack(ctx context.Context, cfg *config.Config, log *slog.Logger) (*dialogueStack, error) {
	switch cfg.Dialogue.Provider {
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.Gemini, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini delegate: %w", err)
		}
		return &dialogueStack{delegate: client}, nil

	case "retrieval":
		return newRetrievalStack(ctx, cfg, log)

	default:
		return &dialogueStack{delegate: dialogue.NewStatic(cfg.Dialogue.FallbackReply)}, nil
	}
}

func newRetrievalStack(ctx context.Context, cfg *config.Config, log *slog.Logger) (*dialogueStack, error) {
	var chitchat dialogue.Delegate = dialogue.NewStatic(cfg.Dialogue.FallbackReply)
	if cfg.Dialogue.Chitchat == "gemini" {
		client, err := gemini.NewClient(ctx, cfg.Gemini, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini chit-chat delegate: %w", err)
		}
		chitchat = client
	}

	db, err := database.NewDB(cfg.Dialogue.ResourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base %s: %w", cfg.Dialogue.ResourcePath, err)
	}
	store := database.NewStore(db, log)

	manager, err := dialogue.NewManager(dialogue.ManagerOptions{
		Source:   store,
		Chitchat: chitchat,
		MinScore: cfg.Dialogue.MinScore,
		Logger:   log,
	})
	if err != nil {
		database.CloseDB(db)
		return nil, err
	}

	n, err := manager.Reload(ctx)
	if err != nil {
		database.CloseDB(db)
		return nil, err
	}
	if n == 0 {
		log.Warn("Knowledge base is empty, every question goes to chit-chat",
			"path", cfg.Dialogue.ResourcePath)
	}

	return &dialogueStack{
		delegate: manager,
		db:       db,
		store:    store,
		manager:  manager,
	}, nil
}

// taskDeps exposes the knowledge base to scheduled tasks. Interface fields
// stay nil when there is no knowledge base so the tasks are not registered.
func (s *dialogueStack) taskDeps(deps tasks.TaskDeps) tasks.TaskDeps {
	if s.store != nil {
		deps.Store = s.store
	}
	if s.manager != nil {
		deps.Knowledge = s.manager
	}
	return deps
}

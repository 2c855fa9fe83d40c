// Package handlers classifies incoming message texts and produces the reply
// for each: canned command answers, or the dialogue delegate's answer.
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/edgard/projectbot/internal/logger"
)

// Route names the branch a message text was dispatched to.
type Route string

const (
	RouteStart            Route = "start"
	RouteUnseenCharacters Route = "unseen_characters"
	RouteMasterCommand    Route = "master_command"
	RouteDialogue         Route = "dialogue"
)

const (
	// StartCommand is the exact text that triggers the greeting.
	StartCommand = "/start"
	// CommandPrefix marks a text as a master command.
	CommandPrefix = "/"
)

// Request is one incoming message as seen by the router.
type Request struct {
	Text     string
	Username string
}

// Reply is the answer to a Request and the route that produced it.
type Reply struct {
	Text  string
	Route Route
}

// Router dispatches message texts. It performs no I/O besides calling the
// dialogue delegate.
type Router struct {
	deps     HandlerDeps
	commands map[string]CommandHandler
}

// NewRouter creates a router with the master command table registered.
func NewRouter(deps HandlerDeps) (*Router, error) {
	if deps.Delegate == nil {
		return nil, fmt.Errorf("router requires a dialogue delegate")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.StartedAt.IsZero() {
		deps.StartedAt = deps.Now()
	}
	deps.Logger = deps.Logger.With("component", "router")

	return &Router{
		deps:     deps,
		commands: RegisterMasterCommands(deps),
	}, nil
}

// Classify returns the route text takes, checked in order: the start
// command, any multi-byte character, the command prefix, then dialogue.
func Classify(text string) Route {
	switch {
	case text == StartCommand:
		return RouteStart
	case hasUnseenCharacters(text):
		return RouteUnseenCharacters
	case strings.HasPrefix(text, CommandPrefix):
		return RouteMasterCommand
	default:
		return RouteDialogue
	}
}

// hasUnseenCharacters reports whether text contains a character that does
// not encode to a single byte. This rejects all non-ASCII text, including
// valid Unicode.
func hasUnseenCharacters(text string) bool {
	return utf8.RuneCountInString(text) != len(text)
}

// ClassifyAndAnswer returns the answer for text. Master commands are served
// to anyone; delegate errors are returned unchanged.
func (r *Router) ClassifyAndAnswer(ctx context.Context, text string) (string, error) {
	reply, err := r.answer(ctx, Request{Text: text}, false)
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}

// Answer is ClassifyAndAnswer with the sender attached. When EnforceMaster
// is set, master commands from anyone but the configured master get the
// not-master notice instead.
func (r *Router) Answer(ctx context.Context, req Request) (Reply, error) {
	return r.answer(ctx, req, r.deps.EnforceMaster)
}

func (r *Router) answer(ctx context.Context, req Request, enforceMaster bool) (Reply, error) {
	route := Classify(req.Text)
	switch route {
	case RouteStart:
		return Reply{Text: r.deps.Messages.Start, Route: route}, nil

	case RouteUnseenCharacters:
		return Reply{Text: r.deps.Messages.UnseenCharacters, Route: route}, nil

	case RouteMasterCommand:
		if enforceMaster && !isMaster(r.deps.Master, req.Username) {
			r.deps.Logger.WarnContext(ctx, "Master command from non-master user",
				"username", req.Username, "command", req.Text)
			return Reply{Text: r.deps.Messages.NotMaster, Route: route}, nil
		}
		return Reply{Text: r.serveMasterCommand(ctx, req.Text), Route: route}, nil

	default:
		answer, err := r.deps.Delegate.GenerateAnswer(ctx, req.Text)
		if err != nil {
			return Reply{}, fmt.Errorf("dialogue delegate failed: %w", err)
		}
		return Reply{Text: answer, Route: route}, nil
	}
}

func (r *Router) serveMasterCommand(ctx context.Context, text string) string {
	if handler, ok := r.commands[text]; ok {
		return handler(ctx)
	}
	r.deps.Logger.DebugContext(ctx, "Unknown master command", "command", text)
	return r.deps.Messages.UnknownCommand
}

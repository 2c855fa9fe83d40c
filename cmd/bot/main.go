// Package main contains the entrypoint for the project bot.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/edgard/projectbot/internal/bot"
	"github.com/edgard/projectbot/internal/bot/handlers"
	"github.com/edgard/projectbot/internal/bot/tasks"
	"github.com/edgard/projectbot/internal/config"
	"github.com/edgard/projectbot/internal/logger"
	"github.com/edgard/projectbot/internal/metrics"
	"github.com/edgard/projectbot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := execute(ctx, os.Args[1:])
	stop() // Ensure context cancellation is signaled before exit
	os.Exit(exitCode)
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string) int {
	exitCode := 0
	root := newRootCmd(&exitCode)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error("Command failed", "error", err)
		return 1
	}
	return exitCode
}

func newRootCmd(exitCode *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "projectbot",
		Short:         "Telegram bot that answers project questions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			*exitCode = run(cmd.Context(), cmd.Flags())
			return nil
		},
	}

	config.RegisterFlags(cmd.PersistentFlags())
	cmd.AddCommand(newImportCmd())

	return cmd
}

// run initializes all components (config, logger, transport, dialogue
// delegate, router, poll loop, scheduler, metrics), blocks until shutdown and
// returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context, flags *pflag.FlagSet) int {
	configPath, _ := flags.GetString("config")

	cfg, err := config.LoadConfig(configPath, flags)
	if err != nil {
		if errors.Is(err, config.ErrMissingToken) {
			slog.Error("Please, set bot token through --token or TELEGRAM_TOKEN env variable")
			return 1
		}
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return 1
	}

	out, closeLog, err := logger.Output(cfg.Logger.File)
	if err != nil {
		slog.Error("Failed to open log file", "path", cfg.Logger.File, "error", err)
		return 1
	}
	defer closeLog()

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON, out)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON, "file", cfg.Logger.File)

	if cfg.Telegram.Master == "" {
		log.Warn("The bot has no master. To use master commands, put your username through --master or TELEGRAM_MASTER env variable")
	}

	client, err := telegram.NewClient(telegram.Options{
		Token:          cfg.Telegram.Token,
		BaseURL:        cfg.Telegram.BaseURL,
		RequestTimeout: cfg.Telegram.RequestTimeout,
		Logger:         log,
	})
	if err != nil {
		log.Error("Failed to create Telegram client", "error", err)
		return 1
	}

	if me, err := client.GetMe(ctx); err != nil {
		log.Warn("Failed to get bot info", "error", err)
	} else {
		log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)
	}

	stack, err := newDialogueStack(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize dialogue delegate", "provider", cfg.Dialogue.Provider, "error", err)
		return 1
	}
	defer stack.Close()

	m := metrics.New()
	if stack.manager != nil {
		m.SetKnowledgeThreads(stack.manager.Threads())
	}

	router, err := handlers.NewRouter(handlers.HandlerDeps{
		Logger:        log,
		Messages:      cfg.Messages,
		Delegate:      stack.delegate,
		Master:        cfg.Telegram.Master,
		EnforceMaster: cfg.Telegram.EnforceMaster,
		StartedAt:     time.Now(),
	})
	if err != nil {
		log.Error("Failed to create command router", "error", err)
		return 1
	}

	poller, err := bot.NewPoller(bot.PollerOptions{
		Transport:    client,
		Responder:    router,
		Logger:       log,
		Metrics:      m,
		PollTimeout:  cfg.Telegram.PollTimeout,
		PollInterval: cfg.Telegram.PollInterval,
	})
	if err != nil {
		log.Error("Failed to create poll loop", "error", err)
		return 1
	}

	taskMap := tasks.RegisterAllTasks(stack.taskDeps(tasks.TaskDeps{
		Logger:  log,
		Status:  poller,
		Metrics: m,
	}))
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, taskMap, m)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, poller, sched, m, cfg.Metrics.ListenAddress)

	log.Info("Ready to talk!")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil {
		var transportErr *telegram.TransportError
		if errors.As(runErr, &transportErr) {
			log.Error("Lost connection to Telegram", "method", transportErr.Method, "error", runErr)
		} else {
			log.Error("Bot stopped due to error", "error", runErr)
		}
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edgard/projectbot/internal/config"
	"github.com/edgard/projectbot/internal/database"
	"github.com/edgard/projectbot/internal/logger"
)

func newImportCmd() *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import <threads.tsv>",
		Short: "Load tag/post_id/title rows into the knowledge base",
		Long: "Reads a tab separated file of tag, post_id and title columns and stores the rows in the " +
			"SQLite knowledge base at dialogue.resource_path. Existing post ids are updated in place.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")

			// The token is not needed to fill the knowledge base.
			cfg, err := config.Read(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON, cmd.OutOrStdout())

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			threads, err := database.ParseThreadsTSV(f)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}

			db, err := database.NewDB(cfg.Dialogue.ResourcePath)
			if err != nil {
				return err
			}
			defer database.CloseDB(db)
			store := database.NewStore(db, log)

			ctx := cmd.Context()
			if replace {
				if err := store.DeleteAllThreads(ctx); err != nil {
					return err
				}
			}

			saved, err := store.SaveThreads(ctx, threads)
			if err != nil {
				return err
			}
			total, err := store.CountThreads(ctx)
			if err != nil {
				return err
			}

			log.Info("Knowledge base import finished",
				"file", args[0], "path", cfg.Dialogue.ResourcePath, "saved", saved, "total", total, "replaced", replace)
			return nil
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "Delete every stored thread before importing")
	return cmd
}

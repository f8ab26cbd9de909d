package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ContentEnricher/internal/app"
	"ContentEnricher/internal/config"
	"ContentEnricher/internal/logging"
	"ContentEnricher/internal/usecase"
)

var (
	migrateFlag bool
	rootCmd     = &cobra.Command{
		Use:          "contentenricher",
		Short:        "Enrich saved links, notes and images with metadata, tags and classification",
		SilenceUsage: true,
	}
)

func main() {
	rootCmd.PersistentFlags().BoolVar(&migrateFlag, "migrate", false, "Create the content table if it is missing")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the trigger API, queue workers and stale-pending sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
				return a.Serve(ctx)
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "enrich <content-id>",
		Short: "Enrich one pending item inline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
				out, err := a.Enrich(ctx, args[0])
				if err != nil {
					return err
				}
				if err := printOutcome(cmd.OutOrStdout(), out); err != nil {
					return err
				}
				return out.Err()
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "retrigger <content-id>",
		Short: "Reset an item to pending and re-run its whole plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
				out, err := a.Retrigger(ctx, args[0])
				if err != nil {
					return err
				}
				if err := printOutcome(cmd.OutOrStdout(), out); err != nil {
					return err
				}
				return out.Err()
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Re-submit items stuck in pending-analysis once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
				n, err := a.Sweep(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "resubmitted %d item(s)\n", n)
				return nil
			})
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func withApp(ctx context.Context, fn func(context.Context, *app.Application) error) error {
	cfg := config.Load()
	if migrateFlag {
		cfg.Database.Migrate = true
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		return err
	}
	defer application.Close()

	return fn(ctx, application)
}

func printOutcome(w io.Writer, out usecase.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

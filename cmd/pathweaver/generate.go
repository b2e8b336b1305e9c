package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shortbird/pathweaver/internal/observability"
	"github.com/shortbird/pathweaver/internal/pipeline"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate, review and create tasks for lessons without tasks",
	Long: `Runs one bulk generation session: scans the selected quests for lessons without tasks, drafts tasks for each lesson, shows the drafts and, once confirmed, writes every draft to the database.

Press Ctrl-C during generation to stop after the lesson in flight; nothing is written. Use --dry-run to stop after the preview.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runGenerate,
}

var (
	generateQuests []string
	generateDryRun bool
	generateYes    bool
)

func init() {
	generateCmd.Flags().StringSliceVarP(&generateQuests, "quest", "q", nil, "Quest ID to generate for (repeatable; defaults to every active quest)")
	generateCmd.Flags().IntP("count", "n", 5, "Tasks to generate per lesson")
	generateCmd.Flags().Int("concurrency", 5, "Lessons written to the database at once")
	generateCmd.Flags().Bool("include-unpublished", true, "Include unpublished lessons")
	generateCmd.Flags().String("api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	generateCmd.Flags().String("model", "", "Gemini model for task generation")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Show the generated tasks without creating them")
	generateCmd.Flags().BoolVarP(&generateYes, "yes", "y", false, "Create the tasks without asking")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := connectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	gen, closeGen, err := newGenerator(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeGen()

	quests, err := selectQuests(ctx, database, generateQuests)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(cmd.OutOrStdout()).WithVerbose(verbose)
	hooks := pipeline.Hooks{
		OnItemsCommitted: func() { log.Info("tasks committed") },
	}
	if verbose {
		hooks.OnProgress = printer.PrintProgress
	}

	session, err := pipeline.Open(ctx, pipeline.Deps{
		Source:    database,
		Generator: gen,
		Writer:    database,
		Recorder:  database,
		Log:       log,
	}, pipeline.Options{
		TasksPerLesson:     cfg.TasksPerLesson,
		Concurrency:        cfg.CommitConcurrency,
		IncludeUnpublished: cfg.ShouldIncludeUnpublished(),
		DefaultXP:          cfg.DefaultXP,
	}, hooks, quests)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() { _ = session.Close() }()

	view := session.View()
	printer.PrintLessons(view.Quests, view.ScanFailures)

	// The first interrupt lets the lesson in flight finish; after generation
	// the default signal behavior is restored.
	done := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			if err := session.Cancel(); err != nil {
				log.Warn("failed to cancel session", zap.Error(err))
			}
		case <-done:
		}
	}()
	summary, err := session.Start(context.WithoutCancel(ctx))
	interrupted := ctx.Err() != nil
	close(done)
	<-watcherDone
	stop()

	if interrupted && summary == nil {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	}
	if errors.Is(err, pipeline.ErrNoLessons) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Nothing to do.")
		return nil
	}
	if err != nil {
		return err
	}
	printer.PrintSummary(summary)
	if summary.Cancelled {
		return nil
	}

	snap := session.Ledger()
	printer.PrintPreview(snap, session.Lessons())
	if snap.TotalAccepted() == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No tasks were generated.")
		return nil
	}
	if generateDryRun {
		return nil
	}
	if !generateYes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Create %d tasks?", snap.TotalAccepted())) {
		return nil
	}

	outcome, err := session.Create(context.Background())
	if outcome == nil {
		return err
	}
	if err != nil {
		log.Warn("session did not close cleanly", zap.Error(err))
	}
	printer.PrintOutcome(outcome)
	if outcome.Failed > 0 {
		return fmt.Errorf("%d tasks could not be created", outcome.Failed)
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shortbird/pathweaver/internal/pipeline"
	"github.com/shortbird/pathweaver/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes generation sessions over REST, with progress streamed as Server-Sent Events.

Set redis_addr (or REDIS_ADDR) to fan progress events out through Redis so any instance can stream them.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	serveCmd.Flags().String("model", "", "Gemini model for task generation")
	serveCmd.Flags().String("redis-addr", "", "Redis address for progress events (optional, defaults to REDIS_ADDR env var)")
	serveCmd.Flags().Bool("migrate", false, "Apply the database schema before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := database.Migrate(ctx); err != nil {
			return err
		}
		log.Info("database schema applied")
	}

	gen, closeGen, err := newGenerator(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeGen()

	bus, err := newBus(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			log.Warn("failed to close event bus", zap.Error(err))
		}
	}()

	srv, err := server.New(server.Config{
		Port:      cfg.Port,
		Store:     database,
		Generator: gen,
		Bus:       bus,
		Log:       log,
		Session: pipeline.Options{
			TasksPerLesson:     cfg.TasksPerLesson,
			Concurrency:        cfg.CommitConcurrency,
			IncludeUnpublished: cfg.ShouldIncludeUnpublished(),
			DefaultXP:          cfg.DefaultXP,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shortbird/pathweaver/internal/config"
	"github.com/shortbird/pathweaver/internal/db"
	"github.com/shortbird/pathweaver/internal/events"
	"github.com/shortbird/pathweaver/internal/generation"
	"github.com/shortbird/pathweaver/internal/llm"
	"github.com/shortbird/pathweaver/internal/logger"
	"github.com/shortbird/pathweaver/internal/types"
)

// resolveConfig loads the config file, environment and defaults, then applies
// the flags that were set on cmd.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("db-url") {
		cfg.DatabaseURL, _ = flags.GetString("db-url")
	}
	if flags.Changed("api-key") {
		cfg.APIKey, _ = flags.GetString("api-key")
	}
	if flags.Changed("model") {
		cfg.Model, _ = flags.GetString("model")
	}
	if flags.Changed("count") {
		cfg.TasksPerLesson, _ = flags.GetInt("count")
	}
	if flags.Changed("concurrency") {
		cfg.CommitConcurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("include-unpublished") {
		include, _ := flags.GetBool("include-unpublished")
		cfg.IncludeUnpublished = &include
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("redis-addr") {
		cfg.RedisAddr, _ = flags.GetString("redis-addr")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

func connectDB(ctx context.Context, cfg config.Config) (*db.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}
	return db.Connect(ctx, cfg.DatabaseURL,
		db.WithMaxConns(cfg.CommitConcurrency+2),
		db.WithConnectTimeout(10*time.Second),
	)
}

// newGenerator returns the Gemini-backed task generator and a function that
// releases its client.
func newGenerator(ctx context.Context, cfg config.Config, log *zap.Logger) (generation.Generator, func(), error) {
	if cfg.APIKey == "" {
		return nil, nil, fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}
	system, err := generation.SystemInstruction()
	if err != nil {
		return nil, nil, err
	}
	llmConfig := llm.DefaultConfig().
		WithModel(llm.TierStandard, cfg.Model).
		WithSystemInstruction(system)
	client, err := llm.NewClient(ctx, llmConfig, cfg.APIKey, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return generation.NewLLMGenerator(client), func() { _ = client.Close() }, nil
}

// newBus returns a Redis bus when an address is configured and an in-process
// bus otherwise.
func newBus(ctx context.Context, cfg config.Config, log *zap.Logger) (events.Bus, error) {
	if cfg.RedisAddr == "" {
		return events.NewMemoryBus(log), nil
	}
	bus, err := events.NewRedisBus(ctx, cfg.RedisAddr, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return bus, nil
}

type questStore interface {
	ListQuests(ctx context.Context, activeOnly bool) ([]db.Quest, error)
	GetQuestsByID(ctx context.Context, ids []string) ([]db.Quest, error)
}

// selectQuests resolves quest ids to references. No ids selects every active quest.
func selectQuests(ctx context.Context, store questStore, ids []string) ([]types.QuestRef, error) {
	if len(ids) == 0 {
		quests, err := store.ListQuests(ctx, true)
		if err != nil {
			return nil, err
		}
		return db.QuestRefs(quests), nil
	}

	quests, err := store.GetQuestsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(quests) != len(ids) {
		found := make(map[string]bool, len(quests))
		for _, q := range quests {
			found[q.ID] = true
		}
		var missing []string
		for _, id := range ids {
			if !found[id] {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("unknown quests: %s", strings.Join(missing, ", "))
		}
	}
	return db.QuestRefs(quests), nil
}

// confirm asks a yes/no question and reports whether the answer was yes.
func confirm(in io.Reader, out io.Writer, question string) bool {
	_, _ = fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

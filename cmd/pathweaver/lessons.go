package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shortbird/pathweaver/internal/observability"
	"github.com/shortbird/pathweaver/internal/scan"
	"github.com/shortbird/pathweaver/internal/types"
)

var lessonsCmd = &cobra.Command{
	Use:   "lessons",
	Short: "List lessons that have no tasks yet",
	Long:  `Scans the selected quests (every active quest by default) and lists the lessons that tasks can be generated for, grouped by quest.`,
	RunE:  runLessons,
}

var lessonsQuests []string

func init() {
	lessonsCmd.Flags().StringSliceVarP(&lessonsQuests, "quest", "q", nil, "Quest ID to scan (repeatable; defaults to every active quest)")
	lessonsCmd.Flags().Bool("include-unpublished", true, "Include unpublished lessons")
	rootCmd.AddCommand(lessonsCmd)
}

func runLessons(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	database, err := connectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	quests, err := selectQuests(ctx, database, lessonsQuests)
	if err != nil {
		return err
	}

	results := scan.NewScanner(database, cfg.ShouldIncludeUnpublished(), log).Scan(ctx, quests)
	var failed []string
	for _, r := range scan.Failed(results) {
		failed = append(failed, r.Quest.ID)
	}

	observability.NewPrinter(cmd.OutOrStdout()).
		WithVerbose(verbose).
		PrintLessons(types.GroupByQuest(scan.Flatten(results)), failed)
	return nil
}

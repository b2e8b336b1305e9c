package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortbird/pathweaver/internal/db"
	"github.com/shortbird/pathweaver/internal/types"
)

func envWithout(keys ...string) []string {
	var env []string
	for _, e := range os.Environ() {
		keep := true
		for _, k := range keys {
			if strings.HasPrefix(e, k+"=") {
				keep = false
			}
		}
		if keep {
			env = append(env, e)
		}
	}
	return env
}

func TestGenerateCommand_MissingDatabaseURL(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "generate", "--dry-run")
	cmd.Dir = t.TempDir()
	cmd.Env = envWithout("DATABASE_URL")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "DATABASE_URL environment variable or --db-url flag is required")
}

func TestGenerateCommand_InvalidCount(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "generate", "--count", "99")
	cmd.Dir = t.TempDir()
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "'tasks_per_lesson' must be at most 20")
}

func TestCommand_BadConfigFile(t *testing.T) {
	binaryPath := getBinaryPath(t)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{ nope"), 0644))

	output, err := exec.Command(binaryPath, "lessons", "--config", path).CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "failed to load config")
}

func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("db-url", "", "")
	cmd.Flags().String("api-key", "", "")
	cmd.Flags().Int("count", 5, "")
	cmd.Flags().Int("concurrency", 5, "")
	cmd.Flags().Bool("include-unpublished", true, "")
	return cmd
}

func TestResolveConfig_FlagsOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LOG_MODE", "")
	configPath = ""

	cmd := newFlagCommand()
	require.NoError(t, cmd.Flags().Set("count", "3"))
	require.NoError(t, cmd.Flags().Set("include-unpublished", "false"))

	cfg, err := resolveConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, 3, cfg.TasksPerLesson)
	assert.Equal(t, 5, cfg.CommitConcurrency, "unchanged flags keep the resolved value")
	assert.False(t, cfg.ShouldIncludeUnpublished())
}

func TestResolveConfig_ConfigFileThenFlags(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_MODE", "")
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"database_url":"postgres://file/db","commit_concurrency":8}`), 0644))
	configPath = path
	t.Cleanup(func() { configPath = "" })

	cmd := newFlagCommand()
	require.NoError(t, cmd.Flags().Set("db-url", "postgres://flag/db"))

	cfg, err := resolveConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, "postgres://flag/db", cfg.DatabaseURL)
	assert.Equal(t, 8, cfg.CommitConcurrency)
}

func TestResolveConfig_InvalidFlag(t *testing.T) {
	configPath = ""
	cmd := newFlagCommand()
	require.NoError(t, cmd.Flags().Set("concurrency", "500"))

	_, err := resolveConfig(cmd)
	assert.ErrorContains(t, err, "commit_concurrency")
}

type fakeQuestStore struct {
	quests []db.Quest
}

func (f *fakeQuestStore) ListQuests(_ context.Context, activeOnly bool) ([]db.Quest, error) {
	var out []db.Quest
	for _, q := range f.quests {
		if q.IsActive || !activeOnly {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuestStore) GetQuestsByID(_ context.Context, ids []string) ([]db.Quest, error) {
	var out []db.Quest
	for _, id := range ids {
		for _, q := range f.quests {
			if q.ID == id {
				out = append(out, q)
			}
		}
	}
	return out, nil
}

func TestSelectQuests(t *testing.T) {
	store := &fakeQuestStore{quests: []db.Quest{
		{ID: "q1", Title: "Gardening", IsActive: true},
		{ID: "q2", Title: "Old", IsActive: false},
		{ID: "q3", Title: "Music", IsActive: true},
	}}
	ctx := context.Background()

	refs, err := selectQuests(ctx, store, nil)
	require.NoError(t, err)
	assert.Equal(t, []types.QuestRef{{ID: "q1", Title: "Gardening"}, {ID: "q3", Title: "Music"}}, refs)

	refs, err = selectQuests(ctx, store, []string{"q2", "q1"})
	require.NoError(t, err)
	assert.Equal(t, []types.QuestRef{{ID: "q2", Title: "Old"}, {ID: "q1", Title: "Gardening"}}, refs)

	_, err = selectQuests(ctx, store, []string{"q1", "q9"})
	assert.ErrorContains(t, err, "unknown quests: q9")
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes ", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"maybe\n", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			got := confirm(strings.NewReader(tt.input), &out, "Create 3 tasks?")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Create 3 tasks? [y/N]: ", out.String())
		})
	}
}

func TestPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRuns(&buf, nil))
	assert.Equal(t, "No generation runs yet.\n", buf.String())

	buf.Reset()
	require.NoError(t, printRuns(&buf, []types.GenerationRun{{
		StartedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local),
		LessonCount: 4,
		RunResult: types.RunResult{
			Status:         types.RunStatusCommitted,
			LessonsFailed:  1,
			TasksGenerated: 15,
			TasksCreated:   12,
		},
	}}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"STARTED", "STATUS", "LESSONS", "FAILED", "GENERATED", "CREATED"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"2026-03-01", "12:00:00", "committed", "4", "1", "15", "12"}, strings.Fields(lines[1]))
}

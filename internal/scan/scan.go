// Package scan discovers the lessons that still need generated tasks.
package scan

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shortbird/pathweaver/internal/logger"
	"github.com/shortbird/pathweaver/internal/types"
)

// Source lists the lessons of a quest.
type Source interface {
	ListLessons(ctx context.Context, questID string, includeUnpublished bool) ([]types.Lesson, error)
}

// QuestResult is the outcome of scanning a single quest. Exactly one of
// Lessons or Err is meaningful.
type QuestResult struct {
	Quest   types.QuestRef
	Lessons []types.Lesson
	Err     error
}

// Scanner fetches lessons for many quests in parallel.
type Scanner struct {
	source             Source
	includeUnpublished bool
	log                *zap.Logger
}

// NewScanner creates a scanner over source.
func NewScanner(source Source, includeUnpublished bool, log *zap.Logger) *Scanner {
	return &Scanner{
		source:             source,
		includeUnpublished: includeUnpublished,
		log:                logger.OrNop(log),
	}
}

// Scan fetches every quest concurrently and returns one result per quest, in
// input order. A failing quest never affects the others.
func (s *Scanner) Scan(ctx context.Context, quests []types.QuestRef) []QuestResult {
	results := make([]QuestResult, len(quests))

	var g errgroup.Group
	for i, quest := range quests {
		g.Go(func() error {
			lessons, err := s.source.ListLessons(ctx, quest.ID, s.includeUnpublished)
			if err != nil {
				results[i] = QuestResult{Quest: quest, Err: &DiscoveryError{QuestID: quest.ID, Cause: err}}
				return nil
			}
			results[i] = QuestResult{Quest: quest, Lessons: eligible(quest, lessons)}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Eligible scans quests and flattens the successful results.
func (s *Scanner) Eligible(ctx context.Context, quests []types.QuestRef) []types.Lesson {
	results := s.Scan(ctx, quests)
	for _, r := range results {
		if r.Err != nil {
			s.log.Warn("quest scan failed, skipping its lessons",
				zap.String("quest_id", r.Quest.ID),
				zap.Error(r.Err),
			)
		}
	}
	return Flatten(results)
}

// Flatten concatenates the lessons of successful results and drops failed ones.
func Flatten(results []QuestResult) []types.Lesson {
	var lessons []types.Lesson
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		lessons = append(lessons, r.Lessons...)
	}
	return lessons
}

// Failed returns the results whose fetch failed.
func Failed(results []QuestResult) []QuestResult {
	var failed []QuestResult
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// eligible keeps lessons with no linked tasks and fills in quest metadata the
// source may have left out.
func eligible(quest types.QuestRef, lessons []types.Lesson) []types.Lesson {
	out := make([]types.Lesson, 0, len(lessons))
	for _, l := range lessons {
		if l.HasLinkedTasks() {
			continue
		}
		if l.QuestID == "" {
			l.QuestID = quest.ID
		}
		if l.QuestTitle == "" {
			l.QuestTitle = quest.Title
		}
		out = append(out, l)
	}
	return out
}

// Package commit writes accepted tasks to the store in bounded concurrent batches.
package commit

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shortbird/pathweaver/internal/logger"
	"github.com/shortbird/pathweaver/internal/review"
	"github.com/shortbird/pathweaver/internal/types"
)

// DefaultConcurrency caps simultaneous in-flight writes.
const DefaultConcurrency = 5

// Writer stores tasks for a lesson. It must be safe to call concurrently for
// different lessons.
type Writer interface {
	CreateTasks(ctx context.Context, lessonID string, tasks []types.TaskDraft, linkToLesson bool) error
}

// Outcome aggregates a commit run.
type Outcome struct {
	Created int           `json:"created"`
	Failed  int           `json:"failed"`
	Errors  []CommitError `json:"-"`
}

// Message summarizes the outcome for the user.
func (o Outcome) Message() string {
	if o.Failed > 0 {
		return fmt.Sprintf("Created %d tasks, %d failed", o.Created, o.Failed)
	}
	return fmt.Sprintf("Created %d tasks", o.Created)
}

// BuildRequests builds one request per lesson with accepted tasks, in lesson
// order. Lessons with nothing accepted are skipped.
func BuildRequests(snap *review.Snapshot, lessons []types.Lesson) []types.CommitRequest {
	var requests []types.CommitRequest
	for _, l := range lessons {
		accepted := snap.Accepted(l.ID)
		if len(accepted) == 0 {
			continue
		}
		drafts := make([]types.TaskDraft, len(accepted))
		for i, task := range accepted {
			drafts[i] = task.Draft()
		}
		requests = append(requests, types.CommitRequest{
			LessonID: l.ID,
			QuestID:  l.QuestID,
			Tasks:    drafts,
		})
	}
	return requests
}

// Batches partitions requests into consecutive groups of at most size.
func Batches(requests []types.CommitRequest, size int) [][]types.CommitRequest {
	if size <= 0 {
		size = DefaultConcurrency
	}
	var batches [][]types.CommitRequest
	for start := 0; start < len(requests); start += size {
		end := min(start+size, len(requests))
		batches = append(batches, requests[start:end])
	}
	return batches
}

// Batcher commits accepted tasks through a Writer.
type Batcher struct {
	writer Writer
	log    *zap.Logger
}

// NewBatcher creates a batcher over writer.
func NewBatcher(writer Writer, log *zap.Logger) *Batcher {
	return &Batcher{writer: writer, log: logger.OrNop(log)}
}

// Commit writes every accepted task. Batches run one after another; requests
// within a batch run concurrently and fail independently. onProgress receives
// the cumulative percentage of completed batches after each batch.
// Failed requests are not retried.
func (b *Batcher) Commit(
	ctx context.Context,
	snap *review.Snapshot,
	lessons []types.Lesson,
	concurrency int,
	onProgress func(percent int),
) Outcome {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	batches := Batches(BuildRequests(snap, lessons), concurrency)

	var outcome Outcome
	for i, batch := range batches {
		errs := make([]error, len(batch))

		var g errgroup.Group
		for j, req := range batch {
			g.Go(func() error {
				errs[j] = b.writer.CreateTasks(ctx, req.LessonID, req.Tasks, true)
				return nil
			})
		}
		_ = g.Wait()

		for j, req := range batch {
			if errs[j] == nil {
				outcome.Created += len(req.Tasks)
				continue
			}
			commitErr := CommitError{LessonID: req.LessonID, Count: len(req.Tasks), Cause: errs[j]}
			outcome.Failed += len(req.Tasks)
			outcome.Errors = append(outcome.Errors, commitErr)
			b.log.Warn("failed to create tasks",
				zap.String("lesson_id", req.LessonID),
				zap.Int("count", len(req.Tasks)),
				zap.Error(errs[j]),
			)
		}

		if onProgress != nil {
			onProgress(Percent(i+1, len(batches)))
		}
	}

	return outcome
}

// Percent returns round(100*done/total).
func Percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

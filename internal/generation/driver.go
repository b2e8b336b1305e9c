package generation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/shortbird/pathweaver/internal/content"
	"github.com/shortbird/pathweaver/internal/logger"
	"github.com/shortbird/pathweaver/internal/types"
)

// Result is the outcome of generating for one lesson. Exactly one of Tasks
// or Err is meaningful.
type Result struct {
	Tasks []types.GeneratedTask
	Err   error
}

// OK reports whether generation succeeded for the lesson.
func (r Result) OK() bool {
	return r.Err == nil
}

// Driver calls a Generator for each lesson, strictly one after another.
type Driver struct {
	gen       Generator
	defaultXP int
	newMinter func() *IDMinter
	log       *zap.Logger
}

// NewDriver creates a driver over gen.
func NewDriver(gen Generator, log *zap.Logger) *Driver {
	return &Driver{
		gen:       gen,
		defaultXP: types.DefaultXPValue,
		newMinter: NewIDMinter,
		log:       logger.OrNop(log),
	}
}

// WithDefaultXP sets the XP value used when the generator omits one.
func (d *Driver) WithDefaultXP(xp int) *Driver {
	if xp > 0 {
		d.defaultXP = xp
	}
	return d
}

// Generate runs the generator over lessons and returns one Result per lesson
// that was processed.
//
// onProgress is called with the lesson index before each lesson. isCancelled
// is checked before each lesson; once it reports true (or ctx is done) no
// further lessons are started and the results gathered so far are returned.
// A failing lesson never stops the run.
func (d *Driver) Generate(
	ctx context.Context,
	lessons []types.Lesson,
	perLesson int,
	onProgress func(index int),
	isCancelled func() bool,
) map[string]Result {
	results := make(map[string]Result, len(lessons))
	minter := d.newMinter()

	for i, lesson := range lessons {
		if cancelled(ctx, isCancelled) {
			d.log.Info("generation cancelled",
				zap.Int("completed", len(results)),
				zap.Int("total", len(lessons)),
			)
			break
		}
		if onProgress != nil {
			onProgress(i)
		}

		results[lesson.ID] = d.generateOne(ctx, minter, lesson, perLesson)
	}

	return results
}

func (d *Driver) generateOne(ctx context.Context, minter *IDMinter, lesson types.Lesson, count int) Result {
	text := content.ExtractRaw(lesson.Content)
	if strings.TrimSpace(text) == "" {
		err := &NoContentError{LessonID: lesson.ID}
		d.log.Warn("lesson skipped", zap.String("lesson_id", lesson.ID), zap.Error(err))
		return Result{Err: err}
	}

	resp, err := d.gen.Generate(ctx, Request{
		LessonID: lesson.ID,
		Text:     text,
		Title:    lesson.Title,
		Count:    count,
	})
	if err != nil || resp == nil || !resp.Success {
		genErr := &GenerationError{LessonID: lesson.ID, Cause: err}
		var msg string
		if err == nil && resp != nil {
			msg = resp.Error
		}
		genErr.Message = failureMessage(msg, err)
		d.log.Warn("generation failed for lesson",
			zap.String("lesson_id", lesson.ID),
			zap.String("message", genErr.Message),
		)
		return Result{Err: genErr}
	}

	tasks := make([]types.GeneratedTask, 0, len(resp.Tasks))
	for _, raw := range resp.Tasks {
		xp := d.defaultXP
		if raw.XPValue != nil {
			xp = *raw.XPValue
		}
		tasks = append(tasks, types.GeneratedTask{
			ID:          minter.Next(lesson.ID),
			LessonID:    lesson.ID,
			QuestID:     lesson.QuestID,
			Title:       raw.Title,
			Description: raw.Description,
			Pillar:      raw.Pillar,
			XPValue:     xp,
		})
	}
	return Result{Tasks: tasks}
}

func cancelled(ctx context.Context, isCancelled func() bool) bool {
	if ctx.Err() != nil {
		return true
	}
	return isCancelled != nil && isCancelled()
}

// Package pipeline drives one bulk task generation session through its
// phases: loading, idle, generating, preview, creating and closed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shortbird/pathweaver/internal/commit"
	"github.com/shortbird/pathweaver/internal/generation"
	"github.com/shortbird/pathweaver/internal/logger"
	"github.com/shortbird/pathweaver/internal/review"
	"github.com/shortbird/pathweaver/internal/scan"
	"github.com/shortbird/pathweaver/internal/types"
)

const recordTimeout = 5 * time.Second

// ProgressEvent is a presentation-only update emitted while a session runs.
type ProgressEvent struct {
	SessionID string `json:"session_id"`
	Phase     Phase  `json:"phase"`
	Message   string `json:"message"`
	LessonID  string `json:"lesson_id,omitempty"`
	Current   int    `json:"current,omitempty"`
	Total     int    `json:"total,omitempty"`
	Percent   int    `json:"percent,omitempty"`
}

// Hooks are the caller-facing events of a session. Any hook may be nil.
type Hooks struct {
	// OnClose fires once when the session reaches the closed phase.
	OnClose func()
	// OnItemsCommitted fires once after the creating phase completes.
	OnItemsCommitted func()
	// OnProgress receives progress and phase changes.
	OnProgress func(ProgressEvent)
}

// RunRecorder persists an audit record of each generation run.
type RunRecorder interface {
	CreateRun(ctx context.Context, sessionID string, lessonCount int) (uuid.UUID, error)
	CompleteRun(ctx context.Context, runID uuid.UUID, result types.RunResult) error
}

// Deps are the external collaborators of a session.
type Deps struct {
	Source    scan.Source
	Generator generation.Generator
	Writer    commit.Writer
	Recorder  RunRecorder
	Log       *zap.Logger
}

// Options configure a session.
type Options struct {
	ID                 string
	TasksPerLesson     int
	Concurrency        int
	IncludeUnpublished bool
	DefaultXP          int
}

// DefaultTasksPerLesson is used when Options.TasksPerLesson is zero.
const DefaultTasksPerLesson = 5

// Progress is the latest progress counter of the running phase.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

// View is a read-only picture of the session for presentation.
type View struct {
	ID             string               `json:"id"`
	Phase          Phase                `json:"phase"`
	Quests         []types.QuestLessons `json:"quests"`
	LessonCount    int                  `json:"lesson_count"`
	ScanFailures   []string             `json:"scan_failures,omitempty"`
	Progress       Progress             `json:"progress"`
	Review         []review.LessonView  `json:"review,omitempty"`
	TotalGenerated int                  `json:"total_generated"`
	TotalAccepted  int                  `json:"total_accepted"`
	Summary        *GenerationSummary   `json:"summary,omitempty"`
	Warnings       []string             `json:"warnings,omitempty"`
	Outcome        *commit.Outcome      `json:"outcome,omitempty"`
	Message        string               `json:"message,omitempty"`
}

// Session is one open pipeline. Sessions are never reused; re-opening means
// calling Open again.
type Session struct {
	id       string
	opts     Options
	hooks    Hooks
	recorder RunRecorder
	log      *zap.Logger

	scanner *scan.Scanner
	driver  *generation.Driver
	batcher *commit.Batcher
	ledger  *review.Ledger

	cancelRequested atomic.Bool
	closeOnce       sync.Once

	mu           sync.Mutex
	phase        Phase
	history      []Phase
	lessons      []types.Lesson
	scanFailures []string
	progress     Progress
	summary      *GenerationSummary
	outcome      *commit.Outcome
	runID        uuid.UUID
	hasRun       bool
}

// Open creates a session, scans quests for eligible lessons and leaves the
// session idle. Scan failures for individual quests only shrink the lesson list.
func Open(ctx context.Context, deps Deps, opts Options, hooks Hooks, quests []types.QuestRef) (*Session, error) {
	if deps.Source == nil || deps.Generator == nil || deps.Writer == nil {
		return nil, fmt.Errorf("source, generator and writer are required")
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.TasksPerLesson <= 0 {
		opts.TasksPerLesson = DefaultTasksPerLesson
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = commit.DefaultConcurrency
	}

	log := logger.OrNop(deps.Log).With(zap.String("session_id", opts.ID))
	s := &Session{
		id:       opts.ID,
		opts:     opts,
		hooks:    hooks,
		recorder: deps.Recorder,
		log:      log,
		scanner:  scan.NewScanner(deps.Source, opts.IncludeUnpublished, log),
		driver:   generation.NewDriver(deps.Generator, log).WithDefaultXP(opts.DefaultXP),
		batcher:  commit.NewBatcher(deps.Writer, log),
		ledger:   review.NewLedger(),
		phase:    PhaseLoading,
		history:  []Phase{PhaseLoading},
	}
	s.emit(ProgressEvent{Phase: PhaseLoading, Message: fmt.Sprintf("Scanning %d quests", len(quests))})

	results := s.scanner.Scan(ctx, quests)
	lessons := scan.Flatten(results)
	var failures []string
	for _, r := range scan.Failed(results) {
		s.log.Warn("quest scan failed, skipping its lessons", zap.String("quest_id", r.Quest.ID), zap.Error(r.Err))
		failures = append(failures, r.Quest.ID)
	}

	s.mu.Lock()
	s.lessons = lessons
	s.scanFailures = failures
	err := s.transitionLocked(ActionScanned)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.log.Info("session opened",
		zap.Int("quests", len(quests)),
		zap.Int("lessons", len(lessons)),
		zap.Int("failed_quests", len(failures)),
	)
	s.emit(ProgressEvent{Phase: PhaseIdle, Message: fmt.Sprintf("Found %d lessons without tasks", len(lessons)), Total: len(lessons)})
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// History returns every phase the session has been in, in order.
func (s *Session) History() []Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

// Lessons returns the eligible lessons found by the scan.
func (s *Session) Lessons() []types.Lesson {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lessons)
}

// Ledger returns the current review snapshot.
func (s *Session) Ledger() *review.Snapshot {
	return s.ledger.Snapshot()
}

// Start generates tasks for every eligible lesson. It blocks until the run
// finishes or is cancelled. A cancelled run closes the session without
// entering preview and returns a summary with Cancelled set.
func (s *Session) Start(ctx context.Context) (*GenerationSummary, error) {
	run, err := s.Begin()
	if err != nil {
		return nil, err
	}
	return run(ctx)
}

// Begin moves the session into generating and returns the function that
// performs the run. Only one of several concurrent callers succeeds; the
// others get a transition error. The caller must invoke the returned
// function, usually on its own goroutine.
func (s *Session) Begin() (func(context.Context) (*GenerationSummary, error), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseIdle && len(s.lessons) == 0 {
		return nil, ErrNoLessons
	}
	if err := s.transitionLocked(ActionStart); err != nil {
		return nil, err
	}
	lessons := slices.Clone(s.lessons)
	s.progress = Progress{Total: len(lessons)}
	return func(ctx context.Context) (*GenerationSummary, error) {
		return s.generate(ctx, lessons)
	}, nil
}

func (s *Session) generate(ctx context.Context, lessons []types.Lesson) (*GenerationSummary, error) {
	s.log.Info("generation started", zap.Int("lessons", len(lessons)), zap.Int("per_lesson", s.opts.TasksPerLesson))
	s.startRun(ctx, len(lessons))

	results := s.driver.Generate(ctx, lessons, s.opts.TasksPerLesson, func(i int) {
		s.mu.Lock()
		s.progress = Progress{Current: i + 1, Total: len(lessons), Percent: commit.Percent(i, len(lessons))}
		s.mu.Unlock()
		s.emit(ProgressEvent{
			Phase:    PhaseGenerating,
			Message:  fmt.Sprintf("Generating tasks for lesson %d of %d", i+1, len(lessons)),
			LessonID: lessons[i].ID,
			Current:  i + 1,
			Total:    len(lessons),
		})
	}, s.cancelRequested.Load)

	// Cancel sets the flag under s.mu, so reading it here cannot miss a
	// request made after the last lesson finished.
	s.mu.Lock()
	cancelled := s.cancelRequested.Load() || ctx.Err() != nil
	summary := Summarize(lessons, results, cancelled)
	s.summary = summary
	if cancelled {
		err := s.transitionLocked(ActionAborted)
		s.mu.Unlock()
		if err != nil {
			return summary, err
		}
		s.log.Info("generation cancelled", zap.Int("completed", len(results)), zap.Int("lessons", len(lessons)))
		s.finish(types.RunResult{
			Status:           types.RunStatusCancelled,
			LessonsSucceeded: summary.Succeeded,
			LessonsFailed:    summary.Failed,
		})
		return summary, nil
	}

	order := make([]string, len(lessons))
	for i, l := range lessons {
		order[i] = l.ID
	}
	s.ledger.Initialize(order, results)
	s.progress = Progress{Current: len(lessons), Total: len(lessons), Percent: 100}
	err := s.transitionLocked(ActionGenerated)
	s.mu.Unlock()
	if err != nil {
		return summary, err
	}

	s.log.Info("generation finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("tasks", s.ledger.Snapshot().TotalGenerated()),
	)
	s.emit(ProgressEvent{Phase: PhasePreview, Message: summary.Message(), Current: len(lessons), Total: len(lessons), Percent: 100})
	return summary, nil
}

// Cancel cancels the session. Idle and preview sessions close at once with no
// side effects. A generating session stops after the lesson in flight and
// then closes. Loading and creating sessions cannot be cancelled. Cancelling
// a closed session does nothing.
func (s *Session) Cancel() error {
	s.mu.Lock()
	switch s.phase {
	case PhaseClosed:
		s.mu.Unlock()
		return nil
	case PhaseGenerating:
		s.cancelRequested.Store(true)
		s.mu.Unlock()
		s.log.Info("cancellation requested")
		return nil
	case PhaseLoading, PhaseCreating:
		phase := s.phase
		s.mu.Unlock()
		return fmt.Errorf("%w: session is %s", ErrNotCancellable, phase)
	}

	from := s.phase
	err := s.transitionLocked(ActionCancel)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.log.Info("session closed", zap.Stringer("from", from))
	s.finish(s.closeResult(from))
	return nil
}

// Close discards the session. It behaves like Cancel.
func (s *Session) Close() error {
	return s.Cancel()
}

// Accept marks a generated task as accepted.
func (s *Session) Accept(lessonID string, task types.GeneratedTask) error {
	return s.reviewOp(func() error { return s.ledger.Accept(lessonID, task) })
}

// AcceptID marks the task with taskID as accepted.
func (s *Session) AcceptID(lessonID, taskID string) error {
	return s.reviewOp(func() error { return s.ledger.AcceptID(lessonID, taskID) })
}

// Reject deselects a generated task.
func (s *Session) Reject(lessonID, taskID string) error {
	return s.reviewOp(func() error { return s.ledger.Reject(lessonID, taskID) })
}

// Edit applies patch to a generated task.
func (s *Session) Edit(lessonID, taskID string, patch types.TaskPatch) error {
	if err := patch.Validate(); err != nil {
		return fmt.Errorf("invalid task patch: %w", err)
	}
	return s.reviewOp(func() error { return s.ledger.Edit(lessonID, taskID, patch) })
}

// AcceptAll accepts every generated task.
func (s *Session) AcceptAll() error {
	return s.reviewOp(func() error { s.ledger.AcceptAll(); return nil })
}

// RejectAll deselects every generated task.
func (s *Session) RejectAll() error {
	return s.reviewOp(func() error { s.ledger.RejectAll(); return nil })
}

func (s *Session) reviewOp(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePreview {
		return fmt.Errorf("%w: session is %s", ErrNotReviewing, s.phase)
	}
	return fn()
}

// Create writes every accepted task to the store. It cannot be cancelled once
// started, and the session closes when it completes regardless of failures.
func (s *Session) Create(ctx context.Context) (*commit.Outcome, error) {
	s.mu.Lock()
	if s.phase == PhasePreview && s.ledger.Snapshot().TotalAccepted() == 0 {
		s.mu.Unlock()
		return nil, ErrNothingAccepted
	}
	if err := s.transitionLocked(ActionCreate); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	snap := s.ledger.Snapshot()
	lessons := slices.Clone(s.lessons)
	s.progress = Progress{}
	s.mu.Unlock()

	s.log.Info("creating tasks", zap.Int("accepted", snap.TotalAccepted()))
	s.emit(ProgressEvent{Phase: PhaseCreating, Message: fmt.Sprintf("Creating %d tasks", snap.TotalAccepted())})

	outcome := s.batcher.Commit(ctx, snap, lessons, s.opts.Concurrency, func(percent int) {
		s.mu.Lock()
		s.progress.Percent = percent
		s.mu.Unlock()
		s.emit(ProgressEvent{Phase: PhaseCreating, Message: fmt.Sprintf("Creating tasks: %d%%", percent), Percent: percent})
	})

	s.mu.Lock()
	s.outcome = &outcome
	err := s.transitionLocked(ActionCommitted)
	s.mu.Unlock()

	s.log.Info("tasks created", zap.Int("created", outcome.Created), zap.Int("failed", outcome.Failed))
	if s.hooks.OnItemsCommitted != nil {
		s.hooks.OnItemsCommitted()
	}

	result := types.RunResult{
		Status:         types.RunStatusCommitted,
		TasksGenerated: snap.TotalGenerated(),
		TasksCreated:   outcome.Created,
		TasksFailed:    outcome.Failed,
	}
	if sum := s.Summary(); sum != nil {
		result.LessonsSucceeded = sum.Succeeded
		result.LessonsFailed = sum.Failed
	}
	s.finish(result)
	return &outcome, err
}

// Summary returns the generation summary, or nil before generation finished.
func (s *Session) Summary() *GenerationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// View returns a read-only picture of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:           s.id,
		Phase:        s.phase,
		Quests:       types.GroupByQuest(s.lessons),
		LessonCount:  len(s.lessons),
		ScanFailures: slices.Clone(s.scanFailures),
		Progress:     s.progress,
		Summary:      s.summary,
		Outcome:      s.outcome,
	}
	if s.summary != nil {
		v.Warnings = s.summary.Warnings()
		v.Message = s.summary.Message()
	}
	if s.phase == PhasePreview {
		snap := s.ledger.Snapshot()
		v.Review = snap.View()
		v.TotalGenerated = snap.TotalGenerated()
		v.TotalAccepted = snap.TotalAccepted()
	}
	if s.outcome != nil {
		v.Message = s.outcome.Message()
	}
	return v
}

// transitionLocked applies a and records the new phase. s.mu must be held.
func (s *Session) transitionLocked(a Action) error {
	next, err := Transition(s.phase, a)
	if err != nil {
		return err
	}
	s.phase = next
	s.history = append(s.history, next)
	return nil
}

func (s *Session) closeResult(from Phase) types.RunResult {
	if from != PhasePreview {
		return types.RunResult{Status: types.RunStatusDiscarded}
	}
	result := types.RunResult{
		Status:         types.RunStatusDiscarded,
		TasksGenerated: s.ledger.Snapshot().TotalGenerated(),
	}
	if sum := s.Summary(); sum != nil {
		result.LessonsSucceeded = sum.Succeeded
		result.LessonsFailed = sum.Failed
	}
	return result
}

// startRun records the run when a recorder is configured. Recording
// failures are logged and never block generation.
func (s *Session) startRun(ctx context.Context, lessonCount int) {
	if s.recorder == nil {
		return
	}
	runID, err := s.recorder.CreateRun(ctx, s.id, lessonCount)
	if err != nil {
		s.log.Warn("failed to record generation run", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.runID = runID
	s.hasRun = true
	s.mu.Unlock()
}

// finish completes the run record and fires OnClose once.
func (s *Session) finish(result types.RunResult) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		runID, hasRun := s.runID, s.hasRun
		s.mu.Unlock()

		if hasRun {
			ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
			if err := s.recorder.CompleteRun(ctx, runID, result); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Warn("failed to complete generation run", zap.String("run_id", runID.String()), zap.Error(err))
			}
			cancel()
		}

		s.emit(ProgressEvent{Phase: PhaseClosed, Message: "Session closed"})
		if s.hooks.OnClose != nil {
			s.hooks.OnClose()
		}
	})
}

func (s *Session) emit(ev ProgressEvent) {
	if s.hooks.OnProgress == nil {
		return
	}
	ev.SessionID = s.id
	s.hooks.OnProgress(ev)
}

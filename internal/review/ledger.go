// Package review tracks which generated tasks a reviewer has accepted.
//
// A Ledger holds an immutable Snapshot. Every mutation builds a new snapshot
// and swaps it in, so a reader holding a Snapshot never observes a partial
// update.
package review

import (
	"slices"
	"sync"

	"github.com/shortbird/pathweaver/internal/generation"
	"github.com/shortbird/pathweaver/internal/types"
)

// Snapshot is a point-in-time view of the ledger. It must not be modified.
type Snapshot struct {
	order     []string
	generated map[string][]types.GeneratedTask
	accepted  map[string][]types.GeneratedTask
}

// Lessons returns the ids of lessons with generated tasks, in generation order.
func (s *Snapshot) Lessons() []string {
	return slices.Clone(s.order)
}

// Generated returns a copy of every generated task for a lesson.
func (s *Snapshot) Generated(lessonID string) []types.GeneratedTask {
	return slices.Clone(s.generated[lessonID])
}

// Accepted returns a copy of the accepted tasks for a lesson.
func (s *Snapshot) Accepted(lessonID string) []types.GeneratedTask {
	return slices.Clone(s.accepted[lessonID])
}

// IsAccepted reports whether the task is currently accepted.
func (s *Snapshot) IsAccepted(lessonID, taskID string) bool {
	return indexOf(s.accepted[lessonID], taskID) >= 0
}

// TotalGenerated counts generated tasks across all lessons.
func (s *Snapshot) TotalGenerated() int {
	total := 0
	for _, tasks := range s.generated {
		total += len(tasks)
	}
	return total
}

// TotalAccepted counts accepted tasks across all lessons.
func (s *Snapshot) TotalAccepted() int {
	total := 0
	for _, tasks := range s.accepted {
		total += len(tasks)
	}
	return total
}

// LessonView is one lesson's tasks with their acceptance state, for display.
type LessonView struct {
	LessonID string     `json:"lesson_id"`
	Tasks    []TaskView `json:"tasks"`
}

// TaskView is a generated task plus whether it is accepted.
type TaskView struct {
	types.GeneratedTask
	Accepted bool `json:"accepted"`
}

// View lists every lesson's generated tasks in order, marking the accepted ones.
func (s *Snapshot) View() []LessonView {
	views := make([]LessonView, 0, len(s.order))
	for _, id := range s.order {
		lv := LessonView{LessonID: id, Tasks: make([]TaskView, 0, len(s.generated[id]))}
		for _, task := range s.generated[id] {
			lv.Tasks = append(lv.Tasks, TaskView{GeneratedTask: task, Accepted: s.IsAccepted(id, task.ID)})
		}
		views = append(views, lv)
	}
	return views
}

// Ledger is the mutable handle over a sequence of snapshots.
type Ledger struct {
	mu   sync.Mutex
	snap *Snapshot
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{snap: emptySnapshot()}
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		generated: make(map[string][]types.GeneratedTask),
		accepted:  make(map[string][]types.GeneratedTask),
	}
}

// Snapshot returns the current snapshot.
func (l *Ledger) Snapshot() *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap
}

// Initialize replaces the ledger contents with the successful results, in
// the given lesson order. Every generated task starts out accepted.
func (l *Ledger) Initialize(order []string, results map[string]generation.Result) {
	next := emptySnapshot()
	for _, id := range order {
		r, ok := results[id]
		if !ok || !r.OK() {
			continue
		}
		if _, seen := next.generated[id]; seen {
			continue
		}
		next.order = append(next.order, id)
		next.generated[id] = slices.Clone(r.Tasks)
		next.accepted[id] = slices.Clone(r.Tasks)
	}

	l.mu.Lock()
	l.snap = next
	l.mu.Unlock()
}

// Accept marks task as accepted. Accepting an already accepted task is a
// no-op. The stored value is the ledger's generated version of the task, so
// earlier edits are kept.
func (l *Ledger) Accept(lessonID string, task types.GeneratedTask) error {
	return l.AcceptID(lessonID, task.ID)
}

// AcceptID marks the task with taskID as accepted.
func (l *Ledger) AcceptID(lessonID, taskID string) error {
	return l.update(func(cur *Snapshot) (*Snapshot, error) {
		generated, ok := cur.generated[lessonID]
		if !ok {
			return nil, ErrUnknownLesson
		}
		gi := indexOf(generated, taskID)
		if gi < 0 {
			return nil, ErrUnknownTask
		}
		if indexOf(cur.accepted[lessonID], taskID) >= 0 {
			return nil, nil
		}

		next := cur.withAccepted(lessonID, append(slices.Clone(cur.accepted[lessonID]), generated[gi]))
		return next, nil
	})
}

// Reject removes a task from the accepted list. The generated list is untouched.
func (l *Ledger) Reject(lessonID, taskID string) error {
	return l.update(func(cur *Snapshot) (*Snapshot, error) {
		generated, ok := cur.generated[lessonID]
		if !ok {
			return nil, ErrUnknownLesson
		}
		if indexOf(generated, taskID) < 0 {
			return nil, ErrUnknownTask
		}
		ai := indexOf(cur.accepted[lessonID], taskID)
		if ai < 0 {
			return nil, nil
		}

		accepted := slices.Delete(slices.Clone(cur.accepted[lessonID]), ai, ai+1)
		return cur.withAccepted(lessonID, accepted), nil
	})
}

// Edit merges patch into the task in both the generated and accepted lists.
func (l *Ledger) Edit(lessonID, taskID string, patch types.TaskPatch) error {
	return l.update(func(cur *Snapshot) (*Snapshot, error) {
		generated, ok := cur.generated[lessonID]
		if !ok {
			return nil, ErrUnknownLesson
		}
		gi := indexOf(generated, taskID)
		if gi < 0 {
			return nil, ErrUnknownTask
		}
		if patch.Empty() {
			return nil, nil
		}

		next := cur.clone()
		nextGenerated := slices.Clone(generated)
		nextGenerated[gi] = patch.Apply(nextGenerated[gi])
		next.generated[lessonID] = nextGenerated

		if ai := indexOf(cur.accepted[lessonID], taskID); ai >= 0 {
			nextAccepted := slices.Clone(cur.accepted[lessonID])
			nextAccepted[ai] = patch.Apply(nextAccepted[ai])
			next.accepted[lessonID] = nextAccepted
		}
		return next, nil
	})
}

// AcceptAll accepts every generated task.
func (l *Ledger) AcceptAll() {
	_ = l.update(func(cur *Snapshot) (*Snapshot, error) {
		next := cur.clone()
		for id, tasks := range cur.generated {
			next.accepted[id] = slices.Clone(tasks)
		}
		return next, nil
	})
}

// RejectAll clears every accepted list.
func (l *Ledger) RejectAll() {
	_ = l.update(func(cur *Snapshot) (*Snapshot, error) {
		next := cur.clone()
		for id := range cur.generated {
			next.accepted[id] = []types.GeneratedTask{}
		}
		return next, nil
	})
}

// update applies fn to the current snapshot and swaps in the result.
// fn returning a nil snapshot leaves the ledger unchanged.
func (l *Ledger) update(fn func(cur *Snapshot) (*Snapshot, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := fn(l.snap)
	if err != nil {
		return err
	}
	if next != nil {
		l.snap = next
	}
	return nil
}

// clone copies the maps but shares the task slices, which are never mutated
// in place.
func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{
		order:     s.order,
		generated: make(map[string][]types.GeneratedTask, len(s.generated)),
		accepted:  make(map[string][]types.GeneratedTask, len(s.accepted)),
	}
	for k, v := range s.generated {
		next.generated[k] = v
	}
	for k, v := range s.accepted {
		next.accepted[k] = v
	}
	return next
}

func (s *Snapshot) withAccepted(lessonID string, accepted []types.GeneratedTask) *Snapshot {
	next := s.clone()
	next.accepted[lessonID] = accepted
	return next
}

func indexOf(tasks []types.GeneratedTask, taskID string) int {
	return slices.IndexFunc(tasks, func(t types.GeneratedTask) bool { return t.ID == taskID })
}

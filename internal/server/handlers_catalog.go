package server

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shortbird/pathweaver/internal/content"
	"github.com/shortbird/pathweaver/internal/db"
	"github.com/shortbird/pathweaver/internal/types"
)

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

// handleListQuests lists quests; ?active=true leaves inactive ones out.
func (s *Server) handleListQuests(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	if v := r.URL.Query().Get("active"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, &ErrValidation{Field: "active", Message: "must be a boolean"})
			return
		}
		activeOnly = parsed
	}

	quests, err := s.store.ListQuests(r.Context(), activeOnly)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"quests": quests, "count": len(quests)})
}

// handleListRuns lists recent generation runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > maxRunsLimit {
			s.respondError(w, &ErrValidation{Field: "limit", Message: "must be between 1 and 500"})
			return
		}
		limit = parsed
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// handleGetRun returns one generation run.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	runID, err := uuid.Parse(idStr)
	if err != nil {
		s.respondError(w, &ErrValidation{Field: "id", Message: "invalid run ID format"})
		return
	}

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if run == nil {
		s.respondError(w, &ErrRunNotFound{RunID: idStr})
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

// LessonDetail is a lesson with the text the generator would see and the
// tasks already created for it.
type LessonDetail struct {
	types.Lesson
	Text     string    `json:"text"`
	Eligible bool      `json:"eligible"`
	Tasks    []db.Task `json:"tasks"`
}

// handleGetLesson returns one lesson and its created tasks.
func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	lesson, err := s.store.GetLesson(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if lesson == nil {
		s.respondError(w, &ErrLessonNotFound{LessonID: id})
		return
	}

	tasks, err := s.store.ListTasksByLesson(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if tasks == nil {
		tasks = []db.Task{}
	}
	s.jsonResponse(w, http.StatusOK, LessonDetail{
		Lesson:   *lesson,
		Text:     content.ExtractRaw(lesson.Content),
		Eligible: !lesson.HasLinkedTasks(),
		Tasks:    tasks,
	})
}

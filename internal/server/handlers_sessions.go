package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shortbird/pathweaver/internal/commit"
	"github.com/shortbird/pathweaver/internal/db"
	"github.com/shortbird/pathweaver/internal/events"
	"github.com/shortbird/pathweaver/internal/pipeline"
	"github.com/shortbird/pathweaver/internal/types"
)

// CreateSessionRequest opens a session over the given quests.
type CreateSessionRequest struct {
	QuestIDs           []string `json:"quest_ids" validate:"required,min=1,max=100,dive,required"`
	TasksPerLesson     int      `json:"tasks_per_lesson,omitempty" validate:"omitempty,min=1,max=20"`
	IncludeUnpublished *bool    `json:"include_unpublished,omitempty"`
}

// SessionSummary is one entry of the session list.
type SessionSummary struct {
	ID          string         `json:"id"`
	Phase       pipeline.Phase `json:"phase"`
	LessonCount int            `json:"lesson_count"`
}

// PhaseResponse reports the phase of a session after a control request.
type PhaseResponse struct {
	SessionID string         `json:"session_id"`
	Phase     pipeline.Phase `json:"phase"`
}

// CommitFailure is a lesson whose tasks could not be written.
type CommitFailure struct {
	LessonID string `json:"lesson_id"`
	Count    int    `json:"count"`
	Error    string `json:"error"`
}

// CommitResponse reports the result of creating the accepted tasks.
type CommitResponse struct {
	SessionID string          `json:"session_id"`
	Created   int             `json:"created"`
	Failed    int             `json:"failed"`
	Message   string          `json:"message"`
	Failures  []CommitFailure `json:"failures,omitempty"`
}

func newCommitResponse(sessionID string, o *commit.Outcome) CommitResponse {
	resp := CommitResponse{
		SessionID: sessionID,
		Created:   o.Created,
		Failed:    o.Failed,
		Message:   o.Message(),
	}
	for _, e := range o.Errors {
		resp.Failures = append(resp.Failures, CommitFailure{LessonID: e.LessonID, Count: e.Count, Error: e.Cause.Error()})
	}
	return resp
}

// lookup resolves the {id} path value to an open session, writing a 404 when
// there is none.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*pipeline.Session, bool) {
	id := r.PathValue("id")
	sess, ok := s.sessions.get(id)
	if !ok {
		s.respondError(w, &ErrSessionNotFound{SessionID: id})
		return nil, false
	}
	return sess, true
}

// handleCreateSession scans the requested quests and registers an idle session.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	ids := dedupe(req.QuestIDs)

	quests, err := s.store.GetQuestsByID(r.Context(), ids)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if missing := missingQuests(ids, quests); len(missing) > 0 {
		s.respondError(w, &ErrValidation{Field: "quest_ids", Message: "unknown quests: " + strings.Join(missing, ", ")})
		return
	}

	opts := s.defaults
	opts.ID = uuid.NewString()
	if req.TasksPerLesson > 0 {
		opts.TasksPerLesson = req.TasksPerLesson
	}
	if req.IncludeUnpublished != nil {
		opts.IncludeUnpublished = *req.IncludeUnpublished
	}

	deps := pipeline.Deps{
		Source:    s.store,
		Generator: s.generator,
		Writer:    s.store,
		Recorder:  s.store,
		Log:       s.log,
	}
	sess, err := pipeline.Open(r.Context(), deps, opts, s.sessionHooks(opts.ID), db.QuestRefs(quests))
	if err != nil {
		s.respondError(w, fmt.Errorf("failed to open session: %w", err))
		return
	}
	s.sessions.add(sess)

	s.jsonResponse(w, http.StatusCreated, sess.View())
}

func (s *Server) sessionHooks(id string) pipeline.Hooks {
	return pipeline.Hooks{
		OnClose: func() { s.sessions.remove(id) },
		OnItemsCommitted: func() {
			s.log.Info("session committed tasks", zap.String("session_id", id))
		},
		OnProgress: s.publish,
	}
}

// publish forwards a progress event to the bus. Delivery is best effort.
func (s *Server) publish(ev pipeline.ProgressEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	err := s.bus.Publish(ctx, events.Event{
		SessionID: ev.SessionID,
		Phase:     ev.Phase.String(),
		Message:   ev.Message,
		LessonID:  ev.LessonID,
		Current:   ev.Current,
		Total:     ev.Total,
		Percent:   ev.Percent,
	})
	if err != nil {
		s.log.Debug("failed to publish progress event", zap.String("session_id", ev.SessionID), zap.Error(err))
	}
}

// handleListSessions lists the open sessions.
func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	open := s.sessions.list()
	out := make([]SessionSummary, 0, len(open))
	for _, sess := range open {
		v := sess.View()
		out = append(out, SessionSummary{ID: v.ID, Phase: v.Phase, LessonCount: v.LessonCount})
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"sessions": out, "count": len(out)})
}

// handleGetSession returns the full view of a session.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.View())
}

// handleGenerate starts generation in the background. Progress is reported
// on the session's event stream.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	run, err := sess.Begin()
	if err != nil {
		s.respondError(w, err)
		return
	}

	go func() {
		summary, err := run(s.baseCtx)
		if err != nil {
			s.log.Warn("generation did not finish", zap.String("session_id", sess.ID()), zap.Error(err))
			return
		}
		s.log.Info(summary.Message(), zap.String("session_id", sess.ID()))
	}()

	s.jsonResponse(w, http.StatusAccepted, PhaseResponse{SessionID: sess.ID(), Phase: pipeline.PhaseGenerating})
}

// handleCancel cancels the session. A generating session stops after the
// lesson in flight, so the response is 202 until it has closed.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := sess.Cancel(); err != nil {
		s.respondError(w, err)
		return
	}
	s.phaseResponse(w, sess)
}

// handleCloseSession discards the session.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := sess.Close(); err != nil {
		s.respondError(w, err)
		return
	}
	s.phaseResponse(w, sess)
}

func (s *Server) phaseResponse(w http.ResponseWriter, sess *pipeline.Session) {
	phase := sess.Phase()
	status := http.StatusOK
	if phase != pipeline.PhaseClosed {
		status = http.StatusAccepted
	}
	s.jsonResponse(w, status, PhaseResponse{SessionID: sess.ID(), Phase: phase})
}

// handleCommit creates every accepted task. The write runs to completion even
// if the client goes away.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	outcome, err := sess.Create(context.WithoutCancel(r.Context()))
	if outcome == nil {
		s.respondError(w, err)
		return
	}
	if err != nil {
		s.log.Warn("session did not close cleanly after commit", zap.String("session_id", sess.ID()), zap.Error(err))
	}
	s.jsonResponse(w, http.StatusOK, newCommitResponse(sess.ID(), outcome))
}

// handleSessionEvents streams progress events until the session closes or
// the client disconnects. The first event is the current session view.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	ch, unsubscribe, err := s.bus.Subscribe(r.Context(), sess.ID())
	if err != nil {
		s.respondError(w, fmt.Errorf("failed to subscribe to session events: %w", err))
		return
	}
	defer unsubscribe()

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := sse.WriteEvent(eventState, sess.View()); err != nil {
		return
	}
	if sess.Phase() == pipeline.PhaseClosed {
		_ = sse.WriteComplete(sess.ID())
		return
	}

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if err := sse.WriteKeepAlive(); err != nil {
				return
			}
			s.sessions.touch(sess.ID())
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := sse.WriteEvent(eventProgress, ev); err != nil {
				return
			}
			if ev.Closed() {
				_ = sse.WriteComplete(sess.ID())
				return
			}
		}
	}
}

// Review

func (s *Server) handleAcceptTask(w http.ResponseWriter, r *http.Request) {
	s.review(w, r, func(sess *pipeline.Session) error {
		return sess.AcceptID(r.PathValue("lesson_id"), r.PathValue("task_id"))
	})
}

func (s *Server) handleRejectTask(w http.ResponseWriter, r *http.Request) {
	s.review(w, r, func(sess *pipeline.Session) error {
		return sess.Reject(r.PathValue("lesson_id"), r.PathValue("task_id"))
	})
}

// handleEditTask applies a partial update to a generated task.
func (s *Server) handleEditTask(w http.ResponseWriter, r *http.Request) {
	var patch types.TaskPatch
	if err := s.decodeJSON(r, &patch); err != nil {
		s.respondError(w, err)
		return
	}
	if patch.Empty() {
		s.respondError(w, &ErrValidation{Field: "body", Message: "no fields to update"})
		return
	}
	s.review(w, r, func(sess *pipeline.Session) error {
		return sess.Edit(r.PathValue("lesson_id"), r.PathValue("task_id"), patch)
	})
}

func (s *Server) handleAcceptAll(w http.ResponseWriter, r *http.Request) {
	s.review(w, r, (*pipeline.Session).AcceptAll)
}

func (s *Server) handleRejectAll(w http.ResponseWriter, r *http.Request) {
	s.review(w, r, (*pipeline.Session).RejectAll)
}

// review runs op on the session and responds with the updated view.
func (s *Server) review(w http.ResponseWriter, r *http.Request, op func(*pipeline.Session) error) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := op(sess); err != nil {
		s.respondError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.View())
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func missingQuests(ids []string, found []db.Quest) []string {
	have := make(map[string]bool, len(found))
	for _, q := range found {
		have[q.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

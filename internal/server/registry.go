package server

import (
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shortbird/pathweaver/internal/pipeline"
)

type entry struct {
	session  *pipeline.Session
	lastSeen time.Time
}

// registry holds the open sessions. Sessions remove themselves when they
// close; sweep closes the ones nobody has touched for a while.
type registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	now      func() time.Time
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*entry), now: time.Now}
}

func (r *registry) add(s *pipeline.Session) {
	r.mu.Lock()
	r.sessions[s.ID()] = &entry{session: s, lastSeen: r.now()}
	r.mu.Unlock()
}

// get returns the session and marks it as in use.
func (r *registry) get(id string) (*pipeline.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.session, true
}

func (r *registry) touch(id string) {
	r.mu.Lock()
	if e, ok := r.sessions[id]; ok {
		e.lastSeen = r.now()
	}
	r.mu.Unlock()
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// list returns the open sessions ordered by id.
func (r *registry) list() []*pipeline.Session {
	r.mu.RLock()
	out := make([]*pipeline.Session, 0, len(r.sessions))
	for _, e := range r.sessions {
		out = append(out, e.session)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *pipeline.Session) int {
		return strings.Compare(a.ID(), b.ID())
	})
	return out
}

// sweep closes idle and preview sessions unused for longer than ttl and
// returns how many it closed. Generating and creating sessions are left to
// finish.
func (r *registry) sweep(ttl time.Duration, log *zap.Logger) int {
	cutoff := r.now().Add(-ttl)

	r.mu.RLock()
	var stale []*pipeline.Session
	for _, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.session)
		}
	}
	r.mu.RUnlock()

	closed := 0
	for _, s := range stale {
		switch s.Phase() {
		case pipeline.PhaseIdle, pipeline.PhasePreview:
		default:
			continue
		}
		if err := s.Close(); err != nil {
			log.Warn("failed to close stale session", zap.String("session_id", s.ID()), zap.Error(err))
			continue
		}
		log.Info("closed stale session", zap.String("session_id", s.ID()), zap.Duration("ttl", ttl))
		closed++
	}
	return closed
}

// closeAll cancels every open session. Sessions that are creating finish on
// their own.
func (r *registry) closeAll(log *zap.Logger) {
	for _, s := range r.list() {
		if err := s.Close(); err != nil {
			log.Warn("failed to close session on shutdown", zap.String("session_id", s.ID()), zap.Error(err))
		}
	}
}

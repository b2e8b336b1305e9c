// Package server provides the HTTP API for bulk task generation sessions.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shortbird/pathweaver/internal/commit"
	"github.com/shortbird/pathweaver/internal/db"
	"github.com/shortbird/pathweaver/internal/events"
	"github.com/shortbird/pathweaver/internal/generation"
	"github.com/shortbird/pathweaver/internal/logger"
	"github.com/shortbird/pathweaver/internal/pipeline"
	"github.com/shortbird/pathweaver/internal/scan"
	"github.com/shortbird/pathweaver/internal/server/ratelimit"
	"github.com/shortbird/pathweaver/internal/types"
)

const (
	shutdownTimeout   = 30 * time.Second
	publishTimeout    = 2 * time.Second
	defaultKeepAlive  = 15 * time.Second
	defaultSessionTTL = 30 * time.Minute
)

// Store is the persistence the server needs. *db.DB satisfies it.
type Store interface {
	scan.Source
	commit.Writer
	pipeline.RunRecorder
	ListQuests(ctx context.Context, activeOnly bool) ([]db.Quest, error)
	GetQuestsByID(ctx context.Context, ids []string) ([]db.Quest, error)
	GetRun(ctx context.Context, runID uuid.UUID) (*types.GenerationRun, error)
	ListRuns(ctx context.Context, limit int) ([]types.GenerationRun, error)
	GetLesson(ctx context.Context, lessonID string) (*types.Lesson, error)
	ListTasksByLesson(ctx context.Context, lessonID string) ([]db.Task, error)
	Ping(ctx context.Context) error
}

var _ Store = (*db.DB)(nil)

// Config holds server configuration
type Config struct {
	Port      int
	Store     Store
	Generator generation.Generator
	Bus       events.Bus
	Log       *zap.Logger
	// Session holds the defaults for new sessions; ID is ignored.
	Session   pipeline.Options
	RateLimit *ratelimit.Config
	// KeepAlive is the interval between comment lines on idle event streams.
	KeepAlive time.Duration
	// SessionTTL closes idle and preview sessions nobody has used for this
	// long. Zero uses the default; a negative value keeps sessions forever.
	SessionTTL time.Duration
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	store       Store
	generator   generation.Generator
	bus         events.Bus
	log         *zap.Logger
	defaults    pipeline.Options
	sessions    *registry
	rateLimiter *ratelimit.Limiter
	validate    *validator.Validate
	keepAlive   time.Duration

	// baseCtx outlives requests so background generation keeps running
	// after the triggering request returns.
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil || cfg.Generator == nil {
		return nil, fmt.Errorf("store and generator are required")
	}
	log := logger.OrNop(cfg.Log)
	bus := cfg.Bus
	if bus == nil {
		bus = events.NewMemoryBus(log)
	}

	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = defaultKeepAlive
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = defaultSessionTTL
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		store:       cfg.Store,
		generator:   cfg.Generator,
		bus:         bus,
		log:         log,
		defaults:    cfg.Session,
		sessions:    newRegistry(),
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		validate:    types.NewValidator(),
		keepAlive:   cfg.KeepAlive,
		baseCtx:     baseCtx,
		cancelBase:  cancel,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // event streams stay open for the life of a session
		IdleTimeout:  60 * time.Second,
	}
	// Closing sessions ends their event streams, which Shutdown waits for.
	s.httpServer.RegisterOnShutdown(s.shutdownBackground)
	if cfg.SessionTTL > 0 {
		go s.sweepSessions(cfg.SessionTTL)
	}
	return s, nil
}

// sweepSessions closes stale sessions until the server shuts down.
func (s *Server) sweepSessions(ttl time.Duration) {
	interval := max(min(ttl/4, time.Minute), time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.baseCtx.Done():
			return
		case <-ticker.C:
			s.sessions.sweep(ttl, s.log)
		}
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /quests", s.handleListQuests)
	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /lessons/{id}", s.handleGetLesson)

	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions", s.handleListSessions)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleCloseSession)
	mux.HandleFunc("GET /sessions/{id}/events", s.handleSessionEvents)
	mux.HandleFunc("POST /sessions/{id}/generate", s.handleGenerate)
	mux.HandleFunc("POST /sessions/{id}/cancel", s.handleCancel)
	mux.HandleFunc("POST /sessions/{id}/commit", s.handleCommit)

	// Review
	mux.HandleFunc("POST /sessions/{id}/accept-all", s.handleAcceptAll)
	mux.HandleFunc("POST /sessions/{id}/reject-all", s.handleRejectAll)
	mux.HandleFunc("POST /sessions/{id}/lessons/{lesson_id}/tasks/{task_id}/accept", s.handleAcceptTask)
	mux.HandleFunc("POST /sessions/{id}/lessons/{lesson_id}/tasks/{task_id}/reject", s.handleRejectTask)
	mux.HandleFunc("PATCH /sessions/{id}/lessons/{lesson_id}/tasks/{task_id}", s.handleEditTask)

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.shutdownBackground()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.shutdownBackground()
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.shutdownBackground()
	s.log.Info("server stopped")
	return nil
}

// shutdownBackground stops running generations and closes open sessions.
func (s *Server) shutdownBackground() {
	s.cancelBase()
	s.sessions.closeAll(s.log)
	s.rateLimiter.Stop()
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush lets event streams flush through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientID identifies the caller by remote IP.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	s.log.Warn("rate limit exceeded",
		zap.String("client", clientID(r)),
		zap.String("path", r.URL.Path),
		zap.Int("limit", info.Limit),
	)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// handleHealth reports server and database health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.len()})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// respondError maps err to a status and writes it.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	s.errorResponse(w, status, err.Error())
}

// decodeJSON decodes the request body into v and validates it. An empty body
// leaves v untouched.
func (s *Server) decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return s.validate.Struct(v)
}

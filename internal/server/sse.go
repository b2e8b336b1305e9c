package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSE event names sent on a session stream.
const (
	eventState    = "state"
	eventProgress = "progress"
	eventComplete = "complete"
)

// SSEWriter writes Server-Sent Events. Each event carries an increasing id so
// a client can tell whether it missed any.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	seq     int
}

// NewSSEWriter sets the stream headers and sends them immediately.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends data as JSON under the event name.
func (s *SSEWriter) WriteEvent(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event, err)
	}

	s.seq++
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\nid: %d\n\n", event, payload, s.seq); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteKeepAlive sends a comment line, which clients ignore, so proxies do
// not close an idle stream.
func (s *SSEWriter) WriteKeepAlive() error {
	if _, err := fmt.Fprint(s.w, ": keep-alive\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteComplete sends the last event of a session stream.
func (s *SSEWriter) WriteComplete(sessionID string) error {
	return s.WriteEvent(eventComplete, map[string]string{
		"session_id": sessionID,
		"status":     "closed",
	})
}

// Package events fans session progress events out to subscribers, either in
// process or across server instances through Redis pub/sub.
package events

import (
	"context"
)

// Event is a progress update for one session.
type Event struct {
	SessionID string `json:"session_id"`
	Phase     string `json:"phase"`
	Message   string `json:"message"`
	LessonID  string `json:"lesson_id,omitempty"`
	Current   int    `json:"current,omitempty"`
	Total     int    `json:"total,omitempty"`
	Percent   int    `json:"percent,omitempty"`
}

// Closed reports whether the event marks the end of its session.
func (e Event) Closed() bool {
	return e.Phase == "closed"
}

// Bus delivers events to the subscribers of their session.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe returns a channel of events for sessionID and a function that
	// ends the subscription. The channel is closed when the subscription ends
	// or ctx is done.
	Subscribe(ctx context.Context, sessionID string) (<-chan Event, func(), error)
	Close() error
}

// subscriberBuffer is the per-subscriber queue length. Slow subscribers lose
// events rather than block publishers.
const subscriberBuffer = 64

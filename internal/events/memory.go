package events

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/shortbird/pathweaver/internal/logger"
)

// MemoryBus is an in-process Bus.
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[string]map[*memorySub]struct{}
	closed bool
	log    *zap.Logger
}

type memorySub struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus(log *zap.Logger) *MemoryBus {
	return &MemoryBus{
		subs: make(map[string]map[*memorySub]struct{}),
		log:  logger.OrNop(log),
	}
}

// Publish delivers ev to every current subscriber of its session.
func (b *MemoryBus) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("event bus is closed")
	}

	for sub := range b.subs[ev.SessionID] {
		select {
		case sub.ch <- ev:
		default:
			b.log.Warn("dropping event for slow subscriber", zap.String("session_id", ev.SessionID))
		}
	}
	return nil
}

// Subscribe registers a subscriber for sessionID.
func (b *MemoryBus) Subscribe(ctx context.Context, sessionID string) (<-chan Event, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, fmt.Errorf("event bus is closed")
	}

	sub := &memorySub{ch: make(chan Event, subscriberBuffer), done: make(chan struct{})}
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[*memorySub]struct{})
	}
	b.subs[sessionID][sub] = struct{}{}

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.remove(sessionID, sub)
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-sub.done:
		}
	}()

	return sub.ch, unsubscribe, nil
}

// Close ends every subscription.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for sessionID, subs := range b.subs {
		for sub := range subs {
			b.remove(sessionID, sub)
		}
	}
	return nil
}

// remove drops sub and closes its channel. b.mu must be held.
func (b *MemoryBus) remove(sessionID string, sub *memorySub) {
	if subs, ok := b.subs[sessionID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subs, sessionID)
		}
	}
	sub.once.Do(func() {
		close(sub.ch)
		close(sub.done)
	})
}

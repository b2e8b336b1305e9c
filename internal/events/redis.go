package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shortbird/pathweaver/internal/logger"
)

const channelPrefix = "pathweaver:session:"

// Channel returns the Redis channel name for a session.
func Channel(sessionID string) string {
	return channelPrefix + sessionID
}

// RedisBus is a Bus backed by Redis pub/sub, so subscribers on one server
// instance see events published by another.
type RedisBus struct {
	rdb *goredis.Client
	log *zap.Logger
}

// NewRedisBus connects to Redis at addr and verifies the connection.
func NewRedisBus(ctx context.Context, addr string, log *zap.Logger) (*RedisBus, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisBus{rdb: rdb, log: logger.OrNop(log)}, nil
}

// Publish sends ev on its session channel.
func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.rdb.Publish(ctx, Channel(ev.SessionID), raw).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe listens on the session channel until ctx is done or the returned
// function is called.
func (b *RedisBus) Subscribe(ctx context.Context, sessionID string) (<-chan Event, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := b.rdb.Subscribe(ctx, Channel(sessionID))

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		_ = sub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok || m == nil {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("bad event payload", zap.String("channel", m.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				default:
					b.log.Warn("dropping event for slow subscriber", zap.String("session_id", sessionID))
				}
			}
		}
	}()

	return out, cancel, nil
}

// Close closes the Redis client.
func (b *RedisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

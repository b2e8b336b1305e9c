//go:build integration
// +build integration

package events

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisBus(t *testing.T) *RedisBus {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	bus, err := NewRedisBus(context.Background(), addr, nil)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to Redis: %v", err)
	}
	return bus
}

func TestRedisBus_PublishSubscribe_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	bus := setupRedisBus(t)
	defer bus.Close()
	ctx := context.Background()

	ch, unsubscribe, err := bus.Subscribe(ctx, "integration-session")
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, bus.Publish(ctx, Event{SessionID: "integration-session", Phase: "creating", Percent: 50}))

	ev := receive(t, ch)
	assert.Equal(t, "creating", ev.Phase)
	assert.Equal(t, 50, ev.Percent)

	unsubscribe()
	for range ch {
	}
}

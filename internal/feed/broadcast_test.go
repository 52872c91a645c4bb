package feed

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/lit-program/lit-portal/testing"
)

func TestBroadcastRoundTrip(t *testing.T) {
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	broadcaster := NewBroadcaster(client, slog.Default())

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	events, cancel := broadcaster.Subscribe(ctx, 42)
	defer cancel()

	// Give the subscription a moment to register before publishing.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, broadcaster.Publish(ctx, 42, Event{Event: EventInsert, ID: 7, ClientID: "tab-1"}))

	select {
	case event := <-events:
		assert.Equal(t, Event{Event: EventInsert, ID: 7, ClientID: "tab-1"}, event)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feed event")
	}
}

func TestBroadcastChannelIsolation(t *testing.T) {
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	broadcaster := NewBroadcaster(client, slog.Default())

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	events, cancel := broadcaster.Subscribe(ctx, 1)
	defer cancel()

	time.Sleep(50 * time.Millisecond)

	// An event on another post's channel must not reach this subscriber.
	require.NoError(t, broadcaster.Publish(ctx, 2, Event{Event: EventDelete, ID: 9}))

	select {
	case event := <-events:
		t.Fatalf("unexpected event: %+v", event)
	case <-time.After(200 * time.Millisecond):
	}
}

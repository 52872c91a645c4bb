package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Event is the realtime notification fanned out when a comment is inserted
// or deleted. ClientID identifies the browser tab that caused the change so
// subscribers can skip events they already applied optimistically.
type Event struct {
	Event    string `json:"event"`
	ID       int64  `json:"id"`
	ClientID string `json:"client_id,omitempty"`
}

const (
	EventInsert = "insert"
	EventDelete = "delete"
)

// Broadcaster fans comment events out to feed subscribers over Redis pub/sub.
type Broadcaster struct {
	client *redis.Client
	logger *slog.Logger
}

// NewBroadcaster constructs a Broadcaster.
func NewBroadcaster(client *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{client: client, logger: logger}
}

func commentChannel(postID int64) string {
	return fmt.Sprintf("feed:post:%d:comments", postID)
}

// Publish sends an event to every subscriber of the post's channel.
func (b *Broadcaster) Publish(ctx context.Context, postID int64, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, commentChannel(postID), payload).Err()
}

// Subscribe returns a channel of comment events for the post. The stream
// closes when ctx is cancelled; callers must also invoke the returned
// cancel function to release the Redis subscription.
func (b *Broadcaster) Subscribe(ctx context.Context, postID int64) (<-chan Event, func()) {
	sub := b.client.Subscribe(ctx, commentChannel(postID))
	events := make(chan Event, 8)

	go func() {
		defer close(events)
		for msg := range sub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("drop malformed feed event", slog.Any("error", err))
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		_ = sub.Close()
	}
	return events, cancel
}

package feed

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tangled-dev/tangled/shared/logger"
)

// Bus fans thread-list refresh signals out to every running instance
// through a Redis channel. A Bus without a client does nothing.
type Bus struct {
	rdb     *redis.Client
	channel string
	origin  string
}

// NewRedisClient returns nil when addr is empty so the bus runs in local mode.
func NewRedisClient(addr, password string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password})
}

func NewBus(rdb *redis.Client, channel string) *Bus {
	return &Bus{rdb: rdb, channel: channel, origin: uuid.NewString()}
}

func (b *Bus) Enabled() bool {
	return b != nil && b.rdb != nil
}

// Publish announces that the thread list changed. The payload is the
// sender's origin id so a subscriber can skip its own signals.
func (b *Bus) Publish(ctx context.Context) error {
	if !b.Enabled() {
		return nil
	}
	if err := b.rdb.Publish(ctx, b.channel, b.origin).Err(); err != nil {
		return fmt.Errorf("publish refresh: %w", err)
	}
	return nil
}

// Subscribe calls onRefresh for every signal published by other
// instances until ctx ends.
func (b *Bus) Subscribe(ctx context.Context, onRefresh func()) error {
	if !b.Enabled() {
		return nil
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	// wait for the subscription to be confirmed so no signal is missed after return
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	ch := sub.Channel()

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg.Payload == b.origin {
					continue
				}
				logger.Log.Debug("thread list refresh received", "channel", msg.Channel)
				onRefresh()
			}
		}
	}()

	return nil
}

func (b *Bus) Close() error {
	if !b.Enabled() {
		return nil
	}
	return b.rdb.Close()
}

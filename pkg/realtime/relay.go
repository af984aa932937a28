package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the Redis pub/sub channel carrying change events.
const DefaultChannel = "aquacentre:changes"

// RedisRelay forwards events between instances through Redis pub/sub.
type RedisRelay struct {
	client   *redis.Client
	channel  string
	instance string
	logger   *zap.Logger
}

// NewRedisRelay builds a relay; instance must be unique per process.
func NewRedisRelay(client *redis.Client, channel, instance string, logger *zap.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{client: client, channel: channel, instance: instance, logger: logger}
}

// Publish sends e to the other instances.
func (r *RedisRelay) Publish(ctx context.Context, e Event) error {
	e.Origin = r.instance
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

// Run delivers events from other instances into hub until ctx is done.
func (r *RedisRelay) Run(ctx context.Context, hub *Hub) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close() //nolint:errcheck

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("realtime relay listening", zap.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				r.logger.Warn("discarding malformed change event", zap.Error(err))
				continue
			}
			if e.Origin == r.instance {
				continue
			}
			hub.Broadcast(e)
		}
	}
}

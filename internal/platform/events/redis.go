package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultChannel is the Redis pub/sub channel shared by all instances.
const DefaultChannel = "carelink:events"

type envelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// RedisBridge publishes events to the local publisher and to Redis, and
// replays events published by other instances onto the local publisher.
type RedisBridge struct {
	client  *redis.Client
	local   Publisher
	channel string
	origin  string
	logger  zerolog.Logger
}

func NewRedisBridge(client *redis.Client, local Publisher, logger zerolog.Logger) *RedisBridge {
	return &RedisBridge{
		client:  client,
		local:   local,
		channel: DefaultChannel,
		origin:  uuid.New().String(),
		logger:  logger.With().Str("component", "events.redis").Logger(),
	}
}

// Publish delivers locally first so a Redis outage never hides events from
// clients connected to this instance.
func (b *RedisBridge) Publish(ctx context.Context, event Event) error {
	if err := b.local.Publish(ctx, event); err != nil {
		return err
	}

	payload, err := json.Marshal(envelope{Origin: b.origin, Event: event})
	if err != nil {
		return fmt.Errorf("encode event envelope: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run subscribes to the channel and forwards remote events until ctx is
// cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}
	b.logger.Info().Str("channel", b.channel).Msg("event bridge subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.handle(ctx, msg.Payload)
		}
	}
}

func (b *RedisBridge) handle(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn().Err(err).Msg("dropping malformed event envelope")
		return
	}
	if env.Origin == b.origin {
		return
	}
	if err := b.local.Publish(ctx, env.Event); err != nil {
		b.logger.Error().Err(err).Str("type", env.Event.Type).Msg("forward remote event")
	}
}

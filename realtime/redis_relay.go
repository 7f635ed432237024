package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const DefaultRelayChannel = "volley:events"

type envelope struct {
	Origin  string `msgpack:"origin"`
	Room    string `msgpack:"room"`
	Type    string `msgpack:"type"`
	Payload []byte `msgpack:"payload"`
}

// RedisRelay fans events out to the hubs of every API instance. Events are
// delivered to the local hub directly and to the other instances through a
// Redis channel; each instance ignores the envelopes it sent itself.
type RedisRelay struct {
	rdb     redis.UniversalClient
	hub     *Hub
	channel string
	origin  string
	logger  *slog.Logger
}

func NewRedisRelay(rdb redis.UniversalClient, hub *Hub, channel string, logger *slog.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{
		rdb:     rdb,
		hub:     hub,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

func (r *RedisRelay) Publish(ctx context.Context, room string, eventType EventType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	if err := r.hub.Publish(ctx, room, eventType, json.RawMessage(data)); err != nil {
		return err
	}

	packed, err := msgpack.Marshal(envelope{Origin: r.origin, Room: room, Type: string(eventType), Payload: data})
	if err != nil {
		return fmt.Errorf("pack %s event: %w", eventType, err)
	}
	if err := r.rdb.Publish(ctx, r.channel, packed).Err(); err != nil {
		return fmt.Errorf("relay %s event to %s: %w", eventType, r.channel, err)
	}
	return nil
}

// Run subscribes to the relay channel and forwards foreign events to the
// local hub until ctx is canceled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.channel, err)
	}
	r.logger.Info("event relay subscribed", "channel", r.channel, "origin", r.origin)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := r.handle(ctx, []byte(msg.Payload)); err != nil {
				r.logger.Warn("dropping relayed event", "error", err)
			}
		}
	}
}

func (r *RedisRelay) handle(ctx context.Context, raw []byte) error {
	var env envelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("unpack envelope: %w", err)
	}
	if env.Origin == r.origin {
		return nil
	}
	return r.hub.Publish(ctx, env.Room, EventType(env.Type), json.RawMessage(env.Payload))
}

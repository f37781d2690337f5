package hub

import (
	"context"
	"encoding/json"
	"time"

	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRelay carries events between server instances over one Redis pub/sub
// channel. Every instance, including the publisher, receives each event from
// Redis and delivers it to its own observers.
type RedisRelay struct {
	client  *redis.Client
	channel string
	out     chan models.Event
	logger  *zap.Logger
}

// NewRedisRelay creates a relay on channel (config.RedisChannel when empty).
func NewRedisRelay(client *redis.Client, channel string, logger *zap.Logger) *RedisRelay {
	if channel == "" {
		channel = config.RedisChannel
	}
	return &RedisRelay{
		client:  client,
		channel: channel,
		out:     make(chan models.Event, config.EventBufferSize),
		logger:  logging.OrNop(logger),
	}
}

// Enqueue schedules ev for publication without blocking.
func (r *RedisRelay) Enqueue(ev models.Event) {
	select {
	case r.out <- ev:
	default:
		r.logger.Warn("relay buffer full, dropping event", zap.String("type", string(ev.Type)))
	}
}

// Run publishes queued events and feeds events received from Redis to
// deliver until ctx ends. If publishing fails the event is delivered locally
// so observers of this instance still see it.
func (r *RedisRelay) Run(ctx context.Context, deliver func(models.Event)) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()
	incoming := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case ev := <-r.out:
			data, err := EncodeEvent(ev)
			if err != nil {
				r.logger.Error("encode event", zap.Error(err))
				continue
			}
			pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err = r.client.Publish(pubCtx, r.channel, data).Err()
			cancel()
			if err != nil {
				r.logger.Warn("redis publish failed, delivering locally", zap.Error(err))
				deliver(ev)
			}

		case msg, ok := <-incoming:
			if !ok {
				return
			}
			ev, err := DecodeEvent([]byte(msg.Payload))
			if err != nil {
				r.logger.Warn("bad relay message", zap.Error(err))
				continue
			}
			deliver(ev)
		}
	}
}

// EncodeEvent stamps and serialises an event for the relay.
func EncodeEvent(ev models.Event) ([]byte, error) {
	if ev.SentAt.IsZero() {
		ev.SentAt = time.Now().UTC()
	}
	return json.Marshal(ev)
}

// DecodeEvent parses a relayed event. The payload stays raw JSON and is
// re-emitted unchanged to observers.
func DecodeEvent(data []byte) (models.Event, error) {
	var wire struct {
		Type    models.EventType `json:"type"`
		Topics  []string         `json:"topics"`
		Payload json.RawMessage  `json:"payload"`
		SentAt  time.Time        `json:"sent_at"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return models.Event{}, err
	}
	return models.Event{Type: wire.Type, Topics: wire.Topics, Payload: wire.Payload, SentAt: wire.SentAt}, nil
}

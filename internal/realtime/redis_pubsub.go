package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// Channel is the single Redis channel all instances share.
	Channel        = "designday:events"
	publishTimeout = 5 * time.Second
)

// redisPayload is the message published to Redis for cross-instance broadcast.
type redisPayload struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	At    int64           `json:"at"`
}

// RedisPubSub implements Bridge using Redis pub/sub.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPubSub creates a Redis pub/sub bridge.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPubSub{client: client, logger: logger}
}

// Publish sends an event to the shared channel.
func (r *RedisPubSub) Publish(ctx context.Context, event string, payload []byte) error {
	body, err := encodeRedisPayload(event, payload, time.Now())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return r.client.Publish(ctx, Channel, body).Err()
}

// Subscribe listens on the shared channel and calls handler for each message.
func (r *RedisPubSub) Subscribe(ctx context.Context, handler func(event string, payload []byte)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(ctx)
	pubsub := r.client.Subscribe(ctx, Channel)
	if _, err = pubsub.Receive(ctx); err != nil {
		cancelCtx()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				event, data, err := decodeRedisPayload(msg.Payload)
				if err != nil {
					r.logger.Warn("invalid realtime payload on redis", zap.Error(err))
					continue
				}
				handler(event, data)
			}
		}
	}()
	r.logger.Info("realtime redis bridge subscribed", zap.String("channel", Channel))
	return cancelCtx, nil
}

func encodeRedisPayload(event string, payload []byte, at time.Time) ([]byte, error) {
	return json.Marshal(redisPayload{Event: event, Data: payload, At: at.Unix()})
}

func decodeRedisPayload(raw string) (string, []byte, error) {
	var p redisPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return "", nil, err
	}
	if p.Event == "" {
		return "", nil, fmt.Errorf("missing event name")
	}
	return p.Event, p.Data, nil
}

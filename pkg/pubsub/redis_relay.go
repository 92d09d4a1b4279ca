package pubsub

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/feastflow-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type redisPubSub interface {
	Publish(ctx context.Context, channel string, payload any) error
	Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error)
}

// RedisRelay fans hub messages out over a Redis pub/sub channel.
type RedisRelay struct {
	client  redisPubSub
	channel string
	logg    *logger.Logger
}

// NewRedisRelay builds a relay publishing on channel.
func NewRedisRelay(client redisPubSub, channel string, logg *logger.Logger) (*RedisRelay, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if channel == "" {
		return nil, errors.New("relay channel is required")
	}
	return &RedisRelay{client: client, channel: channel, logg: logg}, nil
}

func (r *RedisRelay) Name() string { return "redis" }

func (r *RedisRelay) Forward(ctx context.Context, msg Message) error {
	payload, err := encode(msg)
	if err != nil {
		return fmt.Errorf("encode relay message: %w", err)
	}
	return r.client.Publish(ctx, r.channel, payload)
}

func (r *RedisRelay) Run(ctx context.Context, deliver func(Message)) error {
	sub, err := r.client.Subscribe(ctx, r.channel)
	if err != nil {
		return err
	}
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-ch:
			if !ok {
				return errors.New("redis relay subscription closed")
			}
			msg, err := decode([]byte(raw.Payload))
			if err != nil {
				if r.logg != nil {
					r.logg.Warn(ctx, "discarding malformed relay payload")
				}
				continue
			}
			deliver(msg)
		}
	}
}

// Close is a no-op; the shared Redis client is closed by its owner.
func (r *RedisRelay) Close() error { return nil }

package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Broker fans events out to every hub that subscribed
type Broker interface {
	Publish(ctx context.Context, env Envelope) error
	// Subscribe registers fn and returns once the subscription is active.
	// Delivery stops when ctx is done.
	Subscribe(ctx context.Context, fn func(Envelope)) error
	Close() error
}

// LocalBroker delivers in-process, for single-instance deployments
type LocalBroker struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(Envelope)
}

// NewLocalBroker creates an in-process broker
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{handlers: make(map[int]func(Envelope))}
}

func (b *LocalBroker) Publish(_ context.Context, env Envelope) error {
	b.mu.RLock()
	handlers := make([]func(Envelope), 0, len(b.handlers))
	for _, fn := range b.handlers {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(env)
	}
	return nil
}

func (b *LocalBroker) Subscribe(ctx context.Context, fn func(Envelope)) error {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = fn
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}()
	return nil
}

func (b *LocalBroker) Close() error {
	return nil
}

// RedisBroker fans events out across instances over a Redis pub/sub channel
type RedisBroker struct {
	client  *redis.Client
	channel string
}

// RedisOptions holds Redis connection settings for the broker
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// NewRedisBroker connects to Redis and verifies the connection
func NewRedisBroker(ctx context.Context, opts RedisOptions) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisBrokerWithClient(client, opts.Channel), nil
}

// NewRedisBrokerWithClient wraps an existing client
func NewRedisBrokerWithClient(client *redis.Client, channel string) *RedisBroker {
	return &RedisBroker{client: client, channel: channel}
}

func (b *RedisBroker) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish envelope: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, fn func(Envelope)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					log.Error().Err(err).Str("channel", b.channel).Msg("Failed to decode live envelope")
					continue
				}
				fn(env)
			}
		}
	}()

	return nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}

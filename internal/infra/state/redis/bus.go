package redisstate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/Owskar/collaborative-code-editor/internal/dto"
	"github.com/Owskar/collaborative-code-editor/internal/repository"
)

// deliveryBuffer is the per-subscription envelope queue.
const deliveryBuffer = 64

// RedisBus implements repository.BroadcastBus with Redis pub/sub, one channel per document.
type RedisBus struct {
	client *redis.Client
	keys   keyspace
}

// NewRedisBus creates a RedisBus.
func NewRedisBus(client *redis.Client, keyPrefix string) *RedisBus {
	if client == nil {
		panic("redis client cannot be nil for RedisBus")
	}
	return &RedisBus{client: client, keys: newKeyspace(keyPrefix)}
}

// Subscribe waits for the SUBSCRIBE confirmation before returning.
func (b *RedisBus) Subscribe(ctx context.Context, documentID string) (repository.Subscription, error) {
	channel := b.keys.roomChannel(documentID)
	pubsub := b.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: failed to subscribe to %s: %w: %w", channel, repository.ErrUnavailable, err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		out:    make(chan dto.Envelope, deliveryBuffer),
		done:   make(chan struct{}),
		logCtx: logrus.WithFields(logrus.Fields{"component": "bus", "channel": channel}),
	}
	go sub.run(pubsub.Channel())
	return sub, nil
}

// Publish serializes env and publishes it on the document's channel.
func (b *RedisBus) Publish(ctx context.Context, documentID string, env dto.Envelope) error {
	channel := b.keys.roomChannel(documentID)
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal envelope for %s: %w", channel, err)
	}
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("redis: failed to publish to %s: %w", channel, err)
	}
	return nil
}

type redisSubscription struct {
	pubsub    *redis.PubSub
	out       chan dto.Envelope
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	logCtx    *logrus.Entry
}

// run decodes raw messages until the pubsub channel closes or Close is called.
func (s *redisSubscription) run(messages <-chan *redis.Message) {
	defer close(s.out)
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var env dto.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				s.logCtx.WithError(err).Warn("Dropping undecodable bus message")
				continue
			}
			select {
			case s.out <- env:
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *redisSubscription) Deliveries() <-chan dto.Envelope { return s.out }

func (s *redisSubscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.pubsub.Close()
	})
	return s.closeErr
}

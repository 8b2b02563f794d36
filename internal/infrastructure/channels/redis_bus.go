package channels

import (
	"context"
	"sync"

	"shopflow/internal/core/ports"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBus implements ports.Bus over redis pub/sub. Each topic maps to one
// redis channel; delivery is at-most-once per local subscriber.
type RedisBus struct {
	client *redis.Client
	log    *zap.SugaredLogger

	mu   sync.Mutex
	subs map[string]*redisSub
}

type redisSub struct {
	pubsub *redis.PubSub
	out    chan ports.BusMessage
	cancel context.CancelFunc
}

func NewRedisBus(client *redis.Client, log *zap.SugaredLogger) *RedisBus {
	return &RedisBus{
		client: client,
		log:    log,
		subs:   make(map[string]*redisSub),
	}
}

func (b *RedisBus) Subscribe(ctx context.Context, topic string) (<-chan ports.BusMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[topic]; ok {
		return sub.out, nil
	}

	pubsub := b.client.Subscribe(ctx, topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	sub := &redisSub{
		pubsub: pubsub,
		out:    make(chan ports.BusMessage, 64),
		cancel: cancel,
	}
	b.subs[topic] = sub

	go b.pump(pumpCtx, topic, sub)
	return sub.out, nil
}

func (b *RedisBus) pump(ctx context.Context, topic string, sub *redisSub) {
	defer close(sub.out)

	ch := sub.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			select {
			case sub.out <- ports.BusMessage{Topic: topic, Payload: []byte(msg.Payload)}:
			default:
				b.log.Warnw("bus subscriber too slow, dropping message", "topic", topic)
			}
		}
	}
}

func (b *RedisBus) Unsubscribe(topic string) error {
	b.mu.Lock()
	sub, ok := b.subs[topic]
	if ok {
		delete(b.subs, topic)
	}
	b.mu.Unlock()

	if !ok {
		return nil
	}

	sub.cancel()
	return sub.pubsub.Close()
}

func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.client.Publish(ctx, topic, payload).Err()
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string]*redisSub)
	b.mu.Unlock()

	var firstErr error
	for _, sub := range subs {
		sub.cancel()
		if err := sub.pubsub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

package websocket

import (
	"context"
	"strings"

	"github.com/go-redis/redis/v8"
)

const redisChannelPrefix = "chat:"

// RedisBroker fans topic payloads out through Redis pub/sub so that every
// instance delivers to its own local subscribers.
type RedisBroker struct {
	rdb    *redis.Client
	hub    *Hub
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisBroker(rdb *redis.Client, hub *Hub) *RedisBroker {
	return &RedisBroker{rdb: rdb, hub: hub, done: make(chan struct{})}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.rdb.Publish(ctx, redisChannelPrefix+topic, payload).Err()
}

// Start subscribes to every conversation channel and returns once the
// subscription is confirmed. Delivery runs until ctx ends or Close is called.
func (b *RedisBroker) Start(ctx context.Context) error {
	b.pubsub = b.rdb.PSubscribe(ctx, redisChannelPrefix+"conversation.*")
	if _, err := b.pubsub.Receive(ctx); err != nil {
		_ = b.pubsub.Close()
		return err
	}

	ch := b.pubsub.Channel()
	go func() {
		defer close(b.done)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				topic := strings.TrimPrefix(msg.Channel, redisChannelPrefix)
				b.hub.Deliver(topic, []byte(msg.Payload))
			}
		}
	}()
	log.Info("redis fan-out subscribed")
	return nil
}

func (b *RedisBroker) Close() error {
	if b.pubsub == nil {
		return nil
	}
	err := b.pubsub.Close()
	<-b.done
	return err
}

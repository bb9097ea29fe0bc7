package bus

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Transport carries raw envelopes between contexts. It is a pure relay:
// no backlog, no acknowledgments, at-most-once delivery to whoever is
// listening at send time.
type Transport interface {
	Publish(ctx context.Context, data []byte) error
	// Receive exposes inbound envelopes. The channel closes when the
	// transport is closed.
	Receive() <-chan []byte
	Close() error
}

// RedisTransport joins the shared broadcast domain through a redis pub/sub
// channel. Every process subscribing to the same channel name becomes a
// peer. Redis delivers published messages back to the publisher as well;
// the Bus filters those out by origin.
type RedisTransport struct {
	client  *redis.Client
	pubsub  *redis.PubSub
	channel string
	inbound chan []byte
	cancel  context.CancelFunc
}

// NewRedisTransport subscribes to the channel and starts pumping inbound
// messages. The returned transport is ready for Publish immediately.
func NewRedisTransport(client *redis.Client, channel string) *RedisTransport {
	ctx, cancel := context.WithCancel(context.Background())
	t := &RedisTransport{
		client:  client,
		pubsub:  client.Subscribe(ctx, channel),
		channel: channel,
		inbound: make(chan []byte, 64),
		cancel:  cancel,
	}

	go t.pump(ctx)
	return t
}

func (t *RedisTransport) pump(ctx context.Context) {
	defer close(t.inbound)
	ch := t.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			select {
			case t.inbound <- []byte(msg.Payload):
			default:
				// Slow receiver: drop rather than block the pump.
				// Broadcast delivery is best-effort.
			}
		}
	}
}

func (t *RedisTransport) Publish(ctx context.Context, data []byte) error {
	return t.client.Publish(ctx, t.channel, data).Err()
}

func (t *RedisTransport) Receive() <-chan []byte {
	return t.inbound
}

func (t *RedisTransport) Close() error {
	t.cancel()
	return t.pubsub.Close()
}

package ports

import "context"

// BusMessage is one raw payload delivered on a bus topic. Delivery order is
// FIFO per topic; no ordering holds across topics.
type BusMessage struct {
	Topic   string
	Payload []byte
}

// Bus is the hosted realtime primitive logical channels are multiplexed
// over: a named-topic pub/sub transport with at-most-once local delivery.
type Bus interface {
	Subscribe(ctx context.Context, topic string) (<-chan BusMessage, error)
	Unsubscribe(topic string) error
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

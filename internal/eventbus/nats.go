package eventbus

import (
	"github.com/nats-io/nats.go"
)

// NATSBus is a Bus backed by a real NATS connection.
type NATSBus struct {
	conn *nats.Conn
}

// Dial connects to a NATS server at url (use nats.DefaultURL for the local
// default) and returns a ready Bus.
func Dial(url string) (*NATSBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &NATSBus{conn: conn}, nil
}

func (b *NATSBus) Publish(subject string, payload []byte) error {
	return b.conn.Publish(subject, payload)
}

func (b *NATSBus) Subscribe(subject string, handler func(payload []byte)) (Unsubscribe, error) {
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

func (b *NATSBus) Close() error {
	b.conn.Close()
	return nil
}

// Package eventbus carries the JSON-encoded events of package events over a
// subject-addressed publish/subscribe transport.
package eventbus

// Bus is the publish/subscribe surface every component depends on. Subjects
// are plain strings (e.g. "rover.out.grid_update"); payloads are
// JSON-encoded by the caller.
type Bus interface {
	Publish(subject string, payload []byte) error
	Subscribe(subject string, handler func(payload []byte)) (Unsubscribe, error)
	Close() error
}

// Unsubscribe cancels a Subscribe call.
type Unsubscribe func()

// PublishJSON marshals v and publishes it on subject.
func PublishJSON(b Bus, subject string, v any) error {
	payload, err := marshal(v)
	if err != nil {
		return err
	}
	return b.Publish(subject, payload)
}

// SubscribeJSON unmarshals each payload into a fresh T before calling fn.
// Malformed payloads are dropped rather than crashing the subscriber.
func SubscribeJSON[T any](b Bus, subject string, fn func(T)) (Unsubscribe, error) {
	return b.Subscribe(subject, func(payload []byte) {
		var v T
		if err := unmarshal(payload, &v); err != nil {
			return
		}
		fn(v)
	})
}

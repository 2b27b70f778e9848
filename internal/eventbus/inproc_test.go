package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInProc_PublishDeliversToSubscriber(t *testing.T) {
	b := NewInProc()
	received := make(chan []byte, 1)
	_, err := b.Subscribe("foo", func(payload []byte) {
		received <- payload
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish("foo", []byte("hello")))
	assert.Equal(t, []byte("hello"), <-received)
}

func TestInProc_UnsubscribeStopsDelivery(t *testing.T) {
	b := NewInProc()
	var calls int
	unsub, err := b.Subscribe("foo", func([]byte) { calls++ })
	require.NoError(t, err)

	require.NoError(t, b.Publish("foo", nil))
	unsub()
	require.NoError(t, b.Publish("foo", nil))
	assert.Equal(t, 1, calls)
}

func TestInProc_NoSubscribersIsNotAnError(t *testing.T) {
	b := NewInProc()
	assert.NoError(t, b.Publish("nobody.listening", nil))
}

func TestInProc_ClosedBusRejectsOperations(t *testing.T) {
	b := NewInProc()
	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Publish("foo", nil), ErrClosed)
	_, err := b.Subscribe("foo", func([]byte) {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPublishSubscribeJSON_RoundTrip(t *testing.T) {
	b := NewInProc()
	type payload struct {
		Name string `json:"name"`
	}
	received := make(chan payload, 1)
	_, err := SubscribeJSON(b, "typed", func(p payload) {
		received <- p
	})
	require.NoError(t, err)

	require.NoError(t, PublishJSON(b, "typed", payload{Name: "scout"}))
	got := <-received
	assert.Equal(t, "scout", got.Name)
}

func TestSubscribeJSON_MalformedPayloadDropped(t *testing.T) {
	b := NewInProc()
	type payload struct {
		Name string `json:"name"`
	}
	var calls int
	_, err := SubscribeJSON(b, "typed", func(payload) { calls++ })
	require.NoError(t, err)

	require.NoError(t, b.Publish("typed", []byte("not json")))
	assert.Equal(t, 0, calls)
}

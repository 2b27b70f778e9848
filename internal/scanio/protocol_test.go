package scanio

import (
	"bufio"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadMessage_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	frame := Frame{Timestamp: 1.5, Points: []Point{NewPoint(0, 1.0)}}
	require.NoError(t, WriteMessage(&buf, Message{Type: MsgScan, Scan: &frame}))

	got, err := ReadMessage(context.Background(), bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, MsgScan, got.Type)
	require.NotNil(t, got.Scan)
	assert.Equal(t, frame.Timestamp, got.Scan.Timestamp)
	assert.Len(t, got.Scan.Points, 1)
}

func TestReadMessage_BadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	_, err := ReadMessage(context.Background(), bufio.NewReader(buf))
	assert.Error(t, err)
}

func TestReadMessage_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, Message{Type: MsgStarted}))
	_, err := ReadMessage(ctx, bufio.NewReader(&buf))
	assert.ErrorIs(t, err, errContextDone)
}

func TestFilter_DropsShortFrame(t *testing.T) {
	pts := []Point{NewPoint(0, 1.0), NewPoint(10, 1.0)}
	_, ok := Filter(0, pts, 0.1, 8.0)
	assert.False(t, ok)
}

func TestFilter_KeepsInRangePoints(t *testing.T) {
	pts := make([]Point, 0, 6)
	for i := 0; i < 6; i++ {
		pts = append(pts, NewPoint(float32(i*10), 1.0))
	}
	pts = append(pts, NewPoint(0, 100.0)) // out of range
	frame, ok := Filter(0, pts, 0.1, 8.0)
	require.True(t, ok)
	assert.Len(t, frame.Points, 6)
}

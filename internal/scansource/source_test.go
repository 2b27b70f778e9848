package scansource

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/hyva-rover/roverbrain/internal/scanio"
)

func newTestSource() *Source {
	return New([]string{"noop"}, zerolog.Nop())
}

func TestSource_LatestFrame_EmptyBeforePublish(t *testing.T) {
	s := newTestSource()
	_, ok := s.LatestFrame()
	assert.False(t, ok)
}

func TestSource_PublishUpdatesLatest(t *testing.T) {
	s := newTestSource()
	f := scanio.Frame{Timestamp: 1, Points: []scanio.Point{scanio.NewPoint(0, 1)}}
	s.publish(f)

	got, ok := s.LatestFrame()
	assert.True(t, ok)
	assert.Equal(t, f.Timestamp, got.Timestamp)
}

func TestSource_PublishOverwritesLatest(t *testing.T) {
	s := newTestSource()
	for i := 0; i < 11; i++ {
		s.publish(scanio.Frame{Timestamp: float64(i)})
	}

	got, ok := s.LatestFrame()
	assert.True(t, ok)
	assert.Equal(t, float64(10), got.Timestamp)
}

func TestSource_ErrNilByDefault(t *testing.T) {
	s := newTestSource()
	assert.NoError(t, s.Err())
}

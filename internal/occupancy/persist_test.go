package occupancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_RoundTrip(t *testing.T) {
	g := New(10, 0.05)
	g.UpdateFromScan(0, 0, 0, []ScanPoint{
		{AngleDeg: 0, Distance: 1.0},
		{AngleDeg: 90, Distance: 1.5},
	})

	rec := g.ToRecord(1000, 2000)
	assert.Equal(t, RecordVersion, rec.Version)
	assert.Equal(t, g.ScanCount(), rec.ScanCount)
	assert.Equal(t, g.Resolution(), rec.Resolution)
	assert.Equal(t, g.SizeM(), rec.SizeM)

	restored := FromRecord(rec)
	assert.Equal(t, g.ScanCount(), restored.ScanCount())
	assert.Equal(t, g.Resolution(), restored.Resolution())
	assert.Equal(t, g.SizeM(), restored.SizeM())
	assert.Equal(t, g.Cells(), restored.Cells())

	origStats := g.Stats()
	restoredStats := restored.Stats()
	assert.Equal(t, origStats.Free, restoredStats.Free)
	assert.Equal(t, origStats.Occupied, restoredStats.Occupied)
	assert.Equal(t, origStats.Unknown, restoredStats.Unknown)

	for r := 0; r < g.Cells(); r++ {
		for c := 0; c < g.Cells(); c++ {
			require.Equal(t, g.At(r, c), restored.At(r, c), "cell (%d,%d) mismatch", r, c)
		}
	}
}

func TestRecord_CarriesWallsAndCorners(t *testing.T) {
	g := New(10, 0.05)
	markOccupiedRun(g, 50, 40, 50)

	rec := g.ToRecord(0, 0)
	require.NotEmpty(t, rec.Walls)

	restored := FromRecord(rec)
	assert.Equal(t, rec.Walls, restored.Walls())
	assert.Equal(t, rec.Corners, restored.Corners())
}

func TestRecord_EmptyGridHasNoRoomBounds(t *testing.T) {
	g := New(10, 0.05)
	rec := g.ToRecord(0, 0)
	assert.Nil(t, rec.RoomBounds)
}

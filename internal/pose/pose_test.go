package pose

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestEstimator_StraightForward(t *testing.T) {
	e := New(0.2, 1.0)
	e.Update(100, true, 100, true, 1.0)
	x, y, h := e.Pose()
	assert.InDelta(t, 0, x, 1e-3)
	assert.InDelta(t, 1.0, y, 1e-3)
	assert.InDelta(t, 0, h, 1e-3)
}

func TestEstimator_SpinInPlace(t *testing.T) {
	e := New(0.2, 1.0)
	// Left backward, right forward: pure rotation, no translation.
	e.Update(100, false, 100, true, 1.0)
	x, y, _ := e.Pose()
	assert.InDelta(t, 0, x, 1e-3)
	assert.InDelta(t, 0, y, 1e-3)
}

func TestEstimator_HeadingStaysNormalized(t *testing.T) {
	e := New(0.1, 1.0)
	for i := 0; i < 50; i++ {
		e.Update(100, false, 100, true, 0.5)
	}
	_, _, h := e.Pose()
	assert.LessOrEqual(t, h, math32.Pi)
	assert.GreaterOrEqual(t, h, -math32.Pi)
}

func TestEstimator_IgnoresDropoutDt(t *testing.T) {
	e := New(0.2, 1.0)
	e.Update(100, true, 100, true, 0)
	e.Update(100, true, 100, true, -1)
	e.Update(100, true, 100, true, 3.0)
	x, y, _ := e.Pose()
	assert.Equal(t, float32(0), x)
	assert.Equal(t, float32(0), y)
}

func TestEstimator_LowPWMTreatedAsStopped(t *testing.T) {
	e := New(0.2, 1.0)
	e.Update(5, true, 5, true, 1.0)
	x, y, _ := e.Pose()
	assert.Equal(t, float32(0), x)
	assert.Equal(t, float32(0), y)
}

func TestEstimator_HistoryBounded(t *testing.T) {
	e := New(0.2, 1.0)
	for i := 0; i < MaxHistory+50; i++ {
		e.Update(50, true, 50, true, 0.01)
	}
	assert.Len(t, e.Path(), MaxHistory)
}

func TestEstimator_Reset(t *testing.T) {
	e := New(0.2, 1.0)
	e.Update(100, true, 100, true, 1.0)
	e.Reset()
	x, y, h := e.Pose()
	assert.Zero(t, x)
	assert.Zero(t, y)
	assert.Zero(t, h)
	assert.Empty(t, e.Path())
}

func TestEstimator_DistanceToStart(t *testing.T) {
	e := New(0.2, 1.0)
	for i := 0; i < 3; i++ {
		e.Update(100, true, 100, true, 1.0)
	}
	assert.InDelta(t, 3.0, e.DistanceToStart(), 1e-2)
}

// alwaysOccupiedAt reports a world coordinate as OCCUPIED when it lies
// within radius of (x, y): a large radius makes every point occupied, a
// zero radius makes none occupied.
type alwaysOccupiedAt struct {
	x, y, radius float32
}

func (g alwaysOccupiedAt) IsOccupiedWorld(x, y float32) bool {
	return math32.Hypot(x-g.x, y-g.y) < g.radius
}

func makeScanPoints(n int, dist float32) []ScanPoint {
	pts := make([]ScanPoint, n)
	for i := range pts {
		pts[i] = ScanPoint{AngleDeg: float32(i) * 360 / float32(n), Distance: dist}
	}
	return pts
}

func TestEstimator_CorrectFromScan_TooFewPoints(t *testing.T) {
	e := New(0.2, 1.0)
	applied := e.CorrectFromScan(alwaysOccupiedAt{radius: 100}, makeScanPoints(5, 1.0), 10)
	assert.False(t, applied)
}

func TestEstimator_CorrectFromScan_NilGrid(t *testing.T) {
	e := New(0.2, 1.0)
	applied := e.CorrectFromScan(nil, makeScanPoints(30, 1.0), 10)
	assert.False(t, applied)
}

func TestEstimator_CorrectFromScan_NoApplyWhenScoreLow(t *testing.T) {
	e := New(0.2, 1.0)
	// Nothing is ever occupied, so every offset scores 0.
	applied := e.CorrectFromScan(alwaysOccupiedAt{radius: 0}, makeScanPoints(30, 1.0), 10)
	assert.False(t, applied)
}

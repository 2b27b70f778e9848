// Package pose implements the Pose Estimator (C2): dead-reckoning from
// commanded motor speeds, with opportunistic scan-match drift correction
// against the occupancy grid.
package pose

import (
	"sync"

	"github.com/chewxy/math32"

	"github.com/hyva-rover/roverbrain/internal/geom"
)

// Sample is a single recorded pose, used for the bounded path history.
type Sample struct {
	X, Y, Heading float32
}

// MaxHistory bounds the retained path samples for UI display.
const MaxHistory = 500

// maxDtSeconds dropouts: a dt outside (0, maxDtSeconds] is ignored.
const maxDtSeconds = 2.0

// Estimator maintains a best-effort pose under dead reckoning.
type Estimator struct {
	wheelBase  float32
	maxSpeedMS float32

	mu      sync.RWMutex
	x, y, h float32
	history []Sample
}

// New builds an Estimator for a robot with the given wheel base (meters)
// and maximum linear speed (m/s) at full commanded speed.
func New(wheelBase, maxSpeedMS float32) *Estimator {
	return &Estimator{wheelBase: wheelBase, maxSpeedMS: maxSpeedMS}
}

// Pose returns the current (x, y, heading).
func (e *Estimator) Pose() (x, y, h float32) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.x, e.y, e.h
}

// Path returns a copy of the retained pose history, oldest first.
func (e *Estimator) Path() []Sample {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Sample, len(e.history))
	copy(out, e.history)
	return out
}

// Reset returns the pose to the origin and clears history.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.x, e.y, e.h = 0, 0, 0
	e.history = nil
}

// commandedSpeed converts a per-side PWM percentage and sign into a signed
// linear speed in m/s. A magnitude at or below 5 is treated as stopped.
func commandedSpeed(pwmPercent float32, forward bool, maxSpeedMS float32) float32 {
	if pwmPercent <= 5 {
		return 0
	}
	v := (pwmPercent / 100) * maxSpeedMS
	if !forward {
		v = -v
	}
	return v
}

// Update integrates one dead-reckoning step from the commanded per-side
// speeds (PWM percent, forward flag) over dt seconds.
func (e *Estimator) Update(leftPWM float32, leftForward bool, rightPWM float32, rightForward bool, dt float32) {
	if dt <= 0 || dt > maxDtSeconds {
		return
	}

	vl := commandedSpeed(leftPWM, leftForward, e.maxSpeedMS)
	vr := commandedSpeed(rightPWM, rightForward, e.maxSpeedMS)

	v := (vl + vr) / 2
	omega := (vr - vl) / e.wheelBase

	e.mu.Lock()
	defer e.mu.Unlock()

	if math32.Abs(omega) < 1e-6 {
		dx, dy := geom.Heading(e.h)
		e.x += dx * v * dt
		e.y += dy * v * dt
	} else {
		radius := v / omega
		h0 := e.h
		e.h = geom.NormalizeAngle(e.h + omega*dt)
		// Arc displacement: integrate the heading-direction vector over
		// the turn, equivalent to rotating the chord by the heading
		// convention of geom.Heading.
		dx0, dy0 := geom.Heading(h0)
		dx1, dy1 := geom.Heading(e.h)
		e.x += radius * (dy1 - dy0)
		e.y += radius * (dx0 - dx1)
	}
	e.h = geom.NormalizeAngle(e.h)

	e.appendHistory()
}

func (e *Estimator) appendHistory() {
	e.history = append(e.history, Sample{X: e.x, Y: e.y, Heading: e.h})
	if len(e.history) > MaxHistory {
		e.history = e.history[len(e.history)-MaxHistory:]
	}
}

// DistanceToStart returns the Euclidean distance from the current pose to
// the origin.
func (e *Estimator) DistanceToStart() float32 {
	x, y, _ := e.Pose()
	return math32.Hypot(x, y)
}

// GridProbe is the minimal view of an occupancy grid the scan-match
// correction needs: whether the cell containing a world point is OCCUPIED.
type GridProbe interface {
	IsOccupiedWorld(x, y float32) bool
}

// ScanPoint is the minimal per-point data scan-match correction needs.
type ScanPoint struct {
	AngleDeg float32
	Distance float32
}

// correctionOffsets are tried in this fixed order; a later offset only
// replaces the current best on a strictly higher score, so (0,0) wins ties.
var correctionOffsets = []float32{0, -0.05, 0.05}

// CorrectFromScan nudges (x, y) towards the offset (from a coarse 3x3
// translational grid search) whose projected scan endpoints land on the
// most OCCUPIED cells, provided that count exceeds minScore. No rotation
// correction is attempted. Returns whether a correction was applied.
func (e *Estimator) CorrectFromScan(grid GridProbe, points []ScanPoint, minScore int) bool {
	if grid == nil || len(points) < 20 {
		return false
	}
	if len(points) > 100 {
		points = points[:100]
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	bestScore := 0
	var bestDX, bestDY float32

	for _, dx := range correctionOffsets {
		for _, dy := range correctionOffsets {
			testX := e.x + dx
			testY := e.y + dy
			score := 0
			for _, p := range points {
				if p.Distance < 0.05 || p.Distance > 8.0 {
					continue
				}
				worldAngle := p.AngleDeg*geom.Pi32/180 + e.h
				hx, hy := geom.Heading(worldAngle)
				wx := testX + p.Distance*hx
				wy := testY + p.Distance*hy
				if grid.IsOccupiedWorld(wx, wy) {
					score++
				}
			}
			if score > bestScore {
				bestScore = score
				bestDX, bestDY = dx, dy
			}
		}
	}

	if bestScore > minScore && (bestDX != 0 || bestDY != 0) {
		e.x += bestDX
		e.y += bestDY
		return true
	}
	return false
}

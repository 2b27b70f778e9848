// Package actuator maps joystick-style intent onto differential-drive
// motor commands and carries them to a narrow Actuator driver.
package actuator

import "github.com/hyva-rover/roverbrain/internal/geom"

// Side identifies one drive motor.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// Direction is the rotation sense commanded to one motor.
type Direction int

const (
	DirectionStop Direction = iota
	DirectionForward
	DirectionBackward
)

// Driver is the narrow surface this system drives a real motor controller
// through — deliberately smaller than the reference actuator.Actuator
// interface's functional-options Configure/protobuf Get/Set surface, since
// no physical motor protocol is in this system's scope.
type Driver interface {
	SetSpeed(side Side, direction Direction, speed int) error
}

// Mock records every SetSpeed call; used by tests and by anything that
// wants to assert on commanded motor state without a real driver attached.
type Mock struct {
	Calls []MockCall
	Err   error
}

// MockCall is one recorded Driver.SetSpeed invocation.
type MockCall struct {
	Side      Side
	Direction Direction
	Speed     int
}

func (m *Mock) SetSpeed(side Side, direction Direction, speed int) error {
	m.Calls = append(m.Calls, MockCall{side, direction, speed})
	return m.Err
}

// deadZone is the symmetric joystick dead-zone magnitude below which an
// axis reads as zero.
const deadZone = 5

// Mapper converts (x, y) joystick intent into per-side motor commands and
// forwards them to a Driver. It is the sole translation point between user
// intent and hardware; all callers funnel through it so the driver never
// needs its own lock.
type Mapper struct {
	driver Driver
}

// New builds a Mapper writing to driver.
func New(driver Driver) *Mapper {
	return &Mapper{driver: driver}
}

// Mix converts joystick axes x (steering, -100 left..100 right) and y
// (throttle, -100 back..100 forward) into signed left/right motor
// percentages, applying the dead-zone first. Exported so callers driving
// dead-reckoning from commanded motor output (rather than through a
// Driver) can reuse the exact same mixing the Mapper applies.
func Mix(x, y int) (left, right int) {
	x = deadZoned(x)
	y = deadZoned(y)
	return geom.ClampInt(y+x, -100, 100), geom.ClampInt(y-x, -100, 100)
}

// Apply converts joystick axes x (steering, -100 left..100 right) and y
// (throttle, -100 back..100 forward) into left/right motor commands and
// issues them to the driver.
func (m *Mapper) Apply(x, y int) error {
	left, right := Mix(x, y)

	if err := m.driver.SetSpeed(SideLeft, directionOf(left), abs(left)); err != nil {
		return err
	}
	return m.driver.SetSpeed(SideRight, directionOf(right), abs(right))
}

// Stop zeros both motors.
func (m *Mapper) Stop() error {
	return m.Apply(0, 0)
}

func deadZoned(v int) int {
	if v > -deadZone && v < deadZone {
		return 0
	}
	return v
}

func directionOf(v int) Direction {
	switch {
	case v > 0:
		return DirectionForward
	case v < 0:
		return DirectionBackward
	default:
		return DirectionStop
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

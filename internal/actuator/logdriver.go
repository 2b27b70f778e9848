package actuator

import "github.com/rs/zerolog"

// LogDriver is a stand-in Driver that only logs commanded motor state, used
// by cmd/roverd until a real hardware driver is wired in.
type LogDriver struct {
	log zerolog.Logger
}

// NewLogDriver builds a LogDriver that writes at debug level.
func NewLogDriver(log zerolog.Logger) *LogDriver {
	return &LogDriver{log: log}
}

func (d *LogDriver) SetSpeed(side Side, direction Direction, speed int) error {
	d.log.Debug().
		Str("side", sideName(side)).
		Str("direction", directionName(direction)).
		Int("speed", speed).
		Msg("motor set_speed")
	return nil
}

func sideName(s Side) string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

func directionName(d Direction) string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBackward:
		return "backward"
	default:
		return "stop"
	}
}

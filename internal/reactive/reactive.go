// Package reactive implements sector-based obstacle avoidance: bin a LiDAR
// scan into angular sectors, check whether the front is clear, and steer
// towards the deepest open sector otherwise.
package reactive

import (
	"github.com/chewxy/math32"

	"github.com/hyva-rover/roverbrain/internal/scanio"
)

// Action is the high-level motion decision for one planning step.
type Action string

const (
	ActionForward   Action = "forward"
	ActionTurnLeft  Action = "turn_left"
	ActionTurnRight Action = "turn_right"
	ActionStop      Action = "stop"
)

// Command is the result of one planning step.
type Command struct {
	Action          Action
	Speed           int
	Steering        int // -100 (left) .. 100 (right)
	SectorDistances []float32
	BestSector      int
}

// Planner bins scans into SectorCount angular sectors and steers around
// obstacles that intrude within ObstacleThreshold metres of the front.
type Planner struct {
	SectorCount       int
	ObstacleThreshold float32
	Speed             int
	FrontHalf         int // sectors each side of dead-ahead counted as "front"

	sectorWidth float32
}

// New builds a Planner with the given tuning. sectorCount must be even and
// >= 2*frontHalf+1 for frontIsClear to make sense.
func New(sectorCount int, obstacleThreshold float32, speed, frontHalf int) *Planner {
	return &Planner{
		SectorCount:       sectorCount,
		ObstacleThreshold: obstacleThreshold,
		Speed:             speed,
		FrontHalf:         frontHalf,
		sectorWidth:       360.0 / float32(sectorCount),
	}
}

// PlanStep decides a motor command from one scan frame. An empty frame
// always returns Stop; any non-empty frame is binned and planned.
func (p *Planner) PlanStep(points []scanio.Point) Command {
	if len(points) == 0 {
		return Command{Action: ActionStop, BestSector: -1}
	}

	sectors := p.buildSectors(points)
	best := p.bestSector(sectors)

	if p.frontIsClear(sectors) {
		return Command{Action: ActionForward, Speed: p.Speed, SectorDistances: sectors, BestSector: best}
	}
	if best < 0 {
		return Command{Action: ActionStop, SectorDistances: sectors, BestSector: best}
	}

	centre := p.SectorCount / 2
	if best < centre {
		steering := steeringMagnitude(centre, best, centre)
		return Command{Action: ActionTurnRight, Speed: p.Speed, Steering: steering, SectorDistances: sectors, BestSector: best}
	}
	steering := steeringMagnitude(best, centre, centre)
	return Command{Action: ActionTurnLeft, Speed: p.Speed, Steering: -steering, SectorDistances: sectors, BestSector: best}
}

func steeringMagnitude(hi, lo, centre int) int {
	v := float32(hi-lo) * (100.0 / float32(centre))
	if v < 20 {
		v = 20
	}
	if v > 100 {
		v = 100
	}
	return int(v)
}

// buildSectors averages scan distance into SectorCount angular bins,
// normalising each point's angle from -180..180 into 0..360 first. Empty
// sectors report 0 (unknown).
func (p *Planner) buildSectors(points []scanio.Point) []float32 {
	sums := make([]float32, p.SectorCount)
	counts := make([]int, p.SectorCount)

	for _, pt := range points {
		norm := math32.Mod(pt.AngleDeg+180.0, 360.0)
		if norm < 0 {
			norm += 360.0
		}
		idx := int(norm / p.sectorWidth)
		if idx >= p.SectorCount {
			idx = p.SectorCount - 1
		}
		sums[idx] += pt.Distance
		counts[idx]++
	}

	sectors := make([]float32, p.SectorCount)
	for i := range sectors {
		if counts[i] > 0 {
			sectors[i] = sums[i] / float32(counts[i])
		}
	}
	return sectors
}

// frontIsClear reports whether every sector within FrontHalf of dead-ahead
// has a recorded distance at or above ObstacleThreshold.
func (p *Planner) frontIsClear(sectors []float32) bool {
	centre := p.SectorCount / 2
	for i := centre - p.FrontHalf; i <= centre+p.FrontHalf; i++ {
		idx := ((i % p.SectorCount) + p.SectorCount) % p.SectorCount
		if sectors[idx] < p.ObstacleThreshold || sectors[idx] == 0 {
			return false
		}
	}
	return true
}

// bestSector returns the index of the sector with the largest recorded
// distance, or -1 if even the best sector is inside ObstacleThreshold.
func (p *Planner) bestSector(sectors []float32) int {
	bestIdx := -1
	bestDist := float32(0)
	for i, d := range sectors {
		if d > bestDist {
			bestDist = d
			bestIdx = i
		}
	}
	if bestDist < p.ObstacleThreshold {
		return -1
	}
	return bestIdx
}

// ToJoystick maps a Command onto joystick-style (x, y) axes for the
// actuator mapper: x is steering (-100 left .. 100 right), y is throttle
// (100 forward .. -100 backward). Turning commands are throttled to half
// speed, matching a pivot-turn feel rather than a full-speed lane change.
func ToJoystick(cmd Command) (x, y int) {
	switch cmd.Action {
	case ActionForward:
		return 0, cmd.Speed
	case ActionTurnLeft, ActionTurnRight:
		return cmd.Steering, cmd.Speed / 2
	default:
		return 0, 0
	}
}

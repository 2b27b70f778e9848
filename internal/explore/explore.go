// Package explore implements the Exploration Planner (C5): five waypoint
// generation modes layered over the reactive planner, which stays
// authoritative on safety at every step.
package explore

import (
	"sort"

	"github.com/chewxy/math32"

	"github.com/hyva-rover/roverbrain/internal/geom"
	"github.com/hyva-rover/roverbrain/internal/navgrid"
	"github.com/hyva-rover/roverbrain/internal/occupancy"
	"github.com/hyva-rover/roverbrain/internal/reactive"
	"github.com/hyva-rover/roverbrain/internal/scanio"
)

// Mode selects waypoint generation strategy.
type Mode string

const (
	ModeExplore  Mode = "explore"
	ModeCoverage Mode = "coverage"
	ModeBoundary Mode = "boundary"
	ModeCorners  Mode = "corners"
	ModeReturn   Mode = "return"
)

// Waypoint is a target point in world coordinates.
type Waypoint struct {
	X, Y float32
}

const (
	waypointReachedRadius = 0.20
	headingErrorThreshold = 0.4
	coverageLineSpacing   = 0.30
	returnDownsampleEvery = 10
	steeringGain          = 80
)

// Planner holds exploration tuning and the waypoint cursor for the active
// mode. It composes a reactive.Planner, which remains authoritative on
// collision avoidance: the exploration layer only ever picks direction when
// the reactive layer reports the path ahead is clear.
type Planner struct {
	Speed           int
	FrontierMinDist float32
	CompletePct     float32

	mode      Mode
	waypoints []Waypoint
	cursor    int
	complete  bool

	reactive *reactive.Planner
	astar    *navgrid.AStar
}

// New builds a Planner in ModeExplore.
func New(speed int, frontierMinDist, completePct float32, reactivePlanner *reactive.Planner) *Planner {
	return &Planner{
		Speed:           speed,
		FrontierMinDist: frontierMinDist,
		CompletePct:     completePct,
		mode:            ModeExplore,
		reactive:        reactivePlanner,
	}
}

// SetMode switches the active waypoint-generation mode and clears the
// current waypoint queue so the next Step regenerates it for the new mode.
func (p *Planner) SetMode(mode Mode) {
	p.mode = mode
	p.waypoints = nil
	p.cursor = 0
	p.complete = false
}

// Mode returns the active mode.
func (p *Planner) Mode() Mode { return p.mode }

// Complete reports whether the planner has declared exploration finished.
func (p *Planner) Complete() bool { return p.complete }

// Status mirrors the outbound explore_status event fields this planner can
// compute on its own (wall/corner/scan counts and explored_pct come from the
// grid's own Stats()).
type Status struct {
	Mode           Mode
	Complete       bool
	WaypointsTotal int
	WaypointsDone  int
}

// StatusOf reports the current waypoint-progress snapshot.
func (p *Planner) StatusOf() Status {
	return Status{
		Mode:           p.mode,
		Complete:       p.complete,
		WaypointsTotal: len(p.waypoints),
		WaypointsDone:  min(p.cursor, len(p.waypoints)),
	}
}

// Step runs one exploration tick: check completion, ensure a waypoint,
// defer to the reactive planner for safety, and otherwise steer towards the
// waypoint's desired heading.
func (p *Planner) Step(grid *occupancy.Grid, px, py, heading float32, points []scanio.Point, start Waypoint) reactive.Command {
	if grid.Stats().ExploredPct >= p.CompletePct {
		p.complete = true
		return reactive.Command{Action: reactive.ActionStop, BestSector: -1}
	}

	const maxAdvancesPerStep = 64
	for attempt := 0; attempt < maxAdvancesPerStep; attempt++ {
		wp, ok := p.currentWaypoint()
		if !ok {
			p.regenerate(grid, px, py, start)
			wp, ok = p.currentWaypoint()
			if !ok {
				p.complete = true
				return reactive.Command{Action: reactive.ActionStop, BestSector: -1}
			}
		}

		if geom.Hypot2D(px, py, wp.X, wp.Y) < waypointReachedRadius {
			p.cursor++
			continue
		}

		reactiveCmd := p.reactive.PlanStep(points)
		if reactiveCmd.Action == reactive.ActionStop {
			p.cursor++ // fully blocked: skip this waypoint
			return reactiveCmd
		}
		if reactiveCmd.Action != reactive.ActionForward {
			return reactiveCmd
		}

		desired := geom.HeadingTo(px, py, wp.X, wp.Y)
		headingErr := geom.NormalizeAngle(desired - heading)

		if math32.Abs(headingErr) > headingErrorThreshold {
			// A positive heading error is counter-clockwise (to the left),
			// and negative steering turns left.
			steering := geom.ClampInt(int(-headingErr*steeringGain), -100, 100)
			action := reactive.ActionTurnRight
			if steering < 0 {
				action = reactive.ActionTurnLeft
			}
			return reactive.Command{Action: action, Speed: p.Speed, Steering: steering}
		}

		return reactive.Command{Action: reactive.ActionForward, Speed: p.Speed}
	}

	p.complete = true
	return reactive.Command{Action: reactive.ActionStop, BestSector: -1}
}

func (p *Planner) currentWaypoint() (Waypoint, bool) {
	if p.cursor >= len(p.waypoints) {
		return Waypoint{}, false
	}
	return p.waypoints[p.cursor], true
}

// regenerate rebuilds the waypoint queue for the active mode. On failure to
// find any target, it leaves waypoints empty; the caller treats that as
// completion.
func (p *Planner) regenerate(grid *occupancy.Grid, px, py float32, start Waypoint) {
	switch p.mode {
	case ModeExplore:
		p.waypoints = nearestFrontierWaypoint(grid, px, py, p.FrontierMinDist)
	case ModeCoverage:
		p.waypoints = coverageSweep(grid)
	case ModeBoundary:
		p.waypoints = boundaryWaypoints(grid)
		if len(p.waypoints) == 0 {
			p.waypoints = nearestFrontierWaypoint(grid, px, py, p.FrontierMinDist)
		}
	case ModeCorners:
		p.waypoints = cornersThenFrontiers(grid, px, py)
	case ModeReturn:
		p.waypoints = p.returnPath(grid, px, py, start)
	default:
		p.waypoints = nil
	}
	p.cursor = 0
}

func nearestFrontierWaypoint(grid *occupancy.Grid, px, py, minDist float32) []Waypoint {
	var best *occupancy.Frontier
	var bestDist float32
	for _, f := range grid.Frontiers() {
		d := geom.Hypot2D(px, py, f.X, f.Y)
		if d < minDist {
			continue
		}
		if best == nil || d < bestDist {
			fCopy := f
			best = &fCopy
			bestDist = d
		}
	}
	if best == nil {
		return nil
	}
	return []Waypoint{{X: best.X, Y: best.Y}}
}

// coverageSweep lays a boustrophedon (back-and-forth) path across the
// free-space bounding box, alternating sweep direction per column.
func coverageSweep(grid *occupancy.Grid) []Waypoint {
	bounds, ok := grid.FreeBounds()
	if !ok {
		return nil
	}

	var waypoints []Waypoint
	leftToRight := true
	for x := bounds.XMin; x <= bounds.XMax; x += coverageLineSpacing {
		if leftToRight {
			waypoints = append(waypoints, Waypoint{X: x, Y: bounds.YMin}, Waypoint{X: x, Y: bounds.YMax})
		} else {
			waypoints = append(waypoints, Waypoint{X: x, Y: bounds.YMax}, Waypoint{X: x, Y: bounds.YMin})
		}
		leftToRight = !leftToRight
	}
	return waypoints
}

// boundaryWaypoints visits wall endpoints in polar order around their
// centroid. It returns nil if no walls are known yet; regenerate then falls
// back to explore mode's nearest-frontier target.
func boundaryWaypoints(grid *occupancy.Grid) []Waypoint {
	walls := grid.Walls()
	if len(walls) == 0 {
		return nil
	}

	var cx, cy float32
	points := make([]Waypoint, 0, len(walls)*2)
	for _, w := range walls {
		points = append(points, Waypoint{w.X1, w.Y1}, Waypoint{w.X2, w.Y2})
		cx += w.X1 + w.X2
		cy += w.Y1 + w.Y2
	}
	n := float32(len(points))
	cx /= n
	cy /= n

	sort.Slice(points, func(i, j int) bool {
		return math32.Atan2(points[i].Y-cy, points[i].X-cx) < math32.Atan2(points[j].Y-cy, points[j].X-cx)
	})
	return points
}

// cornersThenFrontiers visits detected corners nearest-first, then appends
// every known frontier.
func cornersThenFrontiers(grid *occupancy.Grid, px, py float32) []Waypoint {
	corners := grid.Corners()
	sort.Slice(corners, func(i, j int) bool {
		return geom.Hypot2D(px, py, corners[i].X, corners[i].Y) < geom.Hypot2D(px, py, corners[j].X, corners[j].Y)
	})

	waypoints := make([]Waypoint, 0, len(corners))
	for _, c := range corners {
		waypoints = append(waypoints, Waypoint{X: c.X, Y: c.Y})
	}
	for _, f := range grid.Frontiers() {
		waypoints = append(waypoints, Waypoint{X: f.X, Y: f.Y})
	}
	return waypoints
}

// returnPath runs A* from the current cell to the start cell, down-sampling
// the result every 10 cells (or leaving it raw if shorter).
func (p *Planner) returnPath(grid *occupancy.Grid, px, py float32, start Waypoint) []Waypoint {
	if p.astar == nil {
		p.astar = navgrid.NewAStar(navgrid.GridAdapter{Grid: grid})
	}
	fromRow, fromCol := grid.WorldToCell(px, py)
	toRow, toCol := grid.WorldToCell(start.X, start.Y)

	cells := p.astar.Search(navgrid.Cell{Row: fromRow, Col: fromCol}, navgrid.Cell{Row: toRow, Col: toCol})
	if cells == nil {
		return nil
	}
	if len(cells) <= returnDownsampleEvery {
		return cellsToWaypoints(grid, cells)
	}

	var sampled []navgrid.Cell
	for i, c := range cells {
		if i%returnDownsampleEvery == 0 {
			sampled = append(sampled, c)
		}
	}
	last := cells[len(cells)-1]
	if len(sampled) == 0 || sampled[len(sampled)-1] != last {
		sampled = append(sampled, last)
	}
	return cellsToWaypoints(grid, sampled)
}

func cellsToWaypoints(grid *occupancy.Grid, cells []navgrid.Cell) []Waypoint {
	waypoints := make([]Waypoint, len(cells))
	for i, c := range cells {
		x, y := grid.CellToWorld(c.Row, c.Col)
		waypoints[i] = Waypoint{X: x, Y: y}
	}
	return waypoints
}

// Package occupancy implements the Occupancy Grid (C3): a 2D byte grid
// updated by Bresenham ray-casting from scan frames, with frontier and
// wall/corner extraction for the exploration planner.
package occupancy

import (
	"sync"

	"github.com/chewxy/math32"

	"github.com/hyva-rover/roverbrain/internal/geom"
)

// Cell values.
const (
	Unknown  byte = 0
	Free     byte = 1
	Occupied byte = 100
)

// minWallRun is the minimum connected-run length to report as a wall.
const minWallRun = 5

// minFrontierCluster is the minimum cluster size to report as a frontier.
const minFrontierCluster = 3

// ScanPoint is the minimal per-point input UpdateFromScan needs.
type ScanPoint struct {
	AngleDeg float32
	Distance float32
}

// Stats mirrors the reference get_stats() report.
type Stats struct {
	TotalCells    int
	Free          int
	Occupied      int
	Unknown       int
	ExploredPct   float32
	ScanCount     int
	ResolutionM   float32
	SizeM         float32
	WallCount     int
	CornerCount   int
}

// RoomBounds is the world-coordinate bounding box of occupied cells.
type RoomBounds struct {
	XMin, YMin, XMax, YMax float32
	Width, Height          float32
}

// Wall is an axis-aligned connected run of occupied cells.
type Wall struct {
	R1, C1, R2, C2 int
	X1, Y1, X2, Y2 float32
	Length         float32
	Horizontal     bool
}

// Corner is a point where a horizontal and a vertical wall share an
// endpoint.
type Corner struct {
	X, Y float32
}

// Frontier is a cluster of FREE cells bordering UNKNOWN space.
type Frontier struct {
	X, Y float32
	Size int
}

// Grid is a square occupancy grid, origin at the centre cell.
type Grid struct {
	resolution float32
	sizeM      float32
	cells      int
	origin     int

	mu        sync.RWMutex
	data      []byte // row-major, len == cells*cells
	scanCount int
	walls     []Wall
	corners   []Corner
}

// New builds an empty Grid of the given side length (meters) and cell
// resolution (meters/cell).
func New(sizeM, resolution float32) *Grid {
	cells := int(sizeM/resolution + 0.5)
	if cells < 1 {
		cells = 1
	}
	return &Grid{
		resolution: resolution,
		sizeM:      sizeM,
		cells:      cells,
		origin:     cells / 2,
		data:       make([]byte, cells*cells),
	}
}

// Reset replaces the grid contents with a fresh, empty grid of the same
// dimensions, rather than reusing __init__ as a reset hook.
func (g *Grid) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.data = make([]byte, g.cells*g.cells)
	g.scanCount = 0
	g.walls = nil
	g.corners = nil
}

// Cells returns the grid's side length in cells.
func (g *Grid) Cells() int { return g.cells }

// Resolution returns the grid's cell size in meters.
func (g *Grid) Resolution() float32 { return g.resolution }

// SizeM returns the grid's side length in meters.
func (g *Grid) SizeM() float32 { return g.sizeM }

// Origin returns the row/col index of the centre cell.
func (g *Grid) Origin() int { return g.origin }

// WorldToCell converts world coordinates (meters) to a grid cell
// (row, col). y-up becomes row-down.
func (g *Grid) WorldToCell(x, y float32) (row, col int) {
	col = int(math32.Floor(x/g.resolution)) + g.origin
	row = int(math32.Floor(-y/g.resolution)) + g.origin
	return row, col
}

// CellToWorld converts a grid cell to world coordinates (meters): the
// cell's corner with the smallest x and the largest y, not its centre.
func (g *Grid) CellToWorld(row, col int) (x, y float32) {
	return g.CellToWorldF(float32(row), float32(col))
}

// CellToWorldF is CellToWorld for fractional cell coordinates, used for
// cluster centroids that average several cells.
func (g *Grid) CellToWorldF(row, col float32) (x, y float32) {
	x = (col - float32(g.origin)) * g.resolution
	y = -(row - float32(g.origin)) * g.resolution
	return x, y
}

// InBounds reports whether (row, col) addresses a valid cell.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.cells && col >= 0 && col < g.cells
}

func (g *Grid) index(row, col int) int { return row*g.cells + col }

// at reads a cell value; caller must hold at least a read lock.
func (g *Grid) at(row, col int) byte {
	if !g.InBounds(row, col) {
		return Unknown
	}
	return g.data[g.index(row, col)]
}

// IsOccupiedWorld implements pose.GridProbe: is the cell containing the
// given world point OCCUPIED.
func (g *Grid) IsOccupiedWorld(x, y float32) bool {
	row, col := g.WorldToCell(x, y)
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.InBounds(row, col) && g.at(row, col) == Occupied
}

// At returns the value of the given cell, or Unknown if out of bounds.
func (g *Grid) At(row, col int) byte {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.at(row, col)
}

// ScanCount returns the number of scans integrated so far.
func (g *Grid) ScanCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.scanCount
}

// UpdateFromScan ray-casts every scan point from the robot's cell to the
// point's world-frame endpoint cell, marking traversed cells FREE unless
// already OCCUPIED, then marks the endpoint cell OCCUPIED. Takes the write
// lock for the whole update, matching the reference's "writers take
// exclusive" discipline.
func (g *Grid) UpdateFromScan(rx, ry, rh float32, points []ScanPoint) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r0, c0 := g.WorldToCell(rx, ry)

	for _, p := range points {
		worldAngle := p.AngleDeg*geom.Pi32/180 + rh
		dx, dy := geom.Heading(worldAngle)
		ex := rx + p.Distance*dx
		ey := ry + p.Distance*dy
		er, ec := g.WorldToCell(ex, ey)

		g.rayCastFree(r0, c0, er, ec)

		if g.InBounds(er, ec) {
			g.data[g.index(er, ec)] = Occupied
		}
	}
	g.scanCount++
}

// rayCastFree is a Bresenham stepper from (r0,c0) to (r1,c1) marking every
// traversed in-bounds cell FREE unless it is already OCCUPIED. Caller must
// hold the write lock.
func (g *Grid) rayCastFree(r0, c0, r1, c1 int) {
	dr := abs(r1 - r0)
	dc := abs(c1 - c0)
	sr, sc := 1, 1
	if r1 < r0 {
		sr = -1
	}
	if c1 < c0 {
		sc = -1
	}
	err := dr - dc
	r, c := r0, c0
	maxSteps := dr + dc + 1

	for steps := 0; steps < maxSteps; steps++ {
		if g.InBounds(r, c) {
			idx := g.index(r, c)
			if g.data[idx] != Occupied {
				g.data[idx] = Free
			}
		}
		if r == r1 && c == c1 {
			break
		}
		e2 := 2 * err
		if e2 > -dc {
			err -= dc
			r += sr
		}
		if e2 < dr {
			err += dr
			c += sc
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Stats returns current occupancy statistics.
func (g *Grid) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	total := g.cells * g.cells
	var free, occ int
	for _, v := range g.data {
		switch v {
		case Free:
			free++
		case Occupied:
			occ++
		}
	}
	unk := total - free - occ
	explored := float32(0)
	if total > 0 {
		explored = 100 * float32(free+occ) / float32(total)
	}
	return Stats{
		TotalCells:  total,
		Free:        free,
		Occupied:    occ,
		Unknown:     unk,
		ExploredPct: explored,
		ScanCount:   g.scanCount,
		ResolutionM: g.resolution,
		SizeM:       g.sizeM,
		WallCount:   len(g.walls),
		CornerCount: len(g.corners),
	}
}

// RoomBounds returns the bounding box of occupied cells in world
// coordinates, or (RoomBounds{}, false) if nothing is occupied yet.
func (g *Grid) RoomBounds() (RoomBounds, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rMin, cMin := g.cells, g.cells
	rMax, cMax := -1, -1
	for r := 0; r < g.cells; r++ {
		for c := 0; c < g.cells; c++ {
			if g.data[g.index(r, c)] != Occupied {
				continue
			}
			if r < rMin {
				rMin = r
			}
			if r > rMax {
				rMax = r
			}
			if c < cMin {
				cMin = c
			}
			if c > cMax {
				cMax = c
			}
		}
	}
	if rMax < 0 {
		return RoomBounds{}, false
	}
	xMin, yMax := g.CellToWorld(rMin, cMin)
	xMax, yMin := g.CellToWorld(rMax, cMax)
	return RoomBounds{
		XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax,
		Width:  math32.Abs(xMax - xMin),
		Height: math32.Abs(yMax - yMin),
	}, true
}

// ReplaceWith swaps this grid's contents for other's, without copying
// either grid's mutex (a raw struct assignment would, and go vet rightly
// flags that). Used by map-load to restore a persisted grid in place.
func (g *Grid) ReplaceWith(other *Grid) {
	other.mu.RLock()
	resolution, sizeM, cells, origin := other.resolution, other.sizeM, other.cells, other.origin
	data := make([]byte, len(other.data))
	copy(data, other.data)
	scanCount := other.scanCount
	walls := append([]Wall(nil), other.walls...)
	corners := append([]Corner(nil), other.corners...)
	other.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.resolution, g.sizeM, g.cells, g.origin = resolution, sizeM, cells, origin
	g.data = data
	g.scanCount = scanCount
	g.walls = walls
	g.corners = corners
}

// FreeBounds returns the bounding box of FREE (explored, traversable) cells
// in world coordinates, used by the exploration planner's coverage sweep.
// Returns (RoomBounds{}, false) if no cell has been marked FREE yet.
func (g *Grid) FreeBounds() (RoomBounds, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rMin, cMin := g.cells, g.cells
	rMax, cMax := -1, -1
	for r := 0; r < g.cells; r++ {
		for c := 0; c < g.cells; c++ {
			if g.data[g.index(r, c)] != Free {
				continue
			}
			if r < rMin {
				rMin = r
			}
			if r > rMax {
				rMax = r
			}
			if c < cMin {
				cMin = c
			}
			if c > cMax {
				cMax = c
			}
		}
	}
	if rMax < 0 {
		return RoomBounds{}, false
	}
	xMin, yMax := g.CellToWorld(rMin, cMin)
	xMax, yMin := g.CellToWorld(rMax, cMax)
	return RoomBounds{
		XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax,
		Width:  math32.Abs(xMax - xMin),
		Height: math32.Abs(yMax - yMin),
	}, true
}

package occupancy

import (
	"sort"

	"github.com/hyva-rover/roverbrain/internal/geom"
)

// DetectWallsAndCorners scans occupied cells in row-major order and finds
// axis-aligned connected runs of length >= minWallRun in both horizontal
// and vertical directions (each cell visited once per pass), then reports
// corners as points that are the endpoint of at least one horizontal and
// one vertical run. Results replace the grid's cached Walls()/Corners().
func (g *Grid) DetectWallsAndCorners() {
	g.mu.Lock()
	defer g.mu.Unlock()

	var occupied []rc
	for r := 0; r < g.cells; r++ {
		for c := 0; c < g.cells; c++ {
			if g.data[g.index(r, c)] == Occupied {
				occupied = append(occupied, rc{r, c})
			}
		}
	}
	if len(occupied) == 0 {
		g.walls = nil
		g.corners = nil
		return
	}

	occSet := make(map[rc]bool, len(occupied))
	for _, cell := range occupied {
		occSet[cell] = true
	}

	hWalls := g.findRuns(occupied, occSet, true)
	vWalls := g.findRuns(occupied, occSet, false)

	walls := make([]Wall, 0, len(hWalls)+len(vWalls))
	walls = append(walls, hWalls...)
	walls = append(walls, vWalls...)
	g.walls = walls

	endpointH := make(map[rc]int)
	endpointV := make(map[rc]int)
	for _, w := range hWalls {
		endpointH[rc{w.R1, w.C1}]++
		endpointH[rc{w.R2, w.C2}]++
	}
	for _, w := range vWalls {
		endpointV[rc{w.R1, w.C1}]++
		endpointV[rc{w.R2, w.C2}]++
	}

	seen := make(map[rc]bool)
	var corners []Corner
	for pt, h := range endpointH {
		if seen[pt] {
			continue
		}
		seen[pt] = true
		if h > 0 && endpointV[pt] > 0 {
			wx, wy := g.CellToWorld(pt.r, pt.c)
			corners = append(corners, Corner{X: wx, Y: wy})
		}
	}
	g.corners = corners
}

// findRuns extends each unvisited occupied cell into a connected run along
// a single axis (rightward for horizontal, downward for vertical),
// reporting runs of at least minWallRun cells. Caller must hold the write
// lock. occupied must be in sorted (r, c) order.
func (g *Grid) findRuns(occupied []rc, occSet map[rc]bool, horizontal bool) []Wall {
	sorted := make([]rc, len(occupied))
	copy(sorted, occupied)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].r != sorted[j].r {
			return sorted[i].r < sorted[j].r
		}
		return sorted[i].c < sorted[j].c
	})

	visited := make(map[rc]bool, len(sorted))
	var walls []Wall
	for _, cell := range sorted {
		if visited[cell] {
			continue
		}
		run := []rc{cell}
		visited[cell] = true
		next := cell
		for {
			if horizontal {
				next = rc{next.r, next.c + 1}
			} else {
				next = rc{next.r + 1, next.c}
			}
			if !occSet[next] || visited[next] {
				break
			}
			run = append(run, next)
			visited[next] = true
		}
		if len(run) < minWallRun {
			continue
		}
		first, last := run[0], run[len(run)-1]
		x1, y1 := g.CellToWorld(first.r, first.c)
		x2, y2 := g.CellToWorld(last.r, last.c)
		walls = append(walls, Wall{
			R1: first.r, C1: first.c, R2: last.r, C2: last.c,
			X1: x1, Y1: y1, X2: x2, Y2: y2,
			Length:     geom.Hypot2D(x1, y1, x2, y2),
			Horizontal: horizontal,
		})
	}
	return walls
}

// Walls returns the walls found by the most recent DetectWallsAndCorners.
func (g *Grid) Walls() []Wall {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Wall, len(g.walls))
	copy(out, g.walls)
	return out
}

// Corners returns the corners found by the most recent
// DetectWallsAndCorners.
func (g *Grid) Corners() []Corner {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Corner, len(g.corners))
	copy(out, g.corners)
	return out
}

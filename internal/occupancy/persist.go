package occupancy

// Record is the self-describing persisted form of a Grid.
type Record struct {
	Version    int        `json:"version"`
	Created    float64    `json:"created"`
	Saved      float64    `json:"saved"`
	Resolution float32    `json:"resolution"`
	SizeM      float32    `json:"size_m"`
	Cells      int        `json:"cells"`
	ScanCount  int        `json:"scan_count"`
	Grid       [][]byte   `json:"grid"`
	Walls      []Wall     `json:"walls"`
	Corners    []Corner   `json:"corners"`
	RoomBounds *RoomBounds `json:"room_bounds,omitempty"`
	Stats      Stats      `json:"stats"`
}

// RecordVersion is the current persisted-record schema version.
const RecordVersion = 1

// ToRecord snapshots the grid, recomputing walls/corners (the reference's
// save() calls detect_walls_and_corners() first).
func (g *Grid) ToRecord(created, saved float64) Record {
	g.DetectWallsAndCorners()

	g.mu.RLock()
	rows := make([][]byte, g.cells)
	for r := 0; r < g.cells; r++ {
		row := make([]byte, g.cells)
		copy(row, g.data[r*g.cells:(r+1)*g.cells])
		rows[r] = row
	}
	g.mu.RUnlock()

	var bounds *RoomBounds
	if rb, ok := g.RoomBounds(); ok {
		bounds = &rb
	}

	return Record{
		Version:    RecordVersion,
		Created:    created,
		Saved:      saved,
		Resolution: g.resolution,
		SizeM:      g.sizeM,
		Cells:      g.cells,
		ScanCount:  g.ScanCount(),
		Grid:       rows,
		Walls:      g.Walls(),
		Corners:    g.Corners(),
		RoomBounds: bounds,
		Stats:      g.Stats(),
	}
}

// FromRecord reconstructs a Grid from a persisted Record. Walls/corners are
// carried over as cached values but may be recomputed by the caller.
func FromRecord(rec Record) *Grid {
	g := New(rec.SizeM, rec.Resolution)
	g.scanCount = rec.ScanCount
	for r := 0; r < len(rec.Grid) && r < g.cells; r++ {
		copy(g.data[r*g.cells:(r+1)*g.cells], rec.Grid[r])
	}
	g.walls = rec.Walls
	g.corners = rec.Corners
	return g
}

package navgrid

import "github.com/hyva-rover/roverbrain/internal/occupancy"

// UnknownPenalty is the traversal cost multiplier applied to UNKNOWN cells,
// making the planner prefer confirmed-FREE routes without refusing to ever
// cross unexplored territory.
const UnknownPenalty = 5.0

// GridAdapter adapts an *occupancy.Grid to the CostGrid interface: FREE
// cells cost 1, UNKNOWN cells cost UnknownPenalty, OCCUPIED cells are
// impassable.
type GridAdapter struct {
	Grid *occupancy.Grid
}

func (a GridAdapter) InBounds(row, col int) bool {
	return a.Grid.InBounds(row, col)
}

func (a GridAdapter) Cost(row, col int) float32 {
	switch a.Grid.At(row, col) {
	case occupancy.Free:
		return 1
	case occupancy.Unknown:
		return UnknownPenalty
	default:
		return 0
	}
}

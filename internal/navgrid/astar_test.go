package navgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// simpleGrid is a minimal CostGrid for algorithm-level tests, independent of
// the occupancy package.
type simpleGrid struct {
	size    int
	blocked map[Cell]bool
}

func (g simpleGrid) InBounds(row, col int) bool {
	return row >= 0 && row < g.size && col >= 0 && col < g.size
}

func (g simpleGrid) Cost(row, col int) float32 {
	if g.blocked[Cell{row, col}] {
		return 0
	}
	return 1
}

func TestSearch_StraightLine(t *testing.T) {
	g := simpleGrid{size: 10, blocked: map[Cell]bool{}}
	a := NewAStar(g)
	path := a.Search(Cell{0, 0}, Cell{0, 5})
	require.NotNil(t, path)
	assert.Equal(t, Cell{0, 0}, path[0])
	assert.Equal(t, Cell{0, 5}, path[len(path)-1])
	assert.Len(t, path, 6)
}

func TestSearch_RoutesAroundWall(t *testing.T) {
	blocked := map[Cell]bool{}
	for r := 0; r < 9; r++ {
		blocked[Cell{r, 5}] = true // wall with a gap at row 9
	}
	g := simpleGrid{size: 10, blocked: blocked}
	a := NewAStar(g)
	path := a.Search(Cell{0, 0}, Cell{0, 9})
	require.NotNil(t, path)
	for _, c := range path {
		assert.False(t, blocked[c])
	}
}

func TestSearch_NoPathReturnsNil(t *testing.T) {
	blocked := map[Cell]bool{}
	for r := 0; r < 10; r++ {
		blocked[Cell{r, 5}] = true // solid wall, no gap
	}
	g := simpleGrid{size: 10, blocked: blocked}
	a := NewAStar(g)
	path := a.Search(Cell{0, 0}, Cell{0, 9})
	assert.Nil(t, path)
}

func TestSearch_OutOfBoundsReturnsNil(t *testing.T) {
	g := simpleGrid{size: 10, blocked: map[Cell]bool{}}
	a := NewAStar(g)
	assert.Nil(t, a.Search(Cell{-1, 0}, Cell{0, 5}))
	assert.Nil(t, a.Search(Cell{0, 0}, Cell{20, 5}))
}

func TestSearch_SameStartAndGoal(t *testing.T) {
	g := simpleGrid{size: 10, blocked: map[Cell]bool{}}
	a := NewAStar(g)
	path := a.Search(Cell{3, 3}, Cell{3, 3})
	require.Len(t, path, 1)
	assert.Equal(t, Cell{3, 3}, path[0])
}

func TestSearch_ReusableAcrossCalls(t *testing.T) {
	g := simpleGrid{size: 10, blocked: map[Cell]bool{}}
	a := NewAStar(g)
	first := a.Search(Cell{0, 0}, Cell{0, 3})
	second := a.Search(Cell{1, 1}, Cell{1, 4})
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, Cell{1, 1}, second[0])
}

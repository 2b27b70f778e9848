// Package navgrid finds shortest paths across an occupancy grid with a
// reusable A* search over 4-connected cells, using a container/heap min-heap
// keyed by f-score.
package navgrid

import "container/heap"

// Cell identifies a grid cell by (row, col).
type Cell struct {
	Row, Col int
}

// CostGrid is the minimal surface A* needs from an occupancy grid: bounds
// checking and a per-cell traversal cost. A zero or negative cost marks a
// cell impassable.
type CostGrid interface {
	InBounds(row, col int) bool
	Cost(row, col int) float32
}

var neighborDeltas = [4]Cell{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// AStar is a reusable A* search instance over a CostGrid. Reuse one instance
// across calls to Search to avoid reallocating its buffers.
type AStar struct {
	grid CostGrid

	open     priorityQueue
	closed   map[Cell]bool
	gScore   map[Cell]float32
	cameFrom map[Cell]Cell
}

// NewAStar builds an AStar search bound to the given grid.
func NewAStar(grid CostGrid) *AStar {
	return &AStar{
		grid:     grid,
		open:     make(priorityQueue, 0, 64),
		closed:   make(map[Cell]bool),
		gScore:   make(map[Cell]float32),
		cameFrom: make(map[Cell]Cell),
	}
}

// Search finds a 4-connected path from start to goal, or returns nil if no
// path exists. The path includes both start and goal.
func (a *AStar) Search(start, goal Cell) []Cell {
	if !a.grid.InBounds(start.Row, start.Col) || !a.grid.InBounds(goal.Row, goal.Col) {
		return nil
	}

	a.clear()
	heap.Init(&a.open)

	a.gScore[start] = 0
	heap.Push(&a.open, &cellWrapper{cell: start, fScore: heuristic(start, goal)})

	for a.open.Len() > 0 {
		current := heap.Pop(&a.open).(*cellWrapper).cell

		if current == goal {
			return a.reconstruct(current)
		}
		if a.closed[current] {
			continue
		}
		a.closed[current] = true

		for _, d := range neighborDeltas {
			neighbor := Cell{current.Row + d.Row, current.Col + d.Col}
			if !a.grid.InBounds(neighbor.Row, neighbor.Col) || a.closed[neighbor] {
				continue
			}
			cost := a.grid.Cost(neighbor.Row, neighbor.Col)
			if cost <= 0 {
				continue
			}

			tentativeG := a.gScore[current] + cost
			currentG, exists := a.gScore[neighbor]
			if exists && tentativeG >= currentG {
				continue
			}

			a.cameFrom[neighbor] = current
			a.gScore[neighbor] = tentativeG
			f := tentativeG + heuristic(neighbor, goal)
			heap.Push(&a.open, &cellWrapper{cell: neighbor, fScore: f})
		}
	}

	return nil
}

func (a *AStar) clear() {
	a.open = a.open[:0]
	for k := range a.closed {
		delete(a.closed, k)
	}
	for k := range a.gScore {
		delete(a.gScore, k)
	}
	for k := range a.cameFrom {
		delete(a.cameFrom, k)
	}
}

func (a *AStar) reconstruct(current Cell) []Cell {
	var cells []Cell
	for {
		cells = append(cells, current)
		prev, ok := a.cameFrom[current]
		if !ok {
			break
		}
		current = prev
	}
	path := make([]Cell, len(cells))
	for i, c := range cells {
		path[len(cells)-1-i] = c
	}
	return path
}

// heuristic is the Manhattan distance, admissible for 4-connected movement
// with a minimum per-step cost of 1.
func heuristic(a, b Cell) float32 {
	return float32(abs(a.Row-b.Row) + abs(a.Col-b.Col))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

type cellWrapper struct {
	cell   Cell
	fScore float32
	index  int
}

type priorityQueue []*cellWrapper

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool { return pq[i].fScore < pq[j].fScore }

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	n := len(*pq)
	item := x.(*cellWrapper)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

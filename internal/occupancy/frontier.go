package occupancy

import "sort"

type rc struct{ r, c int }

var fourNeighbors = [4]rc{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// Frontiers returns frontier clusters (FREE cells bordering UNKNOWN space)
// sorted largest-first, discarding clusters smaller than
// minFrontierCluster cells.
func (g *Grid) Frontiers() []Frontier {
	g.mu.RLock()
	defer g.mu.RUnlock()

	isFrontier := make(map[rc]bool)
	for r := 1; r < g.cells-1; r++ {
		for c := 1; c < g.cells-1; c++ {
			if g.data[g.index(r, c)] != Free {
				continue
			}
			for _, d := range fourNeighbors {
				if g.at(r+d.r, c+d.c) == Unknown {
					isFrontier[rc{r, c}] = true
					break
				}
			}
		}
	}
	if len(isFrontier) == 0 {
		return nil
	}

	visited := make(map[rc]bool, len(isFrontier))
	var clusters [][]rc
	for cell := range isFrontier {
		if visited[cell] {
			continue
		}
		var cluster []rc
		stack := []rc{cell}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[cur] {
				continue
			}
			visited[cur] = true
			cluster = append(cluster, cur)
			for _, d := range fourNeighbors {
				n := rc{cur.r + d.r, cur.c + d.c}
				if !visited[n] && isFrontier[n] {
					stack = append(stack, n)
				}
			}
		}
		if len(cluster) >= minFrontierCluster {
			clusters = append(clusters, cluster)
		}
	}

	frontiers := make([]Frontier, 0, len(clusters))
	for _, cluster := range clusters {
		var sumR, sumC int
		for _, cell := range cluster {
			sumR += cell.r
			sumC += cell.c
		}
		avgR := float32(sumR) / float32(len(cluster))
		avgC := float32(sumC) / float32(len(cluster))
		wx, wy := g.CellToWorldF(avgR, avgC)
		frontiers = append(frontiers, Frontier{X: wx, Y: wy, Size: len(cluster)})
	}

	sort.Slice(frontiers, func(i, j int) bool { return frontiers[i].Size > frontiers[j].Size })
	return frontiers
}

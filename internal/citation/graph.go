// Package citation builds a bounded citation graph around library seed
// papers and scores candidate papers by graph proximity.
package citation

import (
	"sort"
	"time"
)

// Graph is a directed citation relation expanded around a set of seed
// papers. Neighbors holds, for every expanded node, the IDs of its direct
// citing and cited works in the stable order returned by the index. Every
// seed is present as a node, possibly with zero neighbors when its expansion
// failed or found none.
type Graph struct {
	Seeds     map[string]bool
	Neighbors map[string][]string

	// Build parameters, recorded so cached graphs built with different
	// settings are not silently reused.
	Depth        int // 1 = shallow, 2 = deep
	MaxNeighbors int // per-node cap on fetched neighbors, per direction
	MaxNodes     int // global cap on expanded nodes in deep mode (0 = none)

	// Partial is set when any neighbor fetch failed during expansion.
	// FailedSeeds lists the seeds that contributed no edges.
	Partial     bool
	FailedSeeds []string

	BuiltAt time.Time
}

// NewGraph creates an empty graph for the given seed set and build
// parameters. All seeds are registered as nodes immediately.
func NewGraph(seeds []string, depth, maxNeighbors, maxNodes int) *Graph {
	g := &Graph{
		Seeds:        make(map[string]bool, len(seeds)),
		Neighbors:    make(map[string][]string, len(seeds)),
		Depth:        depth,
		MaxNeighbors: maxNeighbors,
		MaxNodes:     maxNodes,
		BuiltAt:      time.Now().UTC(),
	}
	for _, id := range seeds {
		if id == "" {
			continue
		}
		g.Seeds[id] = true
		if _, ok := g.Neighbors[id]; !ok {
			g.Neighbors[id] = nil
		}
	}
	return g
}

// NodeCount returns the number of distinct nodes in the graph: expanded
// nodes plus every neighbor they recorded.
func (g *Graph) NodeCount() int {
	nodes := make(map[string]bool, len(g.Neighbors))
	for id, neighbors := range g.Neighbors {
		nodes[id] = true
		for _, n := range neighbors {
			nodes[n] = true
		}
	}
	return len(nodes)
}

// EdgeCount returns the number of recorded neighbor edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, neighbors := range g.Neighbors {
		count += len(neighbors)
	}
	return count
}

// Covers reports whether this graph was built for the given seed set at the
// given parameters. A cached graph built shallower, with a smaller neighbor
// cap, or missing seeds must not be reused for the request.
func (g *Graph) Covers(seeds []string, depth, maxNeighbors int) bool {
	if g.Depth < depth || g.MaxNeighbors < maxNeighbors {
		return false
	}
	for _, id := range seeds {
		if id != "" && !g.Seeds[id] {
			return false
		}
	}
	return true
}

// SeedIDs returns the seed identifiers in sorted order.
func (g *Graph) SeedIDs() []string {
	ids := make([]string, 0, len(g.Seeds))
	for id := range g.Seeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// adjacency returns an undirected view of the graph: every recorded edge in
// both directions. Citation direction does not matter for proximity.
func (g *Graph) adjacency() map[string][]string {
	adj := make(map[string][]string, len(g.Neighbors))
	for id, neighbors := range g.Neighbors {
		for _, n := range neighbors {
			adj[id] = append(adj[id], n)
			adj[n] = append(adj[n], id)
		}
	}
	return adj
}

// distances computes the minimum hop count from the seed set to every
// reachable node via multi-source BFS over the undirected adjacency. Nodes
// not in the returned map are unreachable within the expanded graph.
func (g *Graph) distances() map[string]int {
	adj := g.adjacency()
	dist := make(map[string]int, len(adj))

	frontier := g.SeedIDs()
	for _, id := range frontier {
		dist[id] = 0
	}

	for d := 1; len(frontier) > 0; d++ {
		var next []string
		for _, id := range frontier {
			for _, n := range adj[id] {
				if _, seen := dist[n]; !seen {
					dist[n] = d
					next = append(next, n)
				}
			}
		}
		frontier = next
	}

	return dist
}

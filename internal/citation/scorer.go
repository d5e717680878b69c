package citation

import (
	"context"
	"math"
	"sort"
)

const (
	// DefaultMaxNeighbors caps fetched neighbors per node per direction.
	DefaultMaxNeighbors = 20

	// DefaultMaxNodes caps total expanded nodes in deep mode.
	DefaultMaxNodes = 500

	// indirectScoreCap bounds scores for candidates that are connected to
	// the library but not direct neighbors of it.
	indirectScoreCap = 0.8
)

// NeighborFetcher looks up direct citation neighbors in the bibliographic
// index.
type NeighborFetcher interface {
	// GetCitations returns IDs of works citing the given work.
	GetCitations(ctx context.Context, workID string, limit int) ([]string, error)

	// GetCitedBy returns IDs of works cited by the given work.
	GetCitedBy(ctx context.Context, workID string, limit int) ([]string, error)
}

// ExpandOptions controls graph expansion.
type ExpandOptions struct {
	Depth        int // 1 = shallow (direct neighbors), 2 = deep (neighbors of neighbors)
	MaxNeighbors int // per-node cap per direction; DefaultMaxNeighbors if <= 0
	MaxNodes     int // global expanded-node cap for deep mode; DefaultMaxNodes if <= 0
}

// Expand builds a citation graph around the seed set by breadth-first
// expansion. A seed whose lookups fail contributes no edges but never aborts
// expansion of the remaining seeds; such graphs are flagged Partial.
// Expansion is bounded strictly by depth and the deep-mode node cap, so
// citation cycles cannot loop it.
func Expand(ctx context.Context, fetcher NeighborFetcher, seeds []string, opts ExpandOptions) (*Graph, error) {
	if opts.Depth <= 0 {
		opts.Depth = 1
	}
	if opts.MaxNeighbors <= 0 {
		opts.MaxNeighbors = DefaultMaxNeighbors
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}

	g := NewGraph(seeds, opts.Depth, opts.MaxNeighbors, opts.MaxNodes)

	expanded := make(map[string]bool)
	frontier := g.SeedIDs()
	totalExpanded := 0

	for depth := 1; depth <= opts.Depth && len(frontier) > 0; depth++ {
		var next []string

		for _, id := range frontier {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if expanded[id] {
				continue
			}
			// The global node cap only applies past depth 1: every seed is
			// always expanded.
			if depth > 1 && totalExpanded >= opts.MaxNodes {
				break
			}
			expanded[id] = true
			totalExpanded++

			neighbors, failed := fetchNeighbors(ctx, fetcher, id, opts.MaxNeighbors)
			if failed {
				g.Partial = true
				if g.Seeds[id] && len(neighbors) == 0 {
					g.FailedSeeds = append(g.FailedSeeds, id)
				}
			}

			g.Neighbors[id] = neighbors
			for _, n := range neighbors {
				if !expanded[n] {
					next = append(next, n)
				}
			}
		}

		frontier = next
	}

	sort.Strings(g.FailedSeeds)
	return g, nil
}

// fetchNeighbors fetches the deduplicated citing and cited neighbors of a
// node, citing works first, in the stable order returned by the index.
// failed reports whether any lookup errored.
func fetchNeighbors(ctx context.Context, fetcher NeighborFetcher, id string, limit int) (neighbors []string, failed bool) {
	seen := map[string]bool{id: true} // A work citing itself is bad data, skip it.

	citing, err := fetcher.GetCitations(ctx, id, limit)
	if err != nil {
		failed = true
	}
	cited, err := fetcher.GetCitedBy(ctx, id, limit)
	if err != nil {
		failed = true
	}

	for _, n := range append(citing, cited...) {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		neighbors = append(neighbors, n)
	}

	return neighbors, failed
}

// ScoreDetail explains a citation proximity score.
type ScoreDetail struct {
	Score       float64 `json:"score"`
	Distance    int     `json:"distance"`    // 0 = seed, 1 = direct neighbor, -1 = unreachable
	Connections int     `json:"connections"` // distinct edges linking the candidate toward the seed set
	InLibrary   bool    `json:"in_library"`
}

// Scorer scores candidates against an expanded graph. Scoring only consults
// the materialized graph: it performs no index lookups and no unbounded
// search.
type Scorer struct {
	graph *Graph
	dist  map[string]int
	adj   map[string][]string
}

// NewScorer creates a scorer over the given expanded graph.
func NewScorer(g *Graph) *Scorer {
	return &Scorer{graph: g}
}

// Graph returns the underlying graph.
func (s *Scorer) Graph() *Graph {
	return s.graph
}

// Score computes the citation proximity of a candidate to the seed set:
//
//	1.0                      candidate is a seed or a direct neighbor of one
//	min(0.8, 0.2*log2(1+k)) * 0.5^(d-2)
//	                         at minimum hop distance d >= 2, where k counts
//	                         the candidate's neighbors on shortest paths
//	0.0                      unreachable within the expanded graph
//
// The decay is monotone non-increasing in distance and grows with the number
// of distinct connections, staying below the direct-neighbor score.
func (s *Scorer) Score(candidateID string) ScoreDetail {
	if s.graph == nil || candidateID == "" {
		return ScoreDetail{Distance: -1}
	}

	if s.graph.Seeds[candidateID] {
		return ScoreDetail{Score: 1.0, Distance: 0, Connections: 1, InLibrary: true}
	}

	s.ensureDistances()

	d, reachable := s.dist[candidateID]
	if !reachable {
		return ScoreDetail{Distance: -1}
	}

	// Count distinct neighbors one hop closer to the seed set: the shortest
	// paths corroborating the connection. The undirected adjacency can list
	// a neighbor twice when both directions were recorded.
	counted := make(map[string]bool)
	connections := 0
	for _, n := range s.adj[candidateID] {
		if counted[n] {
			continue
		}
		counted[n] = true
		if nd, ok := s.dist[n]; ok && nd == d-1 {
			connections++
		}
	}

	if d == 1 {
		return ScoreDetail{Score: 1.0, Distance: 1, Connections: connections}
	}

	score := math.Min(indirectScoreCap, 0.2*math.Log2(1+float64(connections)))
	score *= math.Pow(0.5, float64(d-2))

	return ScoreDetail{Score: score, Distance: d, Connections: connections}
}

func (s *Scorer) ensureDistances() {
	if s.dist == nil {
		s.dist = s.graph.distances()
		s.adj = s.graph.adjacency()
	}
}

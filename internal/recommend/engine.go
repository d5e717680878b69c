// Package recommend orchestrates candidate discovery, citation proximity and
// semantic similarity scoring, and produces ranked, explainable paper
// recommendations.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/matsen/scry/internal/cache"
	"github.com/matsen/scry/internal/citation"
	"github.com/matsen/scry/internal/journal"
	"github.com/matsen/scry/internal/paper"
	"github.com/matsen/scry/internal/similarity"
)

// Index is the bibliographic index surface the engine consumes.
type Index interface {
	SearchWorks(ctx context.Context, from, to time.Time, sourceIDs []string, limit int) ([]paper.Paper, error)
	GetCitations(ctx context.Context, workID string, limit int) ([]string, error)
	GetCitedBy(ctx context.Context, workID string, limit int) ([]string, error)
	FindWorkByDOI(ctx context.Context, doi string) (*paper.Paper, error)
	FindWorkByTitle(ctx context.Context, title string) (*paper.Paper, error)
}

// Library fetches the user's personal paper library.
type Library interface {
	FetchPapers(ctx context.Context, collectionID string) ([]paper.Paper, error)
}

// Explanation says why a paper was recommended.
type Explanation struct {
	MostSimilarID    string  `json:"most_similar_id,omitempty"`
	MostSimilarTitle string  `json:"most_similar_title,omitempty"`
	MostSimilarScore float64 `json:"most_similar_score,omitempty"`
	GraphDistance    int     `json:"graph_distance"` // -1 = unreachable, 1 = direct neighbor
	Connections      int     `json:"connections"`
}

// ScoreRecord is one scored candidate. Records live only for the duration of
// a run and are never persisted.
type ScoreRecord struct {
	Paper           paper.Paper `json:"paper"`
	CitationScore   float64     `json:"citation_score"`
	SimilarityScore float64     `json:"similarity_score"`
	CombinedScore   float64     `json:"combined_score"`
	Explanation     Explanation `json:"explanation"`
}

// Outcome is the result of one recommendation run. An empty Records with a
// positive CandidateCount means every candidate fell below the thresholds,
// which is a different situation than the index returning nothing.
type Outcome struct {
	Records []ScoreRecord `json:"records"`

	LibrarySize    int `json:"library_size"`
	SeedCount      int `json:"seed_count"`
	CandidateCount int `json:"candidate_count"`
	FilteredCount  int `json:"filtered_count"`

	GraphPartial       bool     `json:"graph_partial,omitempty"`
	FailedSeeds        []string `json:"failed_seeds,omitempty"`
	UnresolvedJournals []string `json:"unresolved_journals,omitempty"`

	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Params wires an Engine. Similarity, Embeddings and Resolver are required;
// MaxNeighbors and MaxNodes fall back to the citation package defaults.
type Params struct {
	Library    Library
	Index      Index
	Similarity *similarity.Engine
	Embeddings *cache.EmbeddingStore
	Resolver   *journal.Resolver
	GraphPath  string

	MaxNeighbors int
	MaxNodes     int
	Logger       *zerolog.Logger
}

// Engine runs recommendation passes against injected collaborators. All
// persisted state lives in the explicit store objects; the engine itself
// holds no cross-run mutable state.
type Engine struct {
	library      Library
	index        Index
	sim          *similarity.Engine
	store        *cache.EmbeddingStore
	resolver     *journal.Resolver
	graphPath    string
	maxNeighbors int
	maxNodes     int
	log          zerolog.Logger
}

// NewEngine creates a recommendation engine.
func NewEngine(p Params) *Engine {
	if p.MaxNeighbors <= 0 {
		p.MaxNeighbors = citation.DefaultMaxNeighbors
	}
	if p.MaxNodes <= 0 {
		p.MaxNodes = citation.DefaultMaxNodes
	}
	log := zerolog.Nop()
	if p.Logger != nil {
		log = *p.Logger
	}
	return &Engine{
		library:      p.Library,
		index:        p.Index,
		sim:          p.Similarity,
		store:        p.Embeddings,
		resolver:     p.Resolver,
		graphPath:    p.GraphPath,
		maxNeighbors: p.MaxNeighbors,
		maxNodes:     p.MaxNodes,
		log:          log,
	}
}

// Recommend produces ranked recommendations for papers published in the
// trailing window [now-days, now]. Results are fully deterministic for a
// fixed cache state and fixed index responses.
func (e *Engine) Recommend(ctx context.Context, opts Options) (*Outcome, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	libPapers, err := e.library.FetchPapers(ctx, opts.CollectionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLibraryUnavailable, err)
	}
	if len(libPapers) == 0 {
		return nil, fmt.Errorf("%w: library is empty", ErrLibraryUnavailable)
	}
	e.log.Info().Int("papers", len(libPapers)).Msg("fetched library")

	seeds := e.matchSeeds(ctx, libPapers)
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: no library paper could be matched in the index", ErrLibraryUnavailable)
	}
	if len(seeds) < len(libPapers) {
		e.log.Warn().
			Int("matched", len(seeds)).
			Int("library", len(libPapers)).
			Msg("proceeding with partial library")
	}
	seedIDs := make([]string, len(seeds))
	seedSet := make(map[string]bool, len(seeds))
	for i, p := range seeds {
		seedIDs[i] = p.ID
		seedSet[p.ID] = true
	}

	graph, err := e.ensureGraph(ctx, seedIDs, opts.depth(), opts.Force)
	if err != nil {
		return nil, err
	}
	scorer := citation.NewScorer(graph)

	if opts.Force {
		if err := e.store.InvalidateAll(); err != nil {
			return nil, fmt.Errorf("clearing embedding cache: %w", err)
		}
	}
	libVectors, libTitles, err := e.libraryEmbeddings(ctx, seeds)
	if err != nil {
		return nil, fmt.Errorf("embedding library: %w", err)
	}

	var sourceIDs, unresolved []string
	if names := journalNames(opts, libPapers); len(names) > 0 {
		sourceIDs, unresolved, err = e.resolver.ResolveIDs(ctx, names, opts.Force)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
		}
		if len(sourceIDs) == 0 {
			e.log.Warn().Msg("no journal resolved, searching the full index")
		}
	}

	to := opts.now()
	from := to.AddDate(0, 0, -opts.Days)
	found, err := e.index.SearchWorks(ctx, from, to, sourceIDs, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	// Library exclusion uses the current run's seeds, not the cached graph's
	// seed set, which can be a stale superset after the library shrank.
	candidates := make([]paper.Paper, 0, len(found))
	for _, c := range paper.Dedupe(found) {
		if seedSet[c.ID] || opts.Exclude[c.ID] {
			continue
		}
		candidates = append(candidates, c)
	}
	e.log.Info().Int("candidates", len(candidates)).Msg("fetched candidates")

	candVectors, err := e.candidateEmbeddings(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("embedding candidates: %w", err)
	}

	var records []ScoreRecord
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		detail := scorer.Score(c.ID)
		expl := Explanation{
			GraphDistance: detail.Distance,
			Connections:   detail.Connections,
		}

		// Candidates lacking any usable text keep a zero similarity score;
		// the citation score still applies.
		simScore := 0.0
		if vec, ok := candVectors[c.ID]; ok {
			if id, score, ok := similarity.MostSimilar(vec, libVectors); ok {
				if score < 0 {
					score = 0
				}
				simScore = score
				expl.MostSimilarID = id
				expl.MostSimilarTitle = libTitles[id]
				expl.MostSimilarScore = score
			}
		}

		// A candidate passes if it clears at least one threshold.
		if detail.Score < opts.MinCitationScore && simScore < opts.MinSimilarityScore {
			continue
		}

		records = append(records, ScoreRecord{
			Paper:           c,
			CitationScore:   detail.Score,
			SimilarityScore: simScore,
			CombinedScore:   opts.CitationWeight*detail.Score + opts.SimilarityWeight*simScore,
			Explanation:     expl,
		})
	}

	filtered := len(records)
	sort.Slice(records, func(i, j int) bool {
		if records[i].CombinedScore != records[j].CombinedScore {
			return records[i].CombinedScore > records[j].CombinedScore
		}
		if records[i].SimilarityScore != records[j].SimilarityScore {
			return records[i].SimilarityScore > records[j].SimilarityScore
		}
		return records[i].Paper.ID < records[j].Paper.ID
	})
	if len(records) > opts.Limit {
		records = records[:opts.Limit]
	}

	return &Outcome{
		Records:            records,
		LibrarySize:        len(libPapers),
		SeedCount:          len(seeds),
		CandidateCount:     len(candidates),
		FilteredCount:      filtered,
		GraphPartial:       graph.Partial,
		FailedSeeds:        graph.FailedSeeds,
		UnresolvedJournals: unresolved,
		From:               from,
		To:                 to,
	}, nil
}

// InitOptions configures cache initialization.
type InitOptions struct {
	CollectionID string
	Deep         bool
	Force        bool
}

// InitReport summarizes what Init built.
type InitReport struct {
	LibrarySize   int      `json:"library_size"`
	SeedCount     int      `json:"seed_count"`
	EmbeddedCount int      `json:"embedded_count"`
	GraphNodes    int      `json:"graph_nodes"`
	GraphEdges    int      `json:"graph_edges"`
	GraphPartial  bool     `json:"graph_partial,omitempty"`
	FailedSeeds   []string `json:"failed_seeds,omitempty"`
}

// Init builds the library caches upfront: it fetches the library, computes
// missing embeddings, and expands the citation graph. Force drops both
// persisted caches and rebuilds from scratch.
func (e *Engine) Init(ctx context.Context, opts InitOptions) (*InitReport, error) {
	libPapers, err := e.library.FetchPapers(ctx, opts.CollectionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLibraryUnavailable, err)
	}
	if len(libPapers) == 0 {
		return nil, fmt.Errorf("%w: library is empty", ErrLibraryUnavailable)
	}

	seeds := e.matchSeeds(ctx, libPapers)
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: no library paper could be matched in the index", ErrLibraryUnavailable)
	}

	if opts.Force {
		if err := e.store.InvalidateAll(); err != nil {
			return nil, fmt.Errorf("clearing embedding cache: %w", err)
		}
	}
	vectors, _, err := e.libraryEmbeddings(ctx, seeds)
	if err != nil {
		return nil, fmt.Errorf("embedding library: %w", err)
	}

	seedIDs := make([]string, len(seeds))
	for i, p := range seeds {
		seedIDs[i] = p.ID
	}
	depth := 1
	if opts.Deep {
		depth = 2
	}
	graph, err := e.ensureGraph(ctx, seedIDs, depth, opts.Force)
	if err != nil {
		return nil, err
	}

	return &InitReport{
		LibrarySize:   len(libPapers),
		SeedCount:     len(seeds),
		EmbeddedCount: len(vectors),
		GraphNodes:    graph.NodeCount(),
		GraphEdges:    graph.EdgeCount(),
		GraphPartial:  graph.Partial,
		FailedSeeds:   graph.FailedSeeds,
	}, nil
}

// Stats reports on the persisted caches without touching the network.
type Stats struct {
	Embeddings int `json:"embeddings"`

	GraphBuilt   bool      `json:"graph_built"`
	GraphSeeds   int       `json:"graph_seeds,omitempty"`
	GraphNodes   int       `json:"graph_nodes,omitempty"`
	GraphEdges   int       `json:"graph_edges,omitempty"`
	GraphDepth   int       `json:"graph_depth,omitempty"`
	GraphPartial bool      `json:"graph_partial,omitempty"`
	FailedSeeds  []string  `json:"failed_seeds,omitempty"`
	GraphBuiltAt time.Time `json:"graph_built_at,omitempty"`

	JournalEntries int `json:"journal_entries"`
}

// CacheStats inspects the persisted caches.
func (e *Engine) CacheStats() Stats {
	stats := Stats{
		Embeddings:     e.store.Len(),
		JournalEntries: e.resolver.Len(),
	}
	graph, err := cache.LoadGraph(e.graphPath)
	if err != nil {
		return stats
	}
	stats.GraphBuilt = true
	stats.GraphSeeds = len(graph.Seeds)
	stats.GraphNodes = graph.NodeCount()
	stats.GraphEdges = graph.EdgeCount()
	stats.GraphDepth = graph.Depth
	stats.GraphPartial = graph.Partial
	stats.FailedSeeds = graph.FailedSeeds
	stats.GraphBuiltAt = graph.BuiltAt
	return stats
}

// matchSeeds maps library papers to index work IDs, by DOI first and title
// search second. Papers that cannot be matched are skipped with a warning so
// the rest of the library still works.
func (e *Engine) matchSeeds(ctx context.Context, libPapers []paper.Paper) []paper.Paper {
	seeds := make([]paper.Paper, 0, len(libPapers))
	seen := make(map[string]bool, len(libPapers))
	for _, p := range libPapers {
		if p.ID == "" {
			if match := e.lookupWork(ctx, p); match != nil {
				p.ID = match.ID
				if p.Abstract == "" {
					p.Abstract = match.Abstract
				}
				if p.PublicationDate == "" {
					p.PublicationDate = match.PublicationDate
				}
			}
		}
		if p.ID == "" {
			e.log.Warn().Str("title", p.Title).Msg("library paper not found in index")
			continue
		}
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		seeds = append(seeds, p)
	}
	return seeds
}

func (e *Engine) lookupWork(ctx context.Context, p paper.Paper) *paper.Paper {
	if p.DOI != "" {
		if w, err := e.index.FindWorkByDOI(ctx, p.DOI); err == nil && w != nil {
			return w
		}
	}
	if p.Title != "" {
		if w, err := e.index.FindWorkByTitle(ctx, p.Title); err == nil && w != nil {
			return w
		}
	}
	return nil
}

// ensureGraph loads the cached citation graph when it covers the request,
// otherwise expands a fresh one and caches it. A failed cache write is not
// fatal; the freshly expanded graph still serves the run.
func (e *Engine) ensureGraph(ctx context.Context, seedIDs []string, depth int, force bool) (*citation.Graph, error) {
	if !force {
		if g, err := cache.LoadGraph(e.graphPath); err == nil && g.Covers(seedIDs, depth, e.maxNeighbors) {
			e.log.Debug().Int("nodes", g.NodeCount()).Msg("reusing cached citation graph")
			return g, nil
		}
	}

	e.log.Info().Int("seeds", len(seedIDs)).Int("depth", depth).Msg("expanding citation graph")
	g, err := citation.Expand(ctx, e.index, seedIDs, citation.ExpandOptions{
		Depth:        depth,
		MaxNeighbors: e.maxNeighbors,
		MaxNodes:     e.maxNodes,
	})
	if err != nil {
		return nil, err
	}
	if err := cache.SaveGraph(e.graphPath, g); err != nil {
		e.log.Warn().Err(err).Msg("citation graph not cached")
	}
	return g, nil
}

// libraryEmbeddings ensures embeddings exist for every seed with usable
// text. Text-less papers are skipped, not failed.
func (e *Engine) libraryEmbeddings(ctx context.Context, seeds []paper.Paper) (map[string][]float32, map[string]string, error) {
	texts := make(map[string]string, len(seeds))
	titles := make(map[string]string, len(seeds))
	for _, p := range seeds {
		titles[p.ID] = p.Title
		if p.HasText() {
			texts[p.ID] = p.EmbeddingText()
		}
	}
	vectors, err := e.store.BulkGetOrCompute(ctx, texts, e.sim.EmbedTexts)
	if err != nil {
		return nil, nil, err
	}
	return vectors, titles, nil
}

func (e *Engine) candidateEmbeddings(ctx context.Context, candidates []paper.Paper) (map[string][]float32, error) {
	texts := make(map[string]string, len(candidates))
	for _, c := range candidates {
		if c.HasText() {
			texts[c.ID] = c.EmbeddingText()
		}
	}
	return e.store.BulkGetOrCompute(ctx, texts, e.sim.EmbedTexts)
}

func journalNames(opts Options, library []paper.Paper) []string {
	switch opts.JournalMode {
	case JournalFilterDisabled:
		return nil
	case JournalExtendedList:
		return journal.ExtendedJournals
	case JournalCustomList:
		return opts.Journals
	case JournalLibraryList:
		return TopLibraryJournals(library, 30)
	default:
		return journal.DefaultJournals
	}
}

// TopLibraryJournals returns the most frequent journal names in the library,
// ties broken alphabetically.
func TopLibraryJournals(papers []paper.Paper, n int) []string {
	counts := make(map[string]int)
	for _, p := range papers {
		if name := strings.TrimSpace(p.Journal); name != "" {
			counts[name]++
		}
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	if n > 0 && len(names) > n {
		names = names[:n]
	}
	return names
}

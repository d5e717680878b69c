package recommend

import (
	"fmt"
	"time"
)

// JournalFilterMode selects where the candidate journal filter comes from.
type JournalFilterMode int

const (
	// JournalDefaultList filters candidates by the built-in curated list.
	JournalDefaultList JournalFilterMode = iota

	// JournalExtendedList filters by the broader curated list, which adds
	// field-specific venues on top of the default list.
	JournalExtendedList

	// JournalCustomList filters by the names in Options.Journals.
	JournalCustomList

	// JournalLibraryList filters by the most frequent journals in the
	// user's own library.
	JournalLibraryList

	// JournalFilterDisabled searches the full index.
	JournalFilterDisabled
)

// Options configures one recommendation run.
type Options struct {
	// CollectionID restricts the library fetch to one collection. Empty
	// means the whole library.
	CollectionID string

	Days  int // trailing publication window, in days
	Limit int // maximum recommendations returned

	CitationWeight   float64
	SimilarityWeight float64

	// Minimum score thresholds. A candidate is kept when it clears at
	// least one of them.
	MinCitationScore   float64
	MinSimilarityScore float64

	JournalMode JournalFilterMode
	Journals    []string // names for JournalCustomList

	Deep  bool // expand the citation graph to depth 2
	Force bool // rebuild caches even when they cover the request

	// Exclude drops candidates by identifier, e.g. already-reviewed papers.
	Exclude map[string]bool

	// Now anchors the search window; zero means the wall clock.
	Now time.Time
}

// DefaultOptions returns the options used when the caller supplies nothing.
func DefaultOptions() Options {
	return Options{
		Days:             7,
		Limit:            20,
		CitationWeight:   0.3,
		SimilarityWeight: 0.7,
		JournalMode:      JournalDefaultList,
	}
}

func (o Options) validate() error {
	if o.Days <= 0 {
		return fmt.Errorf("%w: days must be positive, got %d", ErrConfig, o.Days)
	}
	if o.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrConfig, o.Limit)
	}
	if o.CitationWeight < 0 || o.SimilarityWeight < 0 {
		return fmt.Errorf("%w: weights must be non-negative, got citation=%g similarity=%g",
			ErrConfig, o.CitationWeight, o.SimilarityWeight)
	}
	if o.MinCitationScore < 0 || o.MinCitationScore > 1 {
		return fmt.Errorf("%w: min citation score must be in [0,1], got %g", ErrConfig, o.MinCitationScore)
	}
	if o.MinSimilarityScore < 0 || o.MinSimilarityScore > 1 {
		return fmt.Errorf("%w: min similarity score must be in [0,1], got %g", ErrConfig, o.MinSimilarityScore)
	}
	if o.JournalMode == JournalCustomList && len(o.Journals) == 0 {
		return fmt.Errorf("%w: custom journal filter requires at least one journal name", ErrConfig)
	}
	return nil
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now().UTC()
	}
	return o.Now
}

func (o Options) depth() int {
	if o.Deep {
		return 2
	}
	return 1
}

// Package paper defines the core domain type for academic papers.
package paper

import "strings"

// Paper represents an academic paper from the bibliographic index or the
// user's library. Identity is the OpenAlex work ID; two papers with the same
// ID are the same paper regardless of other field differences. Papers are
// never mutated after being fetched.
type Paper struct {
	// Identity
	ID  string `json:"id"`            // OpenAlex work ID (e.g. "W2741809807")
	DOI string `json:"doi,omitempty"` // Digital Object Identifier, no URL prefix

	// Metadata
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Abstract string   `json:"abstract,omitempty"`
	Journal  string   `json:"journal,omitempty"` // Display name of the source/venue

	// Publication
	PublicationDate string `json:"publication_date,omitempty"` // YYYY-MM-DD
	PublicationYear int    `json:"publication_year,omitempty"`

	// Access
	URL          string `json:"url,omitempty"`
	PDFURL       string `json:"pdf_url,omitempty"` // Open-access PDF, if any
	OpenAccess   bool   `json:"open_access,omitempty"`
	CitedByCount int    `json:"cited_by_count,omitempty"`
}

// EmbeddingText returns the text used for semantic embedding: title and
// abstract concatenated, or the title alone when the abstract is missing.
// Returns "" when the paper has neither.
func (p Paper) EmbeddingText() string {
	title := strings.TrimSpace(p.Title)
	abstract := strings.TrimSpace(p.Abstract)

	switch {
	case title != "" && abstract != "":
		return title + ". " + abstract
	case title != "":
		return title
	default:
		return abstract
	}
}

// HasText reports whether the paper has any text usable for embedding.
func (p Paper) HasText() bool {
	return strings.TrimSpace(p.Title) != "" || strings.TrimSpace(p.Abstract) != ""
}

// Dedupe returns papers with duplicate IDs removed, keeping the first
// occurrence and preserving input order. Papers with empty IDs are dropped.
func Dedupe(papers []Paper) []Paper {
	seen := make(map[string]bool, len(papers))
	out := make([]Paper, 0, len(papers))
	for _, p := range papers {
		if p.ID == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

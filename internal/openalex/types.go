// Package openalex provides a rate-limited client for the OpenAlex API.
package openalex

// Work represents a raw work object from the OpenAlex API.
type Work struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	DOI             string          `json:"doi,omitempty"`
	PublicationDate string          `json:"publication_date,omitempty"`
	PublicationYear int             `json:"publication_year,omitempty"`
	Authorships     []Authorship    `json:"authorships,omitempty"`
	PrimaryLocation *Location       `json:"primary_location,omitempty"`
	OpenAccess      *OpenAccessInfo `json:"open_access,omitempty"`
	CitedByCount    int             `json:"cited_by_count,omitempty"`

	// AbstractInvertedIndex maps each word to its positions in the abstract.
	// OpenAlex distributes abstracts in this form for legal reasons.
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index,omitempty"`
}

// Authorship represents an author entry on a work.
type Authorship struct {
	Author struct {
		ID          string `json:"id,omitempty"`
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

// Location represents a work's hosting location (journal, repository).
type Location struct {
	Source *Source `json:"source,omitempty"`
}

// Source represents an OpenAlex source (journal or venue).
type Source struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	ISSNL       string   `json:"issn_l,omitempty"`
	ISSN        []string `json:"issn,omitempty"`
	Type        string   `json:"type,omitempty"`
}

// OpenAccessInfo describes a work's open-access status.
type OpenAccessInfo struct {
	IsOA  bool   `json:"is_oa"`
	OAURL string `json:"oa_url,omitempty"`
}

// listResponse is the envelope for OpenAlex list endpoints.
type listResponse struct {
	Meta struct {
		Count      int    `json:"count"`
		NextCursor string `json:"next_cursor,omitempty"`
	} `json:"meta"`
	Results []Work `json:"results"`
}

// sourceListResponse is the envelope for the sources endpoint.
type sourceListResponse struct {
	Results []Source `json:"results"`
}

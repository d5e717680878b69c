package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/matsen/scry/internal/paper"
)

const (
	// BaseURL is the OpenAlex API base URL.
	BaseURL = "https://api.openalex.org"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// RateLimit is 10 requests per second per OpenAlex documentation.
	// Supplying a mailto address joins the polite pool with higher limits.
	RateLimit = 10.0

	// MaxPerPage is the maximum page size OpenAlex allows.
	MaxPerPage = 200

	// DefaultNeighborLimit is the default cap on citation/reference lookups.
	DefaultNeighborLimit = 50
)

// Client is a rate-limited HTTP client for the OpenAlex API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMailto sets the contact address for the OpenAlex polite pool.
func WithMailto(email string) ClientOption {
	return func(c *Client) {
		c.mailto = email
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// NewClient creates a new OpenAlex API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
	}

	if email := os.Getenv("OPENALEX_MAILTO"); email != "" {
		c.mailto = email
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs a rate-limited GET against an OpenAlex endpoint and decodes
// the JSON response into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + path
	if params == nil {
		params = url.Values{}
	}
	if c.mailto != "" {
		params.Set("mailto", c.mailto)
	}
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.mailto != "" {
		req.Header.Set("User-Agent", "mailto:"+c.mailto)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 400:
		return &APIError{StatusCode: resp.StatusCode, Message: "HTTP " + resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding: %v", ErrInvalidResponse, err)
	}

	return nil
}

// SearchWorks fetches all works published in [from, to], optionally restricted
// to the given source IDs, using cursor pagination. Results are ordered by
// publication date descending as returned by the index. A non-positive limit
// fetches everything available.
func (c *Client) SearchWorks(ctx context.Context, from, to time.Time, sourceIDs []string, limit int) ([]paper.Paper, error) {
	filters := []string{
		"from_publication_date:" + from.Format("2006-01-02"),
		"to_publication_date:" + to.Format("2006-01-02"),
	}
	if len(sourceIDs) > 0 {
		filters = append(filters, "primary_location.source.id:"+strings.Join(sourceIDs, "|"))
	}

	params := url.Values{}
	params.Set("filter", strings.Join(filters, ","))
	params.Set("sort", "publication_date:desc")
	params.Set("per-page", fmt.Sprint(MaxPerPage))
	params.Set("cursor", "*")

	var papers []paper.Paper
	for {
		var page listResponse
		if err := c.get(ctx, "/works", params, &page); err != nil {
			// A later page failing still yields the pages fetched so far.
			if len(papers) > 0 {
				return papers, nil
			}
			return nil, err
		}

		for _, w := range page.Results {
			papers = append(papers, parseWork(w))
		}

		if page.Meta.NextCursor == "" || len(page.Results) == 0 {
			break
		}
		if limit > 0 && len(papers) >= limit {
			break
		}
		params.Set("cursor", page.Meta.NextCursor)
	}

	if limit > 0 && len(papers) > limit {
		papers = papers[:limit]
	}

	return papers, nil
}

// GetCitations returns the IDs of works that cite the given work, in the
// stable order returned by the index, truncated to limit.
func (c *Client) GetCitations(ctx context.Context, workID string, limit int) ([]string, error) {
	return c.relatedWorkIDs(ctx, "cites:"+workID, limit)
}

// GetCitedBy returns the IDs of works cited by the given work (its
// references), in the stable order returned by the index, truncated to limit.
func (c *Client) GetCitedBy(ctx context.Context, workID string, limit int) ([]string, error) {
	return c.relatedWorkIDs(ctx, "cited_by:"+workID, limit)
}

func (c *Client) relatedWorkIDs(ctx context.Context, filter string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultNeighborLimit
	}

	params := url.Values{}
	params.Set("filter", filter)
	params.Set("per-page", fmt.Sprint(min(limit, MaxPerPage)))
	params.Set("select", "id")

	var page listResponse
	if err := c.get(ctx, "/works", params, &page); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(page.Results))
	for _, w := range page.Results {
		if id := StripIDPrefix(w.ID); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	return ids, nil
}

// FindWorkByDOI looks up a work by its DOI. Returns ErrNotFound if absent.
func (c *Client) FindWorkByDOI(ctx context.Context, doi string) (*paper.Paper, error) {
	doi = strings.TrimSpace(strings.TrimPrefix(doi, "https://doi.org/"))
	if doi == "" {
		return nil, ErrNotFound
	}

	var w Work
	if err := c.get(ctx, "/works/doi:"+url.PathEscape(doi), nil, &w); err != nil {
		return nil, err
	}

	p := parseWork(w)
	return &p, nil
}

// FindWorkByTitle looks up a work by title search, returning the best match.
// Returns ErrNotFound if nothing matches.
func (c *Client) FindWorkByTitle(ctx context.Context, title string) (*paper.Paper, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrNotFound
	}

	params := url.Values{}
	params.Set("filter", "title.search:"+title)
	params.Set("per-page", "1")

	var page listResponse
	if err := c.get(ctx, "/works", params, &page); err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, ErrNotFound
	}

	p := parseWork(page.Results[0])
	return &p, nil
}

// FindSource looks up a journal/venue by display name and returns its source
// ID, or "" if no source matches.
func (c *Client) FindSource(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", nil
	}

	params := url.Values{}
	params.Set("filter", "display_name.search:"+name)
	params.Set("per-page", "1")

	var page sourceListResponse
	if err := c.get(ctx, "/sources", params, &page); err != nil {
		return "", err
	}
	if len(page.Results) == 0 {
		return "", nil
	}

	return StripIDPrefix(page.Results[0].ID), nil
}

// StripIDPrefix removes the "https://openalex.org/" URL prefix from an
// OpenAlex identifier, returning the bare ID.
func StripIDPrefix(id string) string {
	return strings.TrimPrefix(id, "https://openalex.org/")
}

// parseWork converts a raw OpenAlex work into the domain Paper type.
func parseWork(w Work) paper.Paper {
	p := paper.Paper{
		ID:              StripIDPrefix(w.ID),
		Title:           w.Title,
		DOI:             strings.TrimPrefix(w.DOI, "https://doi.org/"),
		PublicationDate: w.PublicationDate,
		PublicationYear: w.PublicationYear,
		Abstract:        ReconstructAbstract(w.AbstractInvertedIndex),
		URL:             w.ID,
		CitedByCount:    w.CitedByCount,
	}

	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			p.Authors = append(p.Authors, a.Author.DisplayName)
		}
	}

	if w.PrimaryLocation != nil && w.PrimaryLocation.Source != nil {
		p.Journal = w.PrimaryLocation.Source.DisplayName
	}

	if w.OpenAccess != nil {
		p.OpenAccess = w.OpenAccess.IsOA
		p.PDFURL = w.OpenAccess.OAURL
	}

	return p
}

// ReconstructAbstract rebuilds abstract text from the inverted index that
// OpenAlex distributes instead of plain text.
func ReconstructAbstract(inverted map[string][]int) string {
	if len(inverted) == 0 {
		return ""
	}

	byPos := make(map[int]string)
	maxPos := -1
	for word, positions := range inverted {
		for _, pos := range positions {
			byPos[pos] = word
			if pos > maxPos {
				maxPos = pos
			}
		}
	}

	positions := make([]int, 0, len(byPos))
	for pos := range byPos {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	words := make([]string, 0, len(positions))
	for _, pos := range positions {
		words = append(words, byPos[pos])
	}

	return strings.Join(words, " ")
}

// Package zotero provides a client for the Zotero Web API, used to fetch the
// user's personal reading library.
package zotero

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// BaseURL is the Zotero Web API base URL.
	BaseURL = "https://api.zotero.org"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// PageSize is the number of items fetched per request (Zotero maximum is 100).
	PageSize = 100
)

// Errors returned by the Zotero client.
var (
	ErrMissingCredentials = errors.New("Zotero API key and user ID required")
	ErrCollectionNotFound = errors.New("Zotero collection not found")
)

// itemTypes eligible for the reading library.
var paperItemTypes = map[string]bool{
	"journalArticle":  true,
	"conferencePaper": true,
	"preprint":        true,
	"report":          true,
}

// Item represents a paper from the user's Zotero library.
type Item struct {
	Key      string   `json:"key"`
	Title    string   `json:"title"`
	Abstract string   `json:"abstract,omitempty"`
	Authors  []string `json:"authors,omitempty"`
	Year     int      `json:"year,omitempty"`
	DOI      string   `json:"doi,omitempty"`
	URL      string   `json:"url,omitempty"`
	Journal  string   `json:"journal,omitempty"` // publicationTitle
	ItemType string   `json:"item_type"`
}

// Collection represents a Zotero collection.
type Collection struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

// Client is an HTTP client for the Zotero Web API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	userID      string
	libraryType string // "user" or "group"
}

// ClientOption configures a Client.
type ClientOption func(*Client)

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

// WithLibraryType sets the library type ("user" or "group").
func WithLibraryType(t string) ClientOption {
	return func(c *Client) {
		c.libraryType = t
	}
}

// NewClient creates a new Zotero client. Credentials fall back to the
// ZOTERO_API_KEY and ZOTERO_USER_ID environment variables.
func NewClient(apiKey, userID string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ZOTERO_API_KEY")
	}
	if userID == "" {
		userID = os.Getenv("ZOTERO_USER_ID")
	}
	if apiKey == "" || userID == "" {
		return nil, ErrMissingCredentials
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		baseURL:     BaseURL,
		apiKey:      apiKey,
		userID:      userID,
		libraryType: "user",
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) libraryPrefix() string {
	if c.libraryType == "group" {
		return "/groups/" + c.userID
	}
	return "/users/" + c.userID
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Zotero-API-Key", c.apiKey)
	req.Header.Set("Zotero-API-Version", "3")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrCollectionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Zotero returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// rawItem is the wire format of a Zotero item.
type rawItem struct {
	Data struct {
		Key              string `json:"key"`
		ItemType         string `json:"itemType"`
		Title            string `json:"title"`
		AbstractNote     string `json:"abstractNote"`
		Date             string `json:"date"`
		DOI              string `json:"DOI"`
		URL              string `json:"url"`
		PublicationTitle string `json:"publicationTitle"`
		Creators         []struct {
			CreatorType string `json:"creatorType"`
			FirstName   string `json:"firstName"`
			LastName    string `json:"lastName"`
			Name        string `json:"name"`
		} `json:"creators"`
	} `json:"data"`
}

// FetchLibrary fetches all paper items from the library, or from a single
// collection when collectionID is non-empty. collectionID may be a collection
// key or a collection name; names are resolved via ListCollections.
func (c *Client) FetchLibrary(ctx context.Context, collectionID string) ([]Item, error) {
	path := c.libraryPrefix() + "/items/top"
	if collectionID != "" {
		key, err := c.resolveCollection(ctx, collectionID)
		if err != nil {
			return nil, err
		}
		path = c.libraryPrefix() + "/collections/" + key + "/items/top"
	}

	var items []Item
	for start := 0; ; start += PageSize {
		params := url.Values{}
		params.Set("format", "json")
		params.Set("limit", strconv.Itoa(PageSize))
		params.Set("start", strconv.Itoa(start))

		var page []rawItem
		if err := c.get(ctx, path, params, &page); err != nil {
			return nil, err
		}

		for _, raw := range page {
			if item, ok := parseItem(raw); ok {
				items = append(items, item)
			}
		}

		if len(page) < PageSize {
			break
		}
	}

	return items, nil
}

// ListCollections returns all collections in the library.
func (c *Client) ListCollections(ctx context.Context) ([]Collection, error) {
	var raw []struct {
		Data struct {
			Key              string          `json:"key"`
			Name             string          `json:"name"`
			ParentCollection json.RawMessage `json:"parentCollection"` // string key or false
		} `json:"data"`
	}

	params := url.Values{}
	params.Set("format", "json")
	if err := c.get(ctx, c.libraryPrefix()+"/collections", params, &raw); err != nil {
		return nil, err
	}

	collections := make([]Collection, 0, len(raw))
	for _, r := range raw {
		col := Collection{ID: r.Data.Key, Name: r.Data.Name}
		var parent string
		if json.Unmarshal(r.Data.ParentCollection, &parent) == nil {
			col.Parent = parent
		}
		collections = append(collections, col)
	}

	return collections, nil
}

// resolveCollection maps a collection key or name to a collection key.
// Zotero keys are 8 alphanumeric characters; anything else is treated as a
// name and matched case-insensitively (exact first, then substring).
func (c *Client) resolveCollection(ctx context.Context, idOrName string) (string, error) {
	if looksLikeKey(idOrName) {
		return idOrName, nil
	}

	collections, err := c.ListCollections(ctx)
	if err != nil {
		return "", err
	}

	lower := strings.ToLower(idOrName)
	for _, col := range collections {
		if strings.ToLower(col.Name) == lower {
			return col.ID, nil
		}
	}
	for _, col := range collections {
		if strings.Contains(strings.ToLower(col.Name), lower) {
			return col.ID, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrCollectionNotFound, idOrName)
}

func looksLikeKey(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

// parseItem converts a raw Zotero item into an Item, filtering out
// non-paper item types and items without a title.
func parseItem(raw rawItem) (Item, bool) {
	d := raw.Data
	if !paperItemTypes[d.ItemType] || d.Title == "" {
		return Item{}, false
	}

	item := Item{
		Key:      d.Key,
		Title:    d.Title,
		Abstract: d.AbstractNote,
		DOI:      d.DOI,
		URL:      d.URL,
		Journal:  d.PublicationTitle,
		ItemType: d.ItemType,
	}

	if len(d.Date) >= 4 {
		if year, err := strconv.Atoi(d.Date[:4]); err == nil {
			item.Year = year
		}
	}

	for _, creator := range d.Creators {
		if creator.CreatorType != "author" {
			continue
		}
		name := strings.TrimSpace(creator.FirstName + " " + creator.LastName)
		if name == "" {
			name = creator.Name
		}
		if name != "" {
			item.Authors = append(item.Authors, name)
		}
	}

	return item, true
}

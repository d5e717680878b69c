package openalex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestReconstructAbstract(t *testing.T) {
	tests := []struct {
		name     string
		inverted map[string][]int
		expected string
	}{
		{
			name:     "nil index",
			inverted: nil,
			expected: "",
		},
		{
			name: "single word",
			inverted: map[string][]int{
				"hello": {0},
			},
			expected: "hello",
		},
		{
			name: "repeated word",
			inverted: map[string][]int{
				"the":   {0, 3},
				"cat":   {1},
				"chased": {2},
				"mouse": {4},
			},
			expected: "the cat chased the mouse",
		},
		{
			name: "out of order positions",
			inverted: map[string][]int{
				"B": {1},
				"A": {0},
				"C": {2},
			},
			expected: "A B C",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReconstructAbstract(tt.inverted); got != tt.expected {
				t.Errorf("ReconstructAbstract() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestStripIDPrefix(t *testing.T) {
	if got := StripIDPrefix("https://openalex.org/W123"); got != "W123" {
		t.Errorf("StripIDPrefix() = %q, want W123", got)
	}
	if got := StripIDPrefix("W123"); got != "W123" {
		t.Errorf("StripIDPrefix() = %q, want W123", got)
	}
}

func TestSearchWorks_Pagination(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		cursor := r.URL.Query().Get("cursor")
		w.Header().Set("Content-Type", "application/json")
		if cursor == "*" {
			w.Write([]byte(`{
				"meta": {"count": 3, "next_cursor": "page2"},
				"results": [
					{"id": "https://openalex.org/W1", "title": "first"},
					{"id": "https://openalex.org/W2", "title": "second"}
				]
			}`))
			return
		}
		w.Write([]byte(`{
			"meta": {"count": 3, "next_cursor": ""},
			"results": [{"id": "https://openalex.org/W3", "title": "third"}]
		}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC)

	papers, err := client.SearchWorks(context.Background(), from, to, nil, 0)
	if err != nil {
		t.Fatalf("SearchWorks failed: %v", err)
	}

	if calls != 2 {
		t.Errorf("expected 2 pages fetched, got %d", calls)
	}
	if len(papers) != 3 {
		t.Fatalf("expected 3 papers, got %d", len(papers))
	}
	if papers[0].ID != "W1" || papers[2].ID != "W3" {
		t.Errorf("unexpected IDs: %v, %v", papers[0].ID, papers[2].ID)
	}
}

func TestSearchWorks_SourceFilter(t *testing.T) {
	var gotFilter string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("filter")
		w.Write([]byte(`{"meta": {"count": 0}, "results": []}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC)

	_, err := client.SearchWorks(context.Background(), from, to, []string{"S1", "S2"}, 0)
	if err != nil {
		t.Fatalf("SearchWorks failed: %v", err)
	}

	want := "from_publication_date:2026-08-01,to_publication_date:2026-08-08,primary_location.source.id:S1|S2"
	if gotFilter != want {
		t.Errorf("filter = %q, want %q", gotFilter, want)
	}
}

func TestGetCitations_Truncation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"meta": {"count": 3},
			"results": [
				{"id": "https://openalex.org/W10"},
				{"id": "https://openalex.org/W11"},
				{"id": "https://openalex.org/W12"}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	ids, err := client.GetCitations(context.Background(), "W1", 2)
	if err != nil {
		t.Fatalf("GetCitations failed: %v", err)
	}

	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}
	if ids[0] != "W10" || ids[1] != "W11" {
		t.Errorf("expected stable order truncation, got %v", ids)
	}
}

func TestClient_RateLimitError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.GetCitations(context.Background(), "W1", 5)
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("rate limit error should be retryable")
	}
}

func TestFindSource_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": []}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	id, err := client.FindSource(context.Background(), "Journal of Nonexistence")
	if err != nil {
		t.Fatalf("FindSource failed: %v", err)
	}
	if id != "" {
		t.Errorf("expected empty source id, got %q", id)
	}
}

func TestFindSource_Match(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [{"id": "https://openalex.org/S137773608", "display_name": "Nature"}]}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	id, err := client.FindSource(context.Background(), "Nature")
	if err != nil {
		t.Fatalf("FindSource failed: %v", err)
	}
	if id != "S137773608" {
		t.Errorf("expected S137773608, got %q", id)
	}
}

func TestClient_Mailto(t *testing.T) {
	var gotMailto, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMailto = r.URL.Query().Get("mailto")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{"results": []}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithMailto("user@example.org"))
	if _, err := client.FindSource(context.Background(), "Nature"); err != nil {
		t.Fatalf("FindSource failed: %v", err)
	}

	if gotMailto != "user@example.org" {
		t.Errorf("mailto param = %q, want user@example.org", gotMailto)
	}
	if gotUA != "mailto:user@example.org" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

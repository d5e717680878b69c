package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/scry/internal/paper"
	"github.com/matsen/scry/internal/recommend"
	"github.com/matsen/scry/internal/review"
	"github.com/matsen/scry/internal/zotero"
)

type fakeEngine struct {
	outcome *recommend.Outcome
	err     error
	stats   recommend.Stats
	gotOpts recommend.Options
}

func (f *fakeEngine) Recommend(ctx context.Context, opts recommend.Options) (*recommend.Outcome, error) {
	f.gotOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

func (f *fakeEngine) CacheStats() recommend.Stats {
	return f.stats
}

type fakeLister struct {
	collections []zotero.Collection
	err         error
}

func (f *fakeLister) ListCollections(ctx context.Context) ([]zotero.Collection, error) {
	return f.collections, f.err
}

func newTestServer(t *testing.T, engine *fakeEngine, lister CollectionLister) (*Server, *review.Store) {
	t.Helper()
	reviews, err := review.Open(filepath.Join(t.TempDir(), "reviewed.db"))
	if err != nil {
		t.Fatalf("opening review store: %v", err)
	}
	t.Cleanup(func() { reviews.Close() })
	return NewServer(Params{Engine: engine, Reviews: reviews, Collections: lister}), reviews
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var parsed map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return rec, parsed
}

func TestStatus(t *testing.T) {
	engine := &fakeEngine{stats: recommend.Stats{Embeddings: 12, GraphBuilt: true}}
	server, reviews := newTestServer(t, engine, nil)
	if err := reviews.Mark(context.Background(), "W1", "", ""); err != nil {
		t.Fatal(err)
	}

	rec, body := doJSON(t, server.Handler(), http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["initialized"] != true || body["embeddings_cached"] != true {
		t.Errorf("unexpected status body: %v", body)
	}
	if body["reviewed_count"] != float64(1) {
		t.Errorf("reviewed_count = %v, want 1", body["reviewed_count"])
	}
}

func TestRecommend_Defaults(t *testing.T) {
	engine := &fakeEngine{outcome: &recommend.Outcome{
		Records: []recommend.ScoreRecord{{Paper: paper.Paper{ID: "WX", Title: "xi"}, CombinedScore: 0.9}},
	}}
	server, _ := newTestServer(t, engine, nil)

	rec, body := doJSON(t, server.Handler(), http.MethodPost, "/api/recommend", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if body["success"] != true || body["count"] != float64(1) {
		t.Errorf("unexpected body: %v", body)
	}

	opts := engine.gotOpts
	if opts.Days != 7 || opts.Limit != 10 {
		t.Errorf("defaults not applied: days=%d limit=%d", opts.Days, opts.Limit)
	}
	if opts.CitationWeight != 0.3 || opts.SimilarityWeight != 0.7 {
		t.Errorf("default weights not applied: %g/%g", opts.CitationWeight, opts.SimilarityWeight)
	}
	if opts.JournalMode != recommend.JournalDefaultList {
		t.Errorf("journal mode = %v, want default list", opts.JournalMode)
	}
}

func TestRecommend_BodyOverrides(t *testing.T) {
	engine := &fakeEngine{outcome: &recommend.Outcome{}}
	server, _ := newTestServer(t, engine, nil)

	body := `{"days": 14, "top": 5, "citation_weight": 0, "similarity_weight": 1,
		"journals": ["Nature"], "collection_id": "ABCD1234", "deep": true}`
	rec, _ := doJSON(t, server.Handler(), http.MethodPost, "/api/recommend", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	opts := engine.gotOpts
	if opts.Days != 14 || opts.Limit != 5 {
		t.Errorf("days=%d limit=%d", opts.Days, opts.Limit)
	}
	// An explicit zero weight must not fall back to the default.
	if opts.CitationWeight != 0 || opts.SimilarityWeight != 1 {
		t.Errorf("weights = %g/%g, want 0/1", opts.CitationWeight, opts.SimilarityWeight)
	}
	if opts.JournalMode != recommend.JournalCustomList || len(opts.Journals) != 1 {
		t.Errorf("custom journals not applied: mode=%v journals=%v", opts.JournalMode, opts.Journals)
	}
	if opts.CollectionID != "ABCD1234" || !opts.Deep {
		t.Errorf("collection/deep not applied: %+v", opts)
	}
}

func TestRecommend_FilterDisabled(t *testing.T) {
	engine := &fakeEngine{outcome: &recommend.Outcome{}}
	server, _ := newTestServer(t, engine, nil)

	rec, _ := doJSON(t, server.Handler(), http.MethodPost, "/api/recommend", `{"use_journal_filter": false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if engine.gotOpts.JournalMode != recommend.JournalFilterDisabled {
		t.Errorf("journal mode = %v, want disabled", engine.gotOpts.JournalMode)
	}
}

func TestRecommend_ExcludesReviewed(t *testing.T) {
	engine := &fakeEngine{outcome: &recommend.Outcome{}}
	server, reviews := newTestServer(t, engine, nil)
	if err := reviews.Mark(context.Background(), "W9", "", ""); err != nil {
		t.Fatal(err)
	}

	if rec, _ := doJSON(t, server.Handler(), http.MethodPost, "/api/recommend", "{}"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !engine.gotOpts.Exclude["W9"] {
		t.Error("reviewed paper not excluded")
	}

	if rec, _ := doJSON(t, server.Handler(), http.MethodPost, "/api/recommend", `{"include_reviewed": true}`); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if engine.gotOpts.Exclude != nil {
		t.Error("include_reviewed should skip the exclusion set")
	}
}

func TestRecommend_Errors(t *testing.T) {
	t.Run("config error", func(t *testing.T) {
		engine := &fakeEngine{err: recommend.ErrConfig}
		server, _ := newTestServer(t, engine, nil)
		rec, body := doJSON(t, server.Handler(), http.MethodPost, "/api/recommend", "{}")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if body["success"] != false {
			t.Errorf("unexpected body: %v", body)
		}
	})

	t.Run("engine failure", func(t *testing.T) {
		engine := &fakeEngine{err: errors.New("boom")}
		server, _ := newTestServer(t, engine, nil)
		rec, _ := doJSON(t, server.Handler(), http.MethodPost, "/api/recommend", "{}")
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		engine := &fakeEngine{outcome: &recommend.Outcome{}}
		server, _ := newTestServer(t, engine, nil)
		rec, _ := doJSON(t, server.Handler(), http.MethodPost, "/api/recommend", `{"days": "nope"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestDefaultJournals(t *testing.T) {
	server, _ := newTestServer(t, &fakeEngine{}, nil)
	rec, body := doJSON(t, server.Handler(), http.MethodGet, "/api/journals/default", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	journals, ok := body["journals"].([]any)
	if !ok || len(journals) == 0 {
		t.Errorf("expected journal list, got %v", body)
	}
}

func TestCollections(t *testing.T) {
	t.Run("listed", func(t *testing.T) {
		lister := &fakeLister{collections: []zotero.Collection{{ID: "ABCD1234", Name: "Immunology"}}}
		server, _ := newTestServer(t, &fakeEngine{}, lister)
		rec, body := doJSON(t, server.Handler(), http.MethodGet, "/api/collections", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		collections, ok := body["collections"].([]any)
		if !ok || len(collections) != 1 {
			t.Errorf("unexpected collections: %v", body)
		}
	})

	t.Run("upstream failure", func(t *testing.T) {
		server, _ := newTestServer(t, &fakeEngine{}, &fakeLister{err: errors.New("api down")})
		rec, _ := doJSON(t, server.Handler(), http.MethodGet, "/api/collections", "")
		if rec.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", rec.Code)
		}
	})

	t.Run("no lister", func(t *testing.T) {
		server, _ := newTestServer(t, &fakeEngine{}, nil)
		rec, body := doJSON(t, server.Handler(), http.MethodGet, "/api/collections", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if collections, ok := body["collections"].([]any); !ok || len(collections) != 0 {
			t.Errorf("expected empty list, got %v", body)
		}
	})
}

func TestReviewedLifecycle(t *testing.T) {
	server, _ := newTestServer(t, &fakeEngine{}, nil)
	handler := server.Handler()

	// Mark.
	rec, _ := doJSON(t, handler, http.MethodPost, "/api/reviewed/mark",
		`{"paper_id": "W1", "title": "Some Paper", "journal": "Nature"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark status = %d", rec.Code)
	}

	// Check.
	rec, body := doJSON(t, handler, http.MethodGet, "/api/reviewed/check/W1", "")
	if rec.Code != http.StatusOK || body["reviewed"] != true {
		t.Errorf("check: status=%d body=%v", rec.Code, body)
	}
	rec, body = doJSON(t, handler, http.MethodGet, "/api/reviewed/check/W2", "")
	if rec.Code != http.StatusOK || body["reviewed"] != false {
		t.Errorf("check unknown: status=%d body=%v", rec.Code, body)
	}

	// List.
	rec, body = doJSON(t, handler, http.MethodGet, "/api/reviewed/list", "")
	if rec.Code != http.StatusOK || body["count"] != float64(1) {
		t.Errorf("list: status=%d body=%v", rec.Code, body)
	}

	// Clear.
	if rec, _ := doJSON(t, handler, http.MethodPost, "/api/reviewed/clear", ""); rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	rec, body = doJSON(t, handler, http.MethodGet, "/api/reviewed/list", "")
	if rec.Code != http.StatusOK || body["count"] != float64(0) {
		t.Errorf("list after clear: status=%d body=%v", rec.Code, body)
	}
}

func TestMarkReviewed_Validation(t *testing.T) {
	server, _ := newTestServer(t, &fakeEngine{}, nil)
	handler := server.Handler()

	rec, _ := doJSON(t, handler, http.MethodPost, "/api/reviewed/mark", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing paper_id: status = %d, want 400", rec.Code)
	}
	rec, _ = doJSON(t, handler, http.MethodPost, "/api/reviewed/mark", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", rec.Code)
	}
}

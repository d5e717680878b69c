// Package web exposes the recommendation engine over a JSON HTTP API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/matsen/scry/internal/journal"
	"github.com/matsen/scry/internal/recommend"
	"github.com/matsen/scry/internal/review"
	"github.com/matsen/scry/internal/zotero"
)

// Recommender is the engine surface the API serves.
type Recommender interface {
	Recommend(ctx context.Context, opts recommend.Options) (*recommend.Outcome, error)
	CacheStats() recommend.Stats
}

// CollectionLister lists the user's library collections.
type CollectionLister interface {
	ListCollections(ctx context.Context) ([]zotero.Collection, error)
}

// Server serves the JSON API.
type Server struct {
	engine      Recommender
	reviews     *review.Store
	collections CollectionLister
	log         zerolog.Logger
}

// Params wires a Server. Collections may be nil, in which case the
// collections endpoint reports an empty list.
type Params struct {
	Engine      Recommender
	Reviews     *review.Store
	Collections CollectionLister
	Logger      *zerolog.Logger
}

// NewServer creates an API server.
func NewServer(p Params) *Server {
	log := zerolog.Nop()
	if p.Logger != nil {
		log = *p.Logger
	}
	return &Server{
		engine:      p.Engine,
		reviews:     p.Reviews,
		collections: p.Collections,
		log:         log,
	}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/recommend", s.handleRecommend)
		r.Get("/journals/default", s.handleDefaultJournals)
		r.Get("/collections", s.handleCollections)

		r.Route("/reviewed", func(r chi.Router) {
			r.Post("/mark", s.handleMarkReviewed)
			r.Get("/list", s.handleListReviewed)
			r.Get("/check/{paperID}", s.handleCheckReviewed)
			r.Post("/clear", s.handleClearReviewed)
		})
	})

	return r
}

// requestLogger logs one line per request with status and latency.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.CacheStats()

	reviewed := 0
	if s.reviews != nil {
		if n, err := s.reviews.Count(r.Context()); err == nil {
			reviewed = n
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"initialized":       stats.Embeddings > 0 && stats.GraphBuilt,
		"embeddings_cached": stats.Embeddings > 0,
		"graph_cached":      stats.GraphBuilt,
		"graph_partial":     stats.GraphPartial,
		"reviewed_count":    reviewed,
	})
}

// recommendRequest mirrors the engine options; absent weights keep their
// defaults rather than collapsing to zero.
type recommendRequest struct {
	Days             int      `json:"days"`
	Top              int      `json:"top"`
	CitationWeight   *float64 `json:"citation_weight"`
	SimilarityWeight *float64 `json:"similarity_weight"`
	MinCitation      *float64 `json:"min_citation_score"`
	MinSimilarity    *float64 `json:"min_similarity_score"`
	UseJournalFilter *bool    `json:"use_journal_filter"`
	Journals         []string `json:"journals"`
	CollectionID     string   `json:"collection_id"`
	Deep             bool     `json:"deep"`
	IncludeReviewed  bool     `json:"include_reviewed"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	// An empty body means all defaults.
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opts := recommend.DefaultOptions()
	opts.Limit = 10
	if req.Days > 0 {
		opts.Days = req.Days
	}
	if req.Top > 0 {
		opts.Limit = req.Top
	}
	if req.CitationWeight != nil {
		opts.CitationWeight = *req.CitationWeight
	}
	if req.SimilarityWeight != nil {
		opts.SimilarityWeight = *req.SimilarityWeight
	}
	if req.MinCitation != nil {
		opts.MinCitationScore = *req.MinCitation
	}
	if req.MinSimilarity != nil {
		opts.MinSimilarityScore = *req.MinSimilarity
	}
	opts.CollectionID = req.CollectionID
	opts.Deep = req.Deep

	switch {
	case req.UseJournalFilter != nil && !*req.UseJournalFilter:
		opts.JournalMode = recommend.JournalFilterDisabled
	case len(req.Journals) > 0:
		opts.JournalMode = recommend.JournalCustomList
		opts.Journals = req.Journals
	}

	if !req.IncludeReviewed && s.reviews != nil {
		ids, err := s.reviews.ReviewedIDs(r.Context())
		if err != nil {
			s.log.Error().Err(err).Msg("loading reviewed papers")
		} else {
			opts.Exclude = ids
		}
	}

	outcome, err := s.engine.Recommend(r.Context(), opts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, recommend.ErrConfig) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"count":           len(outcome.Records),
		"recommendations": outcome.Records,
		"graph_partial":   outcome.GraphPartial,
		"from":            outcome.From,
		"to":              outcome.To,
	})
}

func (s *Server) handleDefaultJournals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"journals": journal.DefaultJournals})
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	collections := []zotero.Collection{}
	if s.collections != nil {
		list, err := s.collections.ListCollections(r.Context())
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		if list != nil {
			collections = list
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": collections})
}

type markRequest struct {
	PaperID string `json:"paper_id"`
	Title   string `json:"title"`
	Journal string `json:"journal"`
}

func (s *Server) handleMarkReviewed(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PaperID == "" {
		writeError(w, http.StatusBadRequest, "paper_id required")
		return
	}
	if err := s.reviews.Mark(r.Context(), req.PaperID, req.Title, req.Journal); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleListReviewed(w http.ResponseWriter, r *http.Request) {
	records, err := s.reviews.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []review.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviewed": records, "count": len(records)})
}

func (s *Server) handleCheckReviewed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "paperID")
	reviewed, err := s.reviews.IsReviewed(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"paper_id": id, "reviewed": reviewed})
}

func (s *Server) handleClearReviewed(w http.ResponseWriter, r *http.Request) {
	if err := s.reviews.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

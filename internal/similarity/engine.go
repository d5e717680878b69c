// Package similarity computes semantic embeddings and cosine similarity for
// paper text. It performs pure computation: caching embeddings is the
// caller's responsibility.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/matsen/scry/internal/embedding"
)

// ErrEmptyText is returned when text is empty or whitespace-only after
// normalization. Callers should skip the paper or substitute title-only text.
var ErrEmptyText = errors.New("text is empty")

// Engine generates embeddings via a provider and compares them.
type Engine struct {
	provider embedding.Provider
}

// NewEngine creates a similarity engine backed by the given provider.
func NewEngine(provider embedding.Provider) *Engine {
	return &Engine{provider: provider}
}

// ModelName returns the name of the underlying embedding model.
func (e *Engine) ModelName() string {
	return e.provider.ModelName()
}

// Dimensions returns the vector dimensionality of the underlying model.
func (e *Engine) Dimensions() int {
	return e.provider.Dimensions()
}

// EmbedText generates an embedding for the given text. Deterministic for
// identical text. Returns ErrEmptyText for empty or whitespace-only input.
func (e *Engine) EmbedText(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	emb, err := e.provider.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}

	return emb.Vector, nil
}

// EmbedTexts generates embeddings for multiple texts in one model invocation,
// preserving input order exactly. Semantics are identical to calling
// EmbedText repeatedly; batching exists for throughput only, so any empty
// text fails the whole batch.
func (e *Engine) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	trimmed := make([]string, len(texts))
	for i, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, fmt.Errorf("text %d: %w", i, ErrEmptyText)
		}
		trimmed[i] = text
	}

	embeddings, err := e.provider.EmbedBatch(ctx, trimmed)
	if err != nil {
		return nil, fmt.Errorf("embedding batch: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("provider returned %d embeddings for %d texts", len(embeddings), len(texts))
	}

	vectors := make([][]float32, len(embeddings))
	for i, emb := range embeddings {
		vectors[i] = emb.Vector
	}

	return vectors, nil
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value in [-1, 1]: 1.0 for identical non-zero vectors, and 0.0
// when either vector is the zero vector or lengths mismatch (never divides
// by zero).
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denominator := math.Sqrt(normA) * math.Sqrt(normB)
	if denominator == 0 {
		return 0
	}

	sim := dot / denominator
	// Floating error can push identical vectors marginally past 1.
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}

	return sim
}

// MostSimilar finds the candidate with the highest cosine similarity to the
// query. Candidates are compared in sorted ID order so ties resolve
// deterministically to the smallest ID. Returns ok=false when candidates is
// empty.
func MostSimilar(query []float32, candidates map[string][]float32) (bestID string, bestScore float64, ok bool) {
	if len(candidates) == 0 {
		return "", 0, false
	}

	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	bestScore = math.Inf(-1)
	for _, id := range ids {
		if sim := CosineSimilarity(query, candidates[id]); sim > bestScore {
			bestScore = sim
			bestID = id
		}
	}

	return bestID, bestScore, true
}

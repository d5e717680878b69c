package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// EmbedFunc computes the embedding of one text.
type EmbedFunc func(ctx context.Context) ([]float32, error)

// EmbedBatchFunc computes embeddings for multiple texts, preserving order.
type EmbedBatchFunc func(ctx context.Context, texts []string) ([][]float32, error)

// embeddingFile is the on-disk format of the embedding store.
type embeddingFile struct {
	Version    int
	ModelName  string
	Dimensions int
	CreatedAt  time.Time
	Vectors    map[string][]float32
}

// EmbeddingStore persists embedding vectors keyed by paper ID, tagged with
// the model name and dimensionality they were computed with. A store built
// with a differently-dimensioned (or different) model is never silently
// reused: the mismatch invalidates the whole cache on load.
type EmbeddingStore struct {
	path       string
	modelName  string
	dimensions int

	mu      sync.Mutex
	loaded  bool
	vectors map[string][]float32
}

// NewEmbeddingStore creates a store persisted at path for the given model.
// The underlying file is loaded lazily on first access, not here.
func NewEmbeddingStore(path, modelName string, dimensions int) *EmbeddingStore {
	return &EmbeddingStore{
		path:       path,
		modelName:  modelName,
		dimensions: dimensions,
	}
}

// load reads the persisted file once. A missing file, a version mismatch, or
// a model/dimension mismatch all start the store empty; the stale file is
// overwritten on the next save.
func (s *EmbeddingStore) load() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.vectors = make(map[string][]float32)

	var file embeddingFile
	if err := readGob(s.path, &file); err != nil {
		return
	}
	if file.Version != CurrentVersion {
		return
	}
	if file.ModelName != s.modelName || file.Dimensions != s.dimensions {
		return
	}

	s.vectors = file.Vectors
	if s.vectors == nil {
		s.vectors = make(map[string][]float32)
	}
}

// save atomically persists the current vectors. Callers hold the write lock.
func (s *EmbeddingStore) save() error {
	return writeGob(s.path, embeddingFile{
		Version:    CurrentVersion,
		ModelName:  s.modelName,
		Dimensions: s.dimensions,
		CreatedAt:  time.Now().UTC(),
		Vectors:    s.vectors,
	})
}

// Get returns the cached vector for a paper ID, if present.
func (s *EmbeddingStore) Get(id string) ([]float32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	vec, ok := s.vectors[id]
	return vec, ok
}

// Len returns the number of cached vectors.
func (s *EmbeddingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	return len(s.vectors)
}

// GetOrCompute returns the cached vector for id, computing, storing, and
// persisting it on a miss. The computation runs at most once per ID.
func (s *EmbeddingStore) GetOrCompute(ctx context.Context, id string, compute EmbedFunc) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	if vec, ok := s.vectors[id]; ok {
		return vec, nil
	}

	vec, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if len(vec) != s.dimensions {
		return nil, fmt.Errorf("embedding for %s has %d dimensions, want %d", id, len(vec), s.dimensions)
	}

	s.vectors[id] = vec
	if err := s.save(); err != nil {
		return nil, err
	}

	return vec, nil
}

// BulkGetOrCompute returns vectors for every entry of texts (a paper ID to
// embedding-text mapping), computing only the missing ones in a single batch
// call. Already-cached entries are never recomputed. Misses are embedded in
// sorted ID order for determinism.
func (s *EmbeddingStore) BulkGetOrCompute(ctx context.Context, texts map[string]string, embed EmbedBatchFunc) (map[string][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	result := make(map[string][]float32, len(texts))
	var missIDs []string
	for id := range texts {
		if vec, ok := s.vectors[id]; ok {
			result[id] = vec
		} else {
			missIDs = append(missIDs, id)
		}
	}

	if len(missIDs) == 0 {
		return result, nil
	}
	sort.Strings(missIDs)

	missTexts := make([]string, len(missIDs))
	for i, id := range missIDs {
		missTexts[i] = texts[id]
	}

	vectors, err := embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missIDs) {
		return nil, fmt.Errorf("embed returned %d vectors for %d texts", len(vectors), len(missIDs))
	}

	for i, id := range missIDs {
		if len(vectors[i]) != s.dimensions {
			return nil, fmt.Errorf("embedding for %s has %d dimensions, want %d", id, len(vectors[i]), s.dimensions)
		}
		s.vectors[id] = vectors[i]
		result[id] = vectors[i]
	}

	if err := s.save(); err != nil {
		return nil, err
	}

	return result, nil
}

// All returns a copy of every cached vector keyed by paper ID.
func (s *EmbeddingStore) All() map[string][]float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	out := make(map[string][]float32, len(s.vectors))
	for id, vec := range s.vectors {
		out[id] = vec
	}
	return out
}

// InvalidateAll clears the store and deletes the persisted file. Subsequent
// gets recompute from scratch.
func (s *EmbeddingStore) InvalidateAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true
	s.vectors = make(map[string][]float32)
	return removeFile(s.path)
}

package similarity

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/matsen/scry/internal/embedding"
)

// fakeProvider returns a fixed vector per text, counting invocations.
type fakeProvider struct {
	vectors map[string][]float32
	calls   int
}

func (f *fakeProvider) Embed(ctx context.Context, text string) (embedding.Embedding, error) {
	f.calls++
	return embedding.Embedding{Vector: f.vectors[text]}, nil
}

func (f *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([]embedding.Embedding, error) {
	f.calls++
	out := make([]embedding.Embedding, len(texts))
	for i, text := range texts {
		out[i] = embedding.Embedding{Vector: f.vectors[text]}
	}
	return out, nil
}

func (f *fakeProvider) ModelName() string { return "fake-model" }
func (f *fakeProvider) Dimensions() int   { return 3 }

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{
			name:     "identical vectors",
			a:        []float32{1, 0, 0},
			b:        []float32{1, 0, 0},
			expected: 1.0,
		},
		{
			name:     "orthogonal vectors",
			a:        []float32{1, 0},
			b:        []float32{0, 1},
			expected: 0.0,
		},
		{
			name:     "opposite vectors",
			a:        []float32{1, 0},
			b:        []float32{-1, 0},
			expected: -1.0,
		},
		{
			name:     "similar vectors",
			a:        []float32{1, 1},
			b:        []float32{1, 0},
			expected: 0.7071067811865475, // cos(45 degrees)
		},
		{
			name:     "zero vector a",
			a:        []float32{0, 0, 0},
			b:        []float32{1, 0, 0},
			expected: 0.0,
		},
		{
			name:     "zero vector b",
			a:        []float32{1, 0, 0},
			b:        []float32{0, 0, 0},
			expected: 0.0,
		},
		{
			name:     "empty vectors",
			a:        []float32{},
			b:        []float32{},
			expected: 0.0,
		},
		{
			name:     "different lengths",
			a:        []float32{1, 0},
			b:        []float32{1, 0, 0},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 1e-6 {
				t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	v := []float32{0.1, -2.5, 3.7, 0.004}
	if got := CosineSimilarity(v, v); got != 1.0 {
		t.Errorf("CosineSimilarity(v, v) = %v, want exactly 1.0 after clamping", got)
	}
}

func TestCosineSimilarity_Bounded(t *testing.T) {
	a := []float32{1e-30, 1e30}
	b := []float32{1e-30, 1e30}
	got := CosineSimilarity(a, b)
	if got < -1 || got > 1 {
		t.Errorf("similarity %v out of [-1, 1]", got)
	}
}

func TestEmbedText(t *testing.T) {
	provider := &fakeProvider{vectors: map[string][]float32{"hello": {1, 2, 3}}}
	engine := NewEngine(provider)

	t.Run("embeds text", func(t *testing.T) {
		vec, err := engine.EmbedText(context.Background(), "hello")
		if err != nil {
			t.Fatalf("EmbedText failed: %v", err)
		}
		if len(vec) != 3 || vec[0] != 1 {
			t.Errorf("unexpected vector: %v", vec)
		}
	})

	t.Run("rejects empty text", func(t *testing.T) {
		if _, err := engine.EmbedText(context.Background(), ""); !errors.Is(err, ErrEmptyText) {
			t.Errorf("expected ErrEmptyText, got %v", err)
		}
	})

	t.Run("rejects whitespace-only text", func(t *testing.T) {
		if _, err := engine.EmbedText(context.Background(), "  \t\n "); !errors.Is(err, ErrEmptyText) {
			t.Errorf("expected ErrEmptyText, got %v", err)
		}
	})
}

func TestEmbedTexts(t *testing.T) {
	provider := &fakeProvider{vectors: map[string][]float32{
		"a": {1, 0, 0},
		"b": {0, 1, 0},
		"c": {0, 0, 1},
	}}
	engine := NewEngine(provider)

	t.Run("preserves order", func(t *testing.T) {
		vectors, err := engine.EmbedTexts(context.Background(), []string{"b", "a", "c"})
		if err != nil {
			t.Fatalf("EmbedTexts failed: %v", err)
		}
		if vectors[0][1] != 1 || vectors[1][0] != 1 || vectors[2][2] != 1 {
			t.Errorf("order not preserved: %v", vectors)
		}
	})

	t.Run("single provider invocation", func(t *testing.T) {
		provider.calls = 0
		if _, err := engine.EmbedTexts(context.Background(), []string{"a", "b", "c"}); err != nil {
			t.Fatalf("EmbedTexts failed: %v", err)
		}
		if provider.calls != 1 {
			t.Errorf("expected 1 provider call, got %d", provider.calls)
		}
	})

	t.Run("empty text fails batch", func(t *testing.T) {
		if _, err := engine.EmbedTexts(context.Background(), []string{"a", " "}); !errors.Is(err, ErrEmptyText) {
			t.Errorf("expected ErrEmptyText, got %v", err)
		}
	})

	t.Run("nil input", func(t *testing.T) {
		vectors, err := engine.EmbedTexts(context.Background(), nil)
		if err != nil || vectors != nil {
			t.Errorf("expected nil, nil for empty input, got %v, %v", vectors, err)
		}
	})
}

func TestMostSimilar(t *testing.T) {
	candidates := map[string][]float32{
		"W1": {1, 0, 0},
		"W2": {0.9, 0.1, 0},
		"W3": {0, 1, 0},
	}

	t.Run("finds best match", func(t *testing.T) {
		id, score, ok := MostSimilar([]float32{1, 0, 0}, candidates)
		if !ok {
			t.Fatal("expected ok")
		}
		if id != "W1" {
			t.Errorf("best id = %s, want W1", id)
		}
		if math.Abs(score-1.0) > 1e-6 {
			t.Errorf("best score = %v, want 1.0", score)
		}
	})

	t.Run("empty candidates", func(t *testing.T) {
		if _, _, ok := MostSimilar([]float32{1, 0, 0}, nil); ok {
			t.Error("expected ok=false for empty candidates")
		}
	})

	t.Run("ties resolve to smallest id", func(t *testing.T) {
		tied := map[string][]float32{
			"W9": {2, 0, 0},
			"W5": {1, 0, 0}, // Same direction: same cosine similarity
		}
		id, _, ok := MostSimilar([]float32{1, 0, 0}, tied)
		if !ok || id != "W5" {
			t.Errorf("expected W5 on tie, got %s", id)
		}
	})
}

package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewOllamaProvider_Defaults(t *testing.T) {
	provider := NewOllamaProvider()

	if provider.baseURL != DefaultOllamaURL {
		t.Errorf("baseURL = %s, want %s", provider.baseURL, DefaultOllamaURL)
	}
	if provider.model != DefaultModel {
		t.Errorf("model = %s, want %s", provider.model, DefaultModel)
	}
	if provider.dimensions != DefaultDimensions {
		t.Errorf("dimensions = %d, want %d", provider.dimensions, DefaultDimensions)
	}
	if provider.client == nil {
		t.Error("client should not be nil")
	}
}

func TestNewOllamaProvider_WithOptions(t *testing.T) {
	provider := NewOllamaProvider(
		WithBaseURL("http://custom:8080"),
		WithModel("custom-model"),
		WithDimensions(768),
		WithTimeout(60*time.Second),
	)

	if provider.baseURL != "http://custom:8080" {
		t.Errorf("baseURL = %s", provider.baseURL)
	}
	if provider.model != "custom-model" {
		t.Errorf("model = %s", provider.model)
	}
	if provider.dimensions != 768 {
		t.Errorf("dimensions = %d", provider.dimensions)
	}
	if provider.client.Timeout != 60*time.Second {
		t.Errorf("timeout = %v", provider.client.Timeout)
	}
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}

		// Echo back one vector per input, tagged with its index.
		resp := ollamaEmbedResponse{Embeddings: make([][]float32, len(req.Input))}
		for i := range req.Input {
			resp.Embeddings[i] = []float32{float32(i), 0, 0}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := NewOllamaProvider(WithBaseURL(server.URL), WithDimensions(3))
	embeddings, err := provider.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}

	if len(embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(embeddings))
	}
	for i, e := range embeddings {
		if e.Vector[0] != float32(i) {
			t.Errorf("embedding %d out of order: %v", i, e.Vector)
		}
	}
}

func TestEmbedBatch_Empty(t *testing.T) {
	provider := NewOllamaProvider()
	embeddings, err := provider.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if embeddings != nil {
		t.Errorf("expected nil for empty input, got %v", embeddings)
	}
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{1, 2}}})
	}))
	defer server.Close()

	provider := NewOllamaProvider(WithBaseURL(server.URL), WithDimensions(3))
	if _, err := provider.Embed(context.Background(), "text"); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestHasModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models": [{"name": "all-minilm:l6-v2"}, {"name": "llama3"}]}`))
	}))
	defer server.Close()

	provider := NewOllamaProvider(WithBaseURL(server.URL))
	ok, err := provider.HasModel(context.Background())
	if err != nil {
		t.Fatalf("HasModel failed: %v", err)
	}
	if !ok {
		t.Error("expected model to be present")
	}

	provider2 := NewOllamaProvider(WithBaseURL(server.URL), WithModel("missing-model"))
	ok, err = provider2.HasModel(context.Background())
	if err != nil {
		t.Fatalf("HasModel failed: %v", err)
	}
	if ok {
		t.Error("expected model to be absent")
	}
}

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultOllamaURL is the default Ollama API endpoint.
	DefaultOllamaURL = "http://localhost:11434"

	// DefaultModel is the default embedding model.
	DefaultModel = "all-minilm:l6-v2"

	// DefaultDimensions is the expected output dimensions for all-minilm.
	DefaultDimensions = 384

	// DefaultTimeout is the timeout for embedding requests. Batch requests
	// can take a while on first model load.
	DefaultTimeout = 2 * time.Minute

	// apiPathTags is the Ollama API endpoint for listing models.
	apiPathTags = "/api/tags"

	// apiPathEmbed is the Ollama batch embeddings endpoint.
	apiPathEmbed = "/api/embed"
)

// OllamaProvider generates embeddings using the Ollama API.
type OllamaProvider struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

// OllamaOption configures an OllamaProvider.
type OllamaOption func(*OllamaProvider)

// WithBaseURL sets the Ollama API base URL.
func WithBaseURL(url string) OllamaOption {
	return func(p *OllamaProvider) {
		p.baseURL = url
	}
}

// WithModel sets the embedding model.
func WithModel(model string) OllamaOption {
	return func(p *OllamaProvider) {
		p.model = model
	}
}

// WithDimensions sets the expected vector dimensions.
func WithDimensions(dims int) OllamaOption {
	return func(p *OllamaProvider) {
		p.dimensions = dims
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) OllamaOption {
	return func(p *OllamaProvider) {
		p.client.Timeout = timeout
	}
}

// NewOllamaProvider creates a new Ollama embedding provider.
func NewOllamaProvider(opts ...OllamaOption) *OllamaProvider {
	p := &OllamaProvider{
		baseURL:    DefaultOllamaURL,
		model:      DefaultModel,
		dimensions: DefaultDimensions,
		client:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Embed generates an embedding for the given text.
func (p *OllamaProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	embeddings, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return Embedding{}, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request via the
// /api/embed endpoint. Ollama returns vectors in input order.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := ollamaEmbedRequest{
		Model: p.model,
		Input: texts,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+apiPathEmbed, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, formatErrorBody(resp.Body))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("unexpected embedding count: got %d, want %d", len(result.Embeddings), len(texts))
	}

	embeddings := make([]Embedding, len(result.Embeddings))
	for i, vec := range result.Embeddings {
		if len(vec) != p.dimensions {
			return nil, fmt.Errorf("unexpected embedding dimensions: got %d, want %d", len(vec), p.dimensions)
		}
		embeddings[i] = Embedding{Vector: vec}
	}

	return embeddings, nil
}

// ModelName returns the name of the embedding model.
func (p *OllamaProvider) ModelName() string {
	return p.model
}

// Dimensions returns the expected vector dimensions.
func (p *OllamaProvider) Dimensions() int {
	return p.dimensions
}

// IsAvailable checks if Ollama is running and accessible.
func (p *OllamaProvider) IsAvailable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+apiPathTags, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama is not running: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	return nil
}

// HasModel checks if the required model is available in Ollama.
func (p *OllamaProvider) HasModel(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+apiPathTags, nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("checking models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var result ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("decoding response: %w", err)
	}

	for _, m := range result.Models {
		if m.Name == p.model {
			return true, nil
		}
	}

	return false, nil
}

// formatErrorBody reads and formats the response body for error messages.
func formatErrorBody(body io.Reader) string {
	respBody, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("(failed to read response body: %v)", err)
	}
	return string(respBody)
}

// ollamaEmbedRequest is the request body for the Ollama embed API.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse is the response from the Ollama embed API.
type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// ollamaTagsResponse is the response from the Ollama tags API.
type ollamaTagsResponse struct {
	Models []ollamaModel `json:"models"`
}

// ollamaModel represents a model in the Ollama tags response.
type ollamaModel struct {
	Name string `json:"name"`
}

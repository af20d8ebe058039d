package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Provider configuration
const (
	ProviderOllama = "ollama"
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// Default models
	DefaultOllamaModel = "nomic-embed-text"
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultLocalModel  = "local-hash"

	// Default endpoints
	DefaultOllamaURL = "http://localhost:11434"
	DefaultJinaURL   = "https://api.jina.ai/v1/embeddings"
	DefaultOpenAIURL = "https://api.openai.com/v1/embeddings"

	// Dimensions
	OllamaDimension = 768
	JinaDimension   = 1024
	OpenAIDimension = 1536
	LocalDimension  = 384

	// Batch limits
	DefaultBatchSize   = 50
	MaxBatchSize       = 100
	DefaultConcurrency = 4

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0

	DefaultTimeout = 30 * time.Second
)

// transport is the HTTP plumbing shared by remote providers
type transport struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryConfig
}

func newTransport(cfg Config) transport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	t := transport{
		httpClient: &http.Client{Timeout: timeout},
		retry:      DefaultRetryConfig(),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(math.Ceil(cfg.RequestsPerSecond))
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return t
}

// postJSON sends body to url and decodes a 200 response into out. Each
// attempt waits on the rate limiter first.
func (t *transport) postJSON(ctx context.Context, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	_, err = retryWithBackoff(ctx, t.retry, func() (struct{}, error) {
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return struct{}{}, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return struct{}{}, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := t.httpClient.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("api call: %w", err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return struct{}{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return struct{}{}, fmt.Errorf("decode response: %w", err)
		}
		return struct{}{}, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	return nil
}

func (t *transport) close() {
	t.httpClient.CloseIdleConnections()
}

// APIProvider implements Embedder for OpenAI-compatible embedding APIs
// (OpenAI and Jina AI share the request and response format).
type APIProvider struct {
	transport
	name      string
	apiKey    string
	model     string
	url       string
	dimension int
	cache     *Cache
}

// NewJinaProvider creates a new Jina AI embedder
func NewJinaProvider(cfg Config, cache *Cache) (*APIProvider, error) {
	return newAPIProvider(cfg, cache, ProviderJina, DefaultJinaModel, DefaultJinaURL, JinaDimension)
}

// NewOpenAIProvider creates a new OpenAI embedder
func NewOpenAIProvider(cfg Config, cache *Cache) (*APIProvider, error) {
	return newAPIProvider(cfg, cache, ProviderOpenAI, DefaultOpenAIModel, DefaultOpenAIURL, OpenAIDimension)
}

func newAPIProvider(cfg Config, cache *Cache, name, model, url string, dimension int) (*APIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s requires an API key", ErrNoProviderEnabled, name)
	}
	if cfg.Model != "" {
		model = cfg.Model
	}
	if cfg.BaseURL != "" {
		url = cfg.BaseURL
	}
	if cfg.Dimension > 0 {
		dimension = cfg.Dimension
	}
	return &APIProvider{
		transport: newTransport(cfg),
		name:      name,
		apiKey:    cfg.APIKey,
		model:     model,
		url:       url,
		dimension: dimension,
		cache:     cache,
	}, nil
}

func (p *APIProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return single(ctx, p, req)
}

func (p *APIProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	embeddings, err := cachedBatch(ctx, p.cache, req.Texts, model, p.callAPI)
	if err != nil {
		return nil, err
	}
	return &BatchEmbeddingResponse{Embeddings: embeddings, Provider: p.name, Model: model}, nil
}

func (p *APIProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}
	body := map[string]any{"input": texts, "model": model}
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	if err := p.postJSON(ctx, p.url, headers, body, &apiResp); err != nil {
		return nil, err
	}

	// Responses carry an index per input; do not rely on array order
	sort.SliceStable(apiResp.Data, func(i, j int) bool {
		return apiResp.Data[i].Index < apiResp.Data[j].Index
	})

	if apiResp.Model != "" {
		model = apiResp.Model
	}
	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		embeddings[i] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  p.name,
			Model:     model,
		}
	}
	return embeddings, nil
}

func (p *APIProvider) Dimension() int {
	return p.dimension
}

func (p *APIProvider) Provider() string {
	return p.name
}

func (p *APIProvider) Model() string {
	return p.model
}

func (p *APIProvider) Close() error {
	p.close()
	return nil
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}

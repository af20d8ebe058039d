package embedder

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// OllamaProvider implements Embedder against a local Ollama server.
// The /api/embeddings endpoint takes one prompt per request, so batches fan
// out over a bounded number of concurrent requests.
type OllamaProvider struct {
	transport
	baseURL     string
	model       string
	dimension   int
	concurrency int
	cache       *Cache
}

// NewOllamaProvider creates an embedder for an Ollama server
func NewOllamaProvider(cfg Config, cache *Cache) (*OllamaProvider, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = OllamaDimension
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &OllamaProvider{
		transport:   newTransport(cfg),
		baseURL:     baseURL,
		model:       model,
		dimension:   dimension,
		concurrency: concurrency,
		cache:       cache,
	}, nil
}

func (o *OllamaProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return single(ctx, o, req)
}

func (o *OllamaProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = o.model
	}

	embeddings, err := cachedBatch(ctx, o.cache, req.Texts, model, o.embedAll)
	if err != nil {
		return nil, err
	}
	return &BatchEmbeddingResponse{Embeddings: embeddings, Provider: ProviderOllama, Model: model}, nil
}

// embedAll embeds texts concurrently; each goroutine writes only its own slot
func (o *OllamaProvider) embedAll(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	out := make([]*Embedding, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			emb, err := o.callAPI(gctx, text, model)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			out[i] = emb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *OllamaProvider) callAPI(ctx context.Context, text, model string) (*Embedding, error) {
	var apiResp struct {
		Embedding []float32 `json:"embedding"`
	}
	body := map[string]string{"model": model, "prompt": text}
	if err := o.postJSON(ctx, o.baseURL+"/api/embeddings", nil, body, &apiResp); err != nil {
		return nil, err
	}
	if len(apiResp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding from %s", ErrProviderFailed, model)
	}
	return &Embedding{
		Vector:    apiResp.Embedding,
		Dimension: len(apiResp.Embedding),
		Provider:  ProviderOllama,
		Model:     model,
	}, nil
}

func (o *OllamaProvider) Dimension() int {
	return o.dimension
}

func (o *OllamaProvider) Provider() string {
	return ProviderOllama
}

func (o *OllamaProvider) Model() string {
	return o.model
}

func (o *OllamaProvider) Close() error {
	o.close()
	return nil
}

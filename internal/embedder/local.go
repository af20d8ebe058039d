package embedder

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// LocalProvider embeds text offline with the hashing trick: each lowercased
// word increments one bucket of a fixed-size vector. Texts sharing words end
// up close under cosine similarity, which is enough to run without a model.
type LocalProvider struct {
	model     string
	dimension int
	cache     *Cache
}

// NewLocalProvider creates a new local embedder
func NewLocalProvider(cfg Config, cache *Cache) (*LocalProvider, error) {
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = LocalDimension
	}
	model := cfg.Model
	if model == "" {
		model = DefaultLocalModel
	}
	return &LocalProvider{model: model, dimension: dimension, cache: cache}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return single(ctx, l, req)
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = l.model
	}

	embeddings, err := cachedBatch(ctx, l.cache, req.Texts, model, func(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
		out := make([]*Embedding, len(texts))
		for i, text := range texts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out[i] = &Embedding{
				Vector:    HashVector(text, l.dimension),
				Dimension: l.dimension,
				Provider:  ProviderLocal,
				Model:     model,
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return &BatchEmbeddingResponse{Embeddings: embeddings, Provider: ProviderLocal, Model: model}, nil
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// HashVector returns the unit-length bag-of-words vector of text. Text with
// no words maps to a zero vector.
func HashVector(text string, dimension int) []float32 {
	vec := make([]float32, dimension)
	if dimension <= 0 {
		return vec
	}
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(dimension)]++
	}
	return NormalizeVector(vec)
}

// Package embeddertest provides a deterministic in-process Embedder for tests.
package embeddertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/docdrift-mcp/internal/embedder"
)

// Dimension is the vector size produced by Embedder
const Dimension = 64

// Embedder embeds with embedder.HashVector so that texts sharing words rank
// close together. Fail makes every call return an error.
type Embedder struct {
	mu    sync.Mutex
	err   error
	calls int
	texts int
}

// New returns a ready mock embedder
func New() *Embedder {
	return &Embedder{}
}

// Calls returns the number of batch calls made
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Texts returns the number of texts embedded
func (e *Embedder) Texts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.texts
}

// Fail sets the error returned by subsequent calls; nil restores success
func (e *Embedder) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *Embedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	if err := embedder.ValidateRequest(req); err != nil {
		return nil, err
	}
	resp, err := e.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: []string{req.Text}})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

func (e *Embedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	if err := embedder.ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.calls++
	failure := e.err
	if failure == nil {
		e.texts += len(req.Texts)
	}
	e.mu.Unlock()
	if failure != nil {
		return nil, fmt.Errorf("%w: %v", embedder.ErrProviderFailed, failure)
	}

	out := make([]*embedder.Embedding, len(req.Texts))
	for i, text := range req.Texts {
		out[i] = &embedder.Embedding{
			Vector:    embedder.HashVector(text, Dimension),
			Dimension: Dimension,
			Provider:  "test",
			Model:     "hash",
			Hash:      embedder.ComputeHash(text),
		}
	}
	return &embedder.BatchEmbeddingResponse{Embeddings: out, Provider: "test", Model: "hash"}, nil
}

func (e *Embedder) Dimension() int   { return Dimension }
func (e *Embedder) Provider() string { return "test" }
func (e *Embedder) Model() string    { return "hash" }
func (e *Embedder) Close() error     { return nil }

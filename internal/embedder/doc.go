// Package embedder generates vector embeddings for documentation chunks and
// diff summaries.
//
// Four providers are available:
//
//   - ollama: a local Ollama server (/api/embeddings, nomic-embed-text, 768 dimensions). Default.
//   - jina: Jina AI (jina-embeddings-v3, 1024 dimensions)
//   - openai: OpenAI (text-embedding-3-small, 1536 dimensions)
//   - local: offline hashing-trick vectors (384 dimensions)
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{Provider: embedder.ProviderOllama})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: []string{"search_document: # Install", "search_document: # Usage"},
//	})
//
// # Provider Selection
//
// With Config.Provider empty, New picks Jina when JinaAPIKey is set, else
// OpenAI when OpenAIAPIKey is set, else Ollama.
//
// # Caching
//
// Every provider consults an LRU cache keyed by model and content hash
// before calling out; only cache misses reach the API.
//
// # Error Handling
//
// Remote calls retry with exponential backoff on network errors, 429 and 5xx.
// Other client errors fail immediately. Exhausted retries wrap
// ErrProviderFailed:
//
//	resp, err := emb.GenerateBatch(ctx, req)
//	if errors.Is(err, embedder.ErrProviderFailed) {
//	    // provider unreachable
//	}
//
// Config.RequestsPerSecond throttles requests with a token bucket and
// Config.Concurrency bounds the parallel Ollama requests of one batch.
package embedder

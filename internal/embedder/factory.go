package embedder

import (
	"fmt"
	"strings"
	"time"
)

// Config holds embedder configuration
type Config struct {
	Provider          string // ollama, jina, openai, local; empty auto-detects
	APIKey            string
	JinaAPIKey        string // Used for auto-detection when APIKey is empty
	OpenAIAPIKey      string
	Model             string
	BaseURL           string
	Dimension         int
	CacheSize         int
	RequestsPerSecond float64
	Concurrency       int
	Timeout           time.Duration
}

// DetectProvider returns the provider New would build for cfg.
// Priority: explicit provider, then a Jina key, then an OpenAI key, then Ollama.
func DetectProvider(cfg Config) string {
	if cfg.Provider != "" {
		return strings.ToLower(cfg.Provider)
	}
	if cfg.JinaAPIKey != "" {
		return ProviderJina
	}
	if cfg.OpenAIAPIKey != "" {
		return ProviderOpenAI
	}
	return ProviderOllama
}

// New creates an embedder from configuration
func New(cfg Config) (Embedder, error) {
	cache := NewCache(cfg.CacheSize)

	provider := DetectProvider(cfg)
	switch provider {
	case ProviderOllama:
		return NewOllamaProvider(cfg, cache)
	case ProviderJina:
		if cfg.APIKey == "" {
			cfg.APIKey = cfg.JinaAPIKey
		}
		return NewJinaProvider(cfg, cache)
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			cfg.APIKey = cfg.OpenAIAPIKey
		}
		return NewOpenAIProvider(cfg, cache)
	case ProviderLocal:
		return NewLocalProvider(cfg, cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, cfg.Provider)
	}
}

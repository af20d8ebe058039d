// Package config loads docdrift settings from defaults, an optional TOML file
// and the environment, in that order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/docdrift-mcp/internal/analyzer"
	"github.com/dshills/docdrift-mcp/internal/chunker"
	"github.com/dshills/docdrift-mcp/internal/embedder"
	"github.com/dshills/docdrift-mcp/internal/indexer"
	"github.com/dshills/docdrift-mcp/internal/searcher"
)

const (
	// DirName is the per-user directory under the home directory
	DirName = ".docdrift"
	// FileName is the config file name inside DirName
	FileName = "config.toml"
	// DBFileName is the default database file name inside DirName
	DBFileName = "docdrift.db"

	DefaultDebounce = 500 * time.Millisecond
)

// Environment variables read by Load
const (
	EnvDBPath            = "DOCDRIFT_DB_PATH"
	EnvProvider          = "DOCDRIFT_EMBEDDING_PROVIDER"
	EnvOllamaURL         = "DOCDRIFT_OLLAMA_URL"
	EnvOllamaModel       = "DOCDRIFT_OLLAMA_MODEL"
	EnvJinaAPIKey        = "JINA_API_KEY"
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
	EnvChunkSize         = "DOCDRIFT_CHUNK_SIZE"
	EnvChunkOverlap      = "DOCDRIFT_CHUNK_OVERLAP"
	EnvRequestsPerSecond = "DOCDRIFT_EMBEDDING_RPS"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete docdrift configuration
type Config struct {
	Database    DatabaseConfig    `toml:"database"`
	Embedder    EmbedderConfig    `toml:"embedder"`
	Chunker     ChunkerConfig     `toml:"chunker"`
	Collections CollectionsConfig `toml:"collections"`
	Search      SearchConfig      `toml:"search"`
	Analyzer    AnalyzerConfig    `toml:"analyzer"`
	Watch       WatchConfig       `toml:"watch"`
}

type DatabaseConfig struct {
	Path string `toml:"path" comment:"SQLite database file; ~ expands to the home directory"`
}

type EmbedderConfig struct {
	Provider          string  `toml:"provider" comment:"ollama, jina, openai or local; empty picks one from the available API keys"`
	Model             string  `toml:"model" comment:"Empty uses the provider's default model"`
	URL               string  `toml:"url" comment:"Empty uses the provider's default endpoint"`
	JinaAPIKey        string  `toml:"jina_api_key"`
	OpenAIAPIKey      string  `toml:"openai_api_key"`
	Dimension         int     `toml:"dimension"`
	CacheSize         int     `toml:"cache_size"`
	RequestsPerSecond float64 `toml:"requests_per_second" comment:"0 disables rate limiting"`
	Concurrency       int     `toml:"concurrency"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

type ChunkerConfig struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

type CollectionsConfig struct {
	Docs  string `toml:"docs"`
	Diffs string `toml:"diffs"`
}

type SearchConfig struct {
	CacheSize       int `toml:"cache_size"`
	CacheTTLSeconds int `toml:"cache_ttl_seconds" comment:"0 disables the search cache"`
}

// AnalyzerConfig extends the built-in significance rules
type AnalyzerConfig struct {
	ExtraKeywords           []string `toml:"extra_keywords"`
	ExtraDefinitionPatterns []string `toml:"extra_definition_patterns" comment:"Regular expressions matched per line, anchor with ^"`
	ExtraCodeExtensions     []string `toml:"extra_code_extensions"`
}

type WatchConfig struct {
	DebounceMillis int `toml:"debounce_millis"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: filepath.Join("~", DirName, DBFileName)},
		Embedder: EmbedderConfig{
			CacheSize:      embedder.DefaultCacheSize,
			Concurrency:    embedder.DefaultConcurrency,
			TimeoutSeconds: int(embedder.DefaultTimeout / time.Second),
		},
		Chunker: ChunkerConfig{
			Size:    chunker.DefaultChunkSize,
			Overlap: chunker.DefaultOverlap,
		},
		Collections: CollectionsConfig{
			Docs:  indexer.DefaultDocsCollection,
			Diffs: indexer.DefaultDiffCollection,
		},
		Search: SearchConfig{
			CacheSize:       searcher.DefaultCacheSize,
			CacheTTLSeconds: int(searcher.DefaultCacheTTL / time.Second),
		},
		Watch: WatchConfig{DebounceMillis: int(DefaultDebounce / time.Millisecond)},
	}
}

// DefaultPath returns ~/.docdrift/config.toml
func DefaultPath() string {
	return filepath.Join(homeDir(), DirName, FileName)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// Load builds the configuration. An empty path reads the default file if it
// exists; an explicit path must exist. Environment variables override the file.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.readFile(ExpandHome(path)); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("%w: %s: unknown keys:\n%s", ErrInvalidConfig, path, strict.String())
		}
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

// ApplyEnv overrides settings from environment variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str(EnvDBPath, &c.Database.Path)
	str(EnvProvider, &c.Embedder.Provider)
	str(EnvOllamaURL, &c.Embedder.URL)
	str(EnvOllamaModel, &c.Embedder.Model)
	str(EnvJinaAPIKey, &c.Embedder.JinaAPIKey)
	str(EnvOpenAIAPIKey, &c.Embedder.OpenAIAPIKey)

	for key, dst := range map[string]*int{
		EnvChunkSize:    &c.Chunker.Size,
		EnvChunkOverlap: &c.Chunker.Overlap,
	} {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
		}
		*dst = n
	}

	if v, ok := lookup(EnvRequestsPerSecond); ok && v != "" {
		rps, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, EnvRequestsPerSecond, v)
		}
		c.Embedder.RequestsPerSecond = rps
	}
	return nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("%w: database path is required", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Embedder.Provider) {
	case "", embedder.ProviderOllama, embedder.ProviderJina, embedder.ProviderOpenAI, embedder.ProviderLocal:
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, c.Embedder.Provider)
	}
	if c.Embedder.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests_per_second must not be negative", ErrInvalidConfig)
	}
	if c.Chunker.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.Chunker.Size)
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
		return fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", ErrInvalidConfig, c.Chunker.Size, c.Chunker.Overlap)
	}
	if c.Collections.Docs == "" || c.Collections.Diffs == "" {
		return fmt.Errorf("%w: collection names are required", ErrInvalidConfig)
	}
	if c.Search.CacheTTLSeconds < 0 || c.Watch.DebounceMillis < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	if _, err := c.AnalyzerRules(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// DBPath returns the database path with ~ expanded
func (c *Config) DBPath() string {
	return ExpandHome(c.Database.Path)
}

// EmbedderConfig converts the embedder section for embedder.New
func (c *Config) EmbedderConfig() embedder.Config {
	e := c.Embedder
	return embedder.Config{
		Provider:          e.Provider,
		JinaAPIKey:        e.JinaAPIKey,
		OpenAIAPIKey:      e.OpenAIAPIKey,
		Model:             e.Model,
		BaseURL:           e.URL,
		Dimension:         e.Dimension,
		CacheSize:         e.CacheSize,
		RequestsPerSecond: e.RequestsPerSecond,
		Concurrency:       e.Concurrency,
		Timeout:           time.Duration(e.TimeoutSeconds) * time.Second,
	}
}

// ChunkerOptions returns the chunker settings as options
func (c *Config) ChunkerOptions() []chunker.Option {
	return []chunker.Option{
		chunker.WithChunkSize(c.Chunker.Size),
		chunker.WithOverlap(c.Chunker.Overlap),
	}
}

// AnalyzerRules returns the default rules extended by the analyzer section
func (c *Config) AnalyzerRules() (analyzer.Rules, error) {
	rules := analyzer.DefaultRules().
		WithKeywords(c.Analyzer.ExtraKeywords...).
		WithCodeExtensions(c.Analyzer.ExtraCodeExtensions...)
	return rules.WithDefinitionPatterns(c.Analyzer.ExtraDefinitionPatterns...)
}

// SearchCacheTTL returns the search cache lifetime
func (c *Config) SearchCacheTTL() time.Duration {
	return time.Duration(c.Search.CacheTTLSeconds) * time.Second
}

// Debounce returns the watcher debounce interval
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMillis) * time.Millisecond
}

// Write saves the configuration as TOML, creating the directory if needed
func (c *Config) Write(path string) error {
	path = ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

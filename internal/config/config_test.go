package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docdrift-mcp/internal/chunker"
	"github.com/dshills/docdrift-mcp/internal/embedder"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, chunker.DefaultChunkSize, cfg.Chunker.Size)
	assert.Equal(t, chunker.DefaultOverlap, cfg.Chunker.Overlap)
	assert.Equal(t, "documents", cfg.Collections.Docs)
	assert.Equal(t, "git_changes", cfg.Collections.Diffs)
	assert.Equal(t, time.Hour, cfg.SearchCacheTTL())
	assert.Equal(t, DefaultDebounce, cfg.Debounce())
	assert.Equal(t, filepath.Join(home, DirName, DBFileName), cfg.DBPath())
	assert.Equal(t, embedder.ProviderOllama, embedder.DetectProvider(cfg.EmbedderConfig()))
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
[database]
path = "/tmp/docs.db"

[embedder]
provider = "local"
dimension = 128
requests_per_second = 2.5
timeout_seconds = 5

[chunker]
size = 800
overlap = 80

[collections]
docs = "handbook"

[analyzer]
extra_keywords = ["Middleware"]
extra_definition_patterns = ['^\s*fn\s+\w+']
extra_code_extensions = ["kt"]
`)

	cfg, err := load(path, env(nil))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/docs.db", cfg.DBPath())
	assert.Equal(t, "handbook", cfg.Collections.Docs)
	assert.Equal(t, "git_changes", cfg.Collections.Diffs, "unset keys keep defaults")
	assert.Equal(t, 800, cfg.Chunker.Size)
	assert.Equal(t, 80, cfg.Chunker.Overlap)

	ec := cfg.EmbedderConfig()
	assert.Equal(t, "local", ec.Provider)
	assert.Equal(t, 128, ec.Dimension)
	assert.Equal(t, 2.5, ec.RequestsPerSecond)
	assert.Equal(t, 5*time.Second, ec.Timeout)

	rules, err := cfg.AnalyzerRules()
	require.NoError(t, err)
	assert.Contains(t, rules.Keywords, "middleware")
	assert.True(t, rules.IsCodeFile("Main.kt"))
	assert.True(t, rules.DefinitionPattern.MatchString("fn main"))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[database]
path = "/tmp/file.db"

[chunker]
size = 800
overlap = 80
`)

	cfg, err := load(path, env(map[string]string{
		EnvDBPath:            "/tmp/env.db",
		EnvProvider:          "ollama",
		EnvOllamaURL:         "http://gpu:11434",
		EnvOllamaModel:       "mxbai-embed-large",
		EnvJinaAPIKey:        "jina-key",
		EnvChunkSize:         "1200",
		EnvChunkOverlap:      " 100 ",
		EnvRequestsPerSecond: "4",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env.db", cfg.DBPath())
	assert.Equal(t, 1200, cfg.Chunker.Size)
	assert.Equal(t, 100, cfg.Chunker.Overlap)
	ec := cfg.EmbedderConfig()
	assert.Equal(t, "ollama", ec.Provider)
	assert.Equal(t, "http://gpu:11434", ec.BaseURL)
	assert.Equal(t, "mxbai-embed-large", ec.Model)
	assert.Equal(t, "jina-key", ec.JinaAPIKey)
	assert.Equal(t, 4.0, ec.RequestsPerSecond)
	assert.Equal(t, embedder.ProviderOllama, embedder.DetectProvider(ec), "an explicit provider wins over keys")
}

func TestLoad_APIKeySelectsProvider(t *testing.T) {
	cfg, err := load(writeConfig(t, ""), env(map[string]string{EnvOpenAIAPIKey: "sk-test"}))
	require.NoError(t, err)
	assert.Equal(t, embedder.ProviderOpenAI, embedder.DetectProvider(cfg.EmbedderConfig()))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "missing.toml"), env(nil))
	assert.ErrorIs(t, err, os.ErrNotExist, "an explicit path must exist")

	t.Setenv("HOME", t.TempDir())
	cfg, err := load("", env(nil))
	require.NoError(t, err, "the default file is optional")
	assert.Equal(t, Default().Chunker, cfg.Chunker)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{name: "unknown key", content: "[chunker]\nsize = 10\nwidth = 3\n"},
		{name: "bad syntax", content: "[chunker\n"},
		{name: "wrong type", content: "[chunker]\nsize = \"big\"\n"},
		{name: "overlap too large", content: "[chunker]\nsize = 100\noverlap = 100\n"},
		{name: "zero size", content: "[chunker]\nsize = 0\n"},
		{name: "unknown provider", content: "[embedder]\nprovider = \"cohere\"\n"},
		{name: "negative rps", content: "[embedder]\nrequests_per_second = -1.0\n"},
		{name: "bad pattern", content: "[analyzer]\nextra_definition_patterns = [\"(\"]\n"},
		{name: "empty collection", content: "[collections]\ndocs = \"\"\n"},
		{name: "bad env int", env: map[string]string{EnvChunkSize: "lots"}},
		{name: "bad env rps", env: map[string]string{EnvRequestsPerSecond: "fast"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(writeConfig(t, tt.content), env(tt.env))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Collections.Docs = "handbook"
	cfg.Analyzer.ExtraKeywords = []string{"middleware"}

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, cfg.Write(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := load(path, env(nil))
	require.NoError(t, err)
	assert.Equal(t, cfg.Database, loaded.Database)
	assert.Equal(t, cfg.Chunker, loaded.Chunker)
	assert.Equal(t, cfg.Collections, loaded.Collections)
	assert.Equal(t, cfg.Search, loaded.Search)
	assert.Equal(t, cfg.Watch, loaded.Watch)
	assert.Equal(t, cfg.EmbedderConfig(), loaded.EmbedderConfig())
	assert.Equal(t, []string{"middleware"}, loaded.Analyzer.ExtraKeywords)
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, filepath.Join(home, ".docdrift", "x.db"), ExpandHome("~/.docdrift/x.db"))
	assert.Equal(t, "/abs/x.db", ExpandHome("/abs/x.db"))
	assert.Equal(t, "rel/~/x.db", ExpandHome("rel/~/x.db"))
	assert.Equal(t, filepath.Join(home, DirName, FileName), DefaultPath())
}

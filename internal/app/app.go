// Package app wires the storage, embedder, vector store and the services
// built on them from a configuration. The MCP server and the CLI share it.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/docdrift-mcp/internal/analyzer"
	"github.com/dshills/docdrift-mcp/internal/chunker"
	"github.com/dshills/docdrift-mcp/internal/config"
	"github.com/dshills/docdrift-mcp/internal/embedder"
	"github.com/dshills/docdrift-mcp/internal/gitdiff"
	"github.com/dshills/docdrift-mcp/internal/indexer"
	"github.com/dshills/docdrift-mcp/internal/logging"
	"github.com/dshills/docdrift-mcp/internal/progress"
	"github.com/dshills/docdrift-mcp/internal/searcher"
	"github.com/dshills/docdrift-mcp/internal/storage"
	"github.com/dshills/docdrift-mcp/internal/suggest"
	"github.com/dshills/docdrift-mcp/internal/vectorstore"
	"github.com/dshills/docdrift-mcp/internal/watcher"
)

// MemoryDB is the database path that keeps everything in memory
const MemoryDB = ":memory:"

// App holds the shared components. The same store and embedder back the
// indexer, the suggestion engine and the searcher.
type App struct {
	Config   *config.Config
	Storage  *storage.SQLiteStorage
	Embedder embedder.Embedder
	Store    *vectorstore.SQLiteStore
	Indexer  *indexer.Indexer
	Suggest  *suggest.Engine
	Searcher *searcher.Searcher
}

// Option configures New
type Option func(*options)

type options struct {
	emb  embedder.Embedder
	open gitdiff.Opener
}

// WithEmbedder uses emb instead of building one from the configuration
func WithEmbedder(emb embedder.Embedder) Option {
	return func(o *options) { o.emb = emb }
}

// WithOpener replaces how git repositories are opened
func WithOpener(open gitdiff.Opener) Option {
	return func(o *options) { o.open = open }
}

// New opens the database and builds every component from cfg
func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := options{open: gitdiff.Open}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rules, err := cfg.AnalyzerRules()
	if err != nil {
		return nil, err
	}

	dbPath := cfg.DBPath()
	if dbPath != MemoryDB {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb := o.emb
	if emb == nil {
		emb, err = embedder.New(cfg.EmbedderConfig())
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
	}
	logging.Debugf("Embedder: %s (%s, %d dimensions)", emb.Provider(), emb.Model(), emb.Dimension())

	store := vectorstore.New(db, emb)
	an := analyzer.New(rules)

	srch := searcher.NewSearcher(store,
		searcher.WithCacheTTL(cfg.SearchCacheTTL()),
		searcher.WithCacheSize(cfg.Search.CacheSize),
	)
	store.OnWrite(srch.InvalidateCollection)

	return &App{
		Config:   cfg,
		Storage:  db,
		Embedder: emb,
		Store:    store,
		Indexer: indexer.New(store, o.open,
			indexer.WithChunker(chunker.New(cfg.ChunkerOptions()...)),
			indexer.WithAnalyzer(an),
		),
		Suggest:  suggest.New(store, o.open, an),
		Searcher: srch,
	}, nil
}

// NewWatcher watches folder and keeps collection in sync with it
func (a *App) NewWatcher(folder, collection string, reporter progress.Reporter) (*watcher.Watcher, error) {
	return watcher.New(folder, collection, a.Indexer,
		watcher.WithDebounce(a.Config.Debounce()),
		watcher.WithReporter(reporter),
	)
}

// Info describes the build and the active embedder
type Info struct {
	BuildMode        string
	Driver           string
	VectorExtension  bool
	EmbedderProvider string
	EmbedderModel    string
	Dimension        int
}

// Info returns build and embedder details
func (a *App) Info() Info {
	return Info{
		BuildMode:        storage.BuildMode,
		Driver:           storage.DriverName,
		VectorExtension:  storage.VectorExtensionAvailable,
		EmbedderProvider: a.Embedder.Provider(),
		EmbedderModel:    a.Embedder.Model(),
		Dimension:        a.Embedder.Dimension(),
	}
}

// Close releases the embedder and the database
func (a *App) Close() error {
	embErr := a.Embedder.Close()
	dbErr := a.Storage.Close()
	if dbErr != nil {
		return fmt.Errorf("failed to close database: %w", dbErr)
	}
	return embErr
}

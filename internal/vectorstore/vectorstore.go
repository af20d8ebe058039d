// Package vectorstore stores text records with their embeddings in named
// collections and answers nearest-neighbour queries over them.
package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dshills/docdrift-mcp/internal/embedder"
	"github.com/dshills/docdrift-mcp/internal/storage"
)

var (
	// ErrUnavailable signals that the database or the embedding provider
	// cannot serve requests. Callers abort the whole operation on it.
	ErrUnavailable = errors.New("vector store unavailable")
	// ErrCollectionNotFound is returned when deleting an unknown collection
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrInvalidRecord is returned for records without id or content
	ErrInvalidRecord = errors.New("invalid record")
)

// Record is one document to store
type Record struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// FilePath returns the record's source file from its metadata
func (r Record) FilePath() string {
	s, _ := r.Metadata["file_path"].(string)
	return s
}

// Match is one query hit; lower distance is closer
type Match struct {
	ID       string
	Content  string
	Metadata map[string]any
	Distance float64
}

// Store is the vector store consumed by the indexer, suggestion engine and searcher
type Store interface {
	// Upsert embeds and writes records atomically; existing ids are overwritten
	Upsert(ctx context.Context, collection string, records []Record) error
	// Query returns up to k records nearest to text. An unknown collection yields no matches.
	Query(ctx context.Context, collection, text string, k int) ([]Match, error)
	ListCollections(ctx context.Context) ([]string, error)
	DeleteCollection(ctx context.Context, name string) error
	// Prune deletes records of filePath whose ids are not in keep
	Prune(ctx context.Context, collection, filePath string, keep []string) (int, error)
}

// Option configures a SQLiteStore
type Option func(*SQLiteStore)

// WithBatchSize sets how many texts are sent to the embedder per call
func WithBatchSize(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// SQLiteStore implements Store over internal/storage and an embedder
type SQLiteStore struct {
	db        storage.Storage
	emb       embedder.Embedder
	batchSize int

	mu      sync.RWMutex
	onWrite []func(collection string)
}

// New creates a store writing to db and embedding with emb
func New(db storage.Storage, emb embedder.Embedder, opts ...Option) *SQLiteStore {
	s := &SQLiteStore{
		db:        db,
		emb:       emb,
		batchSize: embedder.DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnWrite registers fn to be called after any change to a collection
func (s *SQLiteStore) OnWrite(fn func(collection string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onWrite = append(s.onWrite, fn)
}

func (s *SQLiteStore) notify(collection string) {
	s.mu.RLock()
	hooks := slices.Clone(s.onWrite)
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(collection)
	}
}

// unavailable classifies a collaborator failure. Context errors pass through.
func unavailable(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func validCollection(name string) error {
	if strings.TrimSpace(name) == "" {
		return storage.ErrInvalidName
	}
	return nil
}

// Upsert embeds all records first, then writes them in a single transaction
func (s *SQLiteStore) Upsert(ctx context.Context, collection string, records []Record) error {
	if err := validCollection(collection); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	for i, r := range records {
		if r.ID == "" || r.Content == "" {
			return fmt.Errorf("%w: record %d needs an id and content", ErrInvalidRecord, i)
		}
	}

	vectors, err := s.embed(ctx, records)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return unavailable(ctx, "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	col, err := tx.EnsureCollection(ctx, collection)
	if err != nil {
		return unavailable(ctx, "ensure collection", err)
	}

	for i, r := range records {
		meta := r.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("%w: metadata of %s: %v", ErrInvalidRecord, r.ID, err)
		}

		doc := &storage.Document{
			CollectionID: col.ID,
			DocID:        r.ID,
			FilePath:     r.FilePath(),
			Content:      r.Content,
			Metadata:     string(metaJSON),
		}
		if err := tx.UpsertDocument(ctx, doc); err != nil {
			return unavailable(ctx, "write document", err)
		}

		v := vectors[i]
		if err := tx.UpsertEmbedding(ctx, &storage.Embedding{
			DocumentID: doc.ID,
			Vector:     storage.EncodeVector(v.Vector),
			Dimension:  len(v.Vector),
			Provider:   v.Provider,
			Model:      v.Model,
		}); err != nil {
			return unavailable(ctx, "write embedding", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable(ctx, "commit", err)
	}
	s.notify(collection)
	return nil
}

// embed returns one embedding per record, in record order
func (s *SQLiteStore) embed(ctx context.Context, records []Record) ([]*embedder.Embedding, error) {
	out := make([]*embedder.Embedding, 0, len(records))
	for start := 0; start < len(records); start += s.batchSize {
		end := min(start+s.batchSize, len(records))
		texts := make([]string, 0, end-start)
		for _, r := range records[start:end] {
			texts = append(texts, r.Content)
		}
		resp, err := s.emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			return nil, unavailable(ctx, "embed", err)
		}
		if len(resp.Embeddings) != len(texts) {
			return nil, unavailable(ctx, "embed", fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings)))
		}
		out = append(out, resp.Embeddings...)
	}
	return out, nil
}

// Query embeds text and ranks the collection by cosine distance
func (s *SQLiteStore) Query(ctx context.Context, collection, text string, k int) ([]Match, error) {
	if k <= 0 || text == "" {
		return []Match{}, nil
	}
	col, err := s.db.GetCollection(ctx, collection)
	if errors.Is(err, storage.ErrNotFound) {
		return []Match{}, nil
	}
	if err != nil {
		return nil, unavailable(ctx, "get collection", err)
	}

	emb, err := s.emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return nil, unavailable(ctx, "embed query", err)
	}

	hits, err := s.db.SearchVector(ctx, col.ID, emb.Vector, k)
	if err != nil {
		return nil, unavailable(ctx, "search", err)
	}

	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		doc, err := s.db.GetDocumentByID(ctx, hit.DocumentID)
		if err != nil {
			return nil, unavailable(ctx, "load document", err)
		}
		meta := map[string]any{}
		if doc.Metadata != "" {
			if err := json.Unmarshal([]byte(doc.Metadata), &meta); err != nil {
				return nil, fmt.Errorf("metadata of %s: %w", doc.DocID, err)
			}
		}
		matches = append(matches, Match{
			ID:       doc.DocID,
			Content:  doc.Content,
			Metadata: meta,
			Distance: 1 - hit.SimilarityScore,
		})
	}
	return matches, nil
}

// ListCollections returns collection names in name order
func (s *SQLiteStore) ListCollections(ctx context.Context) ([]string, error) {
	cols, err := s.db.ListCollections(ctx)
	if err != nil {
		return nil, unavailable(ctx, "list collections", err)
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names, nil
}

// DeleteCollection removes a collection and everything in it
func (s *SQLiteStore) DeleteCollection(ctx context.Context, name string) error {
	if err := validCollection(name); err != nil {
		return err
	}
	err := s.db.DeleteCollection(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return unavailable(ctx, "delete collection", err)
	}
	s.notify(name)
	return nil
}

// Prune removes stale records left behind when a file shrinks or changes
func (s *SQLiteStore) Prune(ctx context.Context, collection, filePath string, keep []string) (int, error) {
	col, err := s.db.GetCollection(ctx, collection)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, unavailable(ctx, "get collection", err)
	}

	ids, err := s.db.ListDocumentIDsByFile(ctx, col.ID, filePath)
	if err != nil {
		return 0, unavailable(ctx, "list documents", err)
	}

	var stale []string
	for _, id := range ids {
		if !slices.Contains(keep, id) {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return 0, unavailable(ctx, "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, id := range stale {
		if err := tx.DeleteDocument(ctx, col.ID, id); err != nil {
			return 0, unavailable(ctx, "delete document", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, unavailable(ctx, "commit", err)
	}
	s.notify(collection)
	return len(stale), nil
}

// Status reports database statistics
func (s *SQLiteStore) Status(ctx context.Context) (*storage.Status, error) {
	st, err := s.db.GetStatus(ctx)
	if err != nil {
		return nil, unavailable(ctx, "status", err)
	}
	return st, nil
}

// Embedder returns the embedder used for records and queries
func (s *SQLiteStore) Embedder() embedder.Embedder {
	return s.emb
}

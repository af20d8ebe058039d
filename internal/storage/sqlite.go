package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidName is returned for an empty collection name
	ErrInvalidName = errors.New("collection name is required")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Collection operations

func ensureCollectionWithQuerier(ctx context.Context, q querier, name string) (*Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}
	query := `
		INSERT INTO collections (name, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`
	now := time.Now()
	if _, err := q.ExecContext(ctx, query, name, now, now); err != nil {
		return nil, fmt.Errorf("failed to ensure collection %s: %w", name, err)
	}
	return getCollectionWithQuerier(ctx, q, name)
}

func (s *SQLiteStorage) EnsureCollection(ctx context.Context, name string) (*Collection, error) {
	return ensureCollectionWithQuerier(ctx, s.querier(), name)
}

func getCollectionWithQuerier(ctx context.Context, q querier, name string) (*Collection, error) {
	query := `SELECT id, name, created_at, updated_at FROM collections WHERE name = ?`
	var c Collection
	err := q.QueryRowContext(ctx, query, name).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStorage) GetCollection(ctx context.Context, name string) (*Collection, error) {
	return getCollectionWithQuerier(ctx, s.querier(), name)
}

func listCollectionsWithQuerier(ctx context.Context, q querier) ([]*Collection, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, created_at, updated_at FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	collections := make([]*Collection, 0)
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		collections = append(collections, &c)
	}
	return collections, rows.Err()
}

func (s *SQLiteStorage) ListCollections(ctx context.Context) ([]*Collection, error) {
	return listCollectionsWithQuerier(ctx, s.querier())
}

// deleteCollectionWithQuerier removes a collection; documents and embeddings cascade
func deleteCollectionWithQuerier(ctx context.Context, q querier, name string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteCollection(ctx context.Context, name string) error {
	return deleteCollectionWithQuerier(ctx, s.querier(), name)
}

// Document operations

// upsertDocumentWithQuerier inserts or replaces a document by (collection, doc id)
func upsertDocumentWithQuerier(ctx context.Context, q querier, doc *Document) error {
	if doc.Metadata == "" {
		doc.Metadata = "{}"
	}
	doc.ContentHash = sha256.Sum256([]byte(doc.Content))

	query := `
		INSERT INTO documents (collection_id, doc_id, file_path, content, metadata, content_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection_id, doc_id) DO UPDATE SET
			file_path = excluded.file_path,
			content = excluded.content,
			metadata = excluded.metadata,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		doc.CollectionID, doc.DocID, doc.FilePath, doc.Content, doc.Metadata,
		doc.ContentHash[:], now, now).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.DocID, err)
	}
	doc.UpdatedAt = now

	if _, err := q.ExecContext(ctx, `UPDATE collections SET updated_at = ? WHERE id = ?`, now, doc.CollectionID); err != nil {
		return fmt.Errorf("failed to touch collection: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertDocument(ctx context.Context, doc *Document) error {
	return upsertDocumentWithQuerier(ctx, s.querier(), doc)
}

const documentColumns = `id, collection_id, doc_id, file_path, content, metadata, content_hash, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var hash []byte
	if err := row.Scan(&doc.ID, &doc.CollectionID, &doc.DocID, &doc.FilePath, &doc.Content,
		&doc.Metadata, &hash, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	copy(doc.ContentHash[:], hash)
	return &doc, nil
}

func getDocumentWithQuerier(ctx context.Context, q querier, collectionID int64, docID string) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE collection_id = ? AND doc_id = ?`
	doc, err := scanDocument(q.QueryRowContext(ctx, query, collectionID, docID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return doc, err
}

func (s *SQLiteStorage) GetDocument(ctx context.Context, collectionID int64, docID string) (*Document, error) {
	return getDocumentWithQuerier(ctx, s.querier(), collectionID, docID)
}

func getDocumentByIDWithQuerier(ctx context.Context, q querier, id int64) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`
	doc, err := scanDocument(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return doc, err
}

func (s *SQLiteStorage) GetDocumentByID(ctx context.Context, id int64) (*Document, error) {
	return getDocumentByIDWithQuerier(ctx, s.querier(), id)
}

func listDocumentsWithQuerier(ctx context.Context, q querier, collectionID int64) ([]*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE collection_id = ? ORDER BY doc_id`
	rows, err := q.QueryContext(ctx, query, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	docs := make([]*Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStorage) ListDocuments(ctx context.Context, collectionID int64) ([]*Document, error) {
	return listDocumentsWithQuerier(ctx, s.querier(), collectionID)
}

func listDocumentIDsByFileWithQuerier(ctx context.Context, q querier, collectionID int64, filePath string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT doc_id FROM documents WHERE collection_id = ? AND file_path = ? ORDER BY doc_id`,
		collectionID, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents of %s: %w", filePath, err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStorage) ListDocumentIDsByFile(ctx context.Context, collectionID int64, filePath string) ([]string, error) {
	return listDocumentIDsByFileWithQuerier(ctx, s.querier(), collectionID, filePath)
}

func deleteDocumentWithQuerier(ctx context.Context, q querier, collectionID int64, docID string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM documents WHERE collection_id = ? AND doc_id = ?`, collectionID, docID)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", docID, err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteDocument(ctx context.Context, collectionID int64, docID string) error {
	return deleteDocumentWithQuerier(ctx, s.querier(), collectionID, docID)
}

// Embedding operations

// upsertEmbeddingWithQuerier is the internal implementation that uses a querier
func upsertEmbeddingWithQuerier(ctx context.Context, q querier, embedding *Embedding) error {
	query := `
		INSERT INTO embeddings (document_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		embedding.DocumentID, embedding.Vector, embedding.Dimension,
		embedding.Provider, embedding.Model, now)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}

	if embedding.ID == 0 {
		id, err := result.LastInsertId()
		if err == nil {
			embedding.ID = id
		}
	}

	embedding.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return upsertEmbeddingWithQuerier(ctx, s.querier(), embedding)
}

func getEmbeddingWithQuerier(ctx context.Context, q querier, documentID int64) (*Embedding, error) {
	query := `
		SELECT id, document_id, vector, dimension, provider, model, created_at
		FROM embeddings
		WHERE document_id = ?
	`
	var embedding Embedding
	err := q.QueryRowContext(ctx, query, documentID).Scan(
		&embedding.ID, &embedding.DocumentID, &embedding.Vector,
		&embedding.Dimension, &embedding.Provider, &embedding.Model,
		&embedding.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &embedding, nil
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, documentID int64) (*Embedding, error) {
	return getEmbeddingWithQuerier(ctx, s.querier(), documentID)
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, collectionID int64, queryVector []float32, limit int) ([]VectorResult, error) {
	return searchVector(ctx, s.querier(), collectionID, queryVector, limit)
}

// Status operations

func getStatusWithQuerier(ctx context.Context, q querier) (*Status, error) {
	status := &Status{BuildMode: BuildMode}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM collections", &status.CollectionsCount},
		{"SELECT COUNT(*) FROM documents", &status.DocumentsCount},
		{"SELECT COUNT(*) FROM embeddings", &status.EmbeddingsCount},
	}
	for _, c := range counts {
		if err := q.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to read status: %w", err)
		}
	}

	rows, err := q.QueryContext(ctx, `
		SELECT c.name, COUNT(d.id), COUNT(DISTINCT NULLIF(d.file_path, '')), c.updated_at
		FROM collections c
		LEFT JOIN documents d ON d.collection_id = c.id
		GROUP BY c.id
		ORDER BY c.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection status: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var cs CollectionStatus
		if err := rows.Scan(&cs.Name, &cs.Documents, &cs.Files, &cs.LastUpdatedAt); err != nil {
			return nil, err
		}
		status.Collections = append(status.Collections, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var version string
	if err := q.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC, version DESC LIMIT 1").Scan(&version); err == nil {
		status.SchemaVersion = version
	}

	// Calculate database size
	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	return getStatusWithQuerier(ctx, s.querier())
}

// Transaction implementations use the transaction querier so that reads
// observe uncommitted writes and never wait on the single pooled connection.

func (t *sqliteTx) EnsureCollection(ctx context.Context, name string) (*Collection, error) {
	return ensureCollectionWithQuerier(ctx, t.querier(), name)
}

func (t *sqliteTx) GetCollection(ctx context.Context, name string) (*Collection, error) {
	return getCollectionWithQuerier(ctx, t.querier(), name)
}

func (t *sqliteTx) ListCollections(ctx context.Context) ([]*Collection, error) {
	return listCollectionsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) DeleteCollection(ctx context.Context, name string) error {
	return deleteCollectionWithQuerier(ctx, t.querier(), name)
}

func (t *sqliteTx) UpsertDocument(ctx context.Context, doc *Document) error {
	return upsertDocumentWithQuerier(ctx, t.querier(), doc)
}

func (t *sqliteTx) GetDocument(ctx context.Context, collectionID int64, docID string) (*Document, error) {
	return getDocumentWithQuerier(ctx, t.querier(), collectionID, docID)
}

func (t *sqliteTx) GetDocumentByID(ctx context.Context, id int64) (*Document, error) {
	return getDocumentByIDWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) ListDocuments(ctx context.Context, collectionID int64) ([]*Document, error) {
	return listDocumentsWithQuerier(ctx, t.querier(), collectionID)
}

func (t *sqliteTx) ListDocumentIDsByFile(ctx context.Context, collectionID int64, filePath string) ([]string, error) {
	return listDocumentIDsByFileWithQuerier(ctx, t.querier(), collectionID, filePath)
}

func (t *sqliteTx) DeleteDocument(ctx context.Context, collectionID int64, docID string) error {
	return deleteDocumentWithQuerier(ctx, t.querier(), collectionID, docID)
}

func (t *sqliteTx) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return upsertEmbeddingWithQuerier(ctx, t.querier(), embedding)
}

func (t *sqliteTx) GetEmbedding(ctx context.Context, documentID int64) (*Embedding, error) {
	return getEmbeddingWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) SearchVector(ctx context.Context, collectionID int64, vector []float32, limit int) ([]VectorResult, error) {
	return searchVector(ctx, t.querier(), collectionID, vector, limit)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*Status, error) {
	return getStatusWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}

package storage

import (
	"context"
	"time"
)

// Storage defines the interface for persisting collections, documents and their embeddings
type Storage interface {
	// Collection operations
	EnsureCollection(ctx context.Context, name string) (*Collection, error)
	GetCollection(ctx context.Context, name string) (*Collection, error)
	ListCollections(ctx context.Context) ([]*Collection, error)
	DeleteCollection(ctx context.Context, name string) error

	// Document operations
	UpsertDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, collectionID int64, docID string) (*Document, error)
	GetDocumentByID(ctx context.Context, id int64) (*Document, error)
	ListDocuments(ctx context.Context, collectionID int64) ([]*Document, error)
	ListDocumentIDsByFile(ctx context.Context, collectionID int64, filePath string) ([]string, error)
	DeleteDocument(ctx context.Context, collectionID int64, docID string) error

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
	GetEmbedding(ctx context.Context, documentID int64) (*Embedding, error)

	// Search operations
	SearchVector(ctx context.Context, collectionID int64, vector []float32, limit int) ([]VectorResult, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Collection is a named partition of documents
type Collection struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Document is a stored text unit addressed by a caller supplied id
type Document struct {
	ID           int64
	CollectionID int64
	DocID        string // Caller supplied, unique within the collection
	FilePath     string // Source file the document came from, may be empty
	Content      string
	Metadata     string // JSON object
	ContentHash  [32]byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Embedding represents a vector embedding for a document
type Embedding struct {
	ID         int64
	DocumentID int64
	Vector     []byte // Serialized float32 array
	Dimension  int
	Provider   string
	Model      string
	CreatedAt  time.Time
}

// VectorResult represents a result from vector similarity search
type VectorResult struct {
	DocumentID      int64
	SimilarityScore float64
}

// Status contains statistics about the database
type Status struct {
	CollectionsCount int
	DocumentsCount   int
	EmbeddingsCount  int
	IndexSizeMB      float64
	BuildMode        string
	SchemaVersion    string
	Collections      []CollectionStatus
}

// CollectionStatus holds per collection counts
type CollectionStatus struct {
	Name          string
	Documents     int
	Files         int
	LastUpdatedAt time.Time
}

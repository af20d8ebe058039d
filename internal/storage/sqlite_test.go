package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	assert.NotNil(t, storage.db)
	assert.NoError(t, storage.Ping(context.Background()))
}

func TestNewSQLiteStorage_File(t *testing.T) {
	path := t.TempDir() + "/docdrift.db"

	s, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = s.EnsureCollection(ctx, "documents")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening keeps data and does not re-run migrations
	s, err = NewSQLiteStorage(path)
	require.NoError(t, err)
	defer s.Close()
	c, err := s.GetCollection(ctx, "documents")
	require.NoError(t, err)
	assert.Equal(t, "documents", c.Name)
}

func TestEnsureCollection(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	c, err := storage.EnsureCollection(ctx, "documents")
	require.NoError(t, err)
	assert.Greater(t, c.ID, int64(0))
	assert.Equal(t, "documents", c.Name)

	again, err := storage.EnsureCollection(ctx, "documents")
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)

	_, err = storage.EnsureCollection(ctx, "  ")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestGetCollection_NotFound(t *testing.T) {
	storage := setupTestDB(t)

	_, err := storage.GetCollection(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCollections(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	cols, err := storage.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, cols)

	for _, name := range []string{"git_changes", "documents", "api"} {
		_, err := storage.EnsureCollection(ctx, name)
		require.NoError(t, err)
	}

	cols, err = storage.ListCollections(ctx)
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, "api", cols[0].Name)
	assert.Equal(t, "documents", cols[1].Name)
	assert.Equal(t, "git_changes", cols[2].Name)
}

func TestDeleteCollection_Cascades(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	c, err := storage.EnsureCollection(ctx, "documents")
	require.NoError(t, err)

	doc := &Document{CollectionID: c.ID, DocID: "a_0_x", Content: "hello"}
	require.NoError(t, storage.UpsertDocument(ctx, doc))
	require.NoError(t, storage.UpsertEmbedding(ctx, &Embedding{
		DocumentID: doc.ID, Vector: EncodeVector([]float32{1, 0}), Dimension: 2, Provider: "test", Model: "m",
	}))

	require.NoError(t, storage.DeleteCollection(ctx, "documents"))

	_, err = storage.GetDocumentByID(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = storage.GetEmbedding(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = storage.DeleteCollection(ctx, "documents")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertDocument(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	c, err := storage.EnsureCollection(ctx, "documents")
	require.NoError(t, err)

	doc := &Document{
		CollectionID: c.ID,
		DocID:        "setup_0_abc",
		FilePath:     "guide/setup.md",
		Content:      "search_document: # Setup",
		Metadata:     `{"file_path":"guide/setup.md"}`,
	}
	require.NoError(t, storage.UpsertDocument(ctx, doc))
	firstID := doc.ID
	assert.Greater(t, firstID, int64(0))

	got, err := storage.GetDocument(ctx, c.ID, "setup_0_abc")
	require.NoError(t, err)
	assert.Equal(t, doc.Content, got.Content)
	assert.Equal(t, doc.Metadata, got.Metadata)
	assert.Equal(t, "guide/setup.md", got.FilePath)
	assert.Equal(t, doc.ContentHash, got.ContentHash)

	// Same doc id overwrites in place
	updated := &Document{CollectionID: c.ID, DocID: "setup_0_abc", FilePath: "guide/setup.md", Content: "changed"}
	require.NoError(t, storage.UpsertDocument(ctx, updated))
	assert.Equal(t, firstID, updated.ID)

	got, err = storage.GetDocumentByID(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Content)
	assert.Equal(t, "{}", got.Metadata)

	docs, err := storage.ListDocuments(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDocumentsAreScopedByCollection(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	a, err := storage.EnsureCollection(ctx, "a")
	require.NoError(t, err)
	b, err := storage.EnsureCollection(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, storage.UpsertDocument(ctx, &Document{CollectionID: a.ID, DocID: "same", Content: "in a"}))
	require.NoError(t, storage.UpsertDocument(ctx, &Document{CollectionID: b.ID, DocID: "same", Content: "in b"}))

	da, err := storage.GetDocument(ctx, a.ID, "same")
	require.NoError(t, err)
	db, err := storage.GetDocument(ctx, b.ID, "same")
	require.NoError(t, err)
	assert.NotEqual(t, da.ID, db.ID)
	assert.Equal(t, "in a", da.Content)
	assert.Equal(t, "in b", db.Content)
}

func TestListDocumentIDsByFile_AndDelete(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	c, err := storage.EnsureCollection(ctx, "documents")
	require.NoError(t, err)

	for _, id := range []string{"x_1", "x_0"} {
		require.NoError(t, storage.UpsertDocument(ctx, &Document{CollectionID: c.ID, DocID: id, FilePath: "x.md", Content: id}))
	}
	require.NoError(t, storage.UpsertDocument(ctx, &Document{CollectionID: c.ID, DocID: "y_0", FilePath: "y.md", Content: "y"}))

	ids, err := storage.ListDocumentIDsByFile(ctx, c.ID, "x.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"x_0", "x_1"}, ids)

	require.NoError(t, storage.DeleteDocument(ctx, c.ID, "x_0"))
	ids, err = storage.ListDocumentIDsByFile(ctx, c.ID, "x.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"x_1"}, ids)

	_, err = storage.GetDocument(ctx, c.ID, "x_0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertEmbedding(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	c, err := storage.EnsureCollection(ctx, "documents")
	require.NoError(t, err)
	doc := &Document{CollectionID: c.ID, DocID: "d", Content: "text"}
	require.NoError(t, storage.UpsertDocument(ctx, doc))

	emb := &Embedding{
		DocumentID: doc.ID,
		Vector:     EncodeVector([]float32{0.1, 0.2, 0.3}),
		Dimension:  3,
		Provider:   "local",
		Model:      "hash",
	}
	require.NoError(t, storage.UpsertEmbedding(ctx, emb))

	got, err := storage.GetEmbedding(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Dimension)
	vec, err := DecodeVector(got.Vector)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)

	// Replace
	emb2 := &Embedding{DocumentID: doc.ID, Vector: EncodeVector([]float32{1, 1}), Dimension: 2, Provider: "local", Model: "hash2"}
	require.NoError(t, storage.UpsertEmbedding(ctx, emb2))
	got, err = storage.GetEmbedding(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Dimension)
	assert.Equal(t, "hash2", got.Model)
}

func TestTransaction(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	c, err := storage.EnsureCollection(ctx, "documents")
	require.NoError(t, err)

	t.Run("commit", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)

		doc := &Document{CollectionID: c.ID, DocID: "committed", Content: "x"}
		require.NoError(t, tx.UpsertDocument(ctx, doc))
		got, err := tx.GetDocument(ctx, c.ID, "committed")
		require.NoError(t, err)
		assert.Equal(t, doc.ID, got.ID)
		require.NoError(t, tx.Commit())

		_, err = storage.GetDocument(ctx, c.ID, "committed")
		assert.NoError(t, err)
	})

	t.Run("rollback", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.UpsertDocument(ctx, &Document{CollectionID: c.ID, DocID: "rolled", Content: "x"}))
		require.NoError(t, tx.Rollback())

		_, err = storage.GetDocument(ctx, c.ID, "rolled")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("nested", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)
		defer tx.Rollback()

		_, err = tx.BeginTx(ctx)
		assert.Error(t, err)
		assert.NoError(t, tx.Close())
	})
}

func TestGetStatus(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	c, err := storage.EnsureCollection(ctx, "documents")
	require.NoError(t, err)
	_, err = storage.EnsureCollection(ctx, "empty")
	require.NoError(t, err)

	for _, d := range []struct{ id, file string }{{"a_0", "a.md"}, {"a_1", "a.md"}, {"b_0", "b.md"}} {
		doc := &Document{CollectionID: c.ID, DocID: d.id, FilePath: d.file, Content: d.id}
		require.NoError(t, storage.UpsertDocument(ctx, doc))
		require.NoError(t, storage.UpsertEmbedding(ctx, &Embedding{
			DocumentID: doc.ID, Vector: EncodeVector([]float32{1}), Dimension: 1, Provider: "p", Model: "m",
		}))
	}

	status, err := storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.CollectionsCount)
	assert.Equal(t, 3, status.DocumentsCount)
	assert.Equal(t, 3, status.EmbeddingsCount)
	assert.Equal(t, BuildMode, status.BuildMode)
	assert.Equal(t, CurrentSchemaVersion, status.SchemaVersion)
	require.Len(t, status.Collections, 2)
	assert.Equal(t, CollectionStatus{Name: "documents", Documents: 3, Files: 2, LastUpdatedAt: status.Collections[0].LastUpdatedAt}, status.Collections[0])
	assert.Equal(t, 0, status.Collections[1].Documents)
}

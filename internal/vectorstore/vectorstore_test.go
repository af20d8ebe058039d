package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/docdrift-mcp/internal/embedder"
	"github.com/dshills/docdrift-mcp/internal/embedder/embeddertest"
	"github.com/dshills/docdrift-mcp/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T, opts ...Option) (*SQLiteStore, *embeddertest.Embedder) {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	emb := embeddertest.New()
	return New(db, emb, opts...), emb
}

func docRecords() []Record {
	return []Record{
		{ID: "install_0", Content: "search_document: install the server with go install", Metadata: map[string]any{"file_path": "install.md", "chunk_index": 0}},
		{ID: "config_0", Content: "search_document: configure the database path and embedding provider", Metadata: map[string]any{"file_path": "config.md"}},
		{ID: "auth_0", Content: "search_document: authentication tokens and login sessions", Metadata: map[string]any{"file_path": "docs/auth.md"}},
	}
}

func TestUpsertAndQuery(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "documents", docRecords()))

	matches, err := store.Query(ctx, "documents", "search_query: login authentication tokens", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "auth_0", matches[0].ID)
	assert.Equal(t, "docs/auth.md", matches[0].Metadata["file_path"])
	assert.LessOrEqual(t, matches[0].Distance, matches[1].Distance)
	assert.GreaterOrEqual(t, matches[0].Distance, 0.0)

	// Numbers come back from JSON as float64
	all, err := store.Query(ctx, "documents", "install the server", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "install_0", all[0].ID)
	assert.Equal(t, float64(0), all[0].Metadata["chunk_index"])
}

func TestUpsert_Overwrites(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "documents", docRecords()))
	require.NoError(t, store.Upsert(ctx, "documents", []Record{
		{ID: "auth_0", Content: "search_document: oauth scopes", Metadata: map[string]any{"file_path": "docs/auth.md"}},
	}))

	status, err := store.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, status.DocumentsCount)

	matches, err := store.Query(ctx, "documents", "oauth scopes", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "search_document: oauth scopes", matches[0].Content)
}

func TestUpsert_Batches(t *testing.T) {
	store, emb := setupStore(t, WithBatchSize(2))
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "documents", docRecords()))
	assert.Equal(t, 2, emb.Calls())
	assert.Equal(t, 3, emb.Texts())
}

func TestUpsert_Validation(t *testing.T) {
	store, emb := setupStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Upsert(ctx, "", docRecords()), storage.ErrInvalidName)
	assert.ErrorIs(t, store.Upsert(ctx, "documents", []Record{{ID: "x"}}), ErrInvalidRecord)
	assert.NoError(t, store.Upsert(ctx, "documents", nil))
	assert.Equal(t, 0, emb.Calls())

	names, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestUpsert_EmbedderFailureIsUnavailable(t *testing.T) {
	store, emb := setupStore(t)
	ctx := context.Background()
	emb.Fail(errors.New("connection refused"))

	err := store.Upsert(ctx, "documents", docRecords())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, embedder.ErrProviderFailed)

	// Nothing was written
	emb.Fail(nil)
	names, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestUpsert_CancelledContext(t *testing.T) {
	store, _ := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Upsert(ctx, "documents", docRecords())
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestQuery_EdgeCases(t *testing.T) {
	store, emb := setupStore(t)
	ctx := context.Background()

	matches, err := store.Query(ctx, "missing", "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = store.Query(ctx, "documents", "", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = store.Query(ctx, "documents", "x", 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, 0, emb.Calls())
}

func TestCollections(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "git_changes", docRecords()[:1]))
	require.NoError(t, store.Upsert(ctx, "documents", docRecords()))

	names, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"documents", "git_changes"}, names)

	var notified []string
	store.OnWrite(func(c string) { notified = append(notified, c) })

	require.NoError(t, store.DeleteCollection(ctx, "documents"))
	assert.Equal(t, []string{"documents"}, notified)

	err = store.DeleteCollection(ctx, "documents")
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	names, err = store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"git_changes"}, names)
}

func TestPrune(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	records := []Record{
		{ID: "guide_0", Content: "one", Metadata: map[string]any{"file_path": "guide.md"}},
		{ID: "guide_1", Content: "two", Metadata: map[string]any{"file_path": "guide.md"}},
		{ID: "guide_2", Content: "three", Metadata: map[string]any{"file_path": "guide.md"}},
		{ID: "other_0", Content: "four", Metadata: map[string]any{"file_path": "other.md"}},
	}
	require.NoError(t, store.Upsert(ctx, "documents", records))

	n, err := store.Prune(ctx, "documents", "guide.md", []string{"guide_0"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.Prune(ctx, "documents", "guide.md", []string{"guide_0"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = store.Prune(ctx, "missing", "guide.md", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	status, err := store.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.DocumentsCount)
	assert.Equal(t, 2, status.EmbeddingsCount)
}

func TestRecordFilePath(t *testing.T) {
	assert.Equal(t, "a.md", Record{Metadata: map[string]any{"file_path": "a.md"}}.FilePath())
	assert.Equal(t, "", Record{Metadata: map[string]any{"file_path": 3}}.FilePath())
	assert.Equal(t, "", Record{}.FilePath())
}

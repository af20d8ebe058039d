package storage

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeVector_RoundTrip(t *testing.T) {
	vec := []float32{0, 1, -1, 0.5, math.MaxFloat32, -math.SmallestNonzeroFloat32}
	blob := EncodeVector(vec)
	assert.Len(t, blob, len(vec)*4)

	got, err := DecodeVector(blob)
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	got, err = DecodeVector(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeVector_Corrupt(t *testing.T) {
	_, err := DecodeVector([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrCorruptVector)
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func seedVectors(t *testing.T, s *SQLiteStorage, collection string, vectors map[string][]float32) int64 {
	t.Helper()
	ctx := context.Background()
	c, err := s.EnsureCollection(ctx, collection)
	require.NoError(t, err)
	for id, vec := range vectors {
		doc := &Document{CollectionID: c.ID, DocID: id, Content: id}
		require.NoError(t, s.UpsertDocument(ctx, doc))
		require.NoError(t, s.UpsertEmbedding(ctx, &Embedding{
			DocumentID: doc.ID, Vector: EncodeVector(vec), Dimension: len(vec), Provider: "test", Model: "test",
		}))
	}
	return c.ID
}

func TestSearchVector(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	cid := seedVectors(t, s, "documents", map[string][]float32{
		"exact":    {1, 0, 0},
		"close":    {0.9, 0.1, 0},
		"far":      {0, 0, 1},
		"opposite": {-1, 0, 0},
		"wrongdim": {1, 0},
	})
	seedVectors(t, s, "other", map[string][]float32{"elsewhere": {1, 0, 0}})

	results, err := s.SearchVector(ctx, cid, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	var ids []string
	for _, r := range results {
		doc, err := s.GetDocumentByID(ctx, r.DocumentID)
		require.NoError(t, err)
		ids = append(ids, doc.DocID)
	}
	assert.Equal(t, []string{"exact", "close", "far"}, ids)
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-6)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].SimilarityScore, results[i].SimilarityScore)
	}

	// Limit beyond candidates returns all with matching dimension
	results, err = s.SearchVector(ctx, cid, []float32{1, 0, 0}, 100)
	require.NoError(t, err)
	assert.Len(t, results, 4)
}

func TestSearchVector_EdgeCases(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	cid := seedVectors(t, s, "documents", map[string][]float32{"a": {1, 0}})

	tests := []struct {
		name         string
		collectionID int64
		vector       []float32
		limit        int
	}{
		{"empty query vector", cid, []float32{}, 10},
		{"zero limit", cid, []float32{1, 0}, 0},
		{"negative limit", cid, []float32{1, 0}, -1},
		{"unknown collection", 99999, []float32{1, 0}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.SearchVector(ctx, tt.collectionID, tt.vector, tt.limit)
			require.NoError(t, err)
			assert.Empty(t, results)
		})
	}
}

func TestSearchVectorScan_TieOrder(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	cid := seedVectors(t, s, "documents", map[string][]float32{
		"b": {1, 1}, "a": {1, 1}, "c": {1, 1},
	})

	results, err := searchVectorScan(ctx, s.querier(), cid, []float32{1, 1}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	var ids []string
	for _, r := range results {
		doc, err := s.GetDocumentByID(ctx, r.DocumentID)
		require.NoError(t, err)
		ids = append(ids, doc.DocID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestSearchVectorScan_KeepsBest(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	cid := seedVectors(t, s, "documents", map[string][]float32{
		"d1": {0.1, 1}, "d2": {0.5, 1}, "d3": {1, 0.2}, "d4": {1, 0}, "d5": {0, 1},
	})

	c, err := s.GetCollection(ctx, "documents")
	require.NoError(t, err)
	bad := &Document{CollectionID: c.ID, DocID: "corrupt", Content: "corrupt"}
	require.NoError(t, s.UpsertDocument(ctx, bad))
	require.NoError(t, s.UpsertEmbedding(ctx, &Embedding{
		DocumentID: bad.ID, Vector: []byte{1, 2, 3, 4, 5, 6, 7}, Dimension: 2, Provider: "test", Model: "test",
	}))

	results, err := searchVectorScan(ctx, s.querier(), cid, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	var ids []string
	for _, r := range results {
		doc, err := s.GetDocumentByID(ctx, r.DocumentID)
		require.NoError(t, err)
		ids = append(ids, doc.DocID)
	}
	assert.Equal(t, []string{"d4", "d3"}, ids)
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-6)
}

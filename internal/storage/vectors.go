package storage

import (
	"container/heap"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dshills/docdrift-mcp/internal/logging"
)

// ErrCorruptVector is returned when an embedding blob is not a whole number of float32 values
var ErrCorruptVector = errors.New("corrupt vector blob")

// EncodeVector packs a vector as little-endian float32 values
func EncodeVector(v []float32) []byte {
	blob := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(blob[4*i:], math.Float32bits(f))
	}
	return blob
}

// DecodeVector unpacks a blob written by EncodeVector
func DecodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptVector, len(blob))
	}
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return v, nil
}

// Cosine returns the cosine similarity of a and b. Vectors of different
// length or with zero magnitude have similarity 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// searchVector returns the limit documents of a collection closest to the
// query vector. Embeddings with a different dimension never match. Equal
// scores are ordered by doc id so results are stable across runs.
func searchVector(ctx context.Context, q querier, collectionID int64, query []float32, limit int) ([]VectorResult, error) {
	if limit <= 0 || len(query) == 0 {
		return []VectorResult{}, nil
	}
	if VectorExtensionAvailable {
		results, err := searchVectorSQL(ctx, q, collectionID, query, limit)
		if err == nil || !strings.Contains(err.Error(), "no such function") {
			return results, err
		}
		logging.Debugf("vec_distance_cosine unavailable on this connection, scanning embeddings")
	}
	return searchVectorScan(ctx, q, collectionID, query, limit)
}

// searchVectorSQL ranks inside SQLite with the sqlite-vec extension
func searchVectorSQL(ctx context.Context, q querier, collectionID int64, query []float32, limit int) ([]VectorResult, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT d.id, 1.0 - vec_distance_cosine(e.vector, ?) AS similarity
		FROM documents d
		JOIN embeddings e ON e.document_id = d.id
		WHERE d.collection_id = ? AND e.dimension = ?
		ORDER BY similarity DESC, d.doc_id
		LIMIT ?`,
		EncodeVector(query), collectionID, len(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var r VectorResult
		if err := rows.Scan(&r.DocumentID, &r.SimilarityScore); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// searchVectorScan computes similarities in Go, keeping only the best
// limit candidates in memory
func searchVectorScan(ctx context.Context, q querier, collectionID int64, query []float32, limit int) ([]VectorResult, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT d.id, d.doc_id, e.vector
		FROM documents d
		JOIN embeddings e ON e.document_id = d.id
		WHERE d.collection_id = ? AND e.dimension = ?`,
		collectionID, len(query))
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	best := make(topK, 0, limit+1)
	for rows.Next() {
		var (
			c    scored
			blob []byte
		)
		if err := rows.Scan(&c.documentID, &c.docID, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		vec, err := DecodeVector(blob)
		if err != nil || len(vec) != len(query) {
			logging.Debugf("skipping embedding of %s: %v", c.docID, err)
			continue
		}
		c.score = Cosine(query, vec)

		if len(best) < limit {
			heap.Push(&best, c)
		} else if best[0].less(c) {
			best[0] = c
			heap.Fix(&best, 0)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]VectorResult, len(best))
	for i := len(best) - 1; i >= 0; i-- {
		c := heap.Pop(&best).(scored)
		results[i] = VectorResult{DocumentID: c.documentID, SimilarityScore: c.score}
	}
	return results, nil
}

type scored struct {
	documentID int64
	docID      string
	score      float64
}

// less reports whether s ranks below o
func (s scored) less(o scored) bool {
	if s.score != o.score {
		return s.score < o.score
	}
	return s.docID > o.docID
}

// topK is a min-heap whose root is the worst kept candidate
type topK []scored

func (h topK) Len() int           { return len(h) }
func (h topK) Less(i, j int) bool { return h[i].less(h[j]) }
func (h topK) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *topK) Push(x any)        { *h = append(*h, x.(scored)) }
func (h *topK) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

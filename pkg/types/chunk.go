package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Task prefixes expected by nomic-style embedding models. Indexed content and
// queries are embedded into different halves of the vector space.
const (
	DocumentPrefix = "search_document: "
	QueryPrefix    = "search_query: "
)

// fingerprintLen is the number of hex characters of the SHA-256 fingerprint
// kept in chunk and diff ids.
const fingerprintLen = 16

// Chunk is a bounded slice of a markdown document, the unit of embedding and storage
type Chunk struct {
	ID          string
	Content     string // Includes the document prefix
	FilePath    string // Relative to the indexed folder, slash separated
	ChunkIndex  int
	TotalChunks int
	IndexedAt   time.Time
}

// Metadata returns the metadata stored alongside the chunk in the vector store
func (c *Chunk) Metadata() map[string]any {
	return map[string]any{
		"file_path":    c.FilePath,
		"chunk_index":  c.ChunkIndex,
		"total_chunks": c.TotalChunks,
		"indexed_at":   c.IndexedAt.Format(time.RFC3339),
	}
}

// Validate checks if the chunk is complete enough to be stored
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return errors.New("chunk ID is required")
	}
	if c.FilePath == "" {
		return ErrMissingFileInfo
	}
	if c.ChunkIndex < 0 || c.ChunkIndex >= c.TotalChunks {
		return errors.New("chunk index out of range")
	}
	return nil
}

// ChunkID derives the stable identifier of a chunk from its file, position and content.
// The same inputs always produce the same id; any content change produces a new one.
func ChunkID(filePath string, index int, content string) string {
	stem := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	return stem + "_" + strconv.Itoa(index) + "_" + Fingerprint(filePath, strconv.Itoa(index), content)
}

// Fingerprint computes a truncated SHA-256 over the given fields separated by NUL bytes
func Fingerprint(fields ...string) string {
	h := sha256.New()
	for _, f := range fields {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:fingerprintLen]
}

// StripDocumentPrefix removes the indexing prefix for display
func StripDocumentPrefix(content string) string {
	return strings.TrimPrefix(content, DocumentPrefix)
}

// Truncate cuts text to at most n bytes on a rune boundary and appends "..."
// when anything was removed.
func Truncate(text string, n int) string {
	if len(text) <= n {
		return text
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

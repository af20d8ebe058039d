package chunker

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dshills/docdrift-mcp/pkg/types"
)

const (
	// DefaultChunkSize is the target chunk length in bytes
	DefaultChunkSize = 2000

	// DefaultOverlap is the number of bytes shared by consecutive chunks
	DefaultOverlap = 200
)

// Break markers in priority order. A cut is placed one byte past the match.
var breakMarkers = []string{"\n\n", ". ", "\n"}

// Chunker splits markdown documents into overlapping chunks
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures a Chunker
type Option func(*Chunker)

// WithChunkSize sets the target chunk size. Non-positive values are ignored.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks. Negative values are ignored.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a new Chunker instance
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChunkSize returns the configured target size
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text into substrings of at most ChunkSize bytes, preferring
// paragraph breaks, then sentence ends, then line breaks as cut points.
// Text shorter than ChunkSize is returned whole. Otherwise every window,
// the one reaching the end of the text included, is followed by a window
// starting Overlap bytes before its right edge, until that start falls on
// the last byte or beyond.
func (c *Chunker) Chunk(text string) []string {
	n := len(text)
	if n < c.chunkSize {
		return []string{text}
	}

	chunks := make([]string, 0, n/(c.chunkSize-min(c.overlap, c.chunkSize-1))+2)
	start := 0
	for start < n {
		end := start + c.chunkSize
		if end < n {
			if bp := findBreak(text, start, end); bp > start {
				end = bp + 1
			} else if cut := runeFloor(text, end, start); cut > start {
				end = cut
			}
			chunks = append(chunks, text[start:end])
		} else {
			chunks = append(chunks, text[start:])
		}

		next := runeFloor(text, end-c.overlap, start)
		if next <= start {
			// Overlap would not move the window forward
			next = end
		}
		if next >= n-1 {
			break
		}
		start = next
	}
	return chunks
}

// findBreak returns the position of the highest priority break marker that
// lies entirely within text[start:end], or -1.
func findBreak(text string, start, end int) int {
	window := text[start:end]
	for _, marker := range breakMarkers {
		if i := strings.LastIndex(window, marker); i != -1 {
			return start + i
		}
	}
	return -1
}

// runeFloor moves pos left to the start of a UTF-8 sequence without going below floor.
func runeFloor(text string, pos, floor int) int {
	if pos <= floor {
		return pos
	}
	for pos > floor && pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

// ProcessMarkdown prefixes the document, splits it and labels every chunk
// with its position, the relative file path and the indexing time.
func (c *Chunker) ProcessMarkdown(content, relPath string, now time.Time) []types.Chunk {
	pieces := c.Chunk(types.DocumentPrefix + content)
	chunks := make([]types.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = types.Chunk{
			ID:          types.ChunkID(relPath, i, piece),
			Content:     piece,
			FilePath:    relPath,
			ChunkIndex:  i,
			TotalChunks: len(pieces),
			IndexedAt:   now.UTC(),
		}
	}
	return chunks
}

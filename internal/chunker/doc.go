// Package chunker splits markdown documents into overlapping chunks for embedding.
//
// Each window of ChunkSize bytes is cut at the last paragraph break inside it,
// falling back to the last sentence end and then the last line break. A cut is
// placed one byte past the marker so trailing punctuation stays with the
// preceding chunk. When no marker exists the window is cut at its raw edge,
// moved left to a UTF-8 boundary if needed.
//
// # Basic Usage
//
//	c := chunker.New(chunker.WithChunkSize(2000), chunker.WithOverlap(200))
//	chunks := c.ProcessMarkdown(content, "guide/setup.md", time.Now())
//	for _, ch := range chunks {
//	    fmt.Printf("%s: %d/%d\n", ch.ID, ch.ChunkIndex+1, ch.TotalChunks)
//	}
//
// # Overlap
//
// Consecutive chunks share Overlap bytes so a sentence cut at a boundary is
// still fully present in one of them. When the overlap would not move the
// window forward it is dropped for that step.
//
// # Identity
//
// Chunk ids are derived from the file stem, the chunk index and a SHA-256
// fingerprint (see types.ChunkID). Re-chunking unchanged content yields the
// same ids so upserts overwrite in place.
package chunker

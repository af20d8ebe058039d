// Package types provides the shared domain types of docdrift.
//
// Chunk is a bounded slice of a markdown document and the unit of embedding.
// Its ID is derived from the file stem, the chunk position and a truncated
// SHA-256 fingerprint, so re-indexing unchanged content overwrites in place:
//
//	id := types.ChunkID("guide/setup.md", 0, content) // "setup_0_3f9c..."
//
// DiffRecord carries the unified diff of one file. Lines splits it into the
// added and removed line sets consumed by the significance analyzer, which
// produces a SignificanceResult.
//
// Suggestion and Report are the output of a documentation check. A suggestion
// without a related document asks for new documentation and is grouped under
// NewDocumentationGroup.
//
// # Task prefixes
//
// Indexed content carries DocumentPrefix and queries carry QueryPrefix, as
// expected by nomic-style embedding models. StripDocumentPrefix removes the
// prefix before content is shown to a caller.
package types

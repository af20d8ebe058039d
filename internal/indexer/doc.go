// Package indexer runs the two indexing pipelines of the server.
//
// # Documentation
//
// IndexDocumentation walks a folder for markdown files, splits each one into
// overlapping chunks and upserts them into a collection:
//
//	idx := indexer.New(store, gitdiff.Open)
//	stats, err := idx.IndexDocumentation(ctx, "/path/to/docs", "documents", reporter)
//
// Chunk ids are derived from the file path, the chunk position and the chunk
// text, so re-indexing unchanged files rewrites the same records. Chunks left
// behind by an earlier, longer version of a file are pruned after each file.
//
// A file that cannot be read or is not valid UTF-8 is recorded in the
// statistics and reported as a warning; the run continues. An unavailable
// vector store or a cancelled context stops the run and returns the partial
// statistics together with the error.
//
// Only one bulk run per collection is allowed at a time. A second concurrent
// call fails fast with ErrIndexingInProgress.
//
// # Git diffs
//
// IndexGitDiff resolves a commit range (or the commits of the last few days),
// keeps code files only and scores each diff with the significance analyzer.
// Diffs that require documentation are stored as one searchable summary each:
//
//	stats, err := idx.IndexGitDiff(ctx, indexer.DiffRequest{
//	    RepoPath:    "/path/to/repo",
//	    CommitRange: "HEAD~3..HEAD",
//	}, reporter)
//
// # Watching
//
// IndexFile and RemoveFile update a single document and are used by the
// file watcher between full runs.
package indexer

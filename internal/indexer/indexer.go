package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dshills/docdrift-mcp/internal/analyzer"
	"github.com/dshills/docdrift-mcp/internal/chunker"
	"github.com/dshills/docdrift-mcp/internal/discover"
	"github.com/dshills/docdrift-mcp/internal/gitdiff"
	"github.com/dshills/docdrift-mcp/internal/progress"
	"github.com/dshills/docdrift-mcp/internal/vectorstore"
	"github.com/dshills/docdrift-mcp/pkg/types"
)

const (
	DefaultDocsCollection = "documents"
	DefaultDiffCollection = "git_changes"
	DefaultSinceDays      = 7

	// maxChangeLines bounds the changed lines quoted in a diff document
	maxChangeLines = 20
	// maxSummaryTerms bounds the terms named in a diff document's summary line
	maxSummaryTerms = 5
)

var (
	ErrPathNotFound       = discover.ErrPathNotFound
	ErrNotDirectory       = discover.ErrNotDirectory
	ErrInvalidEncoding    = errors.New("file is not valid UTF-8")
	ErrIndexingInProgress = errors.New("indexing already in progress for collection")
)

// Statistics contains statistics about an indexing operation
type Statistics struct {
	FilesFound    int
	FilesIndexed  int
	FilesSkipped  int
	FilesFailed   int
	ChunksCreated int
	Duration      time.Duration
	ErrorMessages []string
	Files         []FileResult
}

// FileResult is the outcome of indexing one file or one diff
type FileResult struct {
	Path    string
	Chunks  int
	Pruned  int
	Skipped bool
	Err     error
}

func (s *Statistics) record(r FileResult) {
	s.Files = append(s.Files, r)
	switch {
	case r.Err != nil:
		s.FilesFailed++
		s.ErrorMessages = append(s.ErrorMessages, fmt.Sprintf("%s: %v", r.Path, r.Err))
	case r.Skipped:
		s.FilesSkipped++
	default:
		s.FilesIndexed++
		s.ChunksCreated += r.Chunks
	}
}

// Indexer coordinates the indexing pipelines: discover -> chunk -> store for
// documentation and resolve -> analyze -> store for git diffs
type Indexer struct {
	store    vectorstore.Store
	open     gitdiff.Opener
	chunker  *chunker.Chunker
	analyzer *analyzer.Analyzer
	now      func() time.Time
	locks    collectionLocks
}

// Option configures an Indexer
type Option func(*Indexer)

// WithChunker replaces the default chunker
func WithChunker(c *chunker.Chunker) Option {
	return func(idx *Indexer) { idx.chunker = c }
}

// WithAnalyzer replaces the default significance analyzer
func WithAnalyzer(a *analyzer.Analyzer) Option {
	return func(idx *Indexer) { idx.analyzer = a }
}

// WithClock sets the time source for indexed_at metadata
func WithClock(now func() time.Time) Option {
	return func(idx *Indexer) { idx.now = now }
}

// New creates a new Indexer instance
func New(store vectorstore.Store, open gitdiff.Opener, opts ...Option) *Indexer {
	idx := &Indexer{
		store:    store,
		open:     open,
		chunker:  chunker.New(),
		analyzer: analyzer.New(analyzer.DefaultRules()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexDocumentation indexes every markdown file under folder into collection.
// Files that fail are recorded and skipped; an unavailable store aborts.
func (idx *Indexer) IndexDocumentation(ctx context.Context, folder, collection string, reporter progress.Reporter) (*Statistics, error) {
	reporter = progress.OrDiscard(reporter)
	if collection == "" {
		collection = DefaultDocsCollection
	}
	if err := discover.ValidateDir(folder); err != nil {
		return nil, err
	}

	lock := idx.locks.get(collection)
	if !lock.TryAcquire() {
		return nil, fmt.Errorf("%w: %s", ErrIndexingInProgress, collection)
	}
	defer lock.Release()

	start := time.Now()
	reporter.Info(ctx, fmt.Sprintf("Indexing documentation from %s", folder))

	files, err := discover.Markdown(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to discover markdown files: %w", err)
	}
	stats := &Statistics{FilesFound: len(files), ErrorMessages: make([]string, 0)}
	reporter.Info(ctx, fmt.Sprintf("Found %d markdown files", len(files)))

	for i, rel := range files {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		result := idx.IndexFile(ctx, folder, rel, collection)
		if result.Err != nil && (errors.Is(result.Err, vectorstore.ErrUnavailable) || ctx.Err() != nil) {
			stats.Duration = time.Since(start)
			return stats, fmt.Errorf("failed to index %s: %w", rel, result.Err)
		}
		stats.record(result)
		if result.Err != nil {
			reporter.Warn(ctx, fmt.Sprintf("Failed to index %s: %v", rel, result.Err))
		}
		reporter.Progress(ctx, i+1, len(files))
	}

	stats.Duration = time.Since(start)
	reporter.Info(ctx, fmt.Sprintf("Indexed %d chunks from %d files", stats.ChunksCreated, stats.FilesIndexed))
	return stats, nil
}

// IndexFile indexes one markdown file given by its slash-separated path
// relative to root. Chunks left over from an earlier, longer version of the
// file are pruned.
func (idx *Indexer) IndexFile(ctx context.Context, root, rel, collection string) FileResult {
	result := FileResult{Path: rel}

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		result.Err = err
		return result
	}
	if !utf8.Valid(data) {
		result.Err = ErrInvalidEncoding
		return result
	}

	chunks := idx.chunker.ProcessMarkdown(string(data), rel, idx.now())
	records := make([]vectorstore.Record, len(chunks))
	ids := make([]string, len(chunks))
	for i := range chunks {
		if err := chunks[i].Validate(); err != nil {
			result.Err = fmt.Errorf("chunk %d: %w", i, err)
			return result
		}
		records[i] = vectorstore.Record{
			ID:       chunks[i].ID,
			Content:  chunks[i].Content,
			Metadata: chunks[i].Metadata(),
		}
		ids[i] = chunks[i].ID
	}

	if err := idx.store.Upsert(ctx, collection, records); err != nil {
		result.Err = err
		return result
	}
	result.Chunks = len(chunks)

	pruned, err := idx.store.Prune(ctx, collection, rel, ids)
	if err != nil {
		result.Err = err
		return result
	}
	result.Pruned = pruned
	return result
}

// RemoveFile deletes every chunk of a markdown file that no longer exists
func (idx *Indexer) RemoveFile(ctx context.Context, rel, collection string) (int, error) {
	return idx.store.Prune(ctx, collection, rel, nil)
}

// DiffRequest selects the changes to index
type DiffRequest struct {
	RepoPath    string
	CommitRange string // Takes precedence over SinceDays when set
	SinceDays   int
	Collection  string
}

func (r *DiffRequest) normalize() error {
	if r.Collection == "" {
		r.Collection = DefaultDiffCollection
	}
	if r.SinceDays == 0 {
		r.SinceDays = DefaultSinceDays
	}
	if r.SinceDays < 0 && r.CommitRange == "" {
		return fmt.Errorf("%w: %d", gitdiff.ErrInvalidSinceDays, r.SinceDays)
	}
	r.CommitRange = strings.TrimSpace(r.CommitRange)
	return nil
}

// IndexGitDiff indexes a searchable summary of every significant code change
func (idx *Indexer) IndexGitDiff(ctx context.Context, req DiffRequest, reporter progress.Reporter) (*Statistics, error) {
	reporter = progress.OrDiscard(reporter)
	if err := req.normalize(); err != nil {
		return nil, err
	}
	if err := discover.ValidateDir(req.RepoPath); err != nil {
		return nil, err
	}

	start := time.Now()
	reporter.Info(ctx, fmt.Sprintf("Indexing git diff content from %s", req.RepoPath))

	repo, err := idx.open(req.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	diffs, err := gitdiff.Resolve(ctx, repo, req.CommitRange, req.SinceDays, func(msg string) {
		reporter.Warn(ctx, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read changes: %w", err)
	}

	codeDiffs := make([]types.DiffRecord, 0, len(diffs))
	for _, d := range diffs {
		if !d.IsEmpty() && idx.analyzer.IsCodeFile(d.FilePath) {
			codeDiffs = append(codeDiffs, d)
		}
	}
	stats := &Statistics{FilesFound: len(codeDiffs), ErrorMessages: make([]string, 0)}
	reporter.Info(ctx, fmt.Sprintf("Found %d code file diffs to index", len(codeDiffs)))

	for i := range codeDiffs {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		result := idx.indexDiff(ctx, &codeDiffs[i], req.Collection)
		if result.Err != nil && (errors.Is(result.Err, vectorstore.ErrUnavailable) || ctx.Err() != nil) {
			stats.Duration = time.Since(start)
			return stats, fmt.Errorf("failed to index diff for %s: %w", result.Path, result.Err)
		}
		stats.record(result)
		if result.Err != nil {
			reporter.Warn(ctx, fmt.Sprintf("Failed to index diff for %s: %v", result.Path, result.Err))
		}
		reporter.Progress(ctx, i+1, len(codeDiffs))
	}

	stats.Duration = time.Since(start)
	reporter.Info(ctx, fmt.Sprintf("Successfully indexed %d significant git diffs", stats.FilesIndexed))
	return stats, nil
}

// indexDiff stores one significant diff; insignificant diffs are skipped
func (idx *Indexer) indexDiff(ctx context.Context, d *types.DiffRecord, collection string) FileResult {
	result := FileResult{Path: d.FilePath}

	added, removed := d.Lines()
	sig := idx.analyzer.Analyze(added, removed, d.FilePath)
	if !sig.RequiresDocumentation {
		result.Skipped = true
		return result
	}
	terms := idx.analyzer.ExtractTerms(added, removed, d.FilePath)

	record := vectorstore.Record{
		ID:      d.ID(),
		Content: DiffDocument(d, &sig, terms),
		Metadata: map[string]any{
			"file_path":          d.FilePath,
			"commit_range":       d.CommitRange,
			"change_type":        string(sig.ChangeType),
			"significance_score": sig.Score,
			"indexed_at":         idx.now().UTC().Format(time.RFC3339),
			"content_type":       "git_diff",
			"terms":              strings.Join(terms, ","),
			"summary":            sig.Summary(),
		},
	}
	if err := idx.store.Upsert(ctx, collection, []vectorstore.Record{record}); err != nil {
		result.Err = err
		return result
	}
	result.Chunks = 1
	return result
}

// DiffDocument renders the searchable text stored for a significant diff
func DiffDocument(d *types.DiffRecord, sig *types.SignificanceResult, terms []string) string {
	var b strings.Builder
	b.WriteString(types.DocumentPrefix)
	b.WriteString("Code changes in ")
	b.WriteString(d.FilePath)
	b.WriteString(": ")
	b.WriteString(sig.Reason())
	if len(terms) > 0 {
		b.WriteString(" Related to: ")
		b.WriteString(strings.Join(terms[:min(len(terms), maxSummaryTerms)], ", "))
	}
	b.WriteString("\n\nChanges:\n")
	b.WriteString(strings.Join(d.ChangeLines(maxChangeLines), "\n"))
	return b.String()
}

// Package suggest finds documentation that is likely stale after code changes.
//
// For every significant code diff the engine builds a search query from the
// change's terms and asks the vector store for the closest documentation
// chunks. Hits become suggestions ranked with documents under the
// repository's docs/ directory first; a change with no hit at all becomes a
// request for new documentation.
package suggest

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/docdrift-mcp/internal/analyzer"
	"github.com/dshills/docdrift-mcp/internal/discover"
	"github.com/dshills/docdrift-mcp/internal/gitdiff"
	"github.com/dshills/docdrift-mcp/internal/progress"
	"github.com/dshills/docdrift-mcp/internal/vectorstore"
	"github.com/dshills/docdrift-mcp/pkg/types"
)

const (
	DefaultCollection   = "documents"
	DefaultSinceDays    = 7
	DefaultQueryResults = 5

	// MaxSuggestions bounds the main suggestion list of a report
	MaxSuggestions = 15
	// MaxSideList bounds the docs-directory and new-documentation lists
	MaxSideList = 5
	// PreviewLength is the number of bytes of a related document shown
	PreviewLength = 200

	// DocsDir is the repository directory whose documents rank first
	DocsDir = "docs"
)

// Request selects the changes to check and the collection to check them against
type Request struct {
	RepoPath    string
	CommitRange string // Takes precedence over SinceDays when set
	SinceDays   int
	Collection  string
}

func (r *Request) normalize() error {
	if r.Collection == "" {
		r.Collection = DefaultCollection
	}
	if r.SinceDays == 0 {
		r.SinceDays = DefaultSinceDays
	}
	r.CommitRange = strings.TrimSpace(r.CommitRange)
	if r.SinceDays < 0 && r.CommitRange == "" {
		return fmt.Errorf("%w: %d", gitdiff.ErrInvalidSinceDays, r.SinceDays)
	}
	return nil
}

// Engine produces documentation update reports
type Engine struct {
	store        vectorstore.Store
	open         gitdiff.Opener
	analyzer     *analyzer.Analyzer
	queryResults int
}

// Option configures an Engine
type Option func(*Engine)

// WithQueryResults sets how many documents are fetched per code change
func WithQueryResults(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.queryResults = n
		}
	}
}

// New creates an engine. A nil analyzer uses the default rules.
func New(store vectorstore.Store, open gitdiff.Opener, a *analyzer.Analyzer, opts ...Option) *Engine {
	if a == nil {
		a = analyzer.New(analyzer.DefaultRules())
	}
	e := &Engine{
		store:        store,
		open:         open,
		analyzer:     a,
		queryResults: DefaultQueryResults,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckDocs analyzes the code changes of a repository and suggests which
// documents may need an update. A failed query for one file is reported as a
// warning and the file is skipped.
func (e *Engine) CheckDocs(ctx context.Context, req Request, reporter progress.Reporter) (*types.Report, error) {
	reporter = progress.OrDiscard(reporter)
	if err := req.normalize(); err != nil {
		return nil, err
	}
	if err := discover.ValidateDir(req.RepoPath); err != nil {
		return nil, err
	}

	reporter.Info(ctx, fmt.Sprintf("Analyzing repository: %s", req.RepoPath))

	repo, err := e.open(req.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	diffs, err := gitdiff.Resolve(ctx, repo, req.CommitRange, req.SinceDays, func(msg string) {
		reporter.Warn(ctx, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read changes: %w", err)
	}

	codeChanges := make([]types.DiffRecord, 0, len(diffs))
	for _, d := range diffs {
		if e.analyzer.IsCodeFile(d.FilePath) {
			codeChanges = append(codeChanges, d)
		}
	}
	reporter.Info(ctx, fmt.Sprintf("Found %d code changes with diff content", len(codeChanges)))

	docsPaths := docsDirectoryDocs(req.RepoPath)

	suggestions := make([]types.Suggestion, 0)
	for i := range codeChanges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		found, err := e.suggestFor(ctx, &codeChanges[i], req.Collection, docsPaths)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			reporter.Warn(ctx, fmt.Sprintf("Failed to query for %s: %v", codeChanges[i].FilePath, err))
		}
		suggestions = append(suggestions, found...)
		reporter.Progress(ctx, i+1, len(codeChanges))
	}

	return buildReport(len(codeChanges), suggestions), nil
}

// suggestFor returns the suggestions for one code change. Insignificant
// changes yield none.
func (e *Engine) suggestFor(ctx context.Context, d *types.DiffRecord, collection string, docsPaths []string) ([]types.Suggestion, error) {
	added, removed := d.Lines()
	sig := e.analyzer.Analyze(added, removed, d.FilePath)
	if !sig.RequiresDocumentation {
		return nil, nil
	}
	terms := e.analyzer.ExtractTerms(added, removed, d.FilePath)

	matches, err := e.store.Query(ctx, collection, Query(terms, d.FilePath), e.queryResults)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return []types.Suggestion{{
			CodeFile:       d.FilePath,
			RelevanceScore: 1.0,
			Reason:         "Create new documentation for " + sig.Reason(),
			DiffSummary:    sig.Summary(),
			CommitRange:    d.CommitRange,
			ChangeType:     sig.ChangeType,
		}}, nil
	}

	out := make([]types.Suggestion, 0, len(matches))
	for _, m := range matches {
		docPath, _ := m.Metadata["file_path"].(string)
		if docPath == "" {
			docPath = m.ID
		}
		preview := types.Truncate(types.StripDocumentPrefix(m.Content), PreviewLength)
		out = append(out, types.Suggestion{
			CodeFile:          d.FilePath,
			RelatedDoc:        &docPath,
			RelevanceScore:    types.Relevance(m.Distance),
			Reason:            sig.Reason(),
			DocPreview:        &preview,
			DiffSummary:       sig.Summary(),
			IsInDocsDirectory: InDocsDirectory(docPath, docsPaths),
			CommitRange:       d.CommitRange,
			ChangeType:        sig.ChangeType,
		})
	}
	for i := range out {
		if err := out[i].Validate(); err != nil {
			return nil, fmt.Errorf("suggestion for %s: %w", d.FilePath, err)
		}
	}
	return out, nil
}

// Query builds the search text for a code change
func Query(terms []string, filePath string) string {
	return types.QueryPrefix + strings.Join(terms, " ") + " " + filePath + " implementation"
}

// InDocsDirectory reports whether a matched document path belongs to the
// repository's docs directory. docsPaths are the markdown files found under
// that directory, relative to the repository root.
func InDocsDirectory(docPath string, docsPaths []string) bool {
	if strings.HasPrefix(docPath, DocsDir+"/") {
		return true
	}
	for _, p := range docsPaths {
		if strings.HasPrefix(docPath, p) {
			return true
		}
	}
	return false
}

// docsDirectoryDocs lists the markdown files under <repo>/docs relative to
// the repository root. A missing directory yields none.
func docsDirectoryDocs(repoPath string) []string {
	files, err := discover.Markdown(filepath.Join(repoPath, DocsDir))
	if err != nil {
		return nil
	}
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = DocsDir + "/" + f
	}
	return out
}

// buildReport ranks, groups and truncates suggestions
func buildReport(totalChanges int, suggestions []types.Suggestion) *types.Report {
	Rank(suggestions)

	var groups []string
	seen := make(map[string]bool)
	for i := range suggestions {
		key := suggestions[i].GroupKey()
		if !seen[key] {
			seen[key] = true
			groups = append(groups, key)
		}
	}

	report := &types.Report{
		TotalCodeChanges:         totalChanges,
		Suggestions:              suggestions[:min(len(suggestions), MaxSuggestions)],
		AffectedDocs:             make([]string, 0, len(groups)),
		DocsDirectorySuggestions: make([]types.Suggestion, 0),
		NewDocsNeeded:            make([]types.Suggestion, 0),
		Summary: fmt.Sprintf("Found %d documentation items that may need updates across %d files",
			len(suggestions), len(groups)),
	}
	report.AffectedDocs = append(report.AffectedDocs, groups...)
	for _, s := range suggestions {
		if s.IsInDocsDirectory && len(report.DocsDirectorySuggestions) < MaxSideList {
			report.DocsDirectorySuggestions = append(report.DocsDirectorySuggestions, s)
		}
		if s.RelatedDoc == nil && len(report.NewDocsNeeded) < MaxSideList {
			report.NewDocsNeeded = append(report.NewDocsNeeded, s)
		}
	}
	return report
}

// Rank orders suggestions with docs-directory documents first, then by
// relevance, both descending. Ties keep their input order.
func Rank(suggestions []types.Suggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.IsInDocsDirectory != b.IsInDocsDirectory {
			return a.IsInDocsDirectory
		}
		return a.RelevanceScore > b.RelevanceScore
	})
}

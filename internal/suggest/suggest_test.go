package suggest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docdrift-mcp/internal/discover"
	"github.com/dshills/docdrift-mcp/internal/embedder/embeddertest"
	"github.com/dshills/docdrift-mcp/internal/gitdiff"
	"github.com/dshills/docdrift-mcp/internal/gitdiff/gitdifftest"
	"github.com/dshills/docdrift-mcp/internal/progress"
	"github.com/dshills/docdrift-mcp/internal/storage"
	"github.com/dshills/docdrift-mcp/internal/vectorstore"
	"github.com/dshills/docdrift-mcp/pkg/types"
)

const testRange = "abc..def"

// mockStore answers queries by code file
type mockStore struct {
	mu      sync.Mutex
	matches map[string][]vectorstore.Match // keyed by code file found in the query
	errs    map[string]error
	queries []string
	ks      []int
}

func newMockStore() *mockStore {
	return &mockStore{
		matches: make(map[string][]vectorstore.Match),
		errs:    make(map[string]error),
	}
}

func (m *mockStore) Upsert(context.Context, string, []vectorstore.Record) error { return nil }

func (m *mockStore) Query(_ context.Context, collection, text string, k int) ([]vectorstore.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, text)
	m.ks = append(m.ks, k)
	for file, err := range m.errs {
		if strings.Contains(text, " "+file+" ") {
			return nil, err
		}
	}
	for file, matches := range m.matches {
		if strings.Contains(text, " "+file+" ") {
			return matches, nil
		}
	}
	return nil, nil
}

func (m *mockStore) ListCollections(context.Context) ([]string, error) { return nil, nil }
func (m *mockStore) DeleteCollection(context.Context, string) error    { return nil }

func (m *mockStore) Prune(context.Context, string, string, []string) (int, error) { return 0, nil }

func match(path string, distance float64) vectorstore.Match {
	return vectorstore.Match{
		ID:       path + "_0",
		Content:  types.DocumentPrefix + "# " + path,
		Metadata: map[string]any{"file_path": path},
		Distance: distance,
	}
}

// significantDiff scores 7 (one definition, three keywords, .py bonus)
func significantDiff(file string) string {
	return gitdifftest.Diff(file, []string{"def handler():", "    return api"}, nil)
}

func newEngine(store vectorstore.Store, repo *gitdifftest.Repository) *Engine {
	return New(store, repo.Opener(), nil)
}

func TestQuery(t *testing.T) {
	assert.Equal(t, "search_query: users server api/server.py implementation",
		Query([]string{"users", "server"}, "api/server.py"))
	assert.Equal(t, "search_query:  main.go implementation", Query(nil, "main.go"))
}

func TestInDocsDirectory(t *testing.T) {
	docs := []string{"docs/guide.md", "docs/api/users.md"}
	tests := []struct {
		path string
		want bool
	}{
		{"docs/guide.md", true},
		{"docs/anything.md", true},
		{"docs/api/users.md", true},
		{"README.md", false},
		{"guide.md", false},
		{"documentation/guide.md", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, InDocsDirectory(tt.path, docs))
		})
	}
}

func TestRank(t *testing.T) {
	s := []types.Suggestion{
		{CodeFile: "a", RelevanceScore: 0.9},
		{CodeFile: "b", RelevanceScore: 0.3, IsInDocsDirectory: true},
		{CodeFile: "c", RelevanceScore: 0.9},
		{CodeFile: "d", RelevanceScore: 0.5, IsInDocsDirectory: true},
	}
	Rank(s)

	var order []string
	for _, x := range s {
		order = append(order, x.CodeFile)
	}
	assert.Equal(t, []string{"d", "b", "a", "c"}, order)
}

func TestCheckDocs_DocsDirectoryRanksFirst(t *testing.T) {
	store := newMockStore()
	store.matches["api/server.py"] = []vectorstore.Match{
		match("README.md", 0.1),
		match("docs/guide.md", 0.7),
	}
	repo := gitdifftest.New().AddDiff(testRange, "api/server.py", significantDiff("api/server.py"))

	report, err := newEngine(store, repo).CheckDocs(context.Background(), Request{
		RepoPath:    t.TempDir(),
		CommitRange: testRange,
	}, nil)
	require.NoError(t, err)

	require.Len(t, report.Suggestions, 2)
	first, second := report.Suggestions[0], report.Suggestions[1]
	require.NotNil(t, first.RelatedDoc)
	assert.Equal(t, "docs/guide.md", *first.RelatedDoc)
	assert.True(t, first.IsInDocsDirectory)
	assert.InDelta(t, 0.3, first.RelevanceScore, 1e-9)
	assert.Equal(t, "README.md", *second.RelatedDoc)
	assert.InDelta(t, 0.9, second.RelevanceScore, 1e-9)

	assert.Equal(t, "api/server.py", first.CodeFile)
	assert.Equal(t, testRange, first.CommitRange)
	assert.Equal(t, types.ChangeModerate, first.ChangeType)
	assert.Equal(t, "Score: 7, 2 lines added, 0 lines removed", first.DiffSummary)
	assert.Contains(t, first.Reason, "Added 1 new function/class definitions")
	require.NotNil(t, first.DocPreview)
	assert.Equal(t, "# docs/guide.md", *first.DocPreview)

	assert.Equal(t, []string{"docs/guide.md", "README.md"}, report.AffectedDocs)
	assert.Len(t, report.DocsDirectorySuggestions, 1)
	assert.Empty(t, report.NewDocsNeeded)
	assert.Equal(t, 1, report.TotalCodeChanges)
	assert.Equal(t, "Found 2 documentation items that may need updates across 2 files", report.Summary)

	require.Len(t, store.queries, 1)
	assert.True(t, strings.HasPrefix(store.queries[0], types.QueryPrefix))
	assert.True(t, strings.HasSuffix(store.queries[0], " api/server.py implementation"))
	assert.Equal(t, DefaultQueryResults, store.ks[0])
}

func TestCheckDocs_DocsFoundUnderRepository(t *testing.T) {
	repoPath := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(repoPath, "docs", "api"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repoPath, "docs", "api", "users.md"), []byte("# Users"), 0o644))

	assert.Equal(t, []string{"docs/api/users.md"}, docsDirectoryDocs(repoPath))
	assert.Nil(t, docsDirectoryDocs(t.TempDir()))
}

func TestCheckDocs_NoMatchesNeedsNewDocs(t *testing.T) {
	store := newMockStore()
	repo := gitdifftest.New().AddDiff(testRange, "api/server.py", significantDiff("api/server.py"))

	report, err := newEngine(store, repo).CheckDocs(context.Background(), Request{
		RepoPath:    t.TempDir(),
		CommitRange: testRange,
	}, nil)
	require.NoError(t, err)

	require.Len(t, report.Suggestions, 1)
	s := report.Suggestions[0]
	assert.Nil(t, s.RelatedDoc)
	assert.Nil(t, s.DocPreview)
	assert.Equal(t, 1.0, s.RelevanceScore)
	assert.False(t, s.IsInDocsDirectory)
	assert.True(t, strings.HasPrefix(s.Reason, "Create new documentation for Added 1 new function/class definitions"))

	assert.Equal(t, []string{types.NewDocumentationGroup}, report.AffectedDocs)
	assert.Len(t, report.NewDocsNeeded, 1)
	assert.Empty(t, report.DocsDirectorySuggestions)
	assert.Equal(t, "Found 1 documentation items that may need updates across 1 files", report.Summary)
}

func TestCheckDocs_NoCodeChanges(t *testing.T) {
	store := newMockStore()
	repo := gitdifftest.New().
		AddDiff(testRange, "README.md", gitdifftest.Diff("README.md", []string{"def api(): return"}, nil)).
		AddDiff(testRange, "config.yaml", gitdifftest.Diff("config.yaml", []string{"env: prod"}, nil))

	rec := &progress.Recorder{}
	report, err := newEngine(store, repo).CheckDocs(context.Background(), Request{
		RepoPath:    t.TempDir(),
		CommitRange: testRange,
	}, rec)
	require.NoError(t, err)

	assert.Equal(t, 0, report.TotalCodeChanges)
	assert.Empty(t, report.Suggestions)
	assert.Empty(t, report.AffectedDocs)
	assert.NotNil(t, report.DocsDirectorySuggestions)
	assert.NotNil(t, report.NewDocsNeeded)
	assert.Equal(t, "Found 0 documentation items that may need updates across 0 files", report.Summary)
	assert.Empty(t, store.queries)
	assert.Contains(t, rec.Messages("info"), "Found 0 code changes with diff content")
}

func TestCheckDocs_InsignificantChangesSkipped(t *testing.T) {
	store := newMockStore()
	repo := gitdifftest.New().AddDiff(testRange, "util.go", gitdifftest.Diff("util.go", []string{"x := 1"}, []string{"x := 2"}))

	report, err := newEngine(store, repo).CheckDocs(context.Background(), Request{
		RepoPath:    t.TempDir(),
		CommitRange: testRange,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalCodeChanges)
	assert.Empty(t, report.Suggestions)
	assert.Empty(t, store.queries)
}

func TestCheckDocs_EmptyDiffCountsAsCodeChange(t *testing.T) {
	store := newMockStore()
	repo := gitdifftest.New().
		AddDiff(testRange, "scripts/deploy.py", "").
		AddDiff(testRange, "api/server.py", significantDiff("api/server.py"))

	report, err := newEngine(store, repo).CheckDocs(context.Background(), Request{
		RepoPath:    t.TempDir(),
		CommitRange: testRange,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalCodeChanges)
	require.Len(t, report.Suggestions, 1)
	assert.Equal(t, "api/server.py", report.Suggestions[0].CodeFile)
	assert.Len(t, store.queries, 1, "an empty diff is not significant")
}

func TestCheckDocs_QueryFailureSkipsFile(t *testing.T) {
	store := newMockStore()
	store.errs["a.py"] = fmt.Errorf("%w: connection refused", vectorstore.ErrUnavailable)
	store.matches["b.py"] = []vectorstore.Match{match("guide.md", 0.2)}
	repo := gitdifftest.New().
		AddDiff(testRange, "a.py", significantDiff("a.py")).
		AddDiff(testRange, "b.py", significantDiff("b.py"))

	rec := &progress.Recorder{}
	report, err := newEngine(store, repo).CheckDocs(context.Background(), Request{
		RepoPath:    t.TempDir(),
		CommitRange: testRange,
	}, rec)
	require.NoError(t, err)

	require.Len(t, report.Suggestions, 1)
	assert.Equal(t, "b.py", report.Suggestions[0].CodeFile)
	assert.Equal(t, 2, report.TotalCodeChanges)

	warnings := rec.Messages("warn")
	require.Len(t, warnings, 1)
	assert.True(t, strings.HasPrefix(warnings[0], "Failed to query for a.py: "))
	assert.Equal(t, []string{"1/2", "2/2"}, rec.Messages("progress"))
}

func TestCheckDocs_Truncation(t *testing.T) {
	store := newMockStore()
	repo := gitdifftest.New()
	for i := 0; i < 20; i++ {
		file := fmt.Sprintf("svc/mod%02d.py", i)
		repo.AddDiff(testRange, file, significantDiff(file))
		if i%2 == 0 {
			store.matches[file] = []vectorstore.Match{match(fmt.Sprintf("docs/mod%02d.md", i), 0.5)}
		}
	}

	report, err := newEngine(store, repo).CheckDocs(context.Background(), Request{
		RepoPath:    t.TempDir(),
		CommitRange: testRange,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 20, report.TotalCodeChanges)
	assert.Len(t, report.Suggestions, MaxSuggestions)
	assert.Len(t, report.DocsDirectorySuggestions, MaxSideList)
	assert.Len(t, report.NewDocsNeeded, MaxSideList)
	assert.Len(t, report.AffectedDocs, 11)
	assert.Equal(t, "Found 20 documentation items that may need updates across 11 files", report.Summary)

	for i, s := range report.Suggestions[:10] {
		assert.True(t, s.IsInDocsDirectory, "suggestion %d", i)
	}
	for _, s := range report.NewDocsNeeded {
		assert.Nil(t, s.RelatedDoc)
	}
}

func TestCheckDocs_PreviewTruncated(t *testing.T) {
	store := newMockStore()
	long := strings.Repeat("x", 300)
	store.matches["a.py"] = []vectorstore.Match{{
		ID:       "guide_0",
		Content:  types.DocumentPrefix + long,
		Metadata: map[string]any{},
		Distance: 0.4,
	}}
	repo := gitdifftest.New().AddDiff(testRange, "a.py", significantDiff("a.py"))

	report, err := newEngine(store, repo).CheckDocs(context.Background(), Request{
		RepoPath:    t.TempDir(),
		CommitRange: testRange,
	}, nil)
	require.NoError(t, err)

	require.Len(t, report.Suggestions, 1)
	s := report.Suggestions[0]
	assert.Equal(t, strings.Repeat("x", PreviewLength)+"...", *s.DocPreview)
	assert.Equal(t, "guide_0", *s.RelatedDoc, "a hit without file_path is identified by its id")
}

func TestCheckDocs_RelevanceWithinUnitRange(t *testing.T) {
	store := newMockStore()
	store.matches["a.py"] = []vectorstore.Match{match("guide.md", 0.3), match("opposite.md", 1.8)}
	repo := gitdifftest.New().AddDiff(testRange, "a.py", significantDiff("a.py"))

	report, err := newEngine(store, repo).CheckDocs(context.Background(), Request{
		RepoPath:    t.TempDir(),
		CommitRange: testRange,
	}, nil)
	require.NoError(t, err)

	require.Len(t, report.Suggestions, 2)
	assert.Equal(t, "guide.md", *report.Suggestions[0].RelatedDoc)
	assert.InDelta(t, 0.7, report.Suggestions[0].RelevanceScore, 1e-9)
	assert.Equal(t, "opposite.md", *report.Suggestions[1].RelatedDoc)
	assert.Zero(t, report.Suggestions[1].RelevanceScore)
	for _, s := range report.Suggestions {
		assert.NoError(t, s.Validate())
	}
}

func TestCheckDocs_RecentWindow(t *testing.T) {
	store := newMockStore()
	repo := gitdifftest.New().AddDiff("base..HEAD", "a.py", significantDiff("a.py"))
	repo.SetWindow("base..HEAD", "base..HEAD")

	report, err := newEngine(store, repo).CheckDocs(context.Background(), Request{RepoPath: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSinceDays, repo.SinceDays)
	require.Len(t, report.Suggestions, 1)
	assert.Equal(t, "base..HEAD", report.Suggestions[0].CommitRange)
}

func TestCheckDocs_Errors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tests := []struct {
		name string
		req  Request
		open gitdiff.Opener
		want error
	}{
		{name: "missing path", req: Request{RepoPath: filepath.Join(dir, "nope")}, want: discover.ErrPathNotFound},
		{name: "not a directory", req: Request{RepoPath: file}, want: discover.ErrNotDirectory},
		{name: "negative since days", req: Request{RepoPath: dir, SinceDays: -2}, want: gitdiff.ErrInvalidSinceDays},
		{
			name: "not a repository",
			req:  Request{RepoPath: dir},
			open: func(string) (gitdiff.Repository, error) { return nil, gitdiff.ErrNotRepository },
			want: gitdiff.ErrNotRepository,
		},
		{name: "unknown range", req: Request{RepoPath: dir, CommitRange: "x..y"}, want: gitdifftest.ErrUnknownRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			open := tt.open
			if open == nil {
				open = gitdifftest.New().Opener()
			}
			report, err := New(newMockStore(), open, nil).CheckDocs(context.Background(), tt.req, nil)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, report)
		})
	}
}

func TestCheckDocs_Cancelled(t *testing.T) {
	store := newMockStore()
	repo := gitdifftest.New().AddDiff(testRange, "a.py", significantDiff("a.py"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(store, repo).CheckDocs(ctx, Request{RepoPath: t.TempDir(), CommitRange: testRange}, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCheckDocs_WithVectorStore(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := vectorstore.New(db, embeddertest.New())

	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, DefaultCollection, []vectorstore.Record{
		{
			ID:       "users_0",
			Content:  types.DocumentPrefix + "The users handler returns the api user list.",
			Metadata: map[string]any{"file_path": "docs/users.md"},
		},
		{
			ID:       "install_0",
			Content:  types.DocumentPrefix + "Install the binary with make.",
			Metadata: map[string]any{"file_path": "INSTALL.md"},
		},
	}))

	repo := gitdifftest.New().AddDiff(testRange, "users.py", significantDiff("users.py"))
	report, err := New(store, repo.Opener(), nil, WithQueryResults(1)).CheckDocs(ctx, Request{
		RepoPath:    t.TempDir(),
		CommitRange: testRange,
	}, nil)
	require.NoError(t, err)

	require.Len(t, report.Suggestions, 1)
	s := report.Suggestions[0]
	assert.Equal(t, "docs/users.md", *s.RelatedDoc)
	assert.True(t, s.IsInDocsDirectory)
	assert.Greater(t, s.RelevanceScore, 0.0)
	assert.LessOrEqual(t, s.RelevanceScore, 1.0)
}

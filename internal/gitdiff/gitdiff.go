// Package gitdiff resolves commit ranges and recent-change windows into
// per-file unified diffs by running the git command line tool.
package gitdiff

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dshills/docdrift-mcp/pkg/types"
)

var (
	// ErrNotRepository is returned when a path is not inside a git work tree
	ErrNotRepository = errors.New("not a git repository")

	// ErrGitUnavailable is returned when the git binary cannot be found
	ErrGitUnavailable = errors.New("git executable not found")

	// ErrInvalidSinceDays is returned for a non-positive day window
	ErrInvalidSinceDays = errors.New("since_days must be positive")
)

// Window is the set of files changed by the commits of a recent period,
// diffed against the parent of the earliest of those commits.
type Window struct {
	Base  string   // Full hash of the parent of the earliest commit
	Range string   // Range passed to git diff, "<base>..HEAD"
	Label string   // Short form, "<base[:8]>..HEAD"
	Files []string // Sorted, slash separated, relative to the repository root
}

// Repository is the git collaborator of the indexing and suggestion pipelines
type Repository interface {
	// ChangedFiles lists files changed in a commit range
	ChangedFiles(ctx context.Context, commitRange string) ([]string, error)

	// RecentChanges resolves the files changed in the last sinceDays days.
	// It returns nil when there are no commits in the window or the
	// earliest one has no parent.
	RecentChanges(ctx context.Context, sinceDays int) (*Window, error)

	// Diff returns the unified diff of one file over a commit range
	Diff(ctx context.Context, commitRange, file string) (string, error)
}

// Opener opens the repository at a path
type Opener func(path string) (Repository, error)

// CLIRepository implements Repository with the git executable
type CLIRepository struct {
	root string
	git  string
}

// Open returns a CLIRepository for the work tree containing path
func Open(path string) (Repository, error) {
	return OpenCLI(path)
}

// OpenCLI validates path and returns a CLIRepository rooted at the top of its work tree
func OpenCLI(path string) (*CLIRepository, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, ErrGitUnavailable
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to access %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotRepository)
	}

	r := &CLIRepository{root: abs, git: gitPath}
	top, err := r.run(context.Background(), "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, ErrNotRepository)
	}
	r.root = strings.TrimSpace(top)
	return r, nil
}

// Root returns the work tree root
func (r *CLIRepository) Root() string {
	return r.root
}

// ChangedFiles lists files changed in a commit range
func (r *CLIRepository) ChangedFiles(ctx context.Context, commitRange string) ([]string, error) {
	out, err := r.run(ctx, "diff", "--name-only", commitRange)
	if err != nil {
		return nil, fmt.Errorf("failed to list changed files for %s: %w", commitRange, err)
	}
	return splitLines(out), nil
}

// RecentChanges resolves the files changed by commits of the last sinceDays days
func (r *CLIRepository) RecentChanges(ctx context.Context, sinceDays int) (*Window, error) {
	if sinceDays <= 0 {
		return nil, ErrInvalidSinceDays
	}
	since := "--since=" + strconv.Itoa(sinceDays) + ".days.ago"

	out, err := r.run(ctx, "log", since, "--format=%H", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("failed to list recent commits: %w", err)
	}
	commits := splitLines(out)
	if len(commits) == 0 {
		return nil, nil
	}

	// Newest first; the earliest commit is last
	earliest := commits[len(commits)-1]
	out, err = r.run(ctx, "rev-list", "--parents", "-n", "1", earliest)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve parent of %s: %w", earliest, err)
	}
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return nil, nil
	}
	base := fields[1]

	out, err = r.run(ctx, "log", since, "--name-only", "--format=", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("failed to list recently changed files: %w", err)
	}
	seen := make(map[string]bool)
	var files []string
	for _, f := range splitLines(out) {
		if !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}
	sort.Strings(files)

	return &Window{
		Base:  base,
		Range: base + "..HEAD",
		Label: shortHash(base) + "..HEAD",
		Files: files,
	}, nil
}

// Diff returns the unified diff of one file over a commit range
func (r *CLIRepository) Diff(ctx context.Context, commitRange, file string) (string, error) {
	out, err := r.run(ctx, "diff", commitRange, "--", file)
	if err != nil {
		return "", fmt.Errorf("failed to diff %s over %s: %w", file, commitRange, err)
	}
	return out, nil
}

func (r *CLIRepository) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.git, args...)
	cmd.Dir = r.root
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git %s: %s: %w", args[0], msg, err)
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

// Resolve produces the diffs of a commit range, or of the recent-change
// window when commitRange is empty. A file whose diff cannot be read is
// reported through warn and skipped. Files with an empty diff, such as mode
// changes, are kept.
func Resolve(ctx context.Context, repo Repository, commitRange string, sinceDays int, warn func(string)) ([]types.DiffRecord, error) {
	var (
		files     []string
		diffRange string
		label     string
	)

	if commitRange != "" {
		changed, err := repo.ChangedFiles(ctx, commitRange)
		if err != nil {
			return nil, err
		}
		files, diffRange, label = changed, commitRange, commitRange
	} else {
		window, err := repo.RecentChanges(ctx, sinceDays)
		if err != nil {
			return nil, err
		}
		if window == nil {
			return []types.DiffRecord{}, nil
		}
		files, diffRange, label = window.Files, window.Range, window.Label
	}

	records := make([]types.DiffRecord, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		content, err := repo.Diff(ctx, diffRange, file)
		if err != nil {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			if warn != nil {
				warn(fmt.Sprintf("Failed to get diff for %s: %v", file, err))
			}
			continue
		}
		records = append(records, types.DiffRecord{FilePath: file, DiffContent: content, CommitRange: label})
	}
	return records, nil
}

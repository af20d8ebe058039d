// Package gitdifftest provides an in-memory gitdiff.Repository for tests.
package gitdifftest

import (
	"context"
	"errors"
	"sort"

	"github.com/dshills/docdrift-mcp/internal/gitdiff"
)

// ErrUnknownRange is returned for a commit range the fake has no data for
var ErrUnknownRange = errors.New("unknown commit range")

// Repository is a gitdiff.Repository backed by maps
type Repository struct {
	// Diffs maps a commit range to file diffs
	Diffs map[string]map[string]string

	// Window is returned by RecentChanges; nil means no qualifying commits
	Window *gitdiff.Window

	// DiffErrors makes Diff fail for the named files
	DiffErrors map[string]error

	// SinceDays records the last window requested
	SinceDays int
}

// New creates an empty fake repository
func New() *Repository {
	return &Repository{
		Diffs:      make(map[string]map[string]string),
		DiffErrors: make(map[string]error),
	}
}

// AddDiff registers the diff of a file over a range
func (r *Repository) AddDiff(commitRange, file, diff string) *Repository {
	if r.Diffs[commitRange] == nil {
		r.Diffs[commitRange] = make(map[string]string)
	}
	r.Diffs[commitRange][file] = diff
	return r
}

// SetWindow registers the recent-change window over an already added range
func (r *Repository) SetWindow(commitRange, label string) *Repository {
	files := make([]string, 0, len(r.Diffs[commitRange]))
	for f := range r.Diffs[commitRange] {
		files = append(files, f)
	}
	sort.Strings(files)
	r.Window = &gitdiff.Window{Range: commitRange, Label: label, Files: files}
	return r
}

// ChangedFiles lists the files registered for a range in sorted order
func (r *Repository) ChangedFiles(ctx context.Context, commitRange string) ([]string, error) {
	diffs, ok := r.Diffs[commitRange]
	if !ok {
		return nil, ErrUnknownRange
	}
	files := make([]string, 0, len(diffs))
	for f := range diffs {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

// RecentChanges returns the configured window
func (r *Repository) RecentChanges(ctx context.Context, sinceDays int) (*gitdiff.Window, error) {
	if sinceDays <= 0 {
		return nil, gitdiff.ErrInvalidSinceDays
	}
	r.SinceDays = sinceDays
	return r.Window, nil
}

// Diff returns the registered diff
func (r *Repository) Diff(ctx context.Context, commitRange, file string) (string, error) {
	if err := r.DiffErrors[file]; err != nil {
		return "", err
	}
	diffs, ok := r.Diffs[commitRange]
	if !ok {
		return "", ErrUnknownRange
	}
	return diffs[file], nil
}

// Opener returns an opener that always yields r
func (r *Repository) Opener() gitdiff.Opener {
	return func(string) (gitdiff.Repository, error) {
		return r, nil
	}
}

// Diff builds a unified diff body from added and removed lines
func Diff(file string, added, removed []string) string {
	out := "diff --git a/" + file + " b/" + file + "\n--- a/" + file + "\n+++ b/" + file + "\n@@ -1 +1 @@\n"
	for _, l := range removed {
		out += "-" + l + "\n"
	}
	for _, l := range added {
		out += "+" + l + "\n"
	}
	return out
}

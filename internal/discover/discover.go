// Package discover finds markdown documents under a directory tree.
package discover

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// MarkdownExt is the extension of indexed documents
const MarkdownExt = ".md"

var (
	ErrPathNotFound = errors.New("path does not exist")
	ErrNotDirectory = errors.New("path is not a directory")
)

var skipDirs = map[string]struct{}{
	"node_modules":  {},
	"vendor":        {},
	"__pycache__":   {},
	"venv":          {},
	"site-packages": {},
}

// Markdown returns the markdown files under root as slash separated paths
// relative to root, sorted. Hidden entries, dependency directories and paths
// matched by root's .gitignore are skipped.
func Markdown(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "discover", Path: root, Err: errors.New("not a directory")}
	}

	gi := loadGitignore(root)
	var results []string

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // unreadable entries are skipped
		}

		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(relSlash(root, path)+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") || d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if filepath.Ext(name) != MarkdownExt {
			return nil
		}

		rel := relSlash(root, path)
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		results = append(results, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(results)
	return results, nil
}

// ValidateDir checks that path exists and is a directory
func ValidateDir(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, path)
	}
	return nil
}

// IsMarkdown reports whether a path names a markdown document
func IsMarkdown(path string) bool {
	return filepath.Ext(path) == MarkdownExt && !strings.HasPrefix(filepath.Base(path), ".")
}

// Skipped reports whether a directory name is excluded from discovery
func Skipped(dirName string) bool {
	_, skip := skipDirs[dirName]
	return skip || (strings.HasPrefix(dirName, ".") && dirName != "." && dirName != "..")
}

func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

// Package watcher keeps a documentation collection in sync with a folder by
// re-indexing markdown files as they change on disk.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/docdrift-mcp/internal/discover"
	"github.com/dshills/docdrift-mcp/internal/indexer"
	"github.com/dshills/docdrift-mcp/internal/progress"
)

// DefaultDebounce is how long the watcher waits for a burst of events to settle
const DefaultDebounce = 500 * time.Millisecond

// ErrClosed is returned by Run after Close
var ErrClosed = errors.New("watcher is closed")

// Indexer is the part of indexer.Indexer the watcher drives
type Indexer interface {
	IndexFile(ctx context.Context, root, rel, collection string) indexer.FileResult
	RemoveFile(ctx context.Context, rel, collection string) (int, error)
}

// Op is the action a change needs
type Op int

const (
	OpUpdate Op = iota + 1
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpUpdate:
		return "update"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Change is a pending action for one markdown file
type Change struct {
	Path string // Slash separated, relative to the watched root
	Op   Op
}

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce sets the quiet period before pending changes are applied
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithReporter sets where applied changes and failures are reported
func WithReporter(r progress.Reporter) Option {
	return func(w *Watcher) { w.reporter = progress.OrDiscard(r) }
}

// WithOnFlush registers fn to be called with every applied batch
func WithOnFlush(fn func([]Change)) Option {
	return func(w *Watcher) { w.onFlush = fn }
}

// Watcher re-indexes markdown files under a root directory as they change
type Watcher struct {
	root       string
	collection string
	idx        Indexer
	fs         *fsnotify.Watcher
	debounce   time.Duration
	reporter   progress.Reporter
	onFlush    func([]Change)
}

// New starts watching root and every non-hidden directory below it
func New(root, collection string, idx Indexer, opts ...Option) (*Watcher, error) {
	if err := discover.ValidateDir(root); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		root:       abs,
		collection: collection,
		idx:        idx,
		fs:         fsw,
		debounce:   DefaultDebounce,
		reporter:   progress.Discard,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addTree(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and its subdirectories, skipping the ones discovery skips
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && discover.Skipped(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Run applies changes until ctx is cancelled or the watcher is closed
func (w *Watcher) Run(ctx context.Context) error {
	pending := make(map[string]Op)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	w.reporter.Info(ctx, fmt.Sprintf("Watching %s for documentation changes", w.root))

	for {
		select {
		case <-ctx.Done():
			w.flush(context.WithoutCancel(ctx), pending)
			return ctx.Err()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return ErrClosed
			}
			for _, c := range w.handleEvent(ev) {
				pending[c.Path] = c.Op
			}
			if len(pending) > 0 {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return ErrClosed
			}
			w.reporter.Warn(ctx, fmt.Sprintf("Watch error: %v", err))

		case <-timer.C:
			w.flush(ctx, pending)
			clear(pending)
		}
	}
}

// handleEvent turns a file system event into the changes it implies
func (w *Watcher) handleEvent(ev fsnotify.Event) []Change {
	rel, ok := w.relative(ev.Name)
	if !ok || hidden(rel) {
		return nil
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if discover.Skipped(info.Name()) {
				return nil
			}
			return w.newDirectory(ev.Name)
		}
	}

	if !discover.IsMarkdown(rel) {
		return nil
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return []Change{{Path: rel, Op: OpRemove}}
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		if _, err := os.Stat(ev.Name); err != nil {
			return []Change{{Path: rel, Op: OpRemove}}
		}
		return []Change{{Path: rel, Op: OpUpdate}}
	default:
		return nil
	}
}

// newDirectory watches a directory created after startup and queues the
// markdown files already inside it
func (w *Watcher) newDirectory(dir string) []Change {
	if err := w.addTree(dir); err != nil {
		w.reporter.Warn(context.Background(), err.Error())
		return nil
	}
	files, err := discover.Markdown(dir)
	if err != nil {
		return nil
	}
	changes := make([]Change, 0, len(files))
	for _, f := range files {
		if rel, ok := w.relative(filepath.Join(dir, filepath.FromSlash(f))); ok {
			changes = append(changes, Change{Path: rel, Op: OpUpdate})
		}
	}
	return changes
}

func (w *Watcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// hidden reports whether any component of rel is excluded from discovery
func hidden(rel string) bool {
	parts := strings.Split(rel, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, ".") {
			return true
		}
		if i < len(parts)-1 && discover.Skipped(p) {
			return true
		}
	}
	return false
}

// flush applies pending changes in path order
func (w *Watcher) flush(ctx context.Context, pending map[string]Op) {
	if len(pending) == 0 {
		return
	}
	batch := make([]Change, 0, len(pending))
	for path, op := range pending {
		batch = append(batch, Change{Path: path, Op: op})
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })

	for _, c := range batch {
		switch c.Op {
		case OpUpdate:
			res := w.idx.IndexFile(ctx, w.root, c.Path, w.collection)
			if res.Err != nil {
				w.reporter.Warn(ctx, fmt.Sprintf("Failed to index %s: %v", c.Path, res.Err))
				continue
			}
			w.reporter.Info(ctx, fmt.Sprintf("Re-indexed %s (%d chunks)", c.Path, res.Chunks))
		case OpRemove:
			n, err := w.idx.RemoveFile(ctx, c.Path, w.collection)
			if err != nil {
				w.reporter.Warn(ctx, fmt.Sprintf("Failed to remove %s: %v", c.Path, err))
				continue
			}
			w.reporter.Info(ctx, fmt.Sprintf("Removed %s (%d chunks)", c.Path, n))
		}
	}

	if w.onFlush != nil {
		w.onFlush(batch)
	}
}

// Close stops watching. A running Run returns ErrClosed.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

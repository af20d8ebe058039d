// Package progress carries informational messages, warnings and progress
// counts from long-running operations to whoever started them.
package progress

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/docdrift-mcp/internal/logging"
)

// Reporter receives updates from indexing and checking operations.
// One operation never calls its reporter concurrently.
type Reporter interface {
	Info(ctx context.Context, msg string)
	Warn(ctx context.Context, msg string)
	Progress(ctx context.Context, current, total int)
}

// Discard ignores every update
var Discard Reporter = discard{}

type discard struct{}

func (discard) Info(context.Context, string)       {}
func (discard) Warn(context.Context, string)       {}
func (discard) Progress(context.Context, int, int) {}

// Log writes updates to a logger. Progress is logged at debug level.
type Log struct {
	Logger *logging.Logger
}

func (l Log) logger() *logging.Logger {
	if l.Logger == nil {
		return logging.Default()
	}
	return l.Logger
}

func (l Log) Info(_ context.Context, msg string) {
	l.logger().Infof("%s", msg)
}

func (l Log) Warn(_ context.Context, msg string) {
	l.logger().Warnf("%s", msg)
}

func (l Log) Progress(_ context.Context, current, total int) {
	l.logger().Debugf("progress %d/%d", current, total)
}

// Event is one recorded update
type Event struct {
	Kind    string // info, warn or progress
	Message string
	Current int
	Total   int
}

// Recorder keeps every update in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Info(_ context.Context, msg string) {
	r.add(Event{Kind: "info", Message: msg})
}

func (r *Recorder) Warn(_ context.Context, msg string) {
	r.add(Event{Kind: "warn", Message: msg})
}

func (r *Recorder) Progress(_ context.Context, current, total int) {
	r.add(Event{Kind: "progress", Message: fmt.Sprintf("%d/%d", current, total), Current: current, Total: total})
}

// Events returns a copy of all recorded updates in order
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Messages returns the messages of one kind in order
func (r *Recorder) Messages(kind string) []string {
	var out []string
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e.Message)
		}
	}
	return out
}

// OrDiscard returns r, or Discard when r is nil
func OrDiscard(r Reporter) Reporter {
	if r == nil {
		return Discard
	}
	return r
}

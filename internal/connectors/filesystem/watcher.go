// Package filesystem ingests PDFs from a local directory, once on demand or
// continuously as files are created and modified.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docsai/internal/core/ports/driving"
	"github.com/custodia-labs/docsai/internal/logger"
)

// DefaultDebounce is how long a file must be quiet before it is ingested.
// Copying a large PDF produces a burst of write events.
const DefaultDebounce = 500 * time.Millisecond

// ErrWatcherClosed is returned by Watch after Close.
var ErrWatcherClosed = errors.New("watcher closed")

// Result reports the outcome of ingesting one file.
type Result struct {
	Path   string
	Chunks int
	Err    error
}

// Watcher ingests PDFs found under a root directory.
type Watcher struct {
	root     string
	ingest   driving.IngestService
	debounce time.Duration

	mu     sync.Mutex
	closed bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for root.
func NewWatcher(root string, ingest driving.IngestService, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		ingest:   ingest,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the watched directory.
func (w *Watcher) Root() string { return w.root }

// Scan ingests every PDF already under root, skipping hidden files and
// directories. A failure on one file does not stop the scan.
func (w *Watcher) Scan(ctx context.Context) ([]Result, error) {
	if err := w.validateRoot(); err != nil {
		return nil, err
	}

	var results []Result
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path != w.root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isPDF(path) {
			return nil
		}
		results = append(results, w.ingestFile(ctx, path))
		return nil
	})
	return results, err
}

// Watch ingests PDFs as they are created or modified under root (not
// recursively). The returned channel is closed when ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context) (<-chan Result, error) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return nil, ErrWatcherClosed
	}

	if err := w.validateRoot(); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(w.root); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", w.root, err)
	}

	out := make(chan Result)
	go w.loop(ctx, fw, out)
	return out, nil
}

// Close stops future Watch calls. Running watches end with their context.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- Result) {
	defer close(out)
	defer fw.Close()

	d := newDebouncer(w.debounce)
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if path, ok := handleFsEvent(event); ok {
				d.schedule(ctx, path)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch %s: %v", w.root, err)

		case f := <-d.ready:
			if !d.accept(f) {
				continue
			}
			res := w.ingestFile(ctx, f.path)
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

// firing is a debounce timer expiry for one scheduling of path.
type firing struct {
	path string
	gen  uint64
}

type pendingPath struct {
	timer *time.Timer
	gen   uint64
}

// debouncer delays each path until it has been quiet for delay. Only the
// latest scheduling of a path is accepted, so a timer that fired while a new
// event arrived cannot ingest the file twice. Not safe for concurrent use;
// the watch loop owns it.
type debouncer struct {
	delay   time.Duration
	ready   chan firing
	pending map[string]pendingPath
	gen     uint64
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		ready:   make(chan firing),
		pending: make(map[string]pendingPath),
	}
}

// schedule (re)starts the quiet period for path.
func (d *debouncer) schedule(ctx context.Context, path string) {
	if p, ok := d.pending[path]; ok {
		p.timer.Stop()
	}
	d.gen++
	f := firing{path: path, gen: d.gen}
	d.pending[path] = pendingPath{
		gen: f.gen,
		timer: time.AfterFunc(d.delay, func() {
			select {
			case d.ready <- f:
			case <-ctx.Done():
			}
		}),
	}
}

// accept reports whether f is the current scheduling of its path and, if so,
// clears it.
func (d *debouncer) accept(f firing) bool {
	p, ok := d.pending[f.path]
	if !ok || p.gen != f.gen {
		return false
	}
	delete(d.pending, f.path)
	return true
}

func (d *debouncer) stop() {
	for _, p := range d.pending {
		p.timer.Stop()
	}
}

func (w *Watcher) ingestFile(ctx context.Context, path string) Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Path: path, Err: fmt.Errorf("read %s: %w", path, err)}
	}

	n, err := w.ingest.Ingest(ctx, data, filepath.Base(path))
	if err != nil {
		logger.Warn("ingest %s: %v", path, err)
		return Result{Path: path, Err: err}
	}
	logger.Info("Ingested %s (%d chunks)", path, n)
	return Result{Path: path, Chunks: n}
}

func (w *Watcher) validateRoot() error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", w.root)
	}
	return nil
}

// handleFsEvent returns the path to ingest for event, if any. Only creates
// and writes of visible PDF files qualify.
func handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if isHidden(event.Name) || !isPDF(event.Name) {
		return "", false
	}
	if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
		return "", false
	}
	return event.Name, true
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "." || part == ".." || part == "" {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockIngest struct {
	mu      sync.Mutex
	sources []string
	err     error
}

func (m *mockIngest) Ingest(_ context.Context, data []byte, source string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, source)
	if m.err != nil {
		return 0, m.err
	}
	return len(data), nil
}

func (m *mockIngest) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sources...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.pdf"), "aaaa")
	writeFile(t, filepath.Join(dir, "B.PDF"), "bb")
	writeFile(t, filepath.Join(dir, "notes.txt"), "skip")
	writeFile(t, filepath.Join(dir, ".draft.pdf"), "skip")
	writeFile(t, filepath.Join(dir, ".cache", "c.pdf"), "skip")
	writeFile(t, filepath.Join(dir, "nested", "d.pdf"), "d")

	ing := &mockIngest{}
	results, err := NewWatcher(dir, ing).Scan(context.Background())

	require.NoError(t, err)
	got := ing.calls()
	sort.Strings(got)
	assert.Equal(t, []string{"B.PDF", "a.pdf", "d.pdf"}, got)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
}

func TestScan_ContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.pdf"), "a")
	writeFile(t, filepath.Join(dir, "b.pdf"), "b")

	ing := &mockIngest{err: errors.New("embed failed")}
	results, err := NewWatcher(dir, ing).Scan(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Error(t, r.Err)
	}
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := NewWatcher("/non/existent/path", &mockIngest{}).Scan(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root path error")
}

func TestWatch(t *testing.T) {
	t.Run("ingests new PDF", func(t *testing.T) {
		dir := t.TempDir()
		ing := &mockIngest{}
		w := NewWatcher(dir, ing, WithDebounce(20*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		results, err := w.Watch(ctx)
		require.NoError(t, err)

		writeFile(t, filepath.Join(dir, "paper.pdf"), "%PDF")

		select {
		case r := <-results:
			require.NoError(t, r.Err)
			assert.Equal(t, filepath.Join(dir, "paper.pdf"), r.Path)
			assert.Equal(t, 4, r.Chunks)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for ingest")
		}
	})

	t.Run("debounces bursts of writes", func(t *testing.T) {
		dir := t.TempDir()
		ing := &mockIngest{}
		w := NewWatcher(dir, ing, WithDebounce(200*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		results, err := w.Watch(ctx)
		require.NoError(t, err)

		path := filepath.Join(dir, "big.pdf")
		for i := 0; i < 5; i++ {
			writeFile(t, path, "part")
			time.Sleep(10 * time.Millisecond)
		}

		select {
		case r := <-results:
			require.NoError(t, r.Err)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for ingest")
		}

		select {
		case r := <-results:
			t.Fatalf("unexpected second ingest of %s", r.Path)
		case <-time.After(400 * time.Millisecond):
		}
		assert.Len(t, ing.calls(), 1)
	})

	t.Run("ignores non-PDF files", func(t *testing.T) {
		dir := t.TempDir()
		ing := &mockIngest{}
		w := NewWatcher(dir, ing, WithDebounce(20*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		results, err := w.Watch(ctx)
		require.NoError(t, err)

		writeFile(t, filepath.Join(dir, "notes.txt"), "text")

		select {
		case r := <-results:
			t.Fatalf("unexpected ingest of %s", r.Path)
		case <-time.After(200 * time.Millisecond):
		}
		assert.Empty(t, ing.calls())
	})

	t.Run("closes channel when context is cancelled", func(t *testing.T) {
		w := NewWatcher(t.TempDir(), &mockIngest{})
		ctx, cancel := context.WithCancel(context.Background())

		results, err := w.Watch(ctx)
		require.NoError(t, err)
		cancel()

		select {
		case _, ok := <-results:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel did not close after context cancellation")
		}
	})

	t.Run("returns error for non-existent directory", func(t *testing.T) {
		results, err := NewWatcher("/non/existent/path", &mockIngest{}).Watch(context.Background())
		assert.Error(t, err)
		assert.Nil(t, results)
		assert.Contains(t, err.Error(), "root path error")
	})

	t.Run("returns error when closed", func(t *testing.T) {
		w := NewWatcher(t.TempDir(), &mockIngest{})
		require.NoError(t, w.Close())

		results, err := w.Watch(context.Background())
		assert.ErrorIs(t, err, ErrWatcherClosed)
		assert.Nil(t, results)
	})
}

func TestDebouncer_LatestSchedulingWins(t *testing.T) {
	d := newDebouncer(time.Hour)
	defer d.stop()
	ctx := context.Background()

	d.schedule(ctx, "a.pdf")
	first := firing{path: "a.pdf", gen: d.pending["a.pdf"].gen}
	d.schedule(ctx, "a.pdf")
	second := firing{path: "a.pdf", gen: d.pending["a.pdf"].gen}

	assert.False(t, d.accept(first))
	assert.True(t, d.accept(second))
	assert.False(t, d.accept(second), "a firing is accepted once")
	assert.Empty(t, d.pending)
}

func TestDebouncer_EventAfterTimerFired(t *testing.T) {
	d := newDebouncer(10 * time.Millisecond)
	defer d.stop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d.schedule(ctx, "a.pdf")
	var stale firing
	select {
	case stale = <-d.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for first firing")
	}

	// A new write lands after the timer fired but before the loop handled it.
	d.schedule(ctx, "a.pdf")
	assert.False(t, d.accept(stale))

	select {
	case f := <-d.ready:
		assert.True(t, d.accept(f))
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for second firing")
	}

	select {
	case f := <-d.ready:
		t.Fatalf("unexpected extra firing for %s", f.path)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDebouncer_IndependentPaths(t *testing.T) {
	d := newDebouncer(time.Hour)
	defer d.stop()
	ctx := context.Background()

	d.schedule(ctx, "a.pdf")
	d.schedule(ctx, "b.pdf")

	assert.True(t, d.accept(firing{path: "a.pdf", gen: d.pending["a.pdf"].gen}))
	assert.True(t, d.accept(firing{path: "b.pdf", gen: d.pending["b.pdf"].gen}))
}

func TestHandleFsEvent(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "a.pdf")
	writeFile(t, pdf, "x")
	hidden := filepath.Join(dir, ".a.pdf")
	writeFile(t, hidden, "x")
	txt := filepath.Join(dir, "a.txt")
	writeFile(t, txt, "x")
	subdir := filepath.Join(dir, "folder.pdf")
	require.NoError(t, os.Mkdir(subdir, 0o755))

	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want bool
	}{
		{"create pdf", pdf, fsnotify.Create, true},
		{"write pdf", pdf, fsnotify.Write, true},
		{"chmod pdf", pdf, fsnotify.Chmod, false},
		{"remove pdf", filepath.Join(dir, "gone.pdf"), fsnotify.Remove, false},
		{"rename pdf", pdf, fsnotify.Rename, false},
		{"hidden pdf", hidden, fsnotify.Create, false},
		{"text file", txt, fsnotify.Write, false},
		{"directory named like pdf", subdir, fsnotify.Create, false},
		{"create of vanished file", filepath.Join(dir, "tmp.pdf"), fsnotify.Create, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := handleFsEvent(fsnotify.Event{Name: tt.path, Op: tt.op})
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, tt.path, path)
			}
		})
	}
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{"path/to/.hidden", true},
		{"/path/.hidden/file.pdf", true},
		{".config/.cache/data", true},
		{"file.pdf", false},
		{"path/to/file.pdf", false},
		{".", false},
		{"..", false},
		{"path/./file", false},
		{"path/../file", false},
		{"", false},
		{"/", false},
		{"file.hidden", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.path))
		})
	}
}

func TestIsPDF(t *testing.T) {
	assert.True(t, isPDF("a.pdf"))
	assert.True(t, isPDF("/x/A.PDF"))
	assert.False(t, isPDF("a.pdf.txt"))
	assert.False(t, isPDF("pdf"))
}

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.watcher)
	assert.NotNil(t, watcher.debouncer)
	assert.NotNil(t, watcher.logger)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)
}

func TestFileWatcherAddPath(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	assert.NoError(t, watcher.AddPath(dir))
	assert.Error(t, watcher.AddPath(filepath.Join(dir, "missing")))
	assert.Error(t, watcher.AddPath(""))
}

func TestAddRecursive(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	root := t.TempDir()
	for _, dir := range []string{"components/row", "vendor/lib", ".git/objects", "node_modules/x"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}

	require.NoError(t, watcher.AddRecursive(root))
	assert.Equal(t, []string{
		root,
		filepath.Join(root, "components"),
		filepath.Join(root, "components", "row"),
	}, watcher.WatchedPaths())

	assert.Error(t, watcher.AddRecursive(filepath.Join(root, "missing")))
}

func TestFileWatcherStartStop(t *testing.T) {
	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	require.NoError(t, watcher.AddRecursive(dir))
	for _, filter := range ProjectFilters(".html", ".css") {
		watcher.AddFilter(filter)
	}

	batches := make(chan []ChangeEvent, 10)
	watcher.AddHandler(func(_ context.Context, events []ChangeEvent) error {
		batches <- events
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app_test.go"), []byte("package app"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.html"), []byte("<p></p>"), 0o644))

	select {
	case events := <-batches:
		require.NotEmpty(t, events)
		for _, event := range events {
			assert.Equal(t, filepath.Join(dir, "app.html"), event.Path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change batch received")
	}

	cancel()
	assert.NoError(t, watcher.Stop())
}

func TestFileWatcherWatchesNewDirectories(t *testing.T) {
	watcher, err := NewFileWatcher(30*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	root := t.TempDir()
	require.NoError(t, watcher.AddRecursive(root))
	watcher.AddFilter(GoFilter)

	batches := make(chan []ChangeEvent, 10)
	watcher.AddHandler(func(_ context.Context, events []ChangeEvent) error {
		batches <- events
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	sub := filepath.Join(root, "widgets")
	require.NoError(t, os.Mkdir(sub, 0o755))
	assert.Eventually(t, func() bool {
		for _, p := range watcher.WatchedPaths() {
			if p == sub {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "widget.go"), []byte("package widgets"), 0o644))
	select {
	case events := <-batches:
		assert.Equal(t, filepath.Join(sub, "widget.go"), events[0].Path)
	case <-time.After(2 * time.Second):
		t.Fatal("no change batch received")
	}
}

func TestDebouncer(t *testing.T) {
	debouncer := newDebouncer(30 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go debouncer.start(ctx)

	debouncer.events <- ChangeEvent{Path: "b.go", Type: EventTypeCreated}
	debouncer.events <- ChangeEvent{Path: "b.go", Type: EventTypeModified}
	debouncer.events <- ChangeEvent{Path: "a.html", Type: EventTypeModified}

	select {
	case events := <-debouncer.output:
		assert.Equal(t, []ChangeEvent{
			{Path: "a.html", Type: EventTypeModified},
			{Path: "b.go", Type: EventTypeModified},
		}, events)
	case <-time.After(time.Second):
		t.Fatal("debouncer did not flush")
	}
}

func TestDebouncerFlushEmpty(t *testing.T) {
	debouncer := newDebouncer(time.Millisecond)
	debouncer.flush()
	assert.Empty(t, debouncer.output)
}

func TestFileWatcherConcurrency(t *testing.T) {
	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			watcher.AddFilter(GoFilter)
		}()
		go func() {
			defer wg.Done()
			watcher.AddHandler(func(context.Context, []ChangeEvent) error { return nil })
		}()
	}
	wg.Wait()

	assert.Len(t, watcher.filters, 10)
	assert.Len(t, watcher.handlers, 10)
	assert.True(t, watcher.accepts("main.go"))
	assert.False(t, watcher.accepts("main.html"))
}

func TestFileWatcherDoubleStop(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)

	assert.NoError(t, watcher.Stop())
	assert.NoError(t, watcher.Stop())
}

func TestFilters(t *testing.T) {
	source := SourceFilter(".html", ".css")
	testCases := []struct {
		path     string
		source   bool
		noTest   bool
		noVendor bool
		noGit    bool
	}{
		{"app/app.go", true, true, true, true},
		{"app/app_test.go", true, false, true, true},
		{"app/app.html", true, true, true, true},
		{"app/app.css", true, true, true, true},
		{"app/app.js", false, true, true, true},
		{"vendor/lib/lib.go", true, true, false, true},
		{"app/vendor/lib.go", true, true, false, true},
		{".git/config", false, true, true, false},
		{"app/.git/HEAD", false, true, true, false},
		{"README.md", false, true, true, true},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.source, source(tc.path), "source")
			assert.Equal(t, tc.noTest, NoTestFilter(tc.path), "no test")
			assert.Equal(t, tc.noVendor, NoVendorFilter(tc.path), "no vendor")
			assert.Equal(t, tc.noGit, NoGitFilter(tc.path), "no git")
		})
	}
}

func TestGoFilter(t *testing.T) {
	assert.True(t, GoFilter("main.go"))
	assert.False(t, GoFilter("main.go.bak"))
	assert.False(t, GoFilter("component.html"))
}

package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/slopwatch/internal/cache"
	"github.com/ppiankov/slopwatch/internal/model"
)

const debounce = 50 * time.Millisecond

func newWatcher() *Watcher {
	return New(Options{Debounce: debounce, BufferSize: 16})
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func next(t *testing.T, ch <-chan model.FileChangeEvent) model.FileChangeEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "stream closed")
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for file change")
		return model.FileChangeEvent{}
	}
}

func quiet(t *testing.T, ch <-chan model.FileChangeEvent, d time.Duration) {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if ok {
			t.Fatalf("unexpected event %s %s", ev.Kind, ev.Path)
		}
	case <-time.After(d):
	}
}

func TestWatcher_ModifyProducesDiff(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "styles.css"), "body {}\n")

	w := newWatcher()
	ch, err := w.Start(context.Background(), root, nil, nil)
	require.NoError(t, err)
	defer w.Stop()

	write(t, filepath.Join(root, "styles.css"), "body {}\n@media (max-width: 768px) {}\n")

	ev := next(t, ch)
	assert.Equal(t, "styles.css", ev.Path)
	assert.Equal(t, model.ChangeModify, ev.Kind)
	assert.Equal(t, 1, ev.LinesAdded)
	assert.Equal(t, "+@media (max-width: 768px) {}", ev.DiffSummary)
	assert.NotEmpty(t, ev.ID)
}

func TestWatcher_DebounceCollapsesWrites(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "app.js")
	write(t, path, "")

	w := newWatcher()
	ch, err := w.Start(context.Background(), root, nil, nil)
	require.NoError(t, err)
	defer w.Stop()

	content := ""
	for i := 0; i < 5; i++ {
		content += "console.log(1);\n"
		write(t, path, content)
		time.Sleep(10 * time.Millisecond)
	}

	ev := next(t, ch)
	assert.Equal(t, "app.js", ev.Path)
	assert.Equal(t, 5, ev.LinesAdded)
	quiet(t, ch, 4*debounce)
}

func TestWatcher_ExcludedPathsIgnored(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "lib"), 0o755))

	w := newWatcher()
	ch, err := w.Start(context.Background(), root, nil, []string{"*.log"})
	require.NoError(t, err)
	defer w.Stop()

	write(t, filepath.Join(root, "node_modules", "lib", "index.js"), "x\n")
	write(t, filepath.Join(root, "debug.log"), "x\n")
	quiet(t, ch, 4*debounce)

	write(t, filepath.Join(root, "main.go"), "package main\n")
	ev := next(t, ch)
	assert.Equal(t, "main.go", ev.Path)
	assert.Equal(t, model.ChangeCreate, ev.Kind)
}

func TestWatcher_DeleteReportsRemovedLines(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "old.py")
	write(t, path, "def legacy():\n    return 1\n")

	w := newWatcher()
	ch, err := w.Start(context.Background(), root, nil, nil)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.Remove(path))

	ev := next(t, ch)
	assert.Equal(t, model.ChangeDelete, ev.Kind)
	assert.Equal(t, 2, ev.LinesRemoved)
	assert.Equal(t, []string{"def legacy():", "    return 1"}, ev.RemovedLines())
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()

	w := newWatcher()
	ch, err := w.Start(context.Background(), root, nil, nil)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.Mkdir(filepath.Join(root, "pkg"), 0o755))
	time.Sleep(2 * debounce)
	write(t, filepath.Join(root, "pkg", "util.ts"), "export const x = 1;\n")

	ev := next(t, ch)
	assert.Equal(t, "pkg/util.ts", ev.Path)
	assert.Equal(t, 1, ev.LinesAdded)
}

func TestWatcher_RestartIsClean(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.css")
	write(t, path, "a {}\n")

	w := newWatcher()
	first, err := w.Start(context.Background(), root, nil, nil)
	require.NoError(t, err)

	_, err = w.Start(context.Background(), root, nil, nil)
	assert.Error(t, err, "second start without stop")

	// A write whose debounce has not elapsed is discarded by Stop
	write(t, path, "a {}\nb {}\n")
	w.Stop()

	for range first {
	}

	second, err := w.Start(context.Background(), root, nil, nil)
	require.NoError(t, err)
	defer w.Stop()
	quiet(t, second, 4*debounce)

	// Snapshots were re-primed, so the diff is against the current content
	write(t, path, "a {}\nb {}\nc {}\n")
	ev := next(t, second)
	assert.Equal(t, "+c {}", ev.DiffSummary)
}

func TestWatcher_RestartAfterCancelKeepsFreshSnapshots(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "app.css")
	write(t, path, "body {}\n")

	w := newWatcher()
	ctx, cancel := context.WithCancel(context.Background())
	first, err := w.Start(ctx, root, nil, nil)
	require.NoError(t, err)
	cancel()

	var second <-chan model.FileChangeEvent
	require.Eventually(t, func() bool {
		var err error
		second, err = w.Start(context.Background(), root, nil, nil)
		return err == nil
	}, 3*time.Second, 5*time.Millisecond)
	defer w.Stop()

	for range first {
	}

	_, ok := w.snapshots.Get(cache.SnapshotKey(path))
	assert.True(t, ok, "snapshot primed by the second session must survive the first teardown")

	write(t, path, "body {}\n.nav { color: red; }\n")
	ev := next(t, second)
	assert.Equal(t, model.ChangeModify, ev.Kind)
	assert.Equal(t, 1, ev.LinesAdded)
}

func TestWatcher_ContextCancelClosesStream(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	w := newWatcher()
	ch, err := w.Start(ctx, root, nil, nil)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after cancel")
	}
}

func TestWatcher_StartRejectsFile(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "x.txt")
	write(t, file, "x")

	_, err := newWatcher().Start(context.Background(), file, nil, nil)
	assert.Error(t, err)
}

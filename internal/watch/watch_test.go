package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cwbudde/clkernel/internal/kernel"
)

type result struct {
	src *kernel.Source
	err error
}

func newTestWatcher(t *testing.T, root string) (*Watcher, <-chan result) {
	t.Helper()

	loads := make(chan result, 16)
	loader := kernel.NewLoader(kernel.Options{Root: root, Getenv: func(string) string { return "" }})
	w, err := New(loader, "k.cl", Options{
		Debounce: 20 * time.Millisecond,
		OnLoad:   func(src *kernel.Source, err error) { loads <- result{src, err} },
	})
	require.NoError(t, err)
	return w, loads
}

func next(t *testing.T, loads <-chan result) result {
	t.Helper()
	select {
	case r := <-loads:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for load")
		return result{}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWatcherReloadsOnIncludeChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "k.cl"), "#include \"n.h\"\nint x;\n")
	writeFile(t, filepath.Join(root, "include", "n.h"), "#define N 4\n")

	w, loads := newTestWatcher(t, root)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	first := next(t, loads)
	require.NoError(t, first.err)
	assert.Contains(t, first.src.String(), "#define N 4")
	assert.ElementsMatch(t, []string{root, filepath.Join(root, "include")}, w.Dirs())

	writeFile(t, filepath.Join(root, "include", "n.h"), "#define N 8\n")

	second := next(t, loads)
	require.NoError(t, second.err)
	assert.Contains(t, second.src.String(), "#define N 8")
	assert.GreaterOrEqual(t, w.Stats().Loads, 2)
}

func TestWatcherReportsFailureThenRecovers(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "k.cl"), "#include \"missing.h\"\n")

	w, loads := newTestWatcher(t, root)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	first := next(t, loads)
	require.ErrorIs(t, first.err, kernel.ErrFileNotFound)
	assert.Nil(t, first.src)

	writeFile(t, filepath.Join(root, "missing.h"), "int m;\n")

	// writes may arrive as several debounced batches
	for {
		r := next(t, loads)
		if r.err == nil {
			assert.True(t, strings.HasPrefix(r.src.String(), "int m;\n"))
			break
		}
	}
	assert.GreaterOrEqual(t, w.Stats().Failures, 1)
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "k.cl"), "int x;\n")

	w, loads := newTestWatcher(t, root)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, next(t, loads).err)

	writeFile(t, filepath.Join(root, "notes.txt"), "unrelated\n")

	select {
	case r := <-loads:
		t.Fatalf("unexpected reload: %+v", r)
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, 1, w.Stats().Loads)
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "k.cl"), "int x;\n")

	w, loads := newTestWatcher(t, root)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	require.NoError(t, next(t, loads).err)

	cancel()
	w.Stop()
}

func TestWatcherNothingToWatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	w, _ := newTestWatcher(t, filepath.Join(t.TempDir(), "absent"))
	defer w.Stop()

	assert.ErrorIs(t, w.Start(context.Background()), ErrNothingToWatch)
}

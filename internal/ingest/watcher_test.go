package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/ansuz/internal/testutil"
)

const (
	waitFor = 5 * time.Second
	tick    = 20 * time.Millisecond
)

type recorder struct {
	mu      sync.Mutex
	events  []string
	settled atomic.Int32
}

func (r *recorder) config(roots ...string) WatchConfig {
	return WatchConfig{
		Roots:    roots,
		Debounce: 50 * time.Millisecond,
		OnChange: func(kind, path string) {
			r.mu.Lock()
			r.events = append(r.events, kind+":"+filepath.Base(path))
			r.mu.Unlock()
		},
		OnSettled: func() { r.settled.Add(1) },
	}
}

func (r *recorder) has(event string) func() bool {
	return func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, e := range r.events {
			if e == event {
				return true
			}
		}
		return false
	}
}

func (r *recorder) hasSettled() bool {
	return r.settled.Load() > 0
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func startWatch(t *testing.T, cfg WatchConfig) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, cfg, testutil.Logger(t))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_NewFileReported(t *testing.T) {
	c := testutil.NewCorpus(t)
	rec := &recorder{}
	startWatch(t, rec.config(c.Root))

	require.NoError(t, os.WriteFile(filepath.Join(c.Root, "new.md"), []byte("# New"), 0o644))

	assert.Eventually(t, rec.has("created:new.md"), waitFor, tick, "expected created:new.md callback")
	assert.Eventually(t, rec.hasSettled, waitFor, tick, "expected settled callback")
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	c := testutil.NewCorpus(t)
	rec := &recorder{}
	startWatch(t, rec.config(c.Root))

	require.NoError(t, os.WriteFile(filepath.Join(c.Root, "image.png"), []byte("x"), 0o644))
	time.Sleep(300 * time.Millisecond)

	assert.Empty(t, rec.snapshot())
	assert.Zero(t, rec.settled.Load())
}

func TestWatcher_NewDirWatched(t *testing.T) {
	c := testutil.NewCorpus(t)
	rec := &recorder{}
	startWatch(t, rec.config(c.Root))

	subDir := filepath.Join(c.Root, "subdir")
	require.NoError(t, os.MkdirAll(subDir, 0o755))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(subDir, "deep.md"), []byte("# Deep"), 0o644))

	assert.Eventually(t, rec.has("created:deep.md"), waitFor, tick, "file in new subdir not reported")
}

func TestWatcher_DeleteReported(t *testing.T) {
	c := testutil.NewCorpus(t)
	path := c.Write("del.md", "# Delete Me", 0)
	rec := &recorder{}
	startWatch(t, rec.config(c.Root))

	require.NoError(t, os.Remove(path))

	assert.Eventually(t, rec.has("deleted:del.md"), waitFor, tick, "expected deleted:del.md callback")
}

func TestWatcher_DirMovedOutOfRootSettles(t *testing.T) {
	c := testutil.NewCorpus(t)
	c.Write("projects/plan.md", "# Plan", 0)
	c.Write("projects/deep/spec.md", "# Spec", 0)
	outside := t.TempDir()
	rec := &recorder{}
	startWatch(t, rec.config(c.Root))

	require.NoError(t, os.Rename(filepath.Join(c.Root, "projects"), filepath.Join(outside, "projects")))

	assert.Eventually(t, rec.hasSettled, waitFor, tick, "moving a populated dir out must settle")
}

func TestWatcher_DirMovedIntoHiddenDirSettles(t *testing.T) {
	c := testutil.NewCorpus(t)
	c.Write("projects/plan.md", "# Plan", 0)
	require.NoError(t, os.MkdirAll(filepath.Join(c.Root, ".trash"), 0o755))
	rec := &recorder{}
	startWatch(t, rec.config(c.Root))

	require.NoError(t, os.Rename(filepath.Join(c.Root, "projects"), filepath.Join(c.Root, ".trash", "projects")))

	assert.Eventually(t, rec.hasSettled, waitFor, tick, "moving a dir into a hidden dir must settle")
}

func TestWatcher_DirRemovedSettles(t *testing.T) {
	c := testutil.NewCorpus(t)
	c.Write("old/a.md", "# A", 0)
	rec := &recorder{}
	startWatch(t, rec.config(c.Root))

	require.NoError(t, os.RemoveAll(filepath.Join(c.Root, "old")))

	assert.Eventually(t, rec.hasSettled, waitFor, tick, "removing a populated dir must settle")
}

func TestWatcher_BurstSettlesOnce(t *testing.T) {
	c := testutil.NewCorpus(t)
	rec := &recorder{}
	cfg := rec.config(c.Root)
	cfg.Debounce = 200 * time.Millisecond
	startWatch(t, cfg)

	for _, name := range []string{"a.md", "b.md", "c.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(c.Root, name), []byte("# x"), 0o644))
	}

	require.Eventually(t, rec.hasSettled, waitFor, tick, "expected settled callback")
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), rec.settled.Load())
}

func TestWatcher_MissingRootSkipped(t *testing.T) {
	c := testutil.NewCorpus(t)
	rec := &recorder{}
	startWatch(t, rec.config(filepath.Join(c.Root, "missing"), c.Root))

	require.NoError(t, os.WriteFile(filepath.Join(c.Root, "ok.md"), []byte("# ok"), 0o644))

	assert.Eventually(t, rec.has("created:ok.md"), waitFor, tick, "watcher should keep watching remaining roots")
}

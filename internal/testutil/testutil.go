// Package testutil provides shared test helpers for building note corpora.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Epoch is the reference modification time used by Corpus.Write.
var Epoch = time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC)

// Logger returns a logger that discards everything.
func Logger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Corpus is a temporary content root populated by tests.
type Corpus struct {
	Root string
	t    *testing.T
}

// NewCorpus creates an empty content root that is removed after the test.
func NewCorpus(t *testing.T) *Corpus {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return &Corpus{Root: root, t: t}
}

// Write creates rel (slash separated) with content and sets its modification
// time to Epoch minus age. It returns the absolute path of the file.
func (c *Corpus) Write(rel, content string, age time.Duration) string {
	c.t.Helper()
	abs := filepath.Join(c.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		c.t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		c.t.Fatal(err)
	}
	mtime := Epoch.Add(-age)
	if err := os.Chtimes(abs, mtime, mtime); err != nil {
		c.t.Fatal(err)
	}
	return abs
}

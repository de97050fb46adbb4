// Package scanner finds candidate note files under the configured content roots.
package scanner

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExtension is the note file extension used when none is configured.
const DefaultExtension = ".md"

// File is one candidate note found under a content root.
type File struct {
	Root string // absolute content root
	Path string // absolute file path
	Rel  string // slash-separated path relative to Root
}

// Scan walks every root and returns the files whose name ends in ext, at any
// depth. Roots that do not exist or cannot be listed are logged, skipped, and
// returned as the second value. A file reachable from two overlapping roots
// is returned once, attributed to the first root listed. Output order is
// unspecified.
func Scan(roots []string, ext string, logger *slog.Logger) ([]File, []string) {
	if ext == "" {
		ext = DefaultExtension
	}
	seen := make(map[string]struct{})
	var (
		out     []File
		skipped []string
	)
	for _, root := range roots {
		files, err := scanRoot(root, ext)
		if err != nil {
			logger.Warn("scan: root skipped", slog.String("root", root), slog.String("error", err.Error()))
			skipped = append(skipped, root)
			continue
		}
		for _, f := range files {
			if _, dup := seen[f.Path]; dup {
				continue
			}
			seen[f.Path] = struct{}{}
			out = append(out, f)
		}
		logger.Debug("scan: root listed", slog.String("root", root), slog.Int("files", len(files)))
	}
	return out, skipped
}

// resolveRoot returns the absolute form of root after checking that it is a
// listable directory.
func resolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("scanner: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("scanner: stat root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("scanner: root is not a directory: %s", abs)
	}
	if _, err := os.ReadDir(abs); err != nil {
		return "", fmt.Errorf("scanner: list root: %w", err)
	}
	return abs, nil
}

func scanRoot(root, ext string) ([]File, error) {
	abs, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}
	// Unreadable subdirectories are skipped by doublestar; only the root
	// itself has to be listable.
	matches, err := doublestar.Glob(os.DirFS(abs), "**/*"+ext, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("scanner: glob: %w", err)
	}
	out := make([]File, 0, len(matches))
	for _, rel := range matches {
		if hidden(rel) {
			continue
		}
		out = append(out, File{
			Root: abs,
			Path: filepath.Join(abs, filepath.FromSlash(rel)),
			Rel:  rel,
		})
	}
	return out, nil
}

// hidden reports whether any segment of rel starts with a dot (.git, .obsidian, ...).
func hidden(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

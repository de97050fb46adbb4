// Package parser derives note metadata (title, category, references) from Markdown files.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/models"
)

// ErrInvalidEncoding is returned for files that are not valid UTF-8.
var ErrInvalidEncoding = errors.New("invalid utf-8")

var (
	headingRe = regexp.MustCompile(`(?m)^#[ \t]+(\S.*)$`)
	// Wikilinks and inline links share one pattern so references come out in
	// order of appearance.
	linkRe = regexp.MustCompile(`\[\[([^\]]+)\]\]|\[([^\]]+)\]\(([^)]+)\)`)

	bracketStripper = strings.NewReplacer("[", "", "]", "", "(", "", ")", "")
)

// Result holds the metadata extracted from note text.
type Result struct {
	// Title is the first H1 heading, or empty when the text has none.
	Title string
	Links []string
}

// Parse extracts the heading title and raw link references from note text.
func Parse(data []byte) *Result {
	text := string(data)
	return &Result{
		Title: deriveTitle(text),
		Links: extractLinks(text),
	}
}

// ParseFile reads the note at path, which must live under root, and builds a
// Note from it. Read failures and invalid encodings are returned as errors so
// the caller can skip the file.
func ParseFile(root, path string) (*models.Note, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("parser: stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parser: read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("parser: %s: %w", path, ErrInvalidEncoding)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, fmt.Errorf("parser: relative path: %w", err)
	}

	res := Parse(data)
	title := res.Title
	if title == "" {
		title = baseTitle(path)
	}

	return &models.Note{
		ID:           EncodeID(path),
		Title:        title,
		Path:         path,
		Root:         root,
		Content:      string(data),
		Category:     Category(rel),
		Links:        res.Links,
		Checksum:     checksum.Sum(data),
		LastModified: info.ModTime(),
	}, nil
}

// Category returns the first segment of a root-relative path, or the default
// category when the file sits directly at the root.
func Category(rel string) string {
	rel = filepath.ToSlash(rel)
	if i := strings.Index(rel, "/"); i > 0 {
		return rel[:i]
	}
	return models.DefaultCategory
}

// extractLinks returns every [[wikilink]] and [label](target) reference in
// order of appearance, with bracket and parenthesis characters removed from
// the whole match. Duplicates are kept.
func extractLinks(text string) []string {
	matches := linkRe.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, bracketStripper.Replace(m))
	}
	return out
}

// deriveTitle returns the text of the first H1 heading, or empty string.
func deriveTitle(text string) string {
	m := headingRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func baseTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

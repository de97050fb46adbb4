// Package journal picks out date-stamped daily notes for the chronological view.
package journal

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// DefaultSegment is the directory name that holds journal entries.
const DefaultSegment = "memory"

var (
	dateRe        = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	leadingDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
)

// Classifier tags notes as journal entries. The zero value uses DefaultSegment.
type Classifier struct {
	segment string
}

// New returns a Classifier for the given reserved directory segment.
func New(segment string) Classifier {
	return Classifier{segment: segment}
}

// IsEntry reports whether n lives under the reserved segment and its title
// starts with, or its path contains, a YYYY-MM-DD token.
func (c Classifier) IsEntry(n models.Note) bool {
	if !inSegment(n.Path, c.reserved()) {
		return false
	}
	return leadingDateRe.MatchString(n.Title) || dateRe.MatchString(n.Path)
}

// Filter returns the journal entries among notes, keeping their order.
func (c Classifier) Filter(notes []models.Note) []models.Note {
	out := make([]models.Note, 0)
	for _, n := range notes {
		if c.IsEntry(n) {
			out = append(out, n)
		}
	}
	return out
}

func (c Classifier) reserved() string {
	if c.segment == "" {
		return DefaultSegment
	}
	return c.segment
}

// inSegment reports whether any directory of path is named segment.
func inSegment(path, segment string) bool {
	dir := filepath.ToSlash(filepath.Dir(path))
	for _, s := range strings.Split(dir, "/") {
		if s == segment {
			return true
		}
	}
	return false
}

package index

import (
	"slices"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// CategoryCount is one bucket of the category partition.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Index is an immutable collection of notes sorted by LastModified, newest
// first. Ties are broken by path so the order is deterministic.
type Index struct {
	notes      []models.Note
	byID       map[string]int
	byCategory map[string][]int
	categories []CategoryCount
}

// New builds an index over notes. If two notes share an id, the more recent
// one is kept.
func New(notes []models.Note) *Index {
	sorted := slices.Clone(notes)
	slices.SortStableFunc(sorted, func(a, b models.Note) int {
		if c := b.LastModified.Compare(a.LastModified); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})

	x := &Index{
		notes:      make([]models.Note, 0, len(sorted)),
		byID:       make(map[string]int, len(sorted)),
		byCategory: make(map[string][]int),
	}
	for _, n := range sorted {
		if _, dup := x.byID[n.ID]; dup {
			continue
		}
		pos := len(x.notes)
		x.notes = append(x.notes, n)
		x.byID[n.ID] = pos
		if _, seen := x.byCategory[n.Category]; !seen {
			x.categories = append(x.categories, CategoryCount{Name: n.Category})
		}
		x.byCategory[n.Category] = append(x.byCategory[n.Category], pos)
	}
	for i := range x.categories {
		x.categories[i].Count = len(x.byCategory[x.categories[i].Name])
	}
	return x
}

// ByID returns the note with the given id.
func (x *Index) ByID(id string) (models.Note, bool) {
	pos, ok := x.byID[id]
	if !ok {
		return models.Note{}, false
	}
	return x.notes[pos], true
}

// ByCategory returns the notes with exactly this category, newest first.
func (x *Index) ByCategory(category string) []models.Note {
	positions := x.byCategory[category]
	out := make([]models.Note, len(positions))
	for i, pos := range positions {
		out[i] = x.notes[pos]
	}
	return out
}

// All returns every note, newest first. The slice is a copy.
func (x *Index) All() []models.Note {
	return slices.Clone(x.notes)
}

// Categories returns the category partition in order of first appearance
// (that is, by each category's most recent note).
func (x *Index) Categories() []CategoryCount {
	return slices.Clone(x.categories)
}

// Len returns the number of notes.
func (x *Index) Len() int {
	return len(x.notes)
}

package graph

import (
	"path/filepath"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// Resolver maps a raw reference string to the id of the note it points at.
type Resolver interface {
	Resolve(ref string) (id string, ok bool)
}

// ResolverFactory builds a Resolver over the notes of one index, in index order.
type ResolverFactory func(notes []models.Note) Resolver

type candidate struct {
	id    string
	title string // lowercased
	path  string // lowercased
	stem  string // lowercased root-relative path without extension
}

func candidates(notes []models.Note) []candidate {
	out := make([]candidate, len(notes))
	for i, n := range notes {
		rel, err := filepath.Rel(n.Root, n.Path)
		if err != nil || n.Root == "" {
			rel = filepath.Base(n.Path)
		}
		rel = filepath.ToSlash(rel)
		out[i] = candidate{
			id:    n.ID,
			title: strings.ToLower(n.Title),
			path:  strings.ToLower(n.Path),
			stem:  strings.ToLower(strings.TrimSuffix(rel, filepath.Ext(rel))),
		}
	}
	return out
}

// FuzzyResolver matches a reference against note titles (case-insensitive
// equality) and note paths (case-insensitive substring). The first note in
// index order that matches either way wins, so when several notes qualify the
// most recently modified one is chosen.
type FuzzyResolver struct {
	notes []candidate
}

// NewFuzzyResolver is the default ResolverFactory.
func NewFuzzyResolver(notes []models.Note) Resolver {
	return &FuzzyResolver{notes: candidates(notes)}
}

// Resolve implements Resolver. Empty references never resolve.
func (r *FuzzyResolver) Resolve(ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	want := strings.ToLower(ref)
	for _, c := range r.notes {
		if c.title == want || strings.Contains(c.path, want) {
			return c.id, true
		}
	}
	return "", false
}

// StrictResolver only accepts a reference that names a note's root-relative
// path without extension (e.g. "projects/plan"), and falls back to an exact
// case-insensitive title match. Substrings never match.
type StrictResolver struct {
	notes []candidate
}

// NewStrictResolver is a ResolverFactory for StrictResolver.
func NewStrictResolver(notes []models.Note) Resolver {
	return &StrictResolver{notes: candidates(notes)}
}

// Resolve implements Resolver.
func (r *StrictResolver) Resolve(ref string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(ref))
	if want == "" {
		return "", false
	}
	want = strings.TrimSuffix(want, filepath.Ext(want))
	for _, c := range r.notes {
		if c.stem == want {
			return c.id, true
		}
	}
	want = strings.ToLower(strings.TrimSpace(ref))
	for _, c := range r.notes {
		if c.title == want {
			return c.id, true
		}
	}
	return "", false
}

// Package noteservice answers read queries against the current snapshot.
package noteservice

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/ingest"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
)

// Dashboard list sizes.
const (
	RecentNotes   = 5
	RecentJournal = 3
)

// SnapshotSource provides the current snapshot. *ingest.Cache implements it.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*ingest.Snapshot, error)
	Refresh(ctx context.Context) (*ingest.Snapshot, error)
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Path         string    `json:"path"`
	Category     string    `json:"category"`
	LastModified time.Time `json:"lastModified"`
}

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Path         string         `json:"path"`
	Category     string         `json:"category"`
	Content      string         `json:"content"`
	Links        []string       `json:"links"`
	Checksum     string         `json:"checksum"`
	LastModified time.Time      `json:"lastModified"`
	Neighbors    []NoteListItem `json:"neighbors"`
}

// Dashboard summarises a snapshot.
type Dashboard struct {
	Generation    string                `json:"generation"`
	BuiltAt       time.Time             `json:"builtAt"`
	Notes         int                   `json:"notes"`
	Journal       int                   `json:"journal"`
	Edges         int                   `json:"edges"`
	Unresolved    int                   `json:"unresolved"`
	Categories    []index.CategoryCount `json:"categories"`
	Recent        []NoteListItem        `json:"recent"`
	RecentJournal []NoteListItem        `json:"recentJournal"`
}

// ListOptions filters and pages List.
type ListOptions struct {
	Category string
	Limit    int
	Offset   int
}

// Service maps read queries onto snapshots.
type Service struct {
	src SnapshotSource
}

// NewService creates a new note service.
func NewService(src SnapshotSource) *Service {
	return &Service{src: src}
}

func (s *Service) snapshot(ctx context.Context) (*ingest.Snapshot, error) {
	snap, err := s.src.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
	}
	return snap, nil
}

// Snapshot returns the current snapshot.
func (s *Service) Snapshot(ctx context.Context) (*ingest.Snapshot, error) {
	return s.snapshot(ctx)
}

// List returns notes newest first, optionally restricted to one category,
// together with the unpaged total.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]NoteListItem, int, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, 0, err
	}
	var notes []models.Note
	if opts.Category != "" {
		notes = snap.Index.ByCategory(opts.Category)
	} else {
		notes = snap.Index.All()
	}
	total := len(notes)
	return listItems(page(notes, opts.Limit, opts.Offset)), total, nil
}

// Get returns a note by id with its graph neighbors.
func (s *Service) Get(ctx context.Context, id string) (*NoteDetail, error) {
	if _, err := parser.DecodeID(id); err != nil {
		return nil, apperr.ErrInvalidID
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	n, ok := snap.Index.ByID(id)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &NoteDetail{
		ID:           n.ID,
		Title:        n.Title,
		Path:         n.Path,
		Category:     n.Category,
		Content:      n.Content,
		Links:        nonNilSlice(n.Links),
		Checksum:     n.Checksum,
		LastModified: n.LastModified,
		Neighbors:    neighbors(snap, n.ID),
	}, nil
}

// Neighbors returns the notes sharing a graph edge with id.
func (s *Service) Neighbors(ctx context.Context, id string) ([]NoteListItem, error) {
	if _, err := parser.DecodeID(id); err != nil {
		return nil, apperr.ErrInvalidID
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.Index.ByID(id); !ok {
		return nil, apperr.ErrNotFound
	}
	return neighbors(snap, id), nil
}

// Categories returns every category with its note count.
func (s *Service) Categories(ctx context.Context) ([]index.CategoryCount, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Index.Categories(), nil
}

// Journal returns journal entries newest first.
func (s *Service) Journal(ctx context.Context, limit int) ([]NoteListItem, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return listItems(page(snap.Journal, limit, 0)), nil
}

// Graph returns the reference graph.
func (s *Service) Graph(ctx context.Context) (models.Graph, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return models.Graph{}, err
	}
	return snap.Graph, nil
}

// Dashboard returns the snapshot summary.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Generation:    snap.Generation,
		BuiltAt:       snap.BuiltAt,
		Notes:         snap.Index.Len(),
		Journal:       len(snap.Journal),
		Edges:         len(snap.Graph.Edges),
		Unresolved:    snap.Graph.Unresolved,
		Categories:    snap.Index.Categories(),
		Recent:        listItems(page(snap.Index.All(), RecentNotes, 0)),
		RecentJournal: listItems(page(snap.Journal, RecentJournal, 0)),
	}, nil
}

// Refresh rebuilds the snapshot and returns it.
func (s *Service) Refresh(ctx context.Context) (*ingest.Snapshot, error) {
	snap, err := s.src.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
	}
	return snap, nil
}

func neighbors(snap *ingest.Snapshot, id string) []NoteListItem {
	ids := graph.Neighbors(snap.Graph, id)
	out := make([]NoteListItem, 0, len(ids))
	for _, nid := range ids {
		if n, ok := snap.Index.ByID(nid); ok {
			out = append(out, listItem(n))
		}
	}
	return out
}

// page applies offset then limit; limit <= 0 means no limit.
func page(notes []models.Note, limit, offset int) []models.Note {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(notes) {
		return nil
	}
	notes = notes[offset:]
	if limit > 0 && limit < len(notes) {
		notes = notes[:limit]
	}
	return notes
}

func listItem(n models.Note) NoteListItem {
	return NoteListItem{
		ID:           n.ID,
		Title:        n.Title,
		Path:         n.Path,
		Category:     n.Category,
		LastModified: n.LastModified,
	}
}

func listItems(notes []models.Note) []NoteListItem {
	out := make([]NoteListItem, len(notes))
	for i, n := range notes {
		out[i] = listItem(n)
	}
	return out
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

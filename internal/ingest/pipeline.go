// Package ingest runs the scan -> parse -> index -> {journal, graph} pipeline
// and produces immutable snapshots.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/journal"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/scanner"
)

// DefaultWorkers bounds concurrent file reads when no limit is configured.
const DefaultWorkers = 8

// Skip reasons reported in Stats.Skipped.
const (
	SkipRead     = "read"
	SkipEncoding = "encoding"
)

// Observer receives the statistics of every completed ingestion pass.
type Observer interface {
	ObserveIngest(Stats)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithExtension sets the note file extension (default ".md").
func WithExtension(ext string) Option {
	return func(p *Pipeline) { p.ext = ext }
}

// WithWorkers bounds the number of files parsed concurrently.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithJournalSegment sets the directory name that marks journal entries.
func WithJournalSegment(segment string) Option {
	return func(p *Pipeline) { p.classifier = journal.New(segment) }
}

// WithGraphBuilder replaces the default graph builder.
func WithGraphBuilder(b *graph.Builder) Option {
	return func(p *Pipeline) {
		if b != nil {
			p.graph = b
		}
	}
}

// WithObserver registers an observer for pass statistics.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// Pipeline turns a list of content roots into a Snapshot.
type Pipeline struct {
	roots      []string
	ext        string
	workers    int
	classifier journal.Classifier
	graph      *graph.Builder
	observer   Observer
	logger     *slog.Logger
}

// NewPipeline creates a pipeline over roots.
func NewPipeline(roots []string, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		roots:   append([]string(nil), roots...),
		ext:     scanner.DefaultExtension,
		workers: DefaultWorkers,
		graph:   graph.NewBuilder(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Roots returns the configured content roots.
func (p *Pipeline) Roots() []string {
	return append([]string(nil), p.roots...)
}

// Build runs one full ingestion pass. Missing roots and unreadable files are
// logged and skipped, so the only error is cancellation of ctx.
func (p *Pipeline) Build(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	files, skippedRoots := scanner.Scan(p.roots, p.ext, p.logger)

	parsed := make([]*models.Note, len(files))
	reasons := make([]string, len(files))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			n, err := parser.ParseFile(f.Root, f.Path)
			if err != nil {
				reasons[i] = skipReason(err)
				p.logger.Warn("ingest: note skipped",
					slog.String("path", f.Path),
					slog.String("reason", reasons[i]),
					slog.String("error", err.Error()))
				return nil
			}
			parsed[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ingest: parse: %w", err)
	}

	notes := make([]models.Note, 0, len(files))
	skipped := make(map[string]int)
	for i, n := range parsed {
		if n == nil {
			skipped[reasons[i]]++
			continue
		}
		notes = append(notes, *n)
	}

	idx := index.New(notes)
	entries := p.classifier.Filter(idx.All())
	gr := p.graph.Build(idx)

	stats := Stats{
		Roots:        len(p.roots),
		RootsSkipped: len(skippedRoots),
		Files:        len(files),
		Notes:        idx.Len(),
		Skipped:      skipped,
		Journal:      len(entries),
		Edges:        len(gr.Edges),
		Unresolved:   gr.Unresolved,
		Duration:     time.Since(start),
	}

	snap := &Snapshot{
		Generation: uuid.NewString(),
		BuiltAt:    time.Now().UTC(),
		Roots:      p.Roots(),
		Index:      idx,
		Journal:    entries,
		Graph:      gr,
		Stats:      stats,
	}

	p.logger.Info("ingest: snapshot built",
		slog.String("generation", snap.Generation),
		slog.Int("files", stats.Files),
		slog.Int("notes", stats.Notes),
		slog.Int("journal", stats.Journal),
		slog.Int("edges", stats.Edges),
		slog.Int("roots_skipped", stats.RootsSkipped),
		slog.Duration("duration", stats.Duration))

	if p.observer != nil {
		p.observer.ObserveIngest(stats)
	}
	return snap, nil
}

func skipReason(err error) string {
	if errors.Is(err, parser.ErrInvalidEncoding) {
		return SkipEncoding
	}
	return SkipRead
}

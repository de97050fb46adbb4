// Package graph resolves note references and builds the undirected reference graph.
package graph

import (
	"math"
	"unicode/utf8"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/models"
)

// Default node sizing constants.
const (
	DefaultMaxRadius   = 30
	DefaultBaseRadius  = 10
	DefaultSizeDivisor = 1000
)

// Option configures a Builder.
type Option func(*Builder)

// WithResolver replaces the default fuzzy reference resolution.
func WithResolver(f ResolverFactory) Option {
	return func(b *Builder) {
		if f != nil {
			b.newResolver = f
		}
	}
}

// WithRadius overrides the node sizing constants. Non-positive values keep
// the defaults.
func WithRadius(maxRadius, baseRadius, sizeDivisor float64) Option {
	return func(b *Builder) {
		if maxRadius > 0 {
			b.maxRadius = maxRadius
		}
		if baseRadius > 0 {
			b.baseRadius = baseRadius
		}
		if sizeDivisor > 0 {
			b.sizeDivisor = sizeDivisor
		}
	}
}

// Builder turns an index into a Graph.
type Builder struct {
	maxRadius   float64
	baseRadius  float64
	sizeDivisor float64
	newResolver ResolverFactory
}

// NewBuilder returns a Builder with the default sizing and resolver.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		maxRadius:   DefaultMaxRadius,
		baseRadius:  DefaultBaseRadius,
		sizeDivisor: DefaultSizeDivisor,
		newResolver: NewFuzzyResolver,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// pair is an unordered pair of note ids, stored with a <= b.
type pair struct {
	a, b string
}

func pairOf(x, y string) pair {
	if y < x {
		x, y = y, x
	}
	return pair{a: x, b: y}
}

// Build returns one node per note and one edge per unordered pair of
// distinct notes connected by at least one resolved reference, in either
// direction. The first reference seen for a pair decides the edge
// orientation.
func (b *Builder) Build(idx index.Reader) models.Graph {
	notes := idx.All()
	g := models.Graph{
		Nodes: make([]models.GraphNode, len(notes)),
		Edges: make([]models.GraphEdge, 0),
	}
	for i, n := range notes {
		g.Nodes[i] = models.GraphNode{
			ID:       n.ID,
			Title:    n.Title,
			Category: n.Category,
			Radius:   b.Radius(n.Content),
		}
	}

	resolver := b.newResolver(notes)
	seen := make(map[pair]struct{})
	for _, src := range notes {
		for _, ref := range src.Links {
			target, ok := resolver.Resolve(ref)
			if !ok {
				g.Unresolved++
				continue
			}
			if target == src.ID {
				continue
			}
			key := pairOf(src.ID, target)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			g.Edges = append(g.Edges, models.GraphEdge{Source: src.ID, Target: target})
		}
	}
	return g
}

// Radius returns the display weight for a note body:
// min(max, base + characters/divisor).
func (b *Builder) Radius(content string) float64 {
	size := float64(utf8.RuneCountInString(content)) / b.sizeDivisor
	return math.Min(b.maxRadius, b.baseRadius+size)
}

// Neighbors returns the ids connected to id, in edge order.
func Neighbors(g models.Graph, id string) []string {
	out := make([]string, 0)
	for _, e := range g.Edges {
		switch id {
		case e.Source:
			out = append(out, e.Target)
		case e.Target:
			out = append(out, e.Source)
		}
	}
	return out
}

package ingest

import (
	"time"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/models"
)

// Snapshot is the immutable result of one ingestion pass. Consumers share a
// *Snapshot and never modify it.
type Snapshot struct {
	Generation string
	BuiltAt    time.Time
	Roots      []string
	Index      *index.Index
	Journal    []models.Note
	Graph      models.Graph
	Stats      Stats
}

// Stats summarises an ingestion pass.
type Stats struct {
	Roots        int
	RootsSkipped int
	Files        int
	Notes        int
	// Skipped counts files left out of the index, by reason.
	Skipped    map[string]int
	Journal    int
	Edges      int
	Unresolved int
	Duration   time.Duration
}

// SkippedTotal returns the number of files left out of the index.
func (s Stats) SkippedTotal() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}

// Package index provides the in-memory document index built by one ingestion pass.
package index

import "github.com/starford/ansuz/internal/models"

// Reader defines the read-only operations consumers use on an index.
// Consumers should depend on this interface rather than the concrete *Index.
type Reader interface {
	ByID(id string) (models.Note, bool)
	ByCategory(category string) []models.Note
	All() []models.Note
	Categories() []CategoryCount
	Len() int
}

// Verify *Index satisfies Reader at compile time.
var _ Reader = (*Index)(nil)

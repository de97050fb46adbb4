package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/starford/ansuz/internal/ingest"
	"github.com/starford/ansuz/internal/models"
)

// Document is the JSON export layout.
type Document struct {
	Generation     string        `json:"generation"`
	AllDocuments   []models.Note `json:"allDocuments"`
	JournalEntries []models.Note `json:"journalEntries"`
	GraphData      models.Graph  `json:"graphData"`
}

// NewDocument lays out snap for JSON export.
func NewDocument(snap *ingest.Snapshot) Document {
	return Document{
		Generation:     snap.Generation,
		AllDocuments:   snap.Index.All(),
		JournalEntries: snap.Journal,
		GraphData:      snap.Graph,
	}
}

// WriteJSON encodes snap as an indented JSON document.
func WriteJSON(w io.Writer, snap *ingest.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(snap)); err != nil {
		return fmt.Errorf("export: encode json: %w", err)
	}
	return nil
}

func writeJSONFile(snap *ingest.Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create: %w", err)
	}
	if err := WriteJSON(f, snap); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: close: %w", err)
	}
	return nil
}

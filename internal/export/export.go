// Package export writes a snapshot to a file for external tools: a JSON
// document or a SQLite database. The service never reads the files back.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/ansuz/internal/ingest"
)

// Format selects the export file format.
type Format string

const (
	FormatJSON   Format = "json"
	FormatSQLite Format = "sqlite"
)

// ParseFormat validates a format name. The empty string selects JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatSQLite:
		return FormatSQLite, nil
	default:
		return "", fmt.Errorf("export: unknown format %q", s)
	}
}

// Write exports snap to path in the given format. The file is written next
// to path and renamed into place, so readers never see a partial export.
func Write(snap *ingest.Snapshot, format Format, path string) error {
	if snap == nil {
		return fmt.Errorf("export: nil snapshot")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: mkdir: %w", err)
	}
	tmp := path + ".tmp"
	_ = os.Remove(tmp)

	var err error
	switch format {
	case FormatJSON, "":
		err = writeJSONFile(snap, tmp)
	case FormatSQLite:
		err = writeSQLite(snap, tmp)
	default:
		err = fmt.Errorf("export: unknown format %q", format)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("export: rename: %w", err)
	}
	return nil
}

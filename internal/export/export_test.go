package export

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/ingest"
	"github.com/starford/ansuz/internal/testutil"
)

func testSnapshot(t *testing.T) *ingest.Snapshot {
	t.Helper()
	c := testutil.NewCorpus(t)
	c.Write("projects/plan.md", "# Project Plan\nsee [[Standup]]", 0)
	c.Write("memory/2026-02-05-standup.md", "# Standup\n[[Project Plan]] [[Project Plan]] [[nowhere]]", time.Hour)
	c.Write("loose.md", "no heading", 2*time.Hour)

	snap, err := ingest.NewPipeline([]string{c.Root}, testutil.Logger(t)).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return snap
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"":       FormatJSON,
		"json":   FormatJSON,
		"SQLite": FormatSQLite,
		" json ": FormatJSON,
		"sqlite": FormatSQLite,
	}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil {
			t.Errorf("ParseFormat(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseFormat("csv"); err == nil {
		t.Error("expected error for csv")
	}
}

func TestWriteJSON_Layout(t *testing.T) {
	snap := testSnapshot(t)
	var buf bytes.Buffer
	if err := WriteJSON(&buf, snap); err != nil {
		t.Fatal(err)
	}

	var doc struct {
		AllDocuments   []map[string]any `json:"allDocuments"`
		JournalEntries []map[string]any `json:"journalEntries"`
		GraphData      struct {
			Nodes []map[string]any `json:"nodes"`
			Links []map[string]any `json:"links"`
		} `json:"graphData"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(doc.AllDocuments) != 3 {
		t.Errorf("allDocuments = %d, want 3", len(doc.AllDocuments))
	}
	if doc.AllDocuments[0]["title"] != "Project Plan" {
		t.Errorf("first document = %v, want newest first", doc.AllDocuments[0]["title"])
	}
	if len(doc.JournalEntries) != 1 {
		t.Errorf("journalEntries = %d, want 1", len(doc.JournalEntries))
	}
	if len(doc.GraphData.Nodes) != 3 {
		t.Errorf("nodes = %d, want 3", len(doc.GraphData.Nodes))
	}
	if len(doc.GraphData.Links) != 1 {
		t.Errorf("links = %d, want 1", len(doc.GraphData.Links))
	}
}

func TestWrite_JSONFile(t *testing.T) {
	snap := testSnapshot(t)
	out := filepath.Join(t.TempDir(), "nested", "data.json")

	if err := Write(snap, FormatJSON, out); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(data) {
		t.Error("export is not valid JSON")
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestWrite_SQLite(t *testing.T) {
	snap := testSnapshot(t)
	out := filepath.Join(t.TempDir(), "snapshot.db")

	if err := Write(snap, FormatSQLite, out); err != nil {
		t.Fatalf("Write: %v", err)
	}

	db, err := sql.Open("sqlite3", out)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	count := func(query string, args ...any) int {
		t.Helper()
		var n int
		if err := db.QueryRow(query, args...).Scan(&n); err != nil {
			t.Fatalf("%s: %v", query, err)
		}
		return n
	}

	if n := count(`SELECT count(*) FROM notes`); n != 3 {
		t.Errorf("notes = %d, want 3", n)
	}
	if n := count(`SELECT count(*) FROM links`); n != 1 {
		t.Errorf("links = %d, want 1", n)
	}
	if n := count(`SELECT count(*) FROM journal`); n != 1 {
		t.Errorf("journal = %d, want 1", n)
	}
	// Duplicate references are kept in refs, in order.
	if n := count(`SELECT count(*) FROM refs WHERE ref = 'Project Plan'`); n != 2 {
		t.Errorf("refs to Project Plan = %d, want 2", n)
	}
	if n := count(`SELECT count(*) FROM notes WHERE radius < 10`); n != 0 {
		t.Errorf("%d notes without radius", n)
	}
	if n := count(`SELECT count(*) FROM notes WHERE category = 'general'`); n != 1 {
		t.Errorf("general notes = %d, want 1", n)
	}

	var gen string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'generation'`).Scan(&gen); err != nil {
		t.Fatal(err)
	}
	if gen != snap.Generation {
		t.Errorf("generation = %q, want %q", gen, snap.Generation)
	}
}

func TestWrite_SQLiteOverwrites(t *testing.T) {
	snap := testSnapshot(t)
	out := filepath.Join(t.TempDir(), "snapshot.db")

	for i := 0; i < 2; i++ {
		if err := Write(snap, FormatSQLite, out); err != nil {
			t.Fatalf("Write #%d: %v", i, err)
		}
	}
}

func TestWrite_NilSnapshot(t *testing.T) {
	if err := Write(nil, FormatJSON, filepath.Join(t.TempDir(), "x.json")); err == nil {
		t.Error("expected error")
	}
}

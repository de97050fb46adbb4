package export

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/ansuz/internal/ingest"
)

const schemaSQL = `
CREATE TABLE notes (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	path          TEXT NOT NULL,
	root          TEXT NOT NULL,
	category      TEXT NOT NULL,
	content       TEXT NOT NULL,
	checksum      TEXT NOT NULL,
	radius        REAL NOT NULL DEFAULT 0,
	last_modified DATETIME NOT NULL
);

CREATE TABLE refs (
	note_id  TEXT NOT NULL REFERENCES notes(id),
	position INTEGER NOT NULL,
	ref      TEXT NOT NULL,
	PRIMARY KEY (note_id, position)
);

CREATE TABLE links (
	source TEXT NOT NULL REFERENCES notes(id),
	target TEXT NOT NULL REFERENCES notes(id),
	UNIQUE(source, target)
);

CREATE TABLE journal (
	note_id TEXT PRIMARY KEY REFERENCES notes(id)
);

CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE INDEX idx_notes_category ON notes(category);
CREATE INDEX idx_links_source ON links(source);
CREATE INDEX idx_links_target ON links(target);
`

// writeSQLite creates a fresh database at path holding snap.
func writeSQLite(snap *ingest.Snapshot, path string) error {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return fmt.Errorf("export: open db: %w", err)
	}
	defer conn.Close()

	if err := conn.Ping(); err != nil {
		return fmt.Errorf("export: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		return fmt.Errorf("export: apply schema: %w", err)
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("export: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := insertNotes(tx, snap); err != nil {
		return err
	}
	if err := insertGraph(tx, snap); err != nil {
		return err
	}
	if err := insertJournal(tx, snap); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES ('generation', ?), ('built_at', ?)`,
		snap.Generation, snap.BuiltAt.Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("export: insert meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("export: commit: %w", err)
	}
	return nil
}

func insertNotes(tx *sql.Tx, snap *ingest.Snapshot) error {
	noteStmt, err := tx.Prepare(`
		INSERT INTO notes (id, title, path, root, category, content, checksum, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("export: prepare note insert: %w", err)
	}
	defer noteStmt.Close()

	refStmt, err := tx.Prepare(`INSERT INTO refs (note_id, position, ref) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("export: prepare ref insert: %w", err)
	}
	defer refStmt.Close()

	for _, n := range snap.Index.All() {
		if _, err := noteStmt.Exec(n.ID, n.Title, n.Path, n.Root, n.Category, n.Content, n.Checksum, n.LastModified.UTC()); err != nil {
			return fmt.Errorf("export: insert note: %w", err)
		}
		for i, ref := range n.Links {
			if _, err := refStmt.Exec(n.ID, i, ref); err != nil {
				return fmt.Errorf("export: insert ref: %w", err)
			}
		}
	}
	return nil
}

func insertGraph(tx *sql.Tx, snap *ingest.Snapshot) error {
	radiusStmt, err := tx.Prepare(`UPDATE notes SET radius = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("export: prepare radius update: %w", err)
	}
	defer radiusStmt.Close()
	for _, node := range snap.Graph.Nodes {
		if _, err := radiusStmt.Exec(node.Radius, node.ID); err != nil {
			return fmt.Errorf("export: update radius: %w", err)
		}
	}

	linkStmt, err := tx.Prepare(`INSERT INTO links (source, target) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("export: prepare link insert: %w", err)
	}
	defer linkStmt.Close()
	for _, e := range snap.Graph.Edges {
		if _, err := linkStmt.Exec(e.Source, e.Target); err != nil {
			return fmt.Errorf("export: insert link: %w", err)
		}
	}
	return nil
}

func insertJournal(tx *sql.Tx, snap *ingest.Snapshot) error {
	stmt, err := tx.Prepare(`INSERT INTO journal (note_id) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("export: prepare journal insert: %w", err)
	}
	defer stmt.Close()
	for _, n := range snap.Journal {
		if _, err := stmt.Exec(n.ID); err != nil {
			return fmt.Errorf("export: insert journal: %w", err)
		}
	}
	return nil
}

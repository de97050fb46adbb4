package mcpserver

// ConventionsURI is the resource URI of NoteConventions.
const ConventionsURI = "ansuz://note-conventions"

// NoteConventions describes how notes are read from the content roots, so
// that LLM consumers can interpret titles, categories, links and journal
// entries the same way the indexer does.
const NoteConventions = `# Ansuz Note Conventions

Notes are plain Markdown files under one or more content roots. Nothing is
required; every file with the configured extension (default ` + "`" + `.md` + "`" + `) is indexed.

## Title

The first line of the form ` + "`" + `# Some Title` + "`" + ` (a single ` + "`" + `#` + "`" + `, whitespace, text) is
the title. Without such a line the file name without extension is used:
` + "`" + `design-notes.md` + "`" + ` is titled ` + "`" + `design-notes` + "`" + `.

## Category

The first directory below the content root is the category:
` + "`" + `projects/plan.md` + "`" + ` is in ` + "`" + `projects` + "`" + `. Files directly in a root are in ` + "`" + `general` + "`" + `.

## Links

Two forms are recognised, scanned left to right:

- ` + "`" + `[[Target]]` + "`" + ` wiki links
- ` + "`" + `[label](target)` + "`" + ` Markdown links; the reference is label and target
  concatenated with the brackets removed

A reference connects two notes when it equals another note's title (case
insensitive) or appears in its path. The first match in recency order wins.
Unmatched references are ignored. Links are undirected in the graph and a pair
of notes has at most one edge.

## Journal

A note is a journal entry when one of its directories is named ` + "`" + `memory` + "`" + ` and
either its title starts with a date (` + "`" + `2026-02-05 standup` + "`" + `) or its path contains
one (` + "`" + `memory/2026-02-05.md` + "`" + `).

## Identity

A note id is the unpadded URL-safe base64 encoding of its absolute path. Ids
are stable across runs as long as the file does not move.

## Freshness

Tools answer from the last snapshot. Edits on disk become visible after the
snapshot is rebuilt.
`

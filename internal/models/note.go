// Package models defines the domain types for Ansuz.
package models

import "time"

// DefaultCategory is assigned to notes that sit directly in a content root.
const DefaultCategory = "general"

// Note represents a parsed Markdown file from one of the content roots.
type Note struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Path         string    `json:"path"`
	Root         string    `json:"root"`
	Content      string    `json:"content"`
	Category     string    `json:"category"`
	Links        []string  `json:"links"`
	Checksum     string    `json:"checksum"`
	LastModified time.Time `json:"lastModified"`
}

// GraphNode is one vertex of the reference graph. Every note has one.
type GraphNode struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Radius   float64 `json:"radius"`
}

// GraphEdge is an undirected link between two distinct notes, by id.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is the deduplicated reference graph derived from an index.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"links"`
	// Unresolved counts references that matched no note.
	Unresolved int `json:"-"`
}

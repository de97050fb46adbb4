package api

import (
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/noteservice"
)

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// Dashboard is the stats response type (aliased from the domain layer).
type Dashboard = noteservice.Dashboard

// GraphResponse is the reference graph response.
type GraphResponse = models.Graph

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// CategoriesResponse wraps the category list.
type CategoriesResponse struct {
	Categories []index.CategoryCount `json:"categories" validate:"required"`
}

// RefreshResponse is returned after a snapshot rebuild.
type RefreshResponse struct {
	Generation string `json:"generation" example:"0b6f3c7e-7f3a-4d59-9c55-1b1f0c8c9a11" validate:"required"`
	Notes      int    `json:"notes" example:"42" validate:"required"`
	Skipped    int    `json:"skipped" example:"0"`
	DurationMS int64  `json:"durationMs" example:"12"`
}

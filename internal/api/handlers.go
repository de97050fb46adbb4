package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/ingest"
	"github.com/starford/ansuz/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc       *noteservice.Service
	onRefresh func(*ingest.Snapshot)
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithRefreshHook registers fn to run after every successful POST /refresh.
func WithRefreshHook(fn func(*ingest.Snapshot)) HandlerOption {
	return func(h *Handler) { h.onRefresh = fn }
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, opts ...HandlerOption) *Handler {
	h := &Handler{svc: svc}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// writeError maps service errors to HTTP responses.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidID):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrUnavailable):
		slog.Warn(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, errorBody("snapshot unavailable"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// noteTag digests everything a note response depends on: its own content
// and the neighbor list derived from the rest of the graph.
func noteTag(n *NoteDetail) string {
	var b strings.Builder
	b.WriteString(n.Checksum)
	for _, nb := range n.Neighbors {
		fmt.Fprintf(&b, "\n%s\t%s\t%d", nb.ID, nb.Title, nb.LastModified.UnixNano())
	}
	return checksum.Sum([]byte(b.String()))
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// Stats handles GET /api/stats.
//
//	@Summary		Dashboard summary of the current snapshot
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	Dashboard
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context())
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes newest first
//	@Tags			notes
//	@Produce		json
//	@Param			category	query		string	false	"Filter by category"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	items, total, err := h.svc.List(r.Context(), noteservice.ListOptions{
		Category: r.URL.Query().Get("category"),
		Limit:    queryInt(r, "limit"),
		Offset:   queryInt(r, "offset"),
	})
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note by id
//	@Tags			notes
//	@Produce		json
//	@Param			id				path		string	true	"Note id"
//	@Param			If-None-Match	header		string	false	"ETag from a previous response"
//	@Success		200				{object}	NoteDetail
//	@Success		304				"Not modified"
//	@Failure		400				{object}	errResponse
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	tag := noteTag(note)
	w.Header().Set("ETag", checksum.ETag(tag))
	if match := r.Header.Get("If-None-Match"); match != "" && checksum.MatchesAny(match, tag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Neighbors handles GET /api/notes/{id}/neighbors.
//
//	@Summary		Notes connected to a note in the reference graph
//	@Tags			graph
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteListResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/neighbors [get]
func (h *Handler) Neighbors(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Neighbors(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "neighbors", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// Categories handles GET /api/categories.
//
//	@Summary		List categories with note counts
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	CategoriesResponse
//	@Security		BearerAuth
//	@Router			/categories [get]
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.Categories(r.Context())
	if err != nil {
		writeError(w, "categories", err)
		return
	}
	writeJSON(w, http.StatusOK, CategoriesResponse{Categories: cats})
}

// Journal handles GET /api/journal.
//
//	@Summary		List journal entries newest first
//	@Tags			journal
//	@Produce		json
//	@Param			limit	query		int	false	"Max entries"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/journal [get]
func (h *Handler) Journal(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Journal(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeError(w, "journal", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the reference graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Graph(r.Context())
	if err != nil {
		writeError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// Refresh handles POST /api/refresh.
//
//	@Summary		Rebuild the snapshot from the content roots
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	RefreshResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Refresh(r.Context())
	if err != nil {
		writeError(w, "refresh", err)
		return
	}
	if h.onRefresh != nil {
		h.onRefresh(snap)
	}
	writeJSON(w, http.StatusOK, RefreshResponse{
		Generation: snap.Generation,
		Notes:      snap.Stats.Notes,
		Skipped:    snap.Stats.SkippedTotal(),
		DurationMS: snap.Stats.Duration.Milliseconds(),
	})
}

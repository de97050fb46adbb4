package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/ingest"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/testutil"
)

type env struct {
	router http.Handler
	corpus *testutil.Corpus
	planID string
}

// testEnv builds a small corpus, a snapshot cache over it, and the router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string, opts ...HandlerOption) *env {
	t.Helper()
	return testEnvWithSSE(t, authToken, nil, opts...)
}

func testEnvWithSSE(t *testing.T, authToken string, sseHandler http.Handler, opts ...HandlerOption) *env {
	t.Helper()
	c := testutil.NewCorpus(t)
	plan := c.Write("projects/plan.md", "# Project Plan\nsee [[Alpha]]", 0)
	c.Write("projects/alpha.md", "# Alpha", time.Minute)
	c.Write("memory/2026-02-05-standup.md", "# 2026-02-05 standup", time.Hour)

	cache := ingest.NewCache(ingest.NewPipeline([]string{c.Root}, testutil.Logger(t)))
	h := NewHandler(noteservice.NewService(cache), opts...)
	return &env{
		router: NewRouter(h, authToken != "", authToken, sseHandler),
		corpus: c,
		planID: parser.EncodeID(plan),
	}
}

func (e *env) get(t *testing.T, target string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestListNotes(t *testing.T) {
	e := testEnv(t, "")

	w := e.get(t, "/notes")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	resp := decode[NoteListResponse](t, w)
	if resp.Total != 3 || len(resp.Notes) != 3 {
		t.Fatalf("total = %d, notes = %d, want 3", resp.Total, len(resp.Notes))
	}
	if resp.Notes[0].Title != "Project Plan" {
		t.Errorf("first = %q, want newest first", resp.Notes[0].Title)
	}
}

func TestListNotes_CategoryAndPaging(t *testing.T) {
	e := testEnv(t, "")

	resp := decode[NoteListResponse](t, e.get(t, "/notes?category=projects&limit=1&offset=1"))
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}
	if len(resp.Notes) != 1 || resp.Notes[0].Title != "Alpha" {
		t.Errorf("notes = %+v, want [Alpha]", resp.Notes)
	}
}

func TestGetNote(t *testing.T) {
	e := testEnv(t, "")

	w := e.get(t, "/notes/"+e.planID)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", w.Code, w.Body.String())
	}
	note := decode[NoteDetail](t, w)
	if note.Title != "Project Plan" {
		t.Errorf("title = %q", note.Title)
	}
	if len(note.Links) != 1 || note.Links[0] != "Alpha" {
		t.Errorf("links = %v", note.Links)
	}
	if len(note.Neighbors) != 1 {
		t.Errorf("neighbors = %d, want 1", len(note.Neighbors))
	}
	if got := w.Header().Get("ETag"); got == "" || got == `"`+note.Checksum+`"` {
		t.Errorf("ETag = %q, want a tag covering content and neighbors", got)
	}
}

func TestGetNote_NotModified(t *testing.T) {
	e := testEnv(t, "")
	etag := e.get(t, "/notes/"+e.planID).Header().Get("ETag")

	w := e.get(t, "/notes/"+e.planID, "If-None-Match", etag)
	if w.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304", w.Code)
	}
}

func (e *env) refresh(t *testing.T) {
	t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d", w.Code)
	}
}

func TestGetNote_UnchangedAfterRefreshStillNotModified(t *testing.T) {
	e := testEnv(t, "")
	etag := e.get(t, "/notes/"+e.planID).Header().Get("ETag")

	e.refresh(t)

	w := e.get(t, "/notes/"+e.planID, "If-None-Match", etag)
	if w.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304", w.Code)
	}
}

func TestGetNote_NeighborChangeInvalidatesETag(t *testing.T) {
	e := testEnv(t, "")
	alphaID := parser.EncodeID(filepath.Join(e.corpus.Root, "projects", "alpha.md"))

	w := e.get(t, "/notes/"+alphaID)
	if n := len(decode[NoteDetail](t, w).Neighbors); n != 1 {
		t.Fatalf("neighbors before = %d, want 1", n)
	}
	etag := w.Header().Get("ETag")

	// Alpha's own content is untouched; only the note linking to it changes.
	e.corpus.Write("projects/plan.md", "# Project Plan\nno links here", 0)
	e.refresh(t)

	w = e.get(t, "/notes/"+alphaID, "If-None-Match", etag)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 after neighbors changed", w.Code)
	}
	if n := len(decode[NoteDetail](t, w).Neighbors); n != 0 {
		t.Errorf("neighbors after = %d, want 0", n)
	}
	if w.Header().Get("ETag") == etag {
		t.Error("ETag unchanged after neighbors changed")
	}
}

func TestGetNote_NotFound(t *testing.T) {
	e := testEnv(t, "")

	w := e.get(t, "/notes/"+parser.EncodeID("/nope.md"))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing note = %d, want 404", w.Code)
	}
}

func TestGetNote_InvalidID(t *testing.T) {
	e := testEnv(t, "")

	w := e.get(t, "/notes/not*an*id")
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid id = %d, want 400", w.Code)
	}
}

func TestNeighbors(t *testing.T) {
	e := testEnv(t, "")

	resp := decode[NoteListResponse](t, e.get(t, "/notes/"+e.planID+"/neighbors"))
	if len(resp.Notes) != 1 || resp.Notes[0].Title != "Alpha" {
		t.Errorf("neighbors = %+v, want [Alpha]", resp.Notes)
	}
}

func TestCategories(t *testing.T) {
	e := testEnv(t, "")

	resp := decode[CategoriesResponse](t, e.get(t, "/categories"))
	got := map[string]int{}
	for _, c := range resp.Categories {
		got[c.Name] = c.Count
	}
	if got["projects"] != 2 || got["memory"] != 1 || len(got) != 2 {
		t.Errorf("categories = %v", got)
	}
}

func TestJournal(t *testing.T) {
	e := testEnv(t, "")

	resp := decode[NoteListResponse](t, e.get(t, "/journal"))
	if len(resp.Notes) != 1 || resp.Notes[0].Title != "2026-02-05 standup" {
		t.Errorf("journal = %+v", resp.Notes)
	}
}

func TestGraphEndpoint(t *testing.T) {
	e := testEnv(t, "")

	w := e.get(t, "/graph")
	if w.Code != http.StatusOK {
		t.Fatalf("graph status = %d", w.Code)
	}
	var resp struct {
		Nodes []map[string]any `json:"nodes"`
		Links []map[string]any `json:"links"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Nodes) != 3 {
		t.Errorf("nodes = %d, want 3", len(resp.Nodes))
	}
	if len(resp.Links) != 1 {
		t.Errorf("links = %d, want 1", len(resp.Links))
	}
}

func TestStats(t *testing.T) {
	e := testEnv(t, "")

	d := decode[Dashboard](t, e.get(t, "/stats"))
	if d.Notes != 3 || d.Journal != 1 || d.Edges != 1 {
		t.Errorf("dashboard = %+v", d)
	}
	if len(d.Recent) != 3 || len(d.RecentJournal) != 1 {
		t.Errorf("recent = %d, recentJournal = %d", len(d.Recent), len(d.RecentJournal))
	}
}

func TestRefresh(t *testing.T) {
	var hooked *ingest.Snapshot
	e := testEnv(t, "", WithRefreshHook(func(s *ingest.Snapshot) { hooked = s }))
	before := decode[Dashboard](t, e.get(t, "/stats"))

	e.corpus.Write("ideas/new.md", "# New", 0)

	// The snapshot does not change until refreshed.
	if n := decode[NoteListResponse](t, e.get(t, "/notes")).Total; n != 3 {
		t.Fatalf("total before refresh = %d, want 3", n)
	}

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d", w.Code)
	}
	resp := decode[RefreshResponse](t, w)
	if resp.Notes != 4 {
		t.Errorf("notes = %d, want 4", resp.Notes)
	}
	if resp.Generation == before.Generation {
		t.Error("generation unchanged after refresh")
	}
	if hooked == nil || hooked.Generation != resp.Generation {
		t.Error("refresh hook not called with the new snapshot")
	}
	if n := decode[NoteListResponse](t, e.get(t, "/notes")).Total; n != 4 {
		t.Errorf("total after refresh = %d, want 4", n)
	}
}

func TestRefresh_GetNotAllowed(t *testing.T) {
	e := testEnv(t, "")
	if w := e.get(t, "/refresh"); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /refresh = %d, want 405", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := testEnv(t, "secret123")

	w := e.get(t, "/notes", "Authorization", "Bearer secret123")
	if w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	e := testEnv(t, "secret123")

	if w := e.get(t, "/notes"); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	e := testEnv(t, "secret123")

	if w := e.get(t, "/notes", "Authorization", "Bearer wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	e := testEnv(t, "")

	if w := e.get(t, "/notes"); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// blockingSSE writes headers and blocks until the request context is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	e := testEnvWithSSE(t, "secret", blockingSSE)

	if w := e.get(t, "/events"); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	e := testEnvWithSSE(t, "", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	e := testEnvWithSSE(t, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

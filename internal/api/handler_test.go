package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/domain"
	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/planner"
	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/session"
	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/store"
)

// fakeReconciler returns a canned result and records what it was asked.
type fakeReconciler struct {
	result     *planner.TurnResult
	err        error
	calls      int
	gotSession string
	gotMessage string
}

func (f *fakeReconciler) HandleTurn(_ context.Context, sessionKey, message string) (*planner.TurnResult, error) {
	f.calls++
	f.gotSession = sessionKey
	f.gotMessage = message
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeRepo serves snapshots for the memory endpoint.
type fakeRepo struct {
	sessions map[string]*domain.Memory
	loadErr  error
}

func (f *fakeRepo) LoadMemory(_ context.Context, sessionKey string) (*domain.Memory, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if mem, ok := f.sessions[sessionKey]; ok {
		return mem, nil
	}
	return domain.NewMemory(), nil
}

func (f *fakeRepo) SaveMemory(context.Context, string, *domain.Memory) error { return nil }
func (f *fakeRepo) CleanupIdleSessions(context.Context, time.Duration) (int64, error) {
	return 0, nil
}
func (f *fakeRepo) Ping(context.Context) error { return nil }
func (f *fakeRepo) Close() error               { return nil }

var _ store.Repository = (*fakeRepo)(nil)

func newTestRouter(rec Reconciler, repo store.Repository) *chi.Mux {
	h := NewHandler(rec, repo, session.NewManager(), nil)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleChatSuccess(t *testing.T) {
	mem := domain.NewMemory()
	mem.Goals = []string{"pass calculus"}
	rec := &fakeReconciler{result: &planner.TurnResult{
		Reply:  "Here is your plan.",
		Memory: mem.Snapshot(),
	}}
	router := newTestRouter(rec, &fakeRepo{})

	w := doJSON(t, router, http.MethodPost, "/api/chat", `{"sessionId":"s1","message":"help me"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Wrong content type: %s", ct)
	}

	var resp struct {
		Reply  string          `json:"reply"`
		Memory domain.Snapshot `json:"memory"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Bad response body: %v", err)
	}
	if resp.Reply != "Here is your plan." {
		t.Errorf("Wrong reply: %q", resp.Reply)
	}
	if len(resp.Memory.Goals) != 1 || resp.Memory.Goals[0] != "pass calculus" {
		t.Errorf("Wrong memory snapshot: %+v", resp.Memory)
	}
	if rec.gotSession != "s1" || rec.gotMessage != "help me" {
		t.Errorf("Reconciler got %q/%q", rec.gotSession, rec.gotMessage)
	}
}

func TestHandleChatValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing sessionId", `{"message":"hi"}`},
		{"missing message", `{"sessionId":"s1"}`},
		{"whitespace only message", `{"sessionId":"s1","message":"   "}`},
		{"empty body", ``},
		{"malformed json", `{"sessionId":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeReconciler{result: &planner.TurnResult{Reply: "never"}}
			router := newTestRouter(rec, &fakeRepo{})

			w := doJSON(t, router, http.MethodPost, "/api/chat", tt.body)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", w.Code)
			}
			if rec.calls != 0 {
				t.Errorf("Reconciler must not run for rejected input")
			}
		})
	}
}

func TestHandleChatErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty session", planner.ErrEmptySession, http.StatusBadRequest},
		{"empty message", planner.ErrEmptyMessage, http.StatusBadRequest},
		{"generation timeout", planner.ErrGenerationTimeout, http.StatusGatewayTimeout},
		{"generation failure", planner.ErrGeneration, http.StatusBadGateway},
		{"storage failure", planner.ErrStorage, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&fakeReconciler{err: tt.err}, &fakeRepo{})

			w := doJSON(t, router, http.MethodPost, "/api/chat", `{"sessionId":"s1","message":"hi"}`)

			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, w.Code)
			}
			var resp map[string]string
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Error response not JSON: %v", err)
			}
			if resp["error"] == "" {
				t.Error("Expected error field in response")
			}
		})
	}
}

func TestHandleMemory(t *testing.T) {
	mem := domain.NewMemory()
	mem.Goals = []string{"g"}
	mem.AppendTurn(domain.RoleUser, "secret transcript line")
	repo := &fakeRepo{sessions: map[string]*domain.Memory{"s1": mem}}
	router := newTestRouter(&fakeReconciler{}, repo)

	w := doJSON(t, router, http.MethodGet, "/api/memory?sessionId=s1", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp map[string]map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Bad response: %v", err)
	}
	snapshot, ok := resp["memory"]
	if !ok {
		t.Fatal("Expected memory field")
	}
	if _, hasChat := snapshot["chat"]; hasChat {
		t.Error("Snapshot must not expose the transcript")
	}
	goals, _ := snapshot["goals"].([]any)
	if len(goals) != 1 || goals[0] != "g" {
		t.Errorf("Wrong goals in snapshot: %v", snapshot["goals"])
	}
}

func TestHandleMemoryRequiresSessionID(t *testing.T) {
	router := newTestRouter(&fakeReconciler{}, &fakeRepo{})

	w := doJSON(t, router, http.MethodGet, "/api/memory", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestHandleMemoryUnknownSessionReturnsDefault(t *testing.T) {
	router := newTestRouter(&fakeReconciler{}, &fakeRepo{})

	w := doJSON(t, router, http.MethodGet, "/api/memory?sessionId=fresh", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for unknown session, got %d", w.Code)
	}
	var resp map[string]map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Bad response: %v", err)
	}
	goals, ok := resp["memory"]["goals"].([]any)
	if !ok || len(goals) != 0 {
		t.Errorf("Expected empty goals list, got %v", resp["memory"]["goals"])
	}
}

func TestHandleNewSession(t *testing.T) {
	router := newTestRouter(&fakeReconciler{}, &fakeRepo{})

	w := doJSON(t, router, http.MethodPost, "/api/session", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Bad response: %v", err)
	}
	if len(resp["sessionId"]) != 36 {
		t.Errorf("Expected UUID session id, got %q", resp["sessionId"])
	}

	second := doJSON(t, router, http.MethodPost, "/api/session", "")
	var respTwo map[string]string
	if err := json.NewDecoder(second.Body).Decode(&respTwo); err != nil {
		t.Fatalf("Bad response: %v", err)
	}
	if resp["sessionId"] == respTwo["sessionId"] {
		t.Error("Expected distinct session ids per mint")
	}
}

func TestHandleHealth(t *testing.T) {
	router := newTestRouter(&fakeReconciler{}, &fakeRepo{})

	w := doJSON(t, router, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Errorf("Expected ok body, got %q", w.Body.String())
	}
}

func TestUnknownAPIRouteReturnsJSON404(t *testing.T) {
	router := newTestRouter(&fakeReconciler{}, &fakeRepo{})

	w := doJSON(t, router, http.MethodGet, "/api/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("404 response not JSON: %v", err)
	}
	if resp["error"] != "Not found" {
		t.Errorf("Wrong 404 body: %v", resp)
	}
}

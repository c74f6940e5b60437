package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dkrasnov/reminders/internal/database"
	"github.com/dkrasnov/reminders/internal/models"
	"github.com/dkrasnov/reminders/internal/state"
	"github.com/dkrasnov/reminders/internal/usecase"
	"github.com/gorilla/mux"
)

// newTestRouter wires the full stack over an in-memory database, the
// same way the server does at startup.
func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()

	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	reminderRepo := database.NewReminderRepository(db)
	listRepo := database.NewListRepository(db)
	listRepo.SetReminderChangeHandler(reminderRepo.NotifyChanged)

	reminders := usecase.NewReminders(reminderRepo, nil)
	lists := usecase.NewLists(listRepo, nil)

	core := state.New(reminderRepo, listRepo, reminders, lists, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := core.Start(ctx); err != nil {
		t.Fatalf("Failed to start state core: %v", err)
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	NewReminderHandler(core, reminders).RegisterRoutes(api.PathPrefix("/reminders").Subrouter())
	NewListHandler(lists).RegisterRoutes(api.PathPrefix("/lists").Subrouter())
	return r
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(method, path, body))

	resp := w.Result()
	t.Cleanup(func() { resp.Body.Close() })

	var envelope map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			t.Fatalf("Failed to decode %s %s response: %v", method, path, err)
		}
	}
	return resp, envelope
}

// pollList retries a list request until the live snapshot catches up
// with the preceding writes.
func pollList(t *testing.T, router *mux.Router, path string, want int) []any {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	var last []any
	for time.Now().Before(deadline) {
		resp, envelope := doJSON(t, router, "GET", path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, resp.StatusCode)
		}
		data, _ := envelope["data"].([]any)
		if len(data) == want {
			return data
		}
		last = data
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("GET %s never reached %d items, last saw %d", path, want, len(last))
	return nil
}

func TestReminderHandler_CreateAndGet(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	resp, envelope := doJSON(t, router, "POST", "/api/v1/reminders", ReminderRequest{
		Title:    "Buy milk",
		Priority: "high",
		Tags:     []string{"errands"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}

	data := envelope["data"].(map[string]any)
	if data["title"] != "Buy milk" || data["priority"] != "high" {
		t.Errorf("Unexpected created reminder: %v", data)
	}
	id := int64(data["id"].(float64))
	if id == 0 {
		t.Fatal("Expected a non-zero id")
	}

	resp, envelope = doJSON(t, router, "GET", "/api/v1/reminders/"+itoa(id), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	got := envelope["data"].(map[string]any)
	if got["title"] != "Buy milk" {
		t.Errorf("Round-trip mismatch: %v", got)
	}
}

func TestReminderHandler_Create_ValidationRejected(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing title", ReminderRequest{}},
		{"blank title", map[string]any{"title": "   "}},
		{"unknown priority enum", map[string]any{"title": "ok", "priority": "urgent"}},
		{"malformed body", "not json at all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, envelope := doJSON(t, router, "POST", "/api/v1/reminders", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", resp.StatusCode)
			}
			if success, ok := envelope["success"].(bool); !ok || success {
				t.Error("Expected success=false envelope")
			}
		})
	}
}

func TestReminderHandler_ListByType(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	now := time.Now()
	fixtures := []ReminderRequest{
		{Title: "due today", DueDate: &now},
		{Title: "favorite", IsFavorite: true},
		{Title: "plain"},
	}
	for _, f := range fixtures {
		if resp, _ := doJSON(t, router, "POST", "/api/v1/reminders", f); resp.StatusCode != http.StatusCreated {
			t.Fatalf("POST %q status = %d", f.Title, resp.StatusCode)
		}
	}

	pollList(t, router, "/api/v1/reminders", 3)

	favorites := pollList(t, router, "/api/v1/reminders?type=favorite", 1)
	if title := favorites[0].(map[string]any)["title"]; title != "favorite" {
		t.Errorf("Expected [favorite], got %v", title)
	}

	today := pollList(t, router, "/api/v1/reminders?type=today", 1)
	if title := today[0].(map[string]any)["title"]; title != "due today" {
		t.Errorf("Expected [due today], got %v", title)
	}

	resp, _ := doJSON(t, router, "GET", "/api/v1/reminders?type=someday", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown type, got %d", resp.StatusCode)
	}
}

func TestReminderHandler_ListByList(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	resp, envelope := doJSON(t, router, "POST", "/api/v1/lists", ListRequest{Name: "Work"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST list status = %d", resp.StatusCode)
	}
	listID := int64(envelope["data"].(map[string]any)["id"].(float64))

	doJSON(t, router, "POST", "/api/v1/reminders", ReminderRequest{Title: "filed", ListID: &listID})
	doJSON(t, router, "POST", "/api/v1/reminders", ReminderRequest{Title: "unfiled"})

	filed := pollList(t, router, "/api/v1/reminders?list_id="+itoa(listID), 1)
	if title := filed[0].(map[string]any)["title"]; title != "filed" {
		t.Errorf("Expected [filed], got %v", title)
	}
}

func TestReminderHandler_ToggleComplete(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	_, envelope := doJSON(t, router, "POST", "/api/v1/reminders", ReminderRequest{Title: "toggle me"})
	id := itoa(int64(envelope["data"].(map[string]any)["id"].(float64)))

	resp, envelope := doJSON(t, router, "POST", "/api/v1/reminders/"+id+"/toggle-complete", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	data := envelope["data"].(map[string]any)
	if data["is_completed"] != true {
		t.Error("Expected is_completed=true after toggle")
	}
	if data["completed_at"] == nil {
		t.Error("Expected completed_at to be set")
	}

	_, envelope = doJSON(t, router, "POST", "/api/v1/reminders/"+id+"/toggle-complete", nil)
	if envelope["data"].(map[string]any)["is_completed"] != false {
		t.Error("Expected is_completed=false after second toggle")
	}
}

func TestReminderHandler_SetFavorite(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	_, envelope := doJSON(t, router, "POST", "/api/v1/reminders", ReminderRequest{Title: "star me"})
	id := itoa(int64(envelope["data"].(map[string]any)["id"].(float64)))

	resp, envelope := doJSON(t, router, "PUT", "/api/v1/reminders/"+id+"/favorite", SetFavoriteRequest{Favorite: true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if envelope["data"].(map[string]any)["is_favorite"] != true {
		t.Error("Expected is_favorite=true")
	}
}

func TestReminderHandler_Update(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	_, envelope := doJSON(t, router, "POST", "/api/v1/reminders", ReminderRequest{Title: "old title"})
	id := itoa(int64(envelope["data"].(map[string]any)["id"].(float64)))

	resp, envelope := doJSON(t, router, "PUT", "/api/v1/reminders/"+id, ReminderRequest{
		Title:    "new title",
		Priority: "low",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	data := envelope["data"].(map[string]any)
	if data["title"] != "new title" || data["priority"] != "low" {
		t.Errorf("Unexpected updated reminder: %v", data)
	}

	resp, _ = doJSON(t, router, "PUT", "/api/v1/reminders/99999", ReminderRequest{Title: "ghost"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 for missing reminder, got %d", resp.StatusCode)
	}
}

func TestReminderHandler_Delete_Idempotent(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	_, envelope := doJSON(t, router, "POST", "/api/v1/reminders", ReminderRequest{Title: "short lived"})
	id := itoa(int64(envelope["data"].(map[string]any)["id"].(float64)))

	resp, _ := doJSON(t, router, "DELETE", "/api/v1/reminders/"+id, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, router, "DELETE", "/api/v1/reminders/"+id, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected second delete to be a 204 no-op, got %d", resp.StatusCode)
	}
}

func TestReminderHandler_ClearCompleted(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	fixtures := []ReminderRequest{
		{Title: "one", IsCompleted: true},
		{Title: "two"},
		{Title: "three", IsCompleted: true},
	}
	for _, f := range fixtures {
		doJSON(t, router, "POST", "/api/v1/reminders", f)
	}
	pollList(t, router, "/api/v1/reminders", 3)

	resp, envelope := doJSON(t, router, "DELETE", "/api/v1/reminders/completed", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if cleared := envelope["data"].(map[string]any)["cleared"]; cleared != float64(2) {
		t.Errorf("Expected cleared=2, got %v", cleared)
	}

	remaining := pollList(t, router, "/api/v1/reminders", 1)
	if title := remaining[0].(map[string]any)["title"]; title != "two" {
		t.Errorf("Expected only 'two' to remain, got %v", title)
	}
}

func TestReminderHandler_Watch(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req := httptest.NewRequest("GET", "/api/v1/reminders/watch", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		router.ServeHTTP(w, req)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Watch handler did not return after context cancellation")
	}

	resp := w.Result()
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected Content-Type 'text/event-stream', got %q", ct)
	}
	body := w.Body.String()
	if !containsSSEEvent(body) {
		t.Errorf("Expected at least one SSE data event, got %q", body)
	}

	var snapshot state.Snapshot
	payload := firstSSEPayload(body)
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		t.Fatalf("Failed to decode SSE payload: %v", err)
	}
	if snapshot.Classification != models.ClassificationAll {
		t.Errorf("Expected initial classification all, got %q", snapshot.Classification)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func containsSSEEvent(body string) bool {
	return strings.Contains(body, "data: ")
}

func firstSSEPayload(body string) string {
	_, rest, ok := strings.Cut(body, "data: ")
	if !ok {
		return ""
	}
	payload, _, _ := strings.Cut(rest, "\n\n")
	return payload
}

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dkrasnov/reminders/internal/models"
	"github.com/dkrasnov/reminders/internal/state"
	"github.com/dkrasnov/reminders/internal/usecase"
	"github.com/dkrasnov/reminders/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// ReminderHandler handles reminder-related requests. Mutations are
// mediated by the state core; single-record reads go through the
// use-case layer for an authoritative answer.
type ReminderHandler struct {
	core      *state.Core
	reminders *usecase.Reminders
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(core *state.Core, reminders *usecase.Reminders) *ReminderHandler {
	return &ReminderHandler{core: core, reminders: reminders}
}

// RegisterRoutes registers reminder routes on the given router.
// The router should already have the /reminders prefix.
// Literal paths are registered before the {id} pattern so "completed"
// and "watch" never parse as ids.
func (h *ReminderHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListReminders).Methods("GET")
	r.HandleFunc("", h.CreateReminder).Methods("POST")
	r.HandleFunc("/completed", h.ClearCompleted).Methods("DELETE")
	r.HandleFunc("/completed/groups", h.CompletedGroups).Methods("GET")
	r.HandleFunc("/watch", h.Watch).Methods("GET")
	r.HandleFunc("/{id:[0-9]+}", h.GetReminder).Methods("GET")
	r.HandleFunc("/{id:[0-9]+}", h.UpdateReminder).Methods("PUT")
	r.HandleFunc("/{id:[0-9]+}", h.DeleteReminder).Methods("DELETE")
	r.HandleFunc("/{id:[0-9]+}/toggle-complete", h.ToggleComplete).Methods("POST")
	r.HandleFunc("/{id:[0-9]+}/toggle-favorite", h.ToggleFavorite).Methods("POST")
	r.HandleFunc("/{id:[0-9]+}/favorite", h.SetFavorite).Methods("PUT")
}

const (
	// MaxTitleLength is the maximum length for a reminder title
	MaxTitleLength = 500
	// MaxNotesLength is the maximum length for reminder notes
	MaxNotesLength = 10000
)

// ReminderRequest carries the caller-editable reminder fields for both
// create and whole-record update.
type ReminderRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=500"`
	Notes       string     `json:"notes" validate:"max=10000"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	IsCompleted bool       `json:"is_completed"`
	IsFavorite  bool       `json:"is_favorite"`
	Priority    string     `json:"priority" validate:"omitempty,priority"`
	Tags        []string   `json:"tags,omitempty"`
	ListID      *int64     `json:"list_id,omitempty"`
	ImageURI    string     `json:"image_uri,omitempty"`
	Location    string     `json:"location,omitempty"`
}

// SetFavoriteRequest carries an explicit favorite assignment
type SetFavoriteRequest struct {
	Favorite bool `json:"favorite"`
}

// ClearCompletedResponse reports how many reminders a clear removed
type ClearCompletedResponse struct {
	Cleared int `json:"cleared"`
}

func (r ReminderRequest) toModel() models.Reminder {
	return models.Reminder{
		Title:       r.Title,
		Notes:       r.Notes,
		DueDate:     r.DueDate,
		IsCompleted: r.IsCompleted,
		IsFavorite:  r.IsFavorite,
		Priority:    models.ParsePriority(r.Priority),
		Tags:        r.Tags,
		ListID:      r.ListID,
		ImageURI:    r.ImageURI,
		Location:    r.Location,
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}
	return true
}

func validateRequest(w http.ResponseWriter, req any) bool {
	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return false
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return false
	}
	return true
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// ListReminders returns the reminders matching the type and list_id
// query parameters, projected from the live snapshot. Without
// parameters it returns the full collection newest-first.
func (h *ReminderHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	classification := models.ClassificationAll
	if c := r.URL.Query().Get("type"); c != "" {
		if err := validation.ValidateClassification(c); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		classification = models.Classification(c)
	}

	var listID *int64
	if raw := r.URL.Query().Get("list_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid list_id")
			return
		}
		listID = &parsed
	}

	respondJSON(w, http.StatusOK, h.core.View(classification, listID))
}

// CreateReminder creates a new reminder
func (h *ReminderHandler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	var req ReminderRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if !validateRequest(w, req) {
		return
	}

	ctx := r.Context()
	id, err := h.core.Add(ctx, req.toModel())
	if err != nil {
		respondError(w, err)
		return
	}

	created, err := h.reminders.Get(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// GetReminder retrieves a reminder by ID
func (h *ReminderHandler) GetReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid reminder ID")
		return
	}

	reminder, err := h.reminders.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reminder)
}

// UpdateReminder replaces a reminder record whole
func (h *ReminderHandler) UpdateReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid reminder ID")
		return
	}

	var req ReminderRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if !validateRequest(w, req) {
		return
	}

	ctx := r.Context()
	current, err := h.reminders.Get(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}

	updated := req.toModel()
	updated.ID = id
	updated.CompletedAt = current.CompletedAt
	if updated.IsCompleted != current.IsCompleted {
		if updated.IsCompleted {
			now := time.Now()
			updated.CompletedAt = &now
		} else {
			updated.CompletedAt = nil
		}
	}

	if err := h.core.Update(ctx, updated); err != nil {
		respondError(w, err)
		return
	}

	fresh, err := h.reminders.Get(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fresh)
}

// DeleteReminder deletes a reminder. Deleting a missing id is a
// successful no-op.
func (h *ReminderHandler) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid reminder ID")
		return
	}

	if err := h.core.Delete(r.Context(), models.Reminder{ID: id}); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleComplete flips the completion flag on the current record
func (h *ReminderHandler) ToggleComplete(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.core.ToggleCompletion)
}

// ToggleFavorite flips the favorite flag on the current record
func (h *ReminderHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.core.ToggleFavorite)
}

func (h *ReminderHandler) toggle(w http.ResponseWriter, r *http.Request, flip func(ctx context.Context, reminder models.Reminder) error) {
	id, err := pathID(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid reminder ID")
		return
	}

	ctx := r.Context()
	current, err := h.reminders.Get(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := flip(ctx, *current); err != nil {
		respondError(w, err)
		return
	}

	fresh, err := h.reminders.Get(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fresh)
}

// SetFavorite sets the favorite flag to an explicit value
func (h *ReminderHandler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid reminder ID")
		return
	}

	var req SetFavoriteRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	ctx := r.Context()
	current, err := h.reminders.Get(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.core.SetFavorite(ctx, *current, req.Favorite); err != nil {
		respondError(w, err)
		return
	}

	fresh, err := h.reminders.Get(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fresh)
}

// ClearCompleted deletes every currently-completed reminder
func (h *ReminderHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.core.ClearCompleted(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ClearCompletedResponse{Cleared: cleared})
}

// CompletedGroups returns completed reminders bucketed by recency
func (h *ReminderHandler) CompletedGroups(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.core.CompletedGroups())
}

// Watch streams state snapshots over Server-Sent Events, the current
// state first, then one event per change, latest-wins for slow readers.
// The stream ends when the client disconnects.
func (h *ReminderHandler) Watch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for snapshot := range h.core.Subscribe(r.Context()) {
		payload, err := json.Marshal(snapshot)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
}

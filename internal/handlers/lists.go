package handlers

import (
	"net/http"

	"github.com/dkrasnov/reminders/internal/models"
	"github.com/dkrasnov/reminders/internal/usecase"
	"github.com/gorilla/mux"
)

// ListHandler handles reminder-list requests
type ListHandler struct {
	lists *usecase.Lists
}

// NewListHandler creates a new list handler
func NewListHandler(lists *usecase.Lists) *ListHandler {
	return &ListHandler{lists: lists}
}

// RegisterRoutes registers list routes on the given router.
// The router should already have the /lists prefix.
func (h *ListHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListLists).Methods("GET")
	r.HandleFunc("", h.CreateList).Methods("POST")
	r.HandleFunc("/default", h.GetDefaultList).Methods("GET")
	r.HandleFunc("/{id:[0-9]+}", h.GetList).Methods("GET")
	r.HandleFunc("/{id:[0-9]+}", h.UpdateList).Methods("PUT")
	r.HandleFunc("/{id:[0-9]+}", h.DeleteList).Methods("DELETE")
}

// ListRequest carries the caller-editable list fields
type ListRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=200"`
	Color     string `json:"color" validate:"omitempty,hexcolor"`
	IsDefault bool   `json:"is_default"`
}

func (r ListRequest) toModel() models.ReminderList {
	return models.ReminderList{
		Name:      r.Name,
		Color:     r.Color,
		IsDefault: r.IsDefault,
	}
}

// ListLists returns every reminder list
func (h *ListHandler) ListLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.lists.GetAll(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lists)
}

// CreateList creates a new reminder list
func (h *ListHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	var req ListRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if !validateRequest(w, req) {
		return
	}

	ctx := r.Context()
	id, err := h.lists.Add(ctx, req.toModel())
	if err != nil {
		respondError(w, err)
		return
	}

	created, err := h.lists.Get(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// GetList retrieves a list by ID
func (h *ListHandler) GetList(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid list ID")
		return
	}

	list, err := h.lists.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GetDefaultList returns the list flagged as default. Absence is a
// valid state and reported as 404, never papered over with a
// fabricated list.
func (h *ListHandler) GetDefaultList(w http.ResponseWriter, r *http.Request) {
	list, err := h.lists.GetDefault(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if list == nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "No default list exists")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// UpdateList replaces a list record whole
func (h *ListHandler) UpdateList(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid list ID")
		return
	}

	var req ListRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if !validateRequest(w, req) {
		return
	}

	ctx := r.Context()
	list := req.toModel()
	list.ID = id
	if err := h.lists.Update(ctx, list); err != nil {
		respondError(w, err)
		return
	}

	fresh, err := h.lists.Get(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fresh)
}

// DeleteList deletes a list; its reminders become unfiled. Deleting a
// missing id is a successful no-op.
func (h *ListHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid list ID")
		return
	}

	if err := h.lists.Delete(r.Context(), models.ReminderList{ID: id}); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

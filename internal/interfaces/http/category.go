package http

import (
	"encoding/json"
	"net/http"

	"amanah/internal/domain/category"
)

type CategoryHandler struct {
	categories *category.Service
}

func NewCategoryHandler(categories *category.Service) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// Request/Response DTOs

type CreateCategoryRequest struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// HandleCategories routes collection requests based on method
func (h *CategoryHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleCategoryByID routes requests for a specific category
func (h *CategoryHandler) HandleCategoryByID(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodPut:
		h.handleUpdate(w, r)
	case http.MethodDelete:
		h.handleDelete(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CategoryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	kind := category.Kind(r.URL.Query().Get("kind"))
	if !category.IsValidKind(kind) {
		http.Error(w, "Invalid category kind", http.StatusBadRequest)
		return
	}
	includeInactive := r.URL.Query().Get("includeInactive") == "true"

	cats, err := h.categories.ListCategories(r.Context(), kind, includeInactive)
	if err != nil {
		writeError(w, err)
		return
	}
	if cats == nil {
		cats = []*category.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *CategoryHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c, err := h.categories.CreateCategory(r.Context(), actor, category.CreateParams{
		Kind:        category.Kind(req.Kind),
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CategoryHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.categories.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CategoryHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var req UpdateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c, err := h.categories.UpdateCategory(r.Context(), actor, r.PathValue("id"), category.UpdateParams{
		Name:        req.Name,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CategoryHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.categories.DeleteCategory(r.Context(), actor, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

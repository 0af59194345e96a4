package http

import (
	"encoding/json"
	"net/http"

	"amanah/internal/domain/pocket"
)

type PocketHandler struct {
	pockets *pocket.Service
}

func NewPocketHandler(pockets *pocket.Service) *PocketHandler {
	return &PocketHandler{pockets: pockets}
}

// Request/Response DTOs

type CreatePocketRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type UpdatePocketRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// HandlePockets routes collection requests based on method
func (h *PocketHandler) HandlePockets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandlePocketByID routes requests for a specific pocket
func (h *PocketHandler) HandlePocketByID(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodPut:
		h.handleUpdate(w, r)
	case http.MethodDelete:
		h.handleDeactivate(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleSummary returns the pocket's aggregated totals
func (h *PocketHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sum, err := h.pockets.GetSummary(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleReconcile forces a balance recalculation and reports the drift
func (h *PocketHandler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	actor, ok := identity(w, r)
	if !ok {
		return
	}

	rec, err := h.pockets.Reconcile(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *PocketHandler) handleList(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("includeInactive") == "true"

	pockets, err := h.pockets.ListPockets(r.Context(), includeInactive)
	if err != nil {
		writeError(w, err)
		return
	}
	if pockets == nil {
		pockets = []*pocket.Pocket{}
	}
	writeJSON(w, http.StatusOK, pockets)
}

func (h *PocketHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var req CreatePocketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.pockets.CreatePocket(r.Context(), actor, pocket.CreateParams{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *PocketHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.pockets.GetPocket(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleDeactivate retires a pocket. Balances are history, so pockets are
// never hard-deleted; a pocket still referenced by transactions cannot be
// retired at all.
func (h *PocketHandler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	inactive := false
	if _, err := h.pockets.UpdatePocket(r.Context(), actor, r.PathValue("id"), pocket.UpdateParams{Active: &inactive}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PocketHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var req UpdatePocketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.pockets.UpdatePocket(r.Context(), actor, r.PathValue("id"), pocket.UpdateParams{
		Name:        req.Name,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

package http

import (
	"encoding/json"
	"net/http"

	"amanah/internal/domain/ledger"
)

type ExpenseHandler struct {
	expenses *ledger.ExpenseService
}

func NewExpenseHandler(expenses *ledger.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses}
}

// Request/Response DTOs

type CreateExpenseRequest struct {
	PocketID    string             `json:"pocketId"`
	Description string             `json:"description"`
	ReceiptRef  string             `json:"receiptRef,omitempty"`
	Notes       string             `json:"notes,omitempty"`
	Date        string             `json:"date"`
	Items       []ledger.ItemInput `json:"items"`
}

type UpdateExpenseRequest struct {
	PocketID    *string            `json:"pocketId,omitempty"`
	Description *string            `json:"description,omitempty"`
	ReceiptRef  *string            `json:"receiptRef,omitempty"`
	Notes       *string            `json:"notes,omitempty"`
	Date        *string            `json:"date,omitempty"`
	Items       []ledger.ItemInput `json:"items,omitempty"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type ExpenseResponse struct {
	*ledger.Expense
	TotalAmount int64 `json:"totalAmount"`
}

func newExpenseResponse(e *ledger.Expense) ExpenseResponse {
	return ExpenseResponse{Expense: e, TotalAmount: e.TotalAmount()}
}

// HandleExpenses routes collection requests based on method
func (h *ExpenseHandler) HandleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleExpenseByID routes requests for a specific expense
func (h *ExpenseHandler) HandleExpenseByID(w http.ResponseWriter, r *http.Request) {
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

// HandleStatus moves an expense through the approval workflow
func (h *ExpenseHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	e, err := h.expenses.SetApprovalStatus(r.Context(), actor, r.PathValue("id"), ledger.Status(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseResponse(e))
}

func (h *ExpenseHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := ledger.ExpenseFilter{
		PocketID:   q.Get("pocketId"),
		CategoryID: q.Get("categoryId"),
		Status:     ledger.Status(q.Get("status")),
	}
	var err error
	if filter.From, err = parseDateQuery(q.Get("from")); err != nil {
		http.Error(w, "Invalid from date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if filter.To, err = parseDateQuery(q.Get("to")); err != nil {
		http.Error(w, "Invalid to date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	expenses, err := h.expenses.List(r.Context(), filter, parsePage(q))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, newExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ExpenseHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var req CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	e, err := h.expenses.Create(r.Context(), actor, ledger.CreateExpenseParams{
		PocketID:    req.PocketID,
		Description: req.Description,
		ReceiptRef:  req.ReceiptRef,
		Notes:       req.Notes,
		Date:        date,
		Items:       req.Items,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newExpenseResponse(e))
}

func (h *ExpenseHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	e, err := h.expenses.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseResponse(e))
}

func (h *ExpenseHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var req UpdateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	patch := ledger.ExpensePatch{
		PocketID:    req.PocketID,
		Description: req.Description,
		ReceiptRef:  req.ReceiptRef,
		Notes:       req.Notes,
		Items:       req.Items,
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		patch.Date = &date
	}

	e, err := h.expenses.Update(r.Context(), actor, r.PathValue("id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseResponse(e))
}

func (h *ExpenseHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.expenses.Delete(r.Context(), actor, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"amanah/internal/domain/ledger"
)

type DonationHandler struct {
	donations *ledger.DonationService
}

func NewDonationHandler(donations *ledger.DonationService) *DonationHandler {
	return &DonationHandler{donations: donations}
}

// Request/Response DTOs

type CreateDonationRequest struct {
	PocketID      string             `json:"pocketId"`
	DonorName     string             `json:"donorName,omitempty"`
	Anonymous     bool               `json:"anonymous,omitempty"`
	PaymentMethod string             `json:"paymentMethod"`
	ReceiptRef    string             `json:"receiptRef,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	Date          string             `json:"date"`
	Items         []ledger.ItemInput `json:"items"`
}

type UpdateDonationRequest struct {
	PocketID      *string            `json:"pocketId,omitempty"`
	DonorName     *string            `json:"donorName,omitempty"`
	Anonymous     *bool              `json:"anonymous,omitempty"`
	PaymentMethod *string            `json:"paymentMethod,omitempty"`
	ReceiptRef    *string            `json:"receiptRef,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
	Date          *string            `json:"date,omitempty"`
	Items         []ledger.ItemInput `json:"items,omitempty"`
}

type DonationResponse struct {
	*ledger.Donation
	TotalAmount int64 `json:"totalAmount"`
}

func newDonationResponse(d *ledger.Donation) DonationResponse {
	return DonationResponse{Donation: d, TotalAmount: d.TotalAmount()}
}

// HandleDonations routes collection requests based on method
func (h *DonationHandler) HandleDonations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleDonationByID routes requests for a specific donation
func (h *DonationHandler) HandleDonationByID(w http.ResponseWriter, r *http.Request) {
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

func (h *DonationHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := ledger.DonationFilter{
		PocketID:      q.Get("pocketId"),
		CategoryID:    q.Get("categoryId"),
		PaymentMethod: q.Get("paymentMethod"),
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

	donations, err := h.donations.List(r.Context(), filter, parsePage(q))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]DonationResponse, 0, len(donations))
	for _, d := range donations {
		out = append(out, newDonationResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *DonationHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var req CreateDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	d, err := h.donations.Create(r.Context(), actor, ledger.CreateDonationParams{
		PocketID:      req.PocketID,
		DonorName:     req.DonorName,
		Anonymous:     req.Anonymous,
		PaymentMethod: req.PaymentMethod,
		ReceiptRef:    req.ReceiptRef,
		Notes:         req.Notes,
		Date:          date,
		Items:         req.Items,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newDonationResponse(d))
}

func (h *DonationHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	d, err := h.donations.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDonationResponse(d))
}

func (h *DonationHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var req UpdateDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	patch := ledger.DonationPatch{
		PocketID:      req.PocketID,
		DonorName:     req.DonorName,
		Anonymous:     req.Anonymous,
		PaymentMethod: req.PaymentMethod,
		ReceiptRef:    req.ReceiptRef,
		Notes:         req.Notes,
		Items:         req.Items,
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		patch.Date = &date
	}

	d, err := h.donations.Update(r.Context(), actor, r.PathValue("id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDonationResponse(d))
}

func (h *DonationHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.donations.Delete(r.Context(), actor, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func parseDateQuery(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return parseDate(s)
}

func parsePage(q url.Values) ledger.Page {
	var page ledger.Page
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		page.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil {
		page.Offset = n
	}
	return page
}

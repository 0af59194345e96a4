package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"amanah/internal/domain/category"
	"amanah/internal/domain/ledger"
	"amanah/internal/domain/pocket"
	"amanah/internal/domain/user"
	"amanah/internal/shared/auth"
	"amanah/internal/shared/middleware"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP status codes. Validation failures
// are the caller's fault and carry the offending field; everything unmapped
// is a storage fault and stays opaque.
func writeError(w http.ResponseWriter, err error) {
	if field, reason, ok := validationDetails(err); ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": reason,
			"field": field,
		})
		return
	}

	switch {
	case errors.Is(err, ledger.ErrForbidden),
		errors.Is(err, pocket.ErrForbidden),
		errors.Is(err, category.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, ledger.ErrDonationNotFound),
		errors.Is(err, ledger.ErrExpenseNotFound),
		errors.Is(err, pocket.ErrPocketNotFound),
		errors.Is(err, category.ErrCategoryNotFound),
		errors.Is(err, user.ErrUserNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, pocket.ErrPocketInUse),
		errors.Is(err, pocket.ErrDuplicateName),
		errors.Is(err, category.ErrCategoryInUse),
		errors.Is(err, category.ErrDuplicateName),
		errors.Is(err, user.ErrDuplicateEmail):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Printf("internal error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// validationDetails extracts the offending field from the per-package
// validation error types so every rejected write surfaces as a 400 with
// the field named.
func validationDetails(err error) (field, reason string, ok bool) {
	var lve *ledger.ValidationError
	if errors.As(err, &lve) {
		return lve.Field, lve.Reason, true
	}
	var pve *pocket.ValidationError
	if errors.As(err, &pve) {
		return pve.Field, pve.Reason, true
	}
	var cve *category.ValidationError
	if errors.As(err, &cve) {
		return cve.Field, cve.Reason, true
	}
	return "", "", false
}

// identity pulls the authenticated caller from the request context. The auth
// middleware guarantees it is present on protected routes.
func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}

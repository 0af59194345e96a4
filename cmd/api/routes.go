package main

import (
	"log"
	"net/http"

	"amanah/internal/shared/config"
	"amanah/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", handleHealth)

	// Public auth routes
	mux.HandleFunc("/api/auth/login", deps.AuthHandler.HandleLogin)
	mux.HandleFunc("/api/auth/logout", deps.AuthHandler.HandleLogout)

	// Protected routes
	authMiddleware := middleware.Auth(deps.JWT)
	protect := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(h)
	}

	mux.Handle("/api/pockets/", protect(deps.PocketHandler.HandlePockets))
	mux.Handle("/api/pockets/{id}", protect(deps.PocketHandler.HandlePocketByID))
	mux.Handle("/api/pockets/{id}/summary", protect(deps.PocketHandler.HandleSummary))
	mux.Handle("/api/pockets/{id}/reconcile", protect(deps.PocketHandler.HandleReconcile))
	mux.Handle("/api/categories/", protect(deps.CategoryHandler.HandleCategories))
	mux.Handle("/api/categories/{id}", protect(deps.CategoryHandler.HandleCategoryByID))
	mux.Handle("/api/donations/", protect(deps.DonationHandler.HandleDonations))
	mux.Handle("/api/donations/{id}", protect(deps.DonationHandler.HandleDonationByID))
	mux.Handle("/api/expenses/", protect(deps.ExpenseHandler.HandleExpenses))
	mux.Handle("/api/expenses/{id}", protect(deps.ExpenseHandler.HandleExpenseByID))
	mux.Handle("/api/expenses/{id}/status", protect(deps.ExpenseHandler.HandleStatus))

	// Apply global middleware
	handler := middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(mux))

	// Request tracing and metrics when telemetry is on
	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(middleware.Tracing(handler))
	}

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Println("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

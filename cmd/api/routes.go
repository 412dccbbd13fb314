package main

import (
	"net/http"

	"go.uber.org/zap"

	httphandlers "ajo/internal/interfaces/http"
	"ajo/internal/shared/config"
	"ajo/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", httphandlers.HandleHealth)

	// Public auth routes
	mux.HandleFunc("POST /api/auth/register", deps.AuthHandler.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", deps.AuthHandler.HandleLogin)
	mux.HandleFunc("POST /api/auth/logout", deps.AuthHandler.HandleLogout)

	// Protected routes
	authMiddleware := middleware.Auth(deps.JWT, deps.Profiles)
	protect := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(h)
	}

	mux.Handle("GET /api/me", protect(deps.UserHandler.HandleMe))

	mux.Handle("POST /api/accounts", protect(deps.AccountHandler.HandleCreateAccount))
	mux.Handle("GET /api/accounts", protect(deps.AccountHandler.HandleListAccounts))
	mux.Handle("POST /api/accounts/link", protect(deps.AccountHandler.HandleLinkAccount))
	mux.Handle("GET /api/accounts/{id}", protect(deps.AccountHandler.HandleGetAccount))
	mux.Handle("GET /api/accounts/{id}/transactions", protect(deps.TransactionHandler.HandleHistory))
	mux.Handle("POST /api/accounts/{id}/deposits", protect(deps.TransactionHandler.HandleDeposit))
	mux.Handle("POST /api/accounts/{id}/interest", protect(deps.TransactionHandler.HandleInterest))
	mux.Handle("POST /api/accounts/{id}/loans", protect(deps.TransactionHandler.HandleLoan))
	mux.Handle("POST /api/accounts/{id}/withdrawals", protect(deps.TransactionHandler.HandleRequestWithdrawal))

	mux.Handle("GET /api/withdrawals/pending", protect(deps.TransactionHandler.HandleListPending))
	mux.Handle("POST /api/withdrawals/{id}/approve", protect(deps.TransactionHandler.HandleApproveWithdrawal))
	mux.Handle("POST /api/withdrawals/{id}/decline", protect(deps.TransactionHandler.HandleDeclineWithdrawal))

	mux.Handle("GET /api/customers", protect(deps.AccountHandler.HandleListCustomers))
	mux.Handle("GET /api/transactions/lookup", protect(deps.TransactionHandler.HandleLookup))

	// Apply global middleware
	handler := middleware.Logging(log)(middleware.CORS(cfg.Server.AllowedHosts)(mux))

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Info("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(middleware.Tracing(handler))
	}

	return handler
}

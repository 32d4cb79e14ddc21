package handlers

import (
	"net/http"
)

// Routes groups the portal's handlers.
type Routes struct {
	Session      *SessionHandler
	Views        *ViewsHandler
	Accounts     *AccountsHandler
	Transactions *TransactionsHandler
	Exports      *ExportsHandler
	Jobs         *JobsHandler
	Health       *HealthHandler
}

// Register mounts every endpoint on mux. Everything except login and the
// health check runs behind auth.
func (rt Routes) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	protected := func(fn http.HandlerFunc) http.Handler {
		return auth(fn)
	}

	mux.HandleFunc("POST /api/session", rt.Session.Login)
	mux.Handle("DELETE /api/session", protected(rt.Session.Logout))

	mux.Handle("GET /api/views/dashboard", protected(rt.Views.Dashboard))
	mux.Handle("GET /api/views/accounts", protected(rt.Views.Accounts))
	mux.Handle("GET /api/views/transactions", protected(rt.Views.Transactions))
	mux.Handle("GET /api/views/profile", protected(rt.Views.Profile))

	mux.Handle("POST /api/accounts", protected(rt.Accounts.Create))
	mux.Handle("PUT /api/accounts/{id}/type", protected(rt.Accounts.UpdateType))
	mux.Handle("DELETE /api/accounts/{id}", protected(rt.Accounts.Delete))

	mux.Handle("POST /api/transactions/{operation}", protected(rt.Transactions.Submit))

	mux.Handle("POST /api/exports", protected(rt.Exports.Create))
	mux.Handle("GET /api/jobs", protected(rt.Jobs.ListJobs))
	mux.Handle("GET /api/jobs/{id}", protected(rt.Jobs.GetJob))

	mux.HandleFunc("GET /health", rt.Health.Health)
}

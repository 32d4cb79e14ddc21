package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/bankx-client/internal/api/middleware"
	"github.com/dvloznov/bankx-client/internal/bankapi"
	"github.com/dvloznov/bankx-client/internal/gateway"
	"github.com/dvloznov/bankx-client/internal/views"
)

// Backend binds the shared gateway to the session of one portal request.
type Backend struct {
	gw  *gateway.Client
	log zerolog.Logger
}

// NewBackend creates a backend. gw must not carry a token source of its own.
func NewBackend(gw *gateway.Client, log zerolog.Logger) *Backend {
	return &Backend{gw: gw, log: log}
}

// call is one authenticated request's API and view dependencies.
type call struct {
	api   *bankapi.API
	deps  views.Deps
	nav   *redirectRecorder
	close func()
}

// bind builds the per-request view dependencies. A coordinator watches the
// request's session so that a rejected token turns into a login redirect.
func (b *Backend) bind(r *http.Request) (*call, bool) {
	store := middleware.SessionFrom(r.Context())
	if store == nil {
		return nil, false
	}
	api := bankapi.New(b.gw.WithTokens(store))
	nav := &redirectRecorder{}
	coord := views.NewCoordinator(store, nav, b.log)

	return &call{
		api: api,
		deps: views.Deps{
			Session:      store,
			Accounts:     api.Accounts,
			Transactions: api.Transactions,
			Customers:    api.Customers,
			Logger:       b.log,
			OnError:      func(err error) { coord.Handle(err) },
		},
		nav:   nav,
		close: coord.Close,
	}, true
}

type redirectRecorder struct {
	mu    sync.Mutex
	route string
}

func (n *redirectRecorder) Navigate(route string) {
	n.mu.Lock()
	n.route = route
	n.mu.Unlock()
}

func (n *redirectRecorder) target() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route
}

// writeFailure answers with the user-facing message for err. If the session
// ended during the request the client is sent to the login route.
func (c *call) writeFailure(w http.ResponseWriter, err error, fallback string) {
	msg := views.UserMessage(err, fallback)
	var ae *views.ActionError
	if errors.As(err, &ae) {
		msg = ae.Message
	}
	if route := c.nav.target(); route != "" || views.NeedsLogin(err) {
		if route == "" {
			route = middleware.LoginRoute
		}
		middleware.WriteJSON(w, http.StatusUnauthorized, map[string]string{
			"error":    msg,
			"redirect": route,
		})
		return
	}
	middleware.WriteError(w, statusFor(err), msg)
}

// statusFor maps a view or API error to the portal's response status.
func statusFor(err error) int {
	var ve *views.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusNotFound:
			return http.StatusNotFound
		case apiErr.Status >= 400 && apiErr.Status < 500:
			return http.StatusBadRequest
		default:
			return http.StatusBadGateway
		}
	}
	if errors.Is(err, gateway.ErrNetwork) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// SessionHandler signs users in and out.
type SessionHandler struct {
	b   *Backend
	log zerolog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(b *Backend, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{b: b, log: log}
}

// Login handles POST /api/session
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	resp, err := bankapi.New(h.b.gw).Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, gateway.ErrNetwork) {
			status = http.StatusBadGateway
		}
		h.log.Info().Err(err).Msg("Login rejected")
		middleware.WriteError(w, status, gateway.ServerMessage(err, "Login failed"))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token": resp.Token,
		"user":  resp.User,
	})
}

// Logout handles DELETE /api/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	c, ok := h.b.bind(r)
	if !ok {
		middleware.WriteUnauthorized(w, "Please log in to continue")
		return
	}
	defer c.close()

	if err := c.api.Auth.Logout(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("Server logout failed")
	}
	middleware.SessionFrom(r.Context()).Logout()
	w.WriteHeader(http.StatusNoContent)
}

// ViewsHandler serves the page view models as JSON.
type ViewsHandler struct {
	b   *Backend
	log zerolog.Logger
}

// NewViewsHandler creates a new views handler.
func NewViewsHandler(b *Backend, log zerolog.Logger) *ViewsHandler {
	return &ViewsHandler{b: b, log: log}
}

// Dashboard handles GET /api/views/dashboard
func (h *ViewsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(c *call) any {
		return mountPage(w, r, c, views.NewDashboard(c.deps).Page, nil)
	})
}

// Accounts handles GET /api/views/accounts
func (h *ViewsHandler) Accounts(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(c *call) any {
		return mountPage(w, r, c, views.NewAccounts(c.deps).Page, nil)
	})
}

// Transactions handles GET /api/views/transactions?type=&q=
func (h *ViewsHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	filter := views.Filter{
		Type:  r.URL.Query().Get("type"),
		Query: r.URL.Query().Get("q"),
	}
	h.serve(w, r, func(c *call) any {
		return mountPage(w, r, c, views.NewTransactions(c.deps).Page, func(d views.TransactionsData) views.TransactionsData {
			d.Transactions = filter.Apply(d.Transactions)
			return d
		})
	})
}

// Profile handles GET /api/views/profile
func (h *ViewsHandler) Profile(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(c *call) any {
		return mountPage(w, r, c, views.NewProfile(c.deps).Page, nil)
	})
}

func (h *ViewsHandler) serve(w http.ResponseWriter, r *http.Request, load func(c *call) any) {
	c, ok := h.b.bind(r)
	if !ok {
		middleware.WriteUnauthorized(w, "Please log in to continue")
		return
	}
	defer c.close()

	if state := load(c); state != nil {
		middleware.WriteJSON(w, http.StatusOK, state)
	}
}

// mountPage loads page once and returns its state, or writes the failure and
// returns nil.
func mountPage[T any](w http.ResponseWriter, r *http.Request, c *call, page *views.Page[T], transform func(T) T) any {
	defer page.Unmount()
	if err := page.Mount(r.Context()); err != nil {
		c.writeFailure(w, err, page.State().Message)
		return nil
	}
	state := page.State()
	if transform != nil {
		state.Data = transform(state.Data)
	}
	return state
}

// HealthHandler reports the portal's status and whether the bank API answers.
type HealthHandler struct {
	b   *Backend
	log zerolog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(b *Backend, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{b: b, log: log}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	bank := "up"
	if _, err := bankapi.New(h.b.gw).System.Ping(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("Bank API ping failed")
		bank = "down"
	}
	status := "healthy"
	if bank != "up" {
		status = "degraded"
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": status,
		"bank":   bank,
		"time":   time.Now().Format(time.RFC3339),
	})
}

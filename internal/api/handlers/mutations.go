package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/bankx-client/internal/api/middleware"
	"github.com/dvloznov/bankx-client/internal/domain"
	"github.com/dvloznov/bankx-client/internal/views"
)

// AccountsHandler opens, retypes and closes accounts.
type AccountsHandler struct {
	b   *Backend
	log zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(b *Backend, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{b: b, log: log}
}

// Create handles POST /api/accounts
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountType    string          `json:"accountType"`
		InitialBalance decimal.Decimal `json:"initialBalance"`
	}
	if !decode(w, r, &req) {
		return
	}
	c, ok := h.b.bind(r)
	if !ok {
		middleware.WriteUnauthorized(w, "Please log in to continue")
		return
	}
	defer c.close()

	page := views.NewAccounts(c.deps)
	defer page.Unmount()
	if err := prepare(r.Context(), page.Page); err != nil {
		c.writeFailure(w, err, "Failed to load accounts")
		return
	}

	acc, err := page.Create(r.Context(), domain.AccountType(req.AccountType), req.InitialBalance)
	if err != nil {
		c.writeFailure(w, err, "Failed to create account")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, accountResult{Account: acc, Page: page.State()})
}

// UpdateType handles PUT /api/accounts/{id}/type
func (h *AccountsHandler) UpdateType(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	var req struct {
		AccountType string `json:"accountType"`
	}
	if !decode(w, r, &req) {
		return
	}
	c, ok := h.b.bind(r)
	if !ok {
		middleware.WriteUnauthorized(w, "Please log in to continue")
		return
	}
	defer c.close()

	page := views.NewAccounts(c.deps)
	defer page.Unmount()
	if err := prepare(r.Context(), page.Page); err != nil {
		c.writeFailure(w, err, "Failed to load accounts")
		return
	}

	acc, err := page.UpdateType(r.Context(), id, domain.AccountType(req.AccountType))
	if err != nil {
		c.writeFailure(w, err, "Failed to update account type")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, accountResult{Account: acc, Page: page.State()})
}

// Delete handles DELETE /api/accounts/{id}
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	c, ok := h.b.bind(r)
	if !ok {
		middleware.WriteUnauthorized(w, "Please log in to continue")
		return
	}
	defer c.close()

	page := views.NewAccounts(c.deps)
	defer page.Unmount()
	if err := prepare(r.Context(), page.Page); err != nil {
		c.writeFailure(w, err, "Failed to load accounts")
		return
	}

	if err := page.Delete(r.Context(), id); err != nil {
		c.writeFailure(w, err, "Failed to delete account")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, accountResult{Page: page.State()})
}

// accountResult is the changed account plus the re-fetched accounts page.
type accountResult struct {
	Account *domain.Account                 `json:"account,omitempty"`
	Page    views.State[views.AccountsData] `json:"page"`
}

// prepare mounts page so that a successful action re-fetches it. Only a
// login failure stops the action; other load errors stay on the page state.
func prepare[T any](ctx context.Context, page *views.Page[T]) error {
	if err := page.Mount(ctx); err != nil && views.NeedsLogin(err) {
		return err
	}
	return nil
}

func accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid account id")
		return 0, false
	}
	return id, true
}

// TransactionsHandler submits deposits, withdrawals and transfers.
type TransactionsHandler struct {
	b   *Backend
	log zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(b *Backend, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{b: b, log: log}
}

// Submit handles POST /api/transactions/{operation}
func (h *TransactionsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	op, err := views.ParseOperation(r.PathValue("operation"))
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Unknown operation")
		return
	}
	var form views.Form
	if !decode(w, r, &form) {
		return
	}
	form.Operation = op

	c, ok := h.b.bind(r)
	if !ok {
		middleware.WriteUnauthorized(w, "Please log in to continue")
		return
	}
	defer c.close()

	page := views.NewTransactions(c.deps)
	defer page.Unmount()
	if err := prepare(r.Context(), page.Page); err != nil {
		c.writeFailure(w, err, "Failed to load transactions")
		return
	}

	receipt, err := page.Submit(r.Context(), form)
	if err != nil {
		c.writeFailure(w, err, string(op)+" failed")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, struct {
		Receipt *domain.TransactionReceipt          `json:"receipt"`
		Page    views.State[views.TransactionsData] `json:"page"`
	}{receipt, page.State()})
}

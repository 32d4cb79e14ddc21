// Package banktest runs an in-memory stand-in for the bank REST API over
// httptest. It is used by package tests across the module.
package banktest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/bankx-client/internal/domain"
)

// Server holds customers, accounts and transactions in memory.
type Server struct {
	*httptest.Server

	mu           sync.RWMutex
	customers    map[string]domain.Customer
	passwords    map[string]string // email -> password
	tokens       map[string]string // token -> customer id
	accounts     map[int64]domain.Account
	transactions []domain.Transaction
	failing      map[int64]bool
	nextAccount  int64
	nextTx       int64
	requests     []*http.Request
	now          func() time.Time
}

// New starts a server. Close it when done.
func New() *Server {
	s := &Server{
		customers:   make(map[string]domain.Customer),
		passwords:   make(map[string]string),
		tokens:      make(map[string]string),
		accounts:    make(map[int64]domain.Account),
		failing:     make(map[int64]bool),
		nextAccount: 1,
		nextTx:      1,
		now:         func() time.Time { return time.Now().UTC() },
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

// APIURL is the base URL clients should be configured with.
func (s *Server) APIURL() string {
	return s.URL + "/api"
}

// AddCustomer registers a customer who can log in with email and password
// and returns a valid token for them.
func (s *Server) AddCustomer(c domain.Customer, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	s.customers[c.ID] = c
	s.passwords[c.Email] = password
	tok := "tok-" + uuid.New().String()
	s.tokens[tok] = c.ID
	return tok
}

// AddAccount stores acc, assigning an id when it has none.
func (s *Server) AddAccount(acc domain.Account) domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc.ID == 0 {
		acc.ID = s.nextAccount
	}
	if acc.ID >= s.nextAccount {
		s.nextAccount = acc.ID + 1
	}
	if acc.AccountNumber == "" {
		acc.AccountNumber = fmt.Sprintf("%012d", 100000000000+acc.ID)
	}
	s.accounts[acc.ID] = acc
	return acc
}

// AddTransaction records tx as-is.
func (s *Server) AddTransaction(tx domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == 0 {
		tx.ID = s.nextTx
	}
	if tx.ID >= s.nextTx {
		s.nextTx = tx.ID + 1
	}
	s.transactions = append(s.transactions, tx)
}

// FailTransactionsFor makes GET /transactions/account/{id} answer 500.
func (s *Server) FailTransactionsFor(accountID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[accountID] = true
}

// RevokeTokens invalidates every issued token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]string)
}

// Account returns the stored account.
func (s *Server) Account(id int64) (domain.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	return acc, ok
}

// Requests returns copies of the requests received so far.
func (s *Server) Requests() []*http.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*http.Request(nil), s.requests...)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("pong"))
	})
	mux.HandleFunc("GET /api/test/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "UP"})
	})
	mux.HandleFunc("POST /api/test/echo", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, body)
	})
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("POST /api/customers/register", s.register)

	mux.HandleFunc("POST /api/auth/logout", s.authed(func(w http.ResponseWriter, r *http.Request, _ string) {
		w.Write([]byte("Logout successful"))
	}))
	mux.HandleFunc("GET /api/auth/me", s.authed(s.me))
	mux.HandleFunc("GET /api/customers/{id}", s.authed(s.getCustomer))
	mux.HandleFunc("DELETE /api/customers/{id}", s.authed(s.deleteCustomer))
	mux.HandleFunc("GET /api/accounts/customer/{id}", s.authed(s.listAccounts))
	mux.HandleFunc("POST /api/accounts/customer/{id}", s.authed(s.createAccount))
	mux.HandleFunc("GET /api/accounts/number/{number}", s.authed(s.accountByNumber))
	mux.HandleFunc("GET /api/accounts/{id}", s.authed(s.getAccount))
	mux.HandleFunc("PUT /api/accounts/{id}/type", s.authed(s.updateAccountType))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.authed(s.deleteAccount))
	mux.HandleFunc("GET /api/transactions", s.authed(s.listTransactions))
	mux.HandleFunc("GET /api/transactions/account/{id}", s.authed(s.transactionsByAccount))
	mux.HandleFunc("GET /api/transactions/reference/{ref}", s.authed(s.transactionByReference))
	mux.HandleFunc("POST /api/transactions/deposit", s.authed(s.deposit))
	mux.HandleFunc("POST /api/transactions/withdraw", s.authed(s.withdraw))
	mux.HandleFunc("POST /api/transactions/transfer", s.authed(s.transfer))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Clone(r.Context()))
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

func (s *Server) authed(h func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.RLock()
		customerID, ok := s.tokens[tok]
		s.mu.RUnlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		h(w, r, customerID)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	pw, ok := s.passwords[req.Email]
	if !ok || pw != req.Password {
		writeJSON(w, http.StatusBadRequest, "Invalid credentials")
		return
	}
	for _, c := range s.customers {
		if c.Email == req.Email {
			tok := "tok-" + uuid.New().String()
			s.tokens[tok] = c.ID
			writeJSON(w, http.StatusOK, domain.LoginResponse{Token: tok, User: &c, Message: "Login successful"})
			return
		}
	}
	writeJSON(w, http.StatusBadRequest, "Invalid credentials")
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Username == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "name, email, username and password are required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.passwords[req.Email]; taken {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Email already registered"})
		return
	}
	c := domain.Customer{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Email:     req.Email,
		Address:   req.Address,
		KYCStatus: domain.KYCPending,
		CreatedAt: domain.Timestamp{Time: s.now()},
	}
	if req.Phone != nil {
		c.Phone = strconv.FormatInt(*req.Phone, 10)
	}
	s.customers[c.ID] = c
	s.passwords[c.Email] = req.Password
	writeJSON(w, http.StatusOK, domain.UserAuth{ID: int64(len(s.customers)), Username: req.Username, Customer: &c})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request, customerID string) {
	s.mu.RLock()
	c, ok := s.customers[customerID]
	s.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusBadRequest, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) getCustomer(w http.ResponseWriter, r *http.Request, _ string) {
	s.mu.RLock()
	c, ok := s.customers[r.PathValue("id")]
	s.mu.RUnlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteCustomer(w http.ResponseWriter, r *http.Request, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := s.customers[id]; !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	delete(s.customers, id)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request, _ string) {
	id := r.PathValue("id")
	s.mu.RLock()
	out := []domain.Account{}
	for _, acc := range s.accounts {
		if acc.OwnerID() == id {
			out = append(out, acc)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request, _ string) {
	typ, err := domain.ParseAccountType(r.URL.Query().Get("accountType"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid account type"})
		return
	}
	balance, err := decimal.NewFromString(r.URL.Query().Get("initialBalance"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid initial balance"})
		return
	}
	acc := s.AddAccount(domain.Account{CustomerID: r.PathValue("id"), AccountType: typ, Balance: balance})
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) accountID(w http.ResponseWriter, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request, _ string) {
	id, ok := s.accountID(w, r.PathValue("id"))
	if !ok {
		return
	}
	acc, found := s.Account(id)
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) accountByNumber(w http.ResponseWriter, r *http.Request, _ string) {
	number := r.PathValue("number")
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if acc.AccountNumber == number {
			writeJSON(w, http.StatusOK, acc)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (s *Server) updateAccountType(w http.ResponseWriter, r *http.Request, _ string) {
	id, ok := s.accountID(w, r.PathValue("id"))
	if !ok {
		return
	}
	typ, err := domain.ParseAccountType(r.URL.Query().Get("accountType"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid account type"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, found := s.accounts[id]
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	acc.AccountType = typ
	s.accounts[id] = acc
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request, _ string) {
	id, ok := s.accountID(w, r.PathValue("id"))
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.accounts[id]; !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	delete(s.accounts, id)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request, _ string) {
	s.mu.RLock()
	out := append([]domain.Transaction{}, s.transactions...)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) transactionsByAccount(w http.ResponseWriter, r *http.Request, _ string) {
	id, ok := s.accountID(w, r.PathValue("id"))
	if !ok {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing[id] {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
		return
	}
	out := []domain.Transaction{}
	for _, tx := range s.transactions {
		if (tx.FromAccount != nil && tx.FromAccount.ID == id) || (tx.ToAccount != nil && tx.ToAccount.ID == id) {
			out = append(out, tx)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) transactionByReference(w http.ResponseWriter, r *http.Request, _ string) {
	ref := r.PathValue("ref")
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tx := range s.transactions {
		if tx.ReferenceID == ref {
			writeJSON(w, http.StatusOK, tx)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request, _ string) {
	s.move(w, r, "", r.URL.Query().Get("accountId"), domain.TransactionCredit)
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request, _ string) {
	s.move(w, r, r.URL.Query().Get("accountId"), "", domain.TransactionDebit)
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request, _ string) {
	q := r.URL.Query()
	if q.Get("type") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Required parameter 'type' is not present"})
		return
	}
	s.move(w, r, q.Get("fromAccountId"), q.Get("toAccountId"), domain.TransactionTransfer)
}

// move applies a deposit, withdrawal or transfer. An empty id means that
// side is outside the bank.
func (s *Server) move(w http.ResponseWriter, r *http.Request, fromRaw, toRaw string, typ domain.TransactionType) {
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil || !amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Amount must be positive"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lookup := func(raw string) (*domain.Account, bool) {
		if raw == "" {
			return nil, true
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, false
		}
		acc, ok := s.accounts[id]
		if !ok {
			return nil, false
		}
		return &acc, true
	}
	from, okFrom := lookup(fromRaw)
	to, okTo := lookup(toRaw)
	if !okFrom || !okTo {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Account not found"})
		return
	}
	if from != nil && from.Balance.LessThan(amount) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Insufficient balance"})
		return
	}

	if from != nil {
		from.Balance = from.Balance.Sub(amount)
		s.accounts[from.ID] = *from
	}
	if to != nil {
		to.Balance = to.Balance.Add(amount)
		s.accounts[to.ID] = *to
	}

	now := s.now()
	tx := domain.Transaction{
		ID:          s.nextTx,
		ReferenceID: fmt.Sprintf("TXN-%s-%04d", now.Format("20060102150405"), s.nextTx),
		Type:        typ,
		Amount:      amount,
		Status:      domain.StatusSuccess,
		CreatedAt:   domain.Timestamp{Time: now},
		FromAccount: from,
		ToAccount:   to,
	}
	s.nextTx++
	s.transactions = append(s.transactions, tx)
	writeJSON(w, http.StatusOK, domain.TransactionReceipt{Status: tx.Status, ReferenceID: tx.ReferenceID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

package bankapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/bankx-client/internal/banktest"
	"github.com/dvloznov/bankx-client/internal/domain"
	"github.com/dvloznov/bankx-client/internal/gateway"
	"github.com/dvloznov/bankx-client/internal/session"
)

// MockDoer is a mock implementation of Doer
type MockDoer struct {
	DoFunc func(ctx context.Context, req gateway.Request, out any) error
}

func (m *MockDoer) Do(ctx context.Context, req gateway.Request, out any) error {
	return m.DoFunc(ctx, req, out)
}

type fixture struct {
	srv   *banktest.Server
	api   *API
	store *session.Store
	user  domain.Customer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := banktest.New()
	t.Cleanup(srv.Close)

	user := domain.Customer{ID: "c-1", Name: "Ada Lovelace", Email: "ada@example.com"}
	token := srv.AddCustomer(user, "secret")

	store := session.New(session.NewMemoryStore(), zerolog.Nop())
	store.Login(&user, token)

	gw := gateway.New(gateway.Config{BaseURL: srv.APIURL(), Tokens: store, Logger: zerolog.Nop()})
	return &fixture{srv: srv, api: New(gw), store: store, user: user}
}

func lastRequest(t *testing.T, srv *banktest.Server) *http.Request {
	t.Helper()
	reqs := srv.Requests()
	if len(reqs) == 0 {
		t.Fatal("no requests recorded")
	}
	return reqs[len(reqs)-1]
}

func TestAuth_Login(t *testing.T) {
	f := newFixture(t)

	resp, err := f.api.Auth.Login(context.Background(), "ada@example.com", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.Token == "" || resp.User == nil || resp.User.ID != "c-1" {
		t.Errorf("unexpected response: %+v", resp)
	}

	_, err = f.api.Auth.Login(context.Background(), "ada@example.com", "wrong")
	if got := gateway.ServerMessage(err, ""); got != "Invalid credentials" {
		t.Errorf("server message = %q, want Invalid credentials", got)
	}
}

func TestAuth_LoginFallbackMessage(t *testing.T) {
	api := New(&MockDoer{DoFunc: func(ctx context.Context, req gateway.Request, out any) error {
		return &gateway.APIError{Status: http.StatusInternalServerError}
	}})

	_, err := api.Auth.Login(context.Background(), "a", "b")
	if got := gateway.ServerMessage(err, ""); got != "Login failed" {
		t.Errorf("message = %q", got)
	}
}

func TestAuth_MeAndLogout(t *testing.T) {
	f := newFixture(t)
	me, err := f.api.Auth.Me(context.Background())
	if err != nil || me.Email != "ada@example.com" {
		t.Fatalf("Me() = %+v, %v", me, err)
	}
	if err := f.api.Auth.Logout(context.Background()); err != nil {
		t.Errorf("Logout() error = %v", err)
	}
}

func TestAccounts_CreateSendsQueryParams(t *testing.T) {
	f := newFixture(t)

	acc, err := f.api.Accounts.Create(context.Background(), "c-1", domain.AccountSavings, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if acc.AccountType != domain.AccountSavings || !acc.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("unexpected account %+v", acc)
	}

	req := lastRequest(t, f.srv)
	if req.Method != http.MethodPost || req.URL.Path != "/api/accounts/customer/c-1" {
		t.Errorf("request = %s %s", req.Method, req.URL.Path)
	}
	q := req.URL.Query()
	if q.Get("accountType") != "SAVINGS" || q.Get("initialBalance") != "100" {
		t.Errorf("query = %v", q)
	}
}

func TestAccounts_CRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.srv.AddAccount(domain.Account{CustomerID: "c-1", AccountType: domain.AccountCurrent, Balance: decimal.NewFromInt(5)})

	list, err := f.api.Accounts.ListByCustomer(ctx, "c-1")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByCustomer() = %v, %v", list, err)
	}

	got, err := f.api.Accounts.Get(ctx, created.ID)
	if err != nil || got.AccountNumber != created.AccountNumber {
		t.Fatalf("Get() = %+v, %v", got, err)
	}

	byNumber, err := f.api.Accounts.GetByNumber(ctx, created.AccountNumber)
	if err != nil || byNumber.ID != created.ID {
		t.Fatalf("GetByNumber() = %+v, %v", byNumber, err)
	}

	updated, err := f.api.Accounts.UpdateType(ctx, created.ID, domain.AccountBusiness)
	if err != nil || updated.AccountType != domain.AccountBusiness {
		t.Fatalf("UpdateType() = %+v, %v", updated, err)
	}
	if q := lastRequest(t, f.srv).URL.Query(); q.Get("accountType") != "BUSINESS" {
		t.Errorf("query = %v", q)
	}

	if err := f.api.Accounts.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	err = f.api.Accounts.Delete(ctx, created.ID)
	if got := gateway.ServerMessage(err, ""); got != "Failed to delete account" {
		t.Errorf("second delete message = %q", got)
	}
}

func TestTransactions_Mutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.srv.AddAccount(domain.Account{CustomerID: "c-1", Balance: decimal.NewFromInt(100)})
	b := f.srv.AddAccount(domain.Account{CustomerID: "c-1", Balance: decimal.Zero})

	tests := []struct {
		name      string
		run       func() (*domain.TransactionReceipt, error)
		wantPath  string
		wantQuery map[string]string
	}{
		{
			name:      "deposit",
			run:       func() (*domain.TransactionReceipt, error) { return f.api.Transactions.Deposit(ctx, a.ID, decimal.NewFromInt(10)) },
			wantPath:  "/api/transactions/deposit",
			wantQuery: map[string]string{"accountId": "1", "amount": "10"},
		},
		{
			name:      "withdraw",
			run:       func() (*domain.TransactionReceipt, error) { return f.api.Transactions.Withdraw(ctx, a.ID, decimal.NewFromInt(5)) },
			wantPath:  "/api/transactions/withdraw",
			wantQuery: map[string]string{"accountId": "1", "amount": "5"},
		},
		{
			name: "amount is sent as entered",
			run: func() (*domain.TransactionReceipt, error) {
				return f.api.Transactions.Withdraw(ctx, a.ID, decimal.RequireFromString("0.555"))
			},
			wantPath:  "/api/transactions/withdraw",
			wantQuery: map[string]string{"accountId": "1", "amount": "0.555"},
		},
		{
			name: "transfer",
			run: func() (*domain.TransactionReceipt, error) {
				return f.api.Transactions.Transfer(ctx, a.ID, b.ID, decimal.RequireFromString("2.5"))
			},
			wantPath:  "/api/transactions/transfer",
			wantQuery: map[string]string{"fromAccountId": "1", "toAccountId": "2", "amount": "2.5", "type": "TRANSFER"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receipt, err := tt.run()
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if receipt.Status != domain.StatusSuccess || receipt.ReferenceID == "" {
				t.Errorf("receipt = %+v", receipt)
			}
			req := lastRequest(t, f.srv)
			if req.URL.Path != tt.wantPath {
				t.Errorf("path = %q", req.URL.Path)
			}
			for k, v := range tt.wantQuery {
				if got := req.URL.Query().Get(k); got != v {
					t.Errorf("query %s = %q, want %q", k, got, v)
				}
			}
		})
	}

	all, err := f.api.Transactions.List(ctx)
	if err != nil || len(all) != 4 {
		t.Fatalf("List() = %d items, %v", len(all), err)
	}
	byAccount, err := f.api.Transactions.ByAccount(ctx, b.ID)
	if err != nil || len(byAccount) != 1 {
		t.Fatalf("ByAccount() = %d items, %v", len(byAccount), err)
	}
	ref, err := f.api.Transactions.ByReference(ctx, byAccount[0].ReferenceID)
	if err != nil || ref.Type != domain.TransactionTransfer {
		t.Fatalf("ByReference() = %+v, %v", ref, err)
	}
}

func TestTransactions_InsufficientBalance(t *testing.T) {
	f := newFixture(t)
	a := f.srv.AddAccount(domain.Account{CustomerID: "c-1", Balance: decimal.NewFromInt(10)})
	b := f.srv.AddAccount(domain.Account{CustomerID: "c-1"})

	_, err := f.api.Transactions.Transfer(context.Background(), a.ID, b.ID, decimal.NewFromInt(50))
	var apiErr *gateway.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Insufficient balance" {
		t.Fatalf("expected Insufficient balance, got %v", err)
	}
}

func TestTransactions_FallbackNamesOperation(t *testing.T) {
	api := New(&MockDoer{DoFunc: func(ctx context.Context, req gateway.Request, out any) error {
		return &gateway.APIError{Status: http.StatusBadRequest}
	}})
	_, err := api.Transactions.Transfer(context.Background(), 1, 2, decimal.NewFromInt(1))
	if got := gateway.ServerMessage(err, ""); got != "transfer failed" {
		t.Errorf("message = %q", got)
	}
}

func TestCustomers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	phone := int64(5551234)

	reg, err := f.api.Customers.Register(ctx, domain.RegisterRequest{
		Name: "Grace Hopper", Email: "grace@example.com", Phone: &phone, Username: "grace", Password: "pw",
	})
	if err != nil || reg.Customer == nil || reg.Customer.Phone != "5551234" {
		t.Fatalf("Register() = %+v, %v", reg, err)
	}

	got, err := f.api.Customers.Get(ctx, reg.Customer.ID)
	if err != nil || got.Email != "grace@example.com" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
	if err := f.api.Customers.Delete(ctx, reg.Customer.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestUnauthorizedExpiresSession(t *testing.T) {
	f := newFixture(t)
	f.srv.RevokeTokens()

	_, err := f.api.Accounts.ListByCustomer(context.Background(), "c-1")
	if !errors.Is(err, gateway.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if f.store.Authenticated() {
		t.Error("session should be cleared after 401")
	}
}

func TestSystem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pong, err := f.api.System.Ping(ctx)
	if err != nil || pong != "pong" {
		t.Errorf("Ping() = %q, %v", pong, err)
	}
	health, err := f.api.System.Health(ctx)
	if err != nil || health["status"] != "UP" {
		t.Errorf("Health() = %v, %v", health, err)
	}
	echo, err := f.api.System.Echo(ctx, map[string]string{"hello": "world"})
	if err != nil || echo["hello"] != "world" {
		t.Errorf("Echo() = %v, %v", echo, err)
	}
}

func TestAccounts_CreateDefaultErrorBodyUsesFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"timestamp":"2024-05-01T10:00:00.000+00:00","status":500,"error":"Internal Server Error","message":"","path":"/api/accounts/customer/c-1"}`))
	}))
	t.Cleanup(srv.Close)

	api := New(gateway.New(gateway.Config{BaseURL: srv.URL + "/api", Logger: zerolog.Nop()}))
	_, err := api.Accounts.Create(context.Background(), "c-1", domain.AccountSavings, decimal.NewFromInt(100))
	if got := gateway.ServerMessage(err, ""); got != "Failed to create account" {
		t.Errorf("message = %q, want %q", got, "Failed to create account")
	}
}

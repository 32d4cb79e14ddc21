package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/bankx-client/internal/api/middleware"
	"github.com/dvloznov/bankx-client/internal/banktest"
	"github.com/dvloznov/bankx-client/internal/domain"
	"github.com/dvloznov/bankx-client/internal/export"
	"github.com/dvloznov/bankx-client/internal/gateway"
	"github.com/dvloznov/bankx-client/internal/jobs"
	"github.com/dvloznov/bankx-client/internal/jobs/inmemory"
	"github.com/dvloznov/bankx-client/internal/views"
)

// MockPublisher is a mock implementation of jobs.Publisher.
type MockPublisher struct {
	PublishExportFunc func(ctx context.Context, job *jobs.ExportJob) error
}

func (m *MockPublisher) PublishExport(ctx context.Context, job *jobs.ExportJob) error {
	if m.PublishExportFunc != nil {
		return m.PublishExportFunc(ctx, job)
	}
	return nil
}

func (m *MockPublisher) Close() error { return nil }

type portal struct {
	bank      *banktest.Server
	server    *httptest.Server
	token     string
	jobStore  *inmemory.Store
	published []*jobs.ExportJob
	checking  domain.Account
	savings   domain.Account
}

func newPortal(t *testing.T) *portal {
	t.Helper()
	p := &portal{bank: banktest.New(), jobStore: inmemory.NewStore()}
	t.Cleanup(p.bank.Close)

	p.token = p.bank.AddCustomer(domain.Customer{ID: "c-1", Name: "Ada Lovelace", Email: "ada@example.com"}, "secret")
	p.checking = p.bank.AddAccount(domain.Account{CustomerID: "c-1", AccountType: domain.AccountChecking, Balance: decimal.NewFromInt(100)})
	p.savings = p.bank.AddAccount(domain.Account{CustomerID: "c-1", AccountType: domain.AccountSavings, Balance: decimal.NewFromInt(50)})

	now := time.Now().UTC()
	p.bank.AddTransaction(domain.Transaction{
		ReferenceID: "TXN-1", Type: domain.TransactionCredit, Amount: decimal.NewFromInt(100),
		Status: domain.StatusSuccess, CreatedAt: domain.Timestamp{Time: now.Add(-time.Hour)}, ToAccount: &p.checking,
	})
	p.bank.AddTransaction(domain.Transaction{
		ReferenceID: "TXN-2", Type: domain.TransactionDebit, Amount: decimal.NewFromInt(5),
		Status: domain.StatusSuccess, CreatedAt: domain.Timestamp{Time: now}, FromAccount: &p.savings,
	})

	log := zerolog.Nop()
	gw := gateway.New(gateway.Config{BaseURL: p.bank.APIURL()})
	b := NewBackend(gw, log)
	pub := &MockPublisher{PublishExportFunc: func(ctx context.Context, job *jobs.ExportJob) error {
		job.JobID = "job-" + job.Sink
		job.Status = jobs.JobStatusPending
		p.published = append(p.published, job)
		return p.jobStore.SaveJob(ctx, job)
	}}

	mux := http.NewServeMux()
	Routes{
		Session:      NewSessionHandler(b, log),
		Views:        NewViewsHandler(b, log),
		Accounts:     NewAccountsHandler(b, log),
		Transactions: NewTransactionsHandler(b, log),
		Exports:      NewExportsHandler(pub, []export.Sink{export.SinkCSV}, log),
		Jobs:         NewJobsHandler(p.jobStore, log),
		Health:       NewHealthHandler(b, log),
	}.Register(mux, middleware.Auth(gw, log))

	p.server = httptest.NewServer(middleware.RequestID(mux))
	t.Cleanup(p.server.Close)
	return p
}

func (p *portal) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, p.server.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type errorBody struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}

func TestSessionHandler_Login(t *testing.T) {
	p := newPortal(t)
	p.token = ""

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
		wantError  string
	}{
		{"ok", map[string]string{"email": "ada@example.com", "password": "secret"}, http.StatusOK, ""},
		{"wrong password", map[string]string{"email": "ada@example.com", "password": "nope"}, http.StatusUnauthorized, "Invalid credentials"},
		{"missing fields", map[string]string{"email": "ada@example.com"}, http.StatusBadRequest, "Email and password are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				Token string           `json:"token"`
				User  *domain.Customer `json:"user"`
				Error string           `json:"error"`
			}
			status := p.do(t, http.MethodPost, "/api/session", tt.body, &out)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d", status, tt.wantStatus)
			}
			if out.Error != tt.wantError {
				t.Errorf("error = %q, want %q", out.Error, tt.wantError)
			}
			if tt.wantStatus == http.StatusOK && (out.Token == "" || out.User == nil || out.User.ID != "c-1") {
				t.Errorf("login response = %+v", out)
			}
		})
	}
}

func TestSessionHandler_Logout(t *testing.T) {
	p := newPortal(t)
	if status := p.do(t, http.MethodDelete, "/api/session", nil, nil); status != http.StatusNoContent {
		t.Errorf("status = %d", status)
	}
}

func TestViews_RequireLogin(t *testing.T) {
	p := newPortal(t)

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"revoked token", "tok-unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p.token = tt.token
			var out errorBody
			status := p.do(t, http.MethodGet, "/api/views/dashboard", nil, &out)
			if status != http.StatusUnauthorized || out.Redirect != middleware.LoginRoute {
				t.Errorf("status = %d, body = %+v", status, out)
			}
		})
	}
}

func TestViews_Dashboard(t *testing.T) {
	p := newPortal(t)

	var out struct {
		Status string `json:"status"`
		Data   struct {
			Greeting     string               `json:"greeting"`
			User         domain.Session       `json:"user"`
			Accounts     []domain.Account     `json:"accounts"`
			TotalBalance decimal.Decimal      `json:"totalBalance"`
			Recent       []domain.Transaction `json:"recentTransactions"`
		} `json:"data"`
	}
	if status := p.do(t, http.MethodGet, "/api/views/dashboard", nil, &out); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if out.Status != "ready" {
		t.Errorf("status = %q", out.Status)
	}
	if len(out.Data.Accounts) != 2 || !out.Data.TotalBalance.Equal(decimal.NewFromInt(150)) {
		t.Errorf("accounts = %+v, total = %s", out.Data.Accounts, out.Data.TotalBalance)
	}
	if len(out.Data.Recent) != 2 || out.Data.Recent[0].ReferenceID != "TXN-2" {
		t.Errorf("recent = %+v", out.Data.Recent)
	}
	if out.Data.User.Token != "" {
		t.Error("dashboard leaked the token")
	}
}

func TestViews_TransactionsFilter(t *testing.T) {
	p := newPortal(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"TXN-2", "TXN-1"}},
		{"?type=credit", []string{"TXN-1"}},
		{"?type=all&q=txn-2", []string{"TXN-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var out struct {
				Data struct {
					Transactions []domain.Transaction `json:"transactions"`
				} `json:"data"`
			}
			if status := p.do(t, http.MethodGet, "/api/views/transactions"+tt.query, nil, &out); status != http.StatusOK {
				t.Fatalf("status = %d", status)
			}
			if len(out.Data.Transactions) != len(tt.want) {
				t.Fatalf("got %d transactions, want %d", len(out.Data.Transactions), len(tt.want))
			}
			for i, tx := range out.Data.Transactions {
				if tx.ReferenceID != tt.want[i] {
					t.Errorf("[%d] = %s, want %s", i, tx.ReferenceID, tt.want[i])
				}
			}
		})
	}
}

func TestViews_Profile(t *testing.T) {
	p := newPortal(t)
	var out struct {
		Data struct {
			Customer *domain.Customer `json:"customer"`
		} `json:"data"`
	}
	if status := p.do(t, http.MethodGet, "/api/views/profile", nil, &out); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if out.Data.Customer == nil || out.Data.Customer.Name != "Ada Lovelace" {
		t.Errorf("customer = %+v", out.Data.Customer)
	}
}

// accountsResponse is the body of the account mutation endpoints.
type accountsResponse struct {
	Account domain.Account `json:"account"`
	Page    struct {
		Status string             `json:"status"`
		Data   views.AccountsData `json:"data"`
	} `json:"page"`
}

func (r accountsResponse) listed(id int64) (domain.Account, bool) {
	for _, a := range r.Page.Data.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Account{}, false
}

func TestAccountsHandler(t *testing.T) {
	p := newPortal(t)

	var created accountsResponse
	status := p.do(t, http.MethodPost, "/api/accounts", map[string]any{"accountType": "BUSINESS", "initialBalance": "10.00"}, &created)
	if status != http.StatusCreated || created.Account.ID == 0 || created.Account.AccountType != domain.AccountBusiness {
		t.Fatalf("create: status = %d, body = %+v", status, created)
	}
	if created.Page.Status != "ready" || len(created.Page.Data.Accounts) != 3 {
		t.Fatalf("create: page = %+v, want the re-fetched list of 3", created.Page)
	}
	if a, ok := created.listed(created.Account.ID); !ok || !a.Balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("new account missing from refreshed list: %+v", created.Page.Data.Accounts)
	}
	if !created.Page.Data.TotalBalance.Equal(decimal.NewFromInt(160)) {
		t.Errorf("total balance = %s, want 160", created.Page.Data.TotalBalance)
	}
	lists := 0
	for _, r := range p.bank.Requests() {
		if r.Method == http.MethodGet && r.URL.Path == "/api/accounts/customer/c-1" {
			lists++
		}
	}
	if lists != 2 {
		t.Errorf("account list fetched %d times, want a load and a refresh", lists)
	}

	var bad errorBody
	status = p.do(t, http.MethodPost, "/api/accounts", map[string]any{"accountType": "GOLD", "initialBalance": "10"}, &bad)
	if status != http.StatusBadRequest || bad.Error != "Please select a valid account type" {
		t.Errorf("invalid type: status = %d, body = %+v", status, bad)
	}
	status = p.do(t, http.MethodPost, "/api/accounts", map[string]any{"accountType": "SAVINGS", "initialBalance": "10.005"}, &bad)
	if status != http.StatusBadRequest || bad.Error != "Please enter a valid amount" {
		t.Errorf("sub-cent balance: status = %d, body = %+v", status, bad)
	}

	var updated accountsResponse
	path := "/api/accounts/" + itoa(created.Account.ID) + "/type"
	if status := p.do(t, http.MethodPut, path, map[string]string{"accountType": "WALLET"}, &updated); status != http.StatusOK {
		t.Fatalf("update: status = %d", status)
	}
	if updated.Account.AccountType != domain.AccountWallet {
		t.Errorf("updated type = %s", updated.Account.AccountType)
	}
	if a, ok := updated.listed(created.Account.ID); !ok || a.AccountType != domain.AccountWallet {
		t.Errorf("refreshed list does not show the new type: %+v", updated.Page.Data.Accounts)
	}

	var deleted accountsResponse
	if status := p.do(t, http.MethodDelete, "/api/accounts/"+itoa(created.Account.ID), nil, &deleted); status != http.StatusOK {
		t.Errorf("delete: status = %d", status)
	}
	if _, ok := p.bank.Account(created.Account.ID); ok {
		t.Error("account still exists after delete")
	}
	if _, ok := deleted.listed(created.Account.ID); ok || len(deleted.Page.Data.Accounts) != 2 {
		t.Errorf("refreshed list after delete = %+v", deleted.Page.Data.Accounts)
	}

	var missing errorBody
	if status := p.do(t, http.MethodDelete, "/api/accounts/9999", nil, &missing); status != http.StatusNotFound {
		t.Errorf("delete missing: status = %d", status)
	}
	if status := p.do(t, http.MethodDelete, "/api/accounts/abc", nil, &missing); status != http.StatusBadRequest {
		t.Errorf("delete bad id: status = %d", status)
	}
}

func TestTransactionsHandler(t *testing.T) {
	p := newPortal(t)

	tests := []struct {
		name       string
		op         string
		body       map[string]any
		wantStatus int
		wantError  string
	}{
		{"deposit", "deposit", map[string]any{"amount": "25", "to": itoa(p.checking.ID)}, http.StatusCreated, ""},
		{"withdraw", "withdraw", map[string]any{"amount": "5", "fromAccountId": p.savings.ID}, http.StatusCreated, ""},
		{"transfer by number", "transfer", map[string]any{"amount": "10", "fromAccountId": p.checking.ID, "to": p.savings.AccountNumber}, http.StatusCreated, ""},
		{"insufficient funds", "withdraw", map[string]any{"amount": "1000", "fromAccountId": p.savings.ID}, http.StatusBadRequest, "Insufficient balance"},
		{"unknown recipient", "transfer", map[string]any{"amount": "1", "fromAccountId": p.checking.ID, "to": "999999999999"}, http.StatusBadRequest, "Recipient account not found"},
		{"zero amount", "deposit", map[string]any{"amount": "0", "to": itoa(p.checking.ID)}, http.StatusBadRequest, "Please enter a valid amount"},
		{"fractional cents", "withdraw", map[string]any{"amount": "10.555", "fromAccountId": p.checking.ID}, http.StatusBadRequest, "Please enter a valid amount"},
		{"unknown operation", "refund", map[string]any{"amount": "1"}, http.StatusNotFound, "Unknown operation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				Receipt *domain.TransactionReceipt `json:"receipt"`
				Page    struct {
					Status string                 `json:"status"`
					Data   views.TransactionsData `json:"data"`
				} `json:"page"`
				Error string `json:"error"`
			}
			status := p.do(t, http.MethodPost, "/api/transactions/"+tt.op, tt.body, &out)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%+v)", status, tt.wantStatus, out)
			}
			if out.Error != tt.wantError {
				t.Errorf("error = %q, want %q", out.Error, tt.wantError)
			}
			if tt.wantStatus != http.StatusCreated {
				return
			}
			if out.Receipt == nil || out.Receipt.ReferenceID == "" {
				t.Fatal("missing reference id")
			}
			found := false
			for _, tx := range out.Page.Data.Transactions {
				if tx.ReferenceID == out.Receipt.ReferenceID {
					found = true
				}
			}
			if out.Page.Status != "ready" || !found {
				t.Errorf("refreshed page does not contain %s: %+v", out.Receipt.ReferenceID, out.Page)
			}
		})
	}
}

func TestExportsAndJobs(t *testing.T) {
	p := newPortal(t)

	tests := []struct {
		name       string
		sink       string
		wantStatus int
	}{
		{"unknown sink", "ftp", http.StatusBadRequest},
		{"not configured", "gcs", http.StatusBadRequest},
		{"csv", "csv", http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]string
			if status := p.do(t, http.MethodPost, "/api/exports", map[string]string{"sink": tt.sink}, &out); status != tt.wantStatus {
				t.Errorf("status = %d, want %d (%v)", status, tt.wantStatus, out)
			}
		})
	}

	if len(p.published) != 1 {
		t.Fatalf("published %d jobs", len(p.published))
	}
	job := p.published[0]
	if job.CustomerID != "c-1" || job.Token != p.token {
		t.Errorf("job = %+v", job)
	}

	p.jobStore.SaveJob(context.Background(), &jobs.ExportJob{JobID: "other", CustomerID: "c-2", CreatedAt: time.Now()})

	var list struct {
		Jobs  []jobs.ExportJob `json:"jobs"`
		Count int              `json:"count"`
	}
	if status := p.do(t, http.MethodGet, "/api/jobs", nil, &list); status != http.StatusOK {
		t.Fatalf("list: status = %d", status)
	}
	if list.Count != 1 || list.Jobs[0].JobID != job.JobID {
		t.Errorf("jobs = %+v", list)
	}

	var got jobs.ExportJob
	if status := p.do(t, http.MethodGet, "/api/jobs/"+job.JobID, nil, &got); status != http.StatusOK || got.JobID != job.JobID {
		t.Errorf("get: status = %d, job = %+v", status, got)
	}
	var notFound errorBody
	if status := p.do(t, http.MethodGet, "/api/jobs/other", nil, &notFound); status != http.StatusNotFound {
		t.Errorf("another customer's job: status = %d", status)
	}
}

func TestHealth(t *testing.T) {
	p := newPortal(t)
	p.token = ""
	var out map[string]string
	if status := p.do(t, http.MethodGet, "/health", nil, &out); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if out["status"] != "healthy" || out["bank"] != "up" {
		t.Errorf("health = %v", out)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &gateway.APIError{Status: 404}, http.StatusNotFound},
		{"client error", &gateway.APIError{Status: 409}, http.StatusBadRequest},
		{"server error", &gateway.APIError{Status: 500}, http.StatusBadGateway},
		{"network", gateway.ErrNetwork, http.StatusBadGateway},
		{"other", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

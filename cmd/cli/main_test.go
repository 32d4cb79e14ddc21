package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/bankx-client/internal/banktest"
	"github.com/dvloznov/bankx-client/internal/config"
	"github.com/dvloznov/bankx-client/internal/domain"
	"github.com/dvloznov/bankx-client/internal/gateway"
	"github.com/dvloznov/bankx-client/internal/views"
)

type cliEnv struct {
	bank *banktest.Server
	cfg  *config.Config
	acc  domain.Account
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	bank := banktest.New()
	t.Cleanup(bank.Close)
	bank.AddCustomer(domain.Customer{ID: "c-1", Name: "Ada Lovelace", Email: "ada@example.com"}, "secret")
	acc := bank.AddAccount(domain.Account{CustomerID: "c-1", AccountType: domain.AccountSavings, Balance: decimal.NewFromInt(100)})

	cfg := &config.Config{
		APIURL:      bank.APIURL(),
		Timeout:     5 * time.Second,
		SessionFile: filepath.Join(t.TempDir(), "session.json"),
		LogLevel:    "error",
	}
	return &cliEnv{bank: bank, cfg: cfg, acc: acc}
}

// exec runs one command in a fresh app, as a separate CLI invocation would.
func (e *cliEnv) exec(t *testing.T, stdin string, args ...string) (string, *app, error) {
	t.Helper()
	var out bytes.Buffer
	ctx := context.Background()
	a, err := newApp(ctx, e.cfg, zerolog.Nop(), &out, strings.NewReader(stdin))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.close()
	err = a.run(ctx, args[0], args[1:])
	return out.String(), a, err
}

func (e *cliEnv) login(t *testing.T) {
	t.Helper()
	if _, _, err := e.exec(t, "", "login", "-email", "ada@example.com", "-password", "secret"); err != nil {
		t.Fatalf("login error = %v", err)
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		wantOut string
		wantErr string
	}{
		{"flags", "", []string{"login", "-email", "ada@example.com", "-password", "secret"}, "Signed in as Ada Lovelace <ada@example.com>", ""},
		{"prompted", "ada@example.com\nsecret\n", []string{"login"}, "Signed in as Ada Lovelace", ""},
		{"wrong password", "", []string{"login", "-email", "ada@example.com", "-password", "nope"}, "", "Invalid credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newCLIEnv(t)
			out, _, err := env.exec(t, tt.stdin, tt.args...)
			if tt.wantErr != "" {
				if err == nil || message(err) != tt.wantErr {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("err = %v", err)
			}
			if !strings.Contains(out, tt.wantOut) {
				t.Errorf("output = %q, want %q", out, tt.wantOut)
			}
			if _, err := os.Stat(env.cfg.SessionFile); err != nil {
				t.Errorf("session file not written: %v", err)
			}
		})
	}
}

func TestSessionSurvivesRestart(t *testing.T) {
	env := newCLIEnv(t)
	env.login(t)

	out, _, err := env.exec(t, "", "whoami")
	if err != nil {
		t.Fatalf("whoami error = %v", err)
	}
	if !strings.Contains(out, "customer id: c-1") {
		t.Errorf("whoami output = %q", out)
	}

	if _, _, err := env.exec(t, "", "logout"); err != nil {
		t.Fatalf("logout error = %v", err)
	}
	_, a, err := env.exec(t, "", "whoami")
	if !a.loginRequired(err) {
		t.Errorf("expected login required after logout, got %v", err)
	}
}

func TestExpiredSession(t *testing.T) {
	env := newCLIEnv(t)
	env.login(t)
	env.bank.RevokeTokens()

	_, a, err := env.exec(t, "", "dashboard")
	if !errors.Is(err, gateway.ErrUnauthenticated) {
		t.Fatalf("err = %v, want unauthenticated", err)
	}
	if !a.loginRequired(err) {
		t.Error("expected a login redirect")
	}
	if _, err := os.Stat(env.cfg.SessionFile); !os.IsNotExist(err) {
		t.Errorf("session file should be removed, stat err = %v", err)
	}
}

func TestViewsCommands(t *testing.T) {
	env := newCLIEnv(t)
	env.login(t)

	steps := []struct {
		args    []string
		wantOut []string
	}{
		{[]string{"dashboard"}, []string{"Total balance: $100.00"}},
		{[]string{"accounts"}, []string{env.acc.AccountNumber}},
		{[]string{"accounts", "create", "-type", "wallet", "-balance", "5"}, []string{"Opened WALLET account", "Total balance: $105.00"}},
		{[]string{"accounts", "show", "-id", "1"}, []string{"Balance: $100.00"}},
		{[]string{"transactions", "deposit", "-to", "1", "-amount", "25"}, []string{"SUCCESS", "Total balance: $130.00"}},
		{[]string{"transactions", "list", "-type", "credit"}, []string{"+$25.00"}},
		{[]string{"accounts", "set-type", "-id", "2", "-type", "business"}, []string{"Account 2 is now BUSINESS", "BUSINESS"}},
		{[]string{"accounts", "delete", "-id", "2"}, []string{"Account 2 deleted", "Total balance: $125.00"}},
		{[]string{"profile"}, []string{"Ada Lovelace"}},
		{[]string{"export", "-stdout"}, []string{"reference_id,type,status"}},
		{[]string{"ping"}, []string{"pong"}},
	}
	for _, s := range steps {
		t.Run(strings.Join(s.args, " "), func(t *testing.T) {
			out, _, err := env.exec(t, "", s.args...)
			if err != nil {
				t.Fatalf("err = %v (%s)", err, message(err))
			}
			for _, want := range s.wantOut {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}

	for _, r := range env.bank.Requests() {
		if r.URL.Path == "/api/transactions/deposit" && r.URL.Query().Get("amount") != "25" {
			t.Errorf("deposit amount sent as %q, want 25", r.URL.Query().Get("amount"))
		}
	}
}

func TestCommandErrors(t *testing.T) {
	env := newCLIEnv(t)
	env.login(t)

	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"missing id", []string{"accounts", "delete"}, "Please pass an account id with -id"},
		{"bad amount", []string{"transactions", "withdraw", "-from", "1", "-amount", "ten"}, "Please enter a valid amount"},
		{"fractional cents", []string{"transactions", "withdraw", "-from", "1", "-amount", "10.555"}, "Please enter a valid amount"},
		{"insufficient", []string{"transactions", "withdraw", "-from", "1", "-amount", "1000"}, "Insufficient balance"},
		{"bad sink", []string{"export", "-sink", "ftp"}, `unknown export sink "ftp" (want csv, gcs or bigquery)`},
		{"gcs not configured", []string{"export", "-list"}, "GCS export is not configured, pass -bucket or set EXPORT_BUCKET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.exec(t, "", tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := message(err); got != tt.wantMsg {
				t.Errorf("message = %q, want %q", got, tt.wantMsg)
			}
		})
	}

	if _, _, err := env.exec(t, "", "nonsense"); !errors.Is(err, errUsage) {
		t.Errorf("unknown command err = %v", err)
	}
}

func TestSubcommand(t *testing.T) {
	tests := []struct {
		args     []string
		wantSub  string
		wantRest int
	}{
		{nil, "list", 0},
		{[]string{"-type", "credit"}, "list", 2},
		{[]string{"show", "-id", "1"}, "show", 2},
	}
	for _, tt := range tests {
		sub, rest := subcommand(tt.args)
		if sub != tt.wantSub || len(rest) != tt.wantRest {
			t.Errorf("subcommand(%v) = %q, %v", tt.args, sub, rest)
		}
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&views.ValidationError{Message: "Please enter a valid amount"}, "Please enter a valid amount"},
		{&views.ActionError{Message: "Insufficient balance", Err: errors.New("api error 400")}, "Insufficient balance"},
		{views.ErrLoginRequired, "Please log in to continue"},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		if got := message(tt.err); got != tt.want {
			t.Errorf("message(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/bankx-client/internal/domain"
	"github.com/dvloznov/bankx-client/internal/views"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"5", "$5.00"},
		{"999.5", "$999.50"},
		{"1000", "$1,000.00"},
		{"1234567.891", "$1,234,567.89"},
		{"-42.1", "-$42.10"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Money(decimal.RequireFromString(tt.in)); got != tt.want {
				t.Errorf("Money(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSignedMoney(t *testing.T) {
	amount := decimal.NewFromInt(10)
	tests := []struct {
		typ  domain.TransactionType
		want string
	}{
		{domain.TransactionCredit, "+$10.00"},
		{domain.TransactionDebit, "-$10.00"},
		{domain.TransactionTransfer, "-$10.00"},
	}
	for _, tt := range tests {
		if got := SignedMoney(domain.Transaction{Type: tt.typ, Amount: amount}); got != tt.want {
			t.Errorf("SignedMoney(%s) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestDate(t *testing.T) {
	if got := Date(domain.Timestamp{}); got != "N/A" {
		t.Errorf("zero date = %q", got)
	}
	ts := domain.Timestamp{Time: time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC)}
	if got := Date(ts); got != "Mar 7, 2024" {
		t.Errorf("Date() = %q", got)
	}
}

func TestDashboard(t *testing.T) {
	acc := domain.Account{ID: 1, AccountNumber: "100000000001", AccountType: domain.AccountSavings, Balance: decimal.NewFromInt(1500)}
	d := views.DashboardData{
		Greeting:     "Good morning, Ada",
		Accounts:     []domain.Account{acc},
		TotalBalance: decimal.NewFromInt(1500),
		Recent: []domain.Transaction{{
			ReferenceID: "TXN-1",
			Type:        domain.TransactionCredit,
			Amount:      decimal.NewFromInt(20),
			Status:      domain.StatusSuccess,
			CreatedAt:   domain.Timestamp{Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		}},
	}

	var buf bytes.Buffer
	if err := Dashboard(&buf, d); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Good morning, Ada", "Total balance: $1,500.00", "  ID", "100000000001", "TXN-1", "Money Received", "+$20.00", "Jan 2, 2024"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEmptyTables(t *testing.T) {
	var buf bytes.Buffer
	Accounts(&buf, views.AccountsData{TotalBalance: decimal.Zero})
	Transactions(&buf, nil, views.CountByType(nil))
	out := buf.String()
	for _, want := range []string{"No accounts yet.", "No transactions yet.", "0 transactions (credit 0, debit 0, transfer 0)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTransaction(t *testing.T) {
	from := &domain.Account{ID: 1, AccountNumber: "100000000001"}
	var buf bytes.Buffer
	Transaction(&buf, domain.Transaction{
		ReferenceID: "TXN-9",
		Type:        domain.TransactionTransfer,
		Amount:      decimal.NewFromInt(3),
		Status:      domain.StatusPending,
		FromAccount: from,
		ToAccount:   &domain.Account{ID: 7},
	})
	out := buf.String()
	for _, want := range []string{"Transfer TXN-9", "  Amount:  -$3.00", "****0001", "#7"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestProfile(t *testing.T) {
	var buf bytes.Buffer
	Profile(&buf, views.ProfileData{
		Customer:     &domain.Customer{ID: "c-1", Name: "Ada Lovelace", Email: "ada@example.com"},
		Accounts:     []domain.Account{{ID: 1}},
		TotalBalance: decimal.NewFromInt(10),
	})
	out := buf.String()
	for _, want := range []string{"Ada Lovelace", "Phone:        N/A", "Member since: N/A", "1 accounts, total balance $10.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMessageWraps(t *testing.T) {
	var buf bytes.Buffer
	Message(&buf, strings.Repeat("word ", 40))
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if len(line) > wrapWidth {
			t.Errorf("line longer than %d: %q", wrapWidth, line)
		}
	}
}

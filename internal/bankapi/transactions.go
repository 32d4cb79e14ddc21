package bankapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/bankx-client/internal/domain"
	"github.com/dvloznov/bankx-client/internal/gateway"
)

// Transactions covers /transactions.
type Transactions struct {
	d Doer
}

func (t *Transactions) List(ctx context.Context) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := call(ctx, t.d, gateway.Request{Method: http.MethodGet, Path: "/transactions"}, &out, "Failed to load transactions")
	return out, err
}

// ByAccount returns the transactions where accountID is either side.
func (t *Transactions) ByAccount(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := call(ctx, t.d, gateway.Request{
		Method: http.MethodGet,
		Path:   "/transactions/account/" + strconv.FormatInt(accountID, 10),
	}, &out, "Failed to load transactions")
	return out, err
}

func (t *Transactions) ByReference(ctx context.Context, ref string) (*domain.Transaction, error) {
	var out domain.Transaction
	err := call(ctx, t.d, gateway.Request{
		Method: http.MethodGet,
		Path:   "/transactions/reference/" + url.PathEscape(ref),
	}, &out, "Transaction not found")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *Transactions) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (*domain.TransactionReceipt, error) {
	return t.post(ctx, "deposit", query(
		"accountId", strconv.FormatInt(accountID, 10),
		"amount", amount.String(),
	))
}

func (t *Transactions) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (*domain.TransactionReceipt, error) {
	return t.post(ctx, "withdraw", query(
		"accountId", strconv.FormatInt(accountID, 10),
		"amount", amount.String(),
	))
}

// Transfer moves amount between two accounts. The server also binds the
// transaction type from the query string.
func (t *Transactions) Transfer(ctx context.Context, from, to int64, amount decimal.Decimal) (*domain.TransactionReceipt, error) {
	return t.post(ctx, "transfer", query(
		"fromAccountId", strconv.FormatInt(from, 10),
		"toAccountId", strconv.FormatInt(to, 10),
		"amount", amount.String(),
		"type", string(domain.TransactionTransfer),
	))
}

func (t *Transactions) post(ctx context.Context, kind string, q url.Values) (*domain.TransactionReceipt, error) {
	var out domain.TransactionReceipt
	err := call(ctx, t.d, gateway.Request{
		Method: http.MethodPost,
		Path:   "/transactions/" + kind,
		Query:  q,
	}, &out, kind+" failed")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

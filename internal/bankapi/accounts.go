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

// Accounts covers /accounts.
type Accounts struct {
	d Doer
}

func accountPath(id int64) string {
	return "/accounts/" + strconv.FormatInt(id, 10)
}

// ListByCustomer returns every account owned by customerID.
func (a *Accounts) ListByCustomer(ctx context.Context, customerID string) ([]domain.Account, error) {
	var out []domain.Account
	err := call(ctx, a.d, gateway.Request{
		Method: http.MethodGet,
		Path:   "/accounts/customer/" + url.PathEscape(customerID),
	}, &out, "Failed to load accounts")
	return out, err
}

func (a *Accounts) Get(ctx context.Context, id int64) (*domain.Account, error) {
	var out domain.Account
	if err := call(ctx, a.d, gateway.Request{Method: http.MethodGet, Path: accountPath(id)}, &out, "Failed to load account"); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByNumber looks an account up by its 12 digit account number.
func (a *Accounts) GetByNumber(ctx context.Context, number string) (*domain.Account, error) {
	var out domain.Account
	err := call(ctx, a.d, gateway.Request{
		Method: http.MethodGet,
		Path:   "/accounts/number/" + url.PathEscape(number),
	}, &out, "Account not found")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Accounts) Create(ctx context.Context, customerID string, typ domain.AccountType, initialBalance decimal.Decimal) (*domain.Account, error) {
	var out domain.Account
	err := call(ctx, a.d, gateway.Request{
		Method: http.MethodPost,
		Path:   "/accounts/customer/" + url.PathEscape(customerID),
		Query:  query("accountType", string(typ), "initialBalance", initialBalance.String()),
	}, &out, "Failed to create account")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Accounts) UpdateType(ctx context.Context, id int64, typ domain.AccountType) (*domain.Account, error) {
	var out domain.Account
	err := call(ctx, a.d, gateway.Request{
		Method: http.MethodPut,
		Path:   accountPath(id) + "/type",
		Query:  query("accountType", string(typ)),
	}, &out, "Failed to update account type")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Accounts) Delete(ctx context.Context, id int64) error {
	return call(ctx, a.d, gateway.Request{Method: http.MethodDelete, Path: accountPath(id)}, nil, "Failed to delete account")
}

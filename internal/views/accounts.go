package views

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/bankx-client/internal/domain"
)

type AccountsData struct {
	Accounts     []domain.Account `json:"accounts"`
	TotalBalance decimal.Decimal  `json:"totalBalance"`
}

// Accounts lists the customer's accounts and manages them. Every action
// re-fetches the list when it succeeds and leaves it untouched when it fails.
type Accounts struct {
	*Page[AccountsData]
	deps Deps
}

func NewAccounts(deps Deps) *Accounts {
	a := &Accounts{deps: deps}
	a.Page = NewPage(a.load, "Failed to load accounts", deps.OnError)
	return a
}

func (a *Accounts) load(ctx context.Context) (AccountsData, error) {
	sess, err := a.deps.requireSession()
	if err != nil {
		return AccountsData{}, err
	}
	accounts, err := a.deps.accountsFor(ctx, sess)
	if err != nil {
		return AccountsData{}, err
	}
	return AccountsData{Accounts: accounts, TotalBalance: domain.TotalBalance(accounts)}, nil
}

// Create opens a new account for the signed-in customer.
func (a *Accounts) Create(ctx context.Context, typ domain.AccountType, initialBalance decimal.Decimal) (*domain.Account, error) {
	sess, err := a.deps.requireSession()
	if err != nil {
		return nil, a.fail(err, "")
	}
	if _, err := domain.ParseAccountType(string(typ)); err != nil {
		return nil, invalid("Please select a valid account type")
	}
	if initialBalance.IsNegative() {
		return nil, invalid("Initial balance cannot be negative")
	}
	if !wholeCents(initialBalance) {
		return nil, invalid("Please enter a valid amount")
	}

	acc, err := a.deps.Accounts.Create(ctx, sess.UserID, typ, initialBalance)
	if err != nil {
		return nil, a.fail(err, "Failed to create account")
	}
	a.deps.Logger.Info().Int64("account_id", acc.ID).Str("account_type", string(acc.AccountType)).Msg("Account created")
	a.refresh(ctx)
	return acc, nil
}

func (a *Accounts) UpdateType(ctx context.Context, id int64, typ domain.AccountType) (*domain.Account, error) {
	if _, err := a.deps.requireSession(); err != nil {
		return nil, a.fail(err, "")
	}
	if _, err := domain.ParseAccountType(string(typ)); err != nil {
		return nil, invalid("Please select a valid account type")
	}
	acc, err := a.deps.Accounts.UpdateType(ctx, id, typ)
	if err != nil {
		return nil, a.fail(err, "Failed to update account type")
	}
	a.refresh(ctx)
	return acc, nil
}

func (a *Accounts) Delete(ctx context.Context, id int64) error {
	if _, err := a.deps.requireSession(); err != nil {
		return a.fail(err, "")
	}
	if err := a.deps.Accounts.Delete(ctx, id); err != nil {
		return a.fail(err, "Failed to delete account")
	}
	a.deps.Logger.Info().Int64("account_id", id).Msg("Account deleted")
	a.refresh(ctx)
	return nil
}

func (a *Accounts) fail(err error, fallback string) error {
	if a.deps.OnError != nil {
		a.deps.OnError(err)
	}
	return actionError(err, fallback)
}

// refresh reloads after a successful action. A refresh failure is recorded on
// the page and does not undo the action.
func (a *Accounts) refresh(ctx context.Context) {
	if err := a.Refresh(ctx); err != nil && !errors.Is(err, ErrUnmounted) {
		a.deps.Logger.Warn().Err(err).Msg("Failed to refresh accounts after update")
	}
}

// Package views holds the page view models: each one loads its data through
// the API facades, tracks a tri-state load status and exposes the page's
// actions. Rendering is left to the caller.
package views

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/bankx-client/internal/domain"
)

// SessionReader exposes the current identity. *session.Store satisfies it.
type SessionReader interface {
	Current() (domain.Session, bool)
}

// AccountService is the subset of bankapi.Accounts the views use.
type AccountService interface {
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Account, error)
	GetByNumber(ctx context.Context, number string) (*domain.Account, error)
	Create(ctx context.Context, customerID string, typ domain.AccountType, initialBalance decimal.Decimal) (*domain.Account, error)
	UpdateType(ctx context.Context, id int64, typ domain.AccountType) (*domain.Account, error)
	Delete(ctx context.Context, id int64) error
}

// TransactionLister fetches one account's transactions.
type TransactionLister interface {
	ByAccount(ctx context.Context, accountID int64) ([]domain.Transaction, error)
}

// TransactionService is the subset of bankapi.Transactions the views use.
type TransactionService interface {
	TransactionLister
	Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (*domain.TransactionReceipt, error)
	Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (*domain.TransactionReceipt, error)
	Transfer(ctx context.Context, from, to int64, amount decimal.Decimal) (*domain.TransactionReceipt, error)
}

// CustomerGetter loads a customer record.
type CustomerGetter interface {
	Get(ctx context.Context, id string) (*domain.Customer, error)
}

// Deps are shared by every view.
type Deps struct {
	Session      SessionReader
	Accounts     AccountService
	Transactions TransactionService
	Customers    CustomerGetter
	Logger       zerolog.Logger
	// OnError sees every load error; the Coordinator's Handle fits here.
	OnError func(error)
	Now     func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// requireSession returns the active session or ErrLoginRequired.
func (d Deps) requireSession() (domain.Session, error) {
	sess, ok := d.Session.Current()
	if !ok || sess.Token == "" {
		return domain.Session{}, ErrLoginRequired
	}
	return sess, nil
}

// accountsFor loads the signed-in customer's accounts.
func (d Deps) accountsFor(ctx context.Context, sess domain.Session) ([]domain.Account, error) {
	accounts, err := d.Accounts.ListByCustomer(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	return accounts, nil
}

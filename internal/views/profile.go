package views

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/bankx-client/internal/domain"
)

type ProfileData struct {
	Customer     *domain.Customer `json:"customer"`
	Accounts     []domain.Account `json:"accounts"`
	TotalBalance decimal.Decimal  `json:"totalBalance"`
}

// Profile shows the customer record next to their accounts.
type Profile struct {
	*Page[ProfileData]
	deps Deps
}

func NewProfile(deps Deps) *Profile {
	p := &Profile{deps: deps}
	p.Page = NewPage(p.load, "Failed to load profile", deps.OnError)
	return p
}

// load fetches the customer and the accounts concurrently and fails if
// either does.
func (p *Profile) load(ctx context.Context) (ProfileData, error) {
	sess, err := p.deps.requireSession()
	if err != nil {
		return ProfileData{}, err
	}

	var (
		customer *domain.Customer
		accounts []domain.Account
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := p.deps.Customers.Get(gctx, sess.UserID)
		customer = c
		return err
	})
	g.Go(func() error {
		a, err := p.deps.accountsFor(gctx, sess)
		accounts = a
		return err
	})
	if err := g.Wait(); err != nil {
		return ProfileData{}, err
	}

	return ProfileData{
		Customer:     customer,
		Accounts:     accounts,
		TotalBalance: domain.TotalBalance(accounts),
	}, nil
}

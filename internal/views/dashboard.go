package views

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/bankx-client/internal/domain"
)

// RecentLimit is how many transactions the dashboard shows.
const RecentLimit = 5

type DashboardData struct {
	Greeting     string               `json:"greeting"`
	User         domain.Session       `json:"user"`
	Accounts     []domain.Account     `json:"accounts"`
	TotalBalance decimal.Decimal      `json:"totalBalance"`
	Recent       []domain.Transaction `json:"recentTransactions"`
}

// Dashboard is the landing page: accounts, total balance and the most recent
// transactions across all accounts.
type Dashboard struct {
	*Page[DashboardData]
	deps Deps
}

func NewDashboard(deps Deps) *Dashboard {
	d := &Dashboard{deps: deps}
	d.Page = NewPage(d.load, "Failed to load data", deps.OnError)
	return d
}

func (d *Dashboard) load(ctx context.Context) (DashboardData, error) {
	sess, err := d.deps.requireSession()
	if err != nil {
		return DashboardData{}, err
	}
	sess.Token = ""

	accounts, err := d.deps.accountsFor(ctx, sess)
	if err != nil {
		return DashboardData{}, err
	}
	txs, err := AggregateTransactions(ctx, d.deps.Transactions, accounts, d.deps.Logger)
	if err != nil {
		return DashboardData{}, err
	}
	if len(txs) > RecentLimit {
		txs = txs[:RecentLimit]
	}

	name := sess.DisplayName
	if sess.User != nil {
		name = sess.User.FirstName()
	}
	return DashboardData{
		Greeting:     Greeting(d.deps.now(), name),
		User:         sess,
		Accounts:     accounts,
		TotalBalance: domain.TotalBalance(accounts),
		Recent:       txs,
	}, nil
}

// Greeting returns a time-of-day salutation.
func Greeting(now time.Time, name string) string {
	var g string
	switch h := now.Hour(); {
	case h < 12:
		g = "Good morning"
	case h < 18:
		g = "Good afternoon"
	default:
		g = "Good evening"
	}
	if name == "" {
		return g
	}
	return g + ", " + name
}

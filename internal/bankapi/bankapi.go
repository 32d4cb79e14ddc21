// Package bankapi exposes typed facades over the bank REST API. Each method is
// a fixed verb, path and parameter set; failures carry the server's message
// or the facade's generic fallback.
package bankapi

import (
	"context"
	"net/url"

	"github.com/dvloznov/bankx-client/internal/gateway"
)

// Doer sends one API request. *gateway.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, req gateway.Request, out any) error
}

// API groups the facades that share one gateway.
type API struct {
	Auth         *Auth
	Customers    *Customers
	Accounts     *Accounts
	Transactions *Transactions
	System       *System
}

// New builds every facade on top of d.
func New(d Doer) *API {
	return &API{
		Auth:         &Auth{d: d},
		Customers:    &Customers{d: d},
		Accounts:     &Accounts{d: d},
		Transactions: &Transactions{d: d},
		System:       &System{d: d},
	}
}

func call(ctx context.Context, d Doer, req gateway.Request, out any, fallback string) error {
	return gateway.Fallback(d.Do(ctx, req, out), fallback)
}

func query(kv ...string) url.Values {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	return q
}

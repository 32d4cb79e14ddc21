package bankapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dvloznov/bankx-client/internal/domain"
	"github.com/dvloznov/bankx-client/internal/gateway"
)

// Customers covers /customers.
type Customers struct {
	d Doer
}

func (c *Customers) Register(ctx context.Context, req domain.RegisterRequest) (*domain.UserAuth, error) {
	var out domain.UserAuth
	err := call(ctx, c.d, gateway.Request{
		Method: http.MethodPost,
		Path:   "/customers/register",
		Body:   req,
	}, &out, "Registration failed")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Customers) Get(ctx context.Context, id string) (*domain.Customer, error) {
	var out domain.Customer
	err := call(ctx, c.d, gateway.Request{
		Method: http.MethodGet,
		Path:   "/customers/" + url.PathEscape(id),
	}, &out, "Failed to load customer")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Customers) Delete(ctx context.Context, id string) error {
	return call(ctx, c.d, gateway.Request{
		Method: http.MethodDelete,
		Path:   "/customers/" + url.PathEscape(id),
	}, nil, "Failed to delete customer")
}

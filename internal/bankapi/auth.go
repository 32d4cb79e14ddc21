package bankapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/dvloznov/bankx-client/internal/domain"
	"github.com/dvloznov/bankx-client/internal/gateway"
)

// Auth covers /auth.
type Auth struct {
	d Doer
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token. It does not touch the session;
// callers pass the result to session.Store.Login.
func (a *Auth) Login(ctx context.Context, email, password string) (*domain.LoginResponse, error) {
	var resp domain.LoginResponse
	err := call(ctx, a.d, gateway.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   loginRequest{Email: email, Password: password},
	}, &resp, "Login failed")
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &gateway.APIError{Status: http.StatusOK, Message: "Login failed"}
	}
	return &resp, nil
}

// Logout tells the server the token is no longer used. The server keeps no
// token state, so a 401 here is not an error.
func (a *Auth) Logout(ctx context.Context) error {
	var msg string
	err := a.d.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/auth/logout"}, &msg)
	if errors.Is(err, gateway.ErrUnauthenticated) {
		return nil
	}
	return gateway.Fallback(err, "Logout failed")
}

// Me returns the customer behind the current token.
func (a *Auth) Me(ctx context.Context) (*domain.Customer, error) {
	var c domain.Customer
	if err := call(ctx, a.d, gateway.Request{Method: http.MethodGet, Path: "/auth/me"}, &c, "Failed to load user"); err != nil {
		return nil, err
	}
	return &c, nil
}

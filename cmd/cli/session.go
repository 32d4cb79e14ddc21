package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dvloznov/bankx-client/internal/domain"
	"github.com/dvloznov/bankx-client/internal/views"
)

func (a *app) runLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Password (prompted when omitted)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *email == "" {
		v, err := a.prompt("Email: ")
		if err != nil {
			return err
		}
		*email = v
	}
	if *password == "" {
		v, err := a.prompt("Password: ")
		if err != nil {
			return err
		}
		*password = v
	}
	if strings.TrimSpace(*email) == "" || *password == "" {
		return &views.ValidationError{Message: "Email and password are required"}
	}

	resp, err := a.api.Auth.Login(ctx, strings.TrimSpace(*email), *password)
	if err != nil {
		return err
	}
	a.store.Login(resp.User, resp.Token)

	sess, _ := a.store.Current()
	fmt.Fprintf(a.out, "Signed in as %s <%s>\n", sess.DisplayName, sess.Email)
	return nil
}

func (a *app) runLogout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if !a.store.Authenticated() {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	if err := a.api.Auth.Logout(ctx); err != nil {
		a.log.Warn().Err(err).Msg("Server logout failed, clearing local session anyway")
	}
	a.store.Logout()
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

// runWhoami checks the stored token against the server before printing it.
func (a *app) runWhoami(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if !a.store.Authenticated() {
		return views.ErrLoginRequired
	}
	if err := a.store.Verify(ctx, a.api.Auth); err != nil {
		a.coord.Handle(err)
		return err
	}
	sess, ok := a.store.Current()
	if !ok {
		return views.ErrLoginRequired
	}
	fmt.Fprintf(a.out, "%s <%s>\ncustomer id: %s\n", sess.DisplayName, sess.Email, sess.UserID)
	return nil
}

func (a *app) runRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "Full name")
	email := fs.String("email", "", "Email")
	phone := fs.String("phone", "", "Phone number, digits only")
	address := fs.String("address", "", "Postal address")
	username := fs.String("username", "", "Username")
	password := fs.String("password", "", "Password (prompted when omitted)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *password == "" {
		v, err := a.prompt("Password: ")
		if err != nil {
			return err
		}
		*password = v
	}
	if *name == "" || *email == "" || *username == "" || *password == "" {
		return &views.ValidationError{Message: "Name, email, username and password are required"}
	}

	req := domain.RegisterRequest{
		Name:     *name,
		Email:    *email,
		Address:  *address,
		Username: *username,
		Password: *password,
	}
	if *phone != "" {
		n, err := strconv.ParseInt(*phone, 10, 64)
		if err != nil {
			return &views.ValidationError{Message: "Phone number must contain digits only"}
		}
		req.Phone = &n
	}

	auth, err := a.api.Customers.Register(ctx, req)
	if err != nil {
		return err
	}
	id := ""
	if auth.Customer != nil {
		id = auth.Customer.ID
	}
	fmt.Fprintf(a.out, "Registered %s (customer %s). Run 'bankx login' to sign in.\n", auth.Username, id)
	return nil
}

func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.TrimSpace(label), ":"), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/bankx-client/internal/domain"
	"github.com/dvloznov/bankx-client/internal/render"
	"github.com/dvloznov/bankx-client/internal/views"
)

// subcommand splits "list -x" style arguments, defaulting to list.
func subcommand(args []string) (string, []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "list", args
	}
	return args[0], args[1:]
}

func (a *app) runDashboard(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	page := views.NewDashboard(a.deps)
	defer page.Unmount()
	if err := page.Mount(ctx); err != nil {
		return err
	}
	return render.Dashboard(a.out, page.State().Data)
}

func (a *app) runProfile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	page := views.NewProfile(a.deps)
	defer page.Unmount()
	if err := page.Mount(ctx); err != nil {
		return err
	}
	return render.Profile(a.out, page.State().Data)
}

func (a *app) runAccounts(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	fs := flag.NewFlagSet("accounts "+sub, flag.ContinueOnError)
	id := fs.Int64("id", 0, "Account id")
	typ := fs.String("type", "", "Account type: "+accountTypeList())
	balance := fs.String("balance", "0", "Initial balance")

	page := views.NewAccounts(a.deps)
	defer page.Unmount()

	switch sub {
	case "list":
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		if err := page.Mount(ctx); err != nil {
			return err
		}
		return render.Accounts(a.out, page.State().Data)

	case "show":
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		if err := requireID(*id); err != nil {
			return err
		}
		if !a.store.Authenticated() {
			return views.ErrLoginRequired
		}
		acc, err := a.api.Accounts.Get(ctx, *id)
		if err != nil {
			a.coord.Handle(err)
			return err
		}
		return render.Account(a.out, *acc)

	case "create":
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		amount, err := decimal.NewFromString(*balance)
		if err != nil {
			return &views.ValidationError{Message: "Please enter a valid initial balance"}
		}
		if err := prepare(ctx, page.Page); err != nil {
			return err
		}
		acc, err := page.Create(ctx, domain.AccountType(strings.ToUpper(*typ)), amount)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Opened %s account %d (%s) with %s\n\n", acc.AccountType, acc.ID, acc.AccountNumber, render.Money(acc.Balance))
		return renderRefreshed(a, page)

	case "set-type":
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		if err := requireID(*id); err != nil {
			return err
		}
		if err := prepare(ctx, page.Page); err != nil {
			return err
		}
		acc, err := page.UpdateType(ctx, *id, domain.AccountType(strings.ToUpper(*typ)))
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Account %d is now %s\n\n", acc.ID, acc.AccountType)
		return renderRefreshed(a, page)

	case "delete":
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		if err := requireID(*id); err != nil {
			return err
		}
		if err := prepare(ctx, page.Page); err != nil {
			return err
		}
		if err := page.Delete(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Account %d deleted\n\n", *id)
		return renderRefreshed(a, page)

	default:
		fmt.Fprintf(os.Stderr, "Unknown accounts command: %s (want list, show, create, set-type or delete)\n", sub)
		return errUsage
	}
}

// prepare mounts page so that a successful action re-fetches it. Only a
// login failure stops the action.
func prepare[T any](ctx context.Context, page *views.Page[T]) error {
	if err := page.Mount(ctx); err != nil && views.NeedsLogin(err) {
		return err
	}
	return nil
}

// renderRefreshed prints the accounts list re-fetched after an action.
func renderRefreshed(a *app, page *views.Accounts) error {
	state := page.State()
	if state.Status != views.StatusReady {
		fmt.Fprintln(a.out, state.Message)
		return nil
	}
	return render.Accounts(a.out, state.Data)
}

func requireID(id int64) error {
	if id <= 0 {
		return &views.ValidationError{Message: "Please pass an account id with -id"}
	}
	return nil
}

func accountTypeList() string {
	names := make([]string, len(domain.AccountTypes))
	for i, t := range domain.AccountTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/bankx-client/internal/domain"
	"github.com/dvloznov/bankx-client/internal/render"
	"github.com/dvloznov/bankx-client/internal/views"
)

func (a *app) runTransactions(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	fs := flag.NewFlagSet("transactions "+sub, flag.ContinueOnError)

	page := views.NewTransactions(a.deps)
	defer page.Unmount()

	switch sub {
	case "list":
		typ := fs.String("type", "all", "Filter by type: all, credit, debit or transfer")
		query := fs.String("q", "", "Match reference id or amount")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		if err := page.Mount(ctx); err != nil {
			return err
		}
		data := page.State().Data
		filtered := views.Filter{Type: *typ, Query: *query}.Apply(data.Transactions)
		return render.Transactions(a.out, filtered, data.Counts)

	case "show":
		ref := fs.String("ref", "", "Transaction reference id")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		if *ref == "" {
			return &views.ValidationError{Message: "Please pass a reference id with -ref"}
		}
		if !a.store.Authenticated() {
			return views.ErrLoginRequired
		}
		tx, err := a.api.Transactions.ByReference(ctx, *ref)
		if err != nil {
			a.coord.Handle(err)
			return err
		}
		return render.Transaction(a.out, *tx)

	case "deposit", "withdraw", "transfer":
		op, _ := views.ParseOperation(sub)
		amount := fs.String("amount", "", "Amount")
		from := fs.Int64("from", 0, "Source account id (withdraw, transfer)")
		to := fs.String("to", "", "Destination account id, or recipient account number for transfers")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		value, err := decimal.NewFromString(*amount)
		if err != nil {
			return &views.ValidationError{Message: "Please enter a valid amount"}
		}
		if err := prepare(ctx, page.Page); err != nil {
			return err
		}
		receipt, err := page.Submit(ctx, views.Form{Operation: op, Amount: value, From: *from, To: *to})
		if err != nil {
			return err
		}
		if err := render.Receipt(a.out, receipt); err != nil {
			return err
		}
		// Balances after the refresh.
		state := page.State()
		if state.Status != views.StatusReady {
			return nil
		}
		fmt.Fprintln(a.out)
		accounts := state.Data.Accounts
		return render.Accounts(a.out, views.AccountsData{Accounts: accounts, TotalBalance: domain.TotalBalance(accounts)})

	default:
		fmt.Fprintf(os.Stderr, "Unknown transactions command: %s (want list, show, deposit, withdraw or transfer)\n", sub)
		return errUsage
	}
}

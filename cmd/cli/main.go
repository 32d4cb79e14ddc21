package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/bankx-client/internal/bankapi"
	"github.com/dvloznov/bankx-client/internal/config"
	"github.com/dvloznov/bankx-client/internal/gateway"
	"github.com/dvloznov/bankx-client/internal/logger"
	"github.com/dvloznov/bankx-client/internal/session"
	"github.com/dvloznov/bankx-client/internal/views"
)

const commandTimeout = 2 * time.Minute

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}
	switch os.Args[1] {
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a, err := newApp(ctx, cfg, log, os.Stdout, os.Stdin)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise")
	}
	defer a.close()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		if a.loginRequired(err) {
			fmt.Fprintln(os.Stderr, "Session expired or not signed in, run 'bankx login'.")
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", message(err))
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "BankX CLI")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  bankx <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  login         Sign in and remember the session")
	fmt.Fprintln(w, "  logout        Sign out and forget the session")
	fmt.Fprintln(w, "  whoami        Show the signed-in customer")
	fmt.Fprintln(w, "  register      Create a new customer")
	fmt.Fprintln(w, "  dashboard     Accounts, total balance and recent transactions")
	fmt.Fprintln(w, "  accounts      list | show | create | set-type | delete")
	fmt.Fprintln(w, "  transactions  list | show | deposit | withdraw | transfer")
	fmt.Fprintln(w, "  profile       Customer details and account summary")
	fmt.Fprintln(w, "  export        Export the statement to csv, gcs or bigquery")
	fmt.Fprintln(w, "  ping          Check that the bank API is reachable")
	fmt.Fprintln(w, "  help          Show this help message")
	fmt.Fprintln(w, "\nRun 'bankx <command> -h' for more information on a command.")
}

var errUsage = errors.New("usage error")

// app wires the session, gateway, facades and views for one CLI invocation.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	out   io.Writer
	in    *bufio.Reader
	store *session.Store
	api   *bankapi.API
	deps  views.Deps
	coord *views.Coordinator

	mu         sync.Mutex
	redirected bool
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger, out io.Writer, in io.Reader) (*app, error) {
	persister, err := session.NewFileStore(cfg.SessionFile, cfg.SessionKey)
	if err != nil {
		return nil, err
	}
	store := session.New(persister, log, session.WithMasking(cfg.Production()))
	store.Restore(ctx)

	gw := gateway.New(gateway.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.Timeout,
		Tokens:  store,
		Logger:  log,
		Mask:    cfg.Production(),
	})
	api := bankapi.New(gw)

	a := &app{cfg: cfg, log: log, out: out, in: bufio.NewReader(in), store: store, api: api}
	a.coord = views.NewCoordinator(store, views.NavigatorFunc(a.navigate), log)
	a.deps = views.Deps{
		Session:      store,
		Accounts:     api.Accounts,
		Transactions: api.Transactions,
		Customers:    api.Customers,
		Logger:       log,
		OnError:      func(err error) { a.coord.Handle(err) },
	}
	return a, nil
}

// navigate is the CLI's only route: the login prompt printed on exit.
func (a *app) navigate(route string) {
	a.mu.Lock()
	a.redirected = route == views.RouteLogin
	a.mu.Unlock()
}

func (a *app) loginRequired(err error) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.redirected || views.NeedsLogin(err)
}

func (a *app) close() {
	a.coord.Close()
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.runLogin(ctx, args)
	case "logout":
		return a.runLogout(ctx, args)
	case "whoami":
		return a.runWhoami(ctx, args)
	case "register":
		return a.runRegister(ctx, args)
	case "dashboard":
		return a.runDashboard(ctx, args)
	case "accounts":
		return a.runAccounts(ctx, args)
	case "transactions":
		return a.runTransactions(ctx, args)
	case "profile":
		return a.runProfile(ctx, args)
	case "export":
		return a.runExport(ctx, args)
	case "ping":
		return a.runPing(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage(os.Stderr)
		return errUsage
	}
}

// parseFlags parses args into fs, reporting problems on stderr.
func parseFlags(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	return nil
}

// message picks the text shown for err.
func message(err error) string {
	var ve *views.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var ae *views.ActionError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return views.UserMessage(err, err.Error())
}

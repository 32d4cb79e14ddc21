// Package render prints the page views as plain text for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/kr/text"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/bankx-client/internal/domain"
	"github.com/dvloznov/bankx-client/internal/views"
)

const (
	indent    = "  "
	wrapWidth = 72
)

// Money formats v as US dollars with thousands separators, e.g. "$1,234.50".
func Money(v decimal.Decimal) string {
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Neg()
	}
	whole, frac, _ := strings.Cut(v.StringFixed(2), ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}

// SignedMoney prefixes "+" for incoming and "-" for outgoing transactions.
func SignedMoney(tx domain.Transaction) string {
	if tx.Incoming() {
		return "+" + Money(tx.Amount)
	}
	return "-" + Money(tx.Amount)
}

// Date formats t like "Jan 2, 2006", or "N/A" for a zero time.
func Date(t domain.Timestamp) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("Jan 2, 2006")
}

// Message wraps a user-facing message to the terminal width.
func Message(w io.Writer, msg string) error {
	_, err := fmt.Fprintln(w, text.Wrap(msg, wrapWidth))
	return err
}

// Dashboard prints the greeting, accounts and recent transactions.
func Dashboard(w io.Writer, d views.DashboardData) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", d.Greeting)
	fmt.Fprintf(&b, "Total balance: %s\n\n", Money(d.TotalBalance))

	b.WriteString("Accounts\n")
	b.WriteString(text.Indent(accountTable(d.Accounts), indent))

	b.WriteString("\nRecent transactions\n")
	b.WriteString(text.Indent(transactionTable(d.Recent), indent))

	_, err := io.WriteString(w, b.String())
	return err
}

// Accounts prints the account list with its total.
func Accounts(w io.Writer, d views.AccountsData) error {
	var b strings.Builder
	b.WriteString(accountTable(d.Accounts))
	fmt.Fprintf(&b, "\nTotal balance: %s\n", Money(d.TotalBalance))
	_, err := io.WriteString(w, b.String())
	return err
}

// Account prints one account in detail.
func Account(w io.Writer, a domain.Account) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Account %d\n", a.ID)
	fields := strings.Join([]string{
		"Number:  " + a.AccountNumber,
		"Type:    " + string(a.AccountType),
		"Balance: " + Money(a.Balance),
		"Owner:   " + a.OwnerID(),
	}, "\n") + "\n"
	b.WriteString(text.Indent(fields, indent))
	_, err := io.WriteString(w, b.String())
	return err
}

// Transactions prints the per-type counts followed by the list.
func Transactions(w io.Writer, txs []domain.Transaction, counts map[domain.TransactionType]int) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%d transactions (credit %d, debit %d, transfer %d)\n\n",
		len(txs),
		counts[domain.TransactionCredit],
		counts[domain.TransactionDebit],
		counts[domain.TransactionTransfer])
	b.WriteString(transactionTable(txs))
	_, err := io.WriteString(w, b.String())
	return err
}

// Transaction prints one transaction in detail.
func Transaction(w io.Writer, tx domain.Transaction) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", tx.Description(), tx.Key())
	fields := strings.Join([]string{
		"Type:    " + string(tx.Type),
		"Status:  " + string(tx.Status),
		"Amount:  " + SignedMoney(tx),
		"Date:    " + Date(tx.CreatedAt),
		"From:    " + accountLabel(tx.FromAccount),
		"To:      " + accountLabel(tx.ToAccount),
	}, "\n") + "\n"
	b.WriteString(text.Indent(fields, indent))
	_, err := io.WriteString(w, b.String())
	return err
}

// Receipt prints the result of a submitted transaction.
func Receipt(w io.Writer, r *domain.TransactionReceipt) error {
	_, err := fmt.Fprintf(w, "Transaction %s: %s\n", r.ReferenceID, r.Status)
	return err
}

// Profile prints the customer record and a summary of their accounts.
func Profile(w io.Writer, p views.ProfileData) error {
	var b strings.Builder
	if c := p.Customer; c != nil {
		fmt.Fprintf(&b, "%s\n", c.Name)
		fields := strings.Join([]string{
			"Customer ID:  " + c.ID,
			"Email:        " + c.Email,
			"Phone:        " + orNA(c.Phone),
			"Address:      " + orNA(c.Address),
			"KYC status:   " + orNA(string(c.KYCStatus)),
			"Member since: " + Date(c.CreatedAt),
		}, "\n") + "\n"
		b.WriteString(text.Indent(fields, indent))
	}
	fmt.Fprintf(&b, "\n%d accounts, total balance %s\n", len(p.Accounts), Money(p.TotalBalance))
	_, err := io.WriteString(w, b.String())
	return err
}

func accountTable(accounts []domain.Account) string {
	if len(accounts) == 0 {
		return "No accounts yet.\n"
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tTYPE\tBALANCE")
	for _, a := range accounts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", a.ID, a.AccountNumber, a.AccountType, Money(a.Balance))
	}
	tw.Flush()
	return b.String()
}

func transactionTable(txs []domain.Transaction) string {
	if len(txs) == 0 {
		return "No transactions yet.\n"
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tREFERENCE\tDESCRIPTION\tAMOUNT\tSTATUS")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", Date(tx.CreatedAt), tx.Key(), tx.Description(), SignedMoney(tx), tx.Status)
	}
	tw.Flush()
	return b.String()
}

func accountLabel(a *domain.Account) string {
	if a == nil {
		return "-"
	}
	if a.AccountNumber != "" {
		return a.MaskedNumber()
	}
	return fmt.Sprintf("#%d", a.ID)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

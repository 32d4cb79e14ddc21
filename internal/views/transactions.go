package views

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/bankx-client/internal/domain"
)

type TransactionsData struct {
	Accounts     []domain.Account               `json:"accounts"`
	Transactions []domain.Transaction           `json:"transactions"`
	Counts       map[domain.TransactionType]int `json:"counts"`
}

// Operation is a money movement the user can submit.
type Operation string

const (
	OpDeposit  Operation = "deposit"
	OpWithdraw Operation = "withdraw"
	OpTransfer Operation = "transfer"
)

// ParseOperation accepts any letter case.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(s))); op {
	case OpDeposit, OpWithdraw, OpTransfer:
		return op, nil
	}
	return "", fmt.Errorf("unknown operation %q", s)
}

// Form is a new transaction as entered by the user. From and To are account
// ids; for transfers To may also be the recipient's account number.
type Form struct {
	Operation Operation       `json:"operation"`
	Amount    decimal.Decimal `json:"amount"`
	From      int64           `json:"fromAccountId,omitempty"`
	To        string          `json:"to,omitempty"`
}

// Filter narrows the transaction list on the client side.
type Filter struct {
	// Type is "all", "credit", "debit" or "transfer". Empty means all.
	Type string
	// Query matches the reference id or the amount text.
	Query string
}

// Transactions shows every transaction across the customer's accounts and
// submits new ones.
type Transactions struct {
	*Page[TransactionsData]
	deps Deps
}

func NewTransactions(deps Deps) *Transactions {
	t := &Transactions{deps: deps}
	t.Page = NewPage(t.load, "Failed to load transactions", deps.OnError)
	return t
}

func (t *Transactions) load(ctx context.Context) (TransactionsData, error) {
	sess, err := t.deps.requireSession()
	if err != nil {
		return TransactionsData{}, err
	}
	accounts, err := t.deps.accountsFor(ctx, sess)
	if err != nil {
		return TransactionsData{}, err
	}
	txs, err := AggregateTransactions(ctx, t.deps.Transactions, accounts, t.deps.Logger)
	if err != nil {
		return TransactionsData{}, err
	}
	return TransactionsData{Accounts: accounts, Transactions: txs, Counts: CountByType(txs)}, nil
}

// CountByType tallies transactions per type.
func CountByType(txs []domain.Transaction) map[domain.TransactionType]int {
	counts := map[domain.TransactionType]int{
		domain.TransactionCredit:   0,
		domain.TransactionDebit:    0,
		domain.TransactionTransfer: 0,
	}
	for _, tx := range txs {
		counts[tx.Type]++
	}
	return counts
}

// Apply returns the transactions matching f, keeping their order.
func (f Filter) Apply(txs []domain.Transaction) []domain.Transaction {
	typ := strings.ToLower(strings.TrimSpace(f.Type))
	q := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if typ != "" && typ != "all" && strings.ToLower(string(tx.Type)) != typ {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(tx.ReferenceID), q) && !strings.Contains(tx.Amount.String(), q) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Submit validates f, sends it and refreshes the page on success. On failure
// nothing is refreshed, so cached balances stay as they were.
func (t *Transactions) Submit(ctx context.Context, f Form) (*domain.TransactionReceipt, error) {
	if _, err := t.deps.requireSession(); err != nil {
		return nil, t.fail(err, "")
	}
	if err := f.validate(); err != nil {
		return nil, err
	}

	var (
		receipt *domain.TransactionReceipt
		err     error
	)
	switch f.Operation {
	case OpDeposit:
		var to int64
		to, err = strconv.ParseInt(strings.TrimSpace(f.To), 10, 64)
		if err != nil {
			return nil, invalid("Please select a destination account")
		}
		receipt, err = t.deps.Transactions.Deposit(ctx, to, f.Amount)
	case OpWithdraw:
		receipt, err = t.deps.Transactions.Withdraw(ctx, f.From, f.Amount)
	case OpTransfer:
		var to int64
		to, err = t.resolveRecipient(ctx, f.To)
		if err != nil {
			return nil, err
		}
		receipt, err = t.deps.Transactions.Transfer(ctx, f.From, to, f.Amount)
	}
	if err != nil {
		return nil, t.fail(err, string(f.Operation)+" failed")
	}

	t.deps.Logger.Info().
		Str("operation", string(f.Operation)).
		Str("reference_id", receipt.ReferenceID).
		Str("status", string(receipt.Status)).
		Msg("Transaction submitted")

	if err := t.Refresh(ctx); err != nil && !errors.Is(err, ErrUnmounted) {
		t.deps.Logger.Warn().Err(err).Msg("Failed to refresh transactions after submit")
	}
	return receipt, nil
}

func (f Form) validate() error {
	switch f.Operation {
	case OpDeposit, OpWithdraw, OpTransfer:
	default:
		return invalid("Please choose deposit, withdraw or transfer")
	}
	if !f.Amount.IsPositive() || !wholeCents(f.Amount) {
		return invalid("Please enter a valid amount")
	}
	if f.From == 0 && (f.Operation == OpWithdraw || f.Operation == OpTransfer) {
		return invalid("Please select a source account")
	}
	if strings.TrimSpace(f.To) == "" {
		switch f.Operation {
		case OpDeposit:
			return invalid("Please select a destination account")
		case OpTransfer:
			return invalid("Please enter recipient account number")
		}
	}
	return nil
}

// wholeCents reports whether v has at most two decimal places. Amounts are
// sent exactly as entered, so anything finer is rejected rather than rounded.
func wholeCents(v decimal.Decimal) bool {
	return v.Equal(v.Truncate(2))
}

// accountNumberLen is the length of a bank account number. Shorter numeric
// input is taken to be an account id.
const accountNumberLen = 12

// resolveRecipient turns the transfer destination into an account id. Account
// numbers and other non-id input are looked up by number.
func (t *Transactions) resolveRecipient(ctx context.Context, to string) (int64, error) {
	to = strings.TrimSpace(to)
	if id, err := strconv.ParseInt(to, 10, 64); err == nil && len(to) < accountNumberLen {
		return id, nil
	}

	acc, err := t.deps.Accounts.GetByNumber(ctx, to)
	if err != nil {
		if NeedsLogin(err) {
			return 0, t.fail(err, "")
		}
		if isNotFound(err) {
			return 0, invalid("Recipient account not found")
		}
		return 0, &ActionError{Message: "Recipient account not found", Err: err}
	}
	return acc.ID, nil
}

func (t *Transactions) fail(err error, fallback string) error {
	if t.deps.OnError != nil {
		t.deps.OnError(err)
	}
	return actionError(err, fallback)
}

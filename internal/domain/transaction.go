package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionType is the ledger direction reported by the bank API.
type TransactionType string

const (
	TransactionCredit   TransactionType = "CREDIT"
	TransactionDebit    TransactionType = "DEBIT"
	TransactionTransfer TransactionType = "TRANSFER"
)

// ParseTransactionType accepts any letter case.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToUpper(strings.TrimSpace(s))); t {
	case TransactionCredit, TransactionDebit, TransactionTransfer:
		return t, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// TransactionStatus is the processing state of a transaction on the server.
type TransactionStatus string

const (
	StatusPending TransactionStatus = "PENDING"
	StatusSuccess TransactionStatus = "SUCCESS"
	StatusFailed  TransactionStatus = "FAILED"
)

// Transaction represents one ledger movement as returned by the bank API.
// Either side may be nil: deposits have no source, withdrawals no destination.
type Transaction struct {
	ID          int64             `json:"id"`
	ReferenceID string            `json:"referenceId"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Status      TransactionStatus `json:"status"`
	CreatedAt   Timestamp         `json:"createdAt"`
	FromAccount *Account          `json:"fromAccount,omitempty"`
	ToAccount   *Account          `json:"toAccount,omitempty"`
}

// Key identifies the transaction for de-duplication and stable ordering.
// Transfers between two accounts of the same customer show up in both
// per-account listings.
func (t Transaction) Key() string {
	if t.ReferenceID != "" {
		return t.ReferenceID
	}
	return fmt.Sprintf("id:%d", t.ID)
}

// Description is the human label used by the dashboard.
func (t Transaction) Description() string {
	switch t.Type {
	case TransactionCredit:
		return "Money Received"
	case TransactionDebit:
		return "Money Sent"
	case TransactionTransfer:
		return "Transfer"
	default:
		return "Transaction"
	}
}

// Incoming reports whether the movement adds money from the customer's point of view.
// Transfers are treated as outgoing.
func (t Transaction) Incoming() bool {
	return t.Type == TransactionCredit
}

// TransactionReceipt is what the mutating transaction endpoints return.
type TransactionReceipt struct {
	Status      TransactionStatus `json:"status"`
	ReferenceID string            `json:"referenceId"`
}

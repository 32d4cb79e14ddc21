package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAccountType is returned when an account type is not one the bank offers.
var ErrInvalidAccountType = errors.New("invalid account type")

// AccountType is the product kind of an account.
type AccountType string

const (
	AccountSavings  AccountType = "SAVINGS"
	AccountCurrent  AccountType = "CURRENT"
	AccountChecking AccountType = "CHECKING"
	AccountBusiness AccountType = "BUSINESS"
	AccountWallet   AccountType = "WALLET"
)

// AccountTypes lists every supported type in display order.
var AccountTypes = []AccountType{AccountSavings, AccountCurrent, AccountChecking, AccountBusiness, AccountWallet}

// ParseAccountType normalizes s and checks it against AccountTypes.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AccountTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAccountType, s)
}

// Account is a customer account as returned by the bank API. The API nests the
// owner under "customer"; some endpoints only send "customerId".
type Account struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"accountNumber"`
	AccountType   AccountType     `json:"accountType"`
	Balance       decimal.Decimal `json:"balance"`
	CustomerID    string          `json:"customerId,omitempty"`
	Customer      *Customer       `json:"customer,omitempty"`
}

// OwnerID returns the owning customer's id, whichever form the API used.
func (a Account) OwnerID() string {
	if a.CustomerID != "" {
		return a.CustomerID
	}
	if a.Customer != nil {
		return a.Customer.ID
	}
	return ""
}

// MaskedNumber hides all but the last four digits of the account number.
func (a Account) MaskedNumber() string {
	n := a.AccountNumber
	if len(n) <= 4 {
		return n
	}
	return "****" + n[len(n)-4:]
}

// TotalBalance sums balances across accounts.
func TotalBalance(accounts []Account) decimal.Decimal {
	total := decimal.Zero
	for _, acc := range accounts {
		total = total.Add(acc.Balance)
	}
	return total
}

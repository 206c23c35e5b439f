package enums

import (
	"fmt"
	"strings"
)

// LedgerAccount identifies an account in the general ledger. Running
// balances are keyed on this value, so accounts must come from the fixed
// set below or from the Revenue/Expense constructors; arbitrary strings
// are rejected at posting time.
type LedgerAccount string

const (
	LedgerAccountBank               LedgerAccount = "Bank Account"
	LedgerAccountAccountsReceivable LedgerAccount = "Accounts Receivable"
	LedgerAccountAccountsPayable    LedgerAccount = "Accounts Payable"

	revenueAccountPrefix = "Revenue - "
	expenseAccountPrefix = "Expense - "
)

// RevenueAccount returns the revenue ledger account for a category,
// e.g. "Revenue - Sales".
func RevenueAccount(category string) LedgerAccount {
	return LedgerAccount(revenueAccountPrefix + strings.TrimSpace(category))
}

// ExpenseAccount returns the expense ledger account for a category,
// e.g. "Expense - Utilities".
func ExpenseAccount(category string) LedgerAccount {
	return LedgerAccount(expenseAccountPrefix + strings.TrimSpace(category))
}

// String implements fmt.Stringer.
func (a LedgerAccount) String() string {
	return string(a)
}

// IsValid reports whether the account belongs to the ledger namespace.
func (a LedgerAccount) IsValid() bool {
	switch a {
	case LedgerAccountBank, LedgerAccountAccountsReceivable, LedgerAccountAccountsPayable:
		return true
	}
	s := string(a)
	if strings.HasPrefix(s, revenueAccountPrefix) && len(s) > len(revenueAccountPrefix) {
		return true
	}
	if strings.HasPrefix(s, expenseAccountPrefix) && len(s) > len(expenseAccountPrefix) {
		return true
	}
	return false
}

// ParseLedgerAccount converts raw input into a LedgerAccount.
func ParseLedgerAccount(value string) (LedgerAccount, error) {
	account := LedgerAccount(strings.TrimSpace(value))
	if !account.IsValid() {
		return "", fmt.Errorf("invalid ledger account %q", value)
	}
	return account, nil
}

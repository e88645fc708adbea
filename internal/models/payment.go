package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies monetary movements.
type TransactionType string

const (
	TransactionIncome   TransactionType = "income"
	TransactionExpense  TransactionType = "expense"
	TransactionTransfer TransactionType = "transfer"
)

// Money is an amount as read from a backing store. Valid is false when the
// stored value was non-numeric, NaN or infinite; Raw keeps the original text.
type Money struct {
	Amount decimal.Decimal
	Valid  bool
	Raw    string
}

// Payment is a payment recorded against a student in the document store.
type Payment struct {
	ID             string
	StudentID      string
	SubscriptionID string
	Amount         Money
	Currency       string
	Type           TransactionType
	PaidAt         *time.Time
}

// Transaction is a ledger movement recorded in the relational store.
type Transaction struct {
	ID             string
	SchoolID       string
	StudentID      string
	SubscriptionID string
	FromAccountID  string
	ToAccountID    string
	Amount         Money
	Currency       string
	Type           TransactionType
	OccurredAt     *time.Time
}

// Account is a school cash/bank account.
type Account struct {
	ID             string
	SchoolID       string
	Name           string
	Currency       string
	OpeningBalance Money
}

package models

import "time"

// AccountBalance is the replayed balance of one account.
type AccountBalance struct {
	AccountID           string  `json:"account_id"`
	Name                string  `json:"name"`
	Currency            string  `json:"currency"`
	Balance             float64 `json:"balance"`
	TransactionsApplied int     `json:"transactions_applied"`
	Fallback            bool    `json:"fallback"`
	FallbackReason      string  `json:"fallback_reason,omitempty"`
}

// BalanceWarning records a transaction ignored during replay.
type BalanceWarning struct {
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id,omitempty"`
	Reason        string `json:"reason"`
}

// BalanceReport holds all account balances for a school.
type BalanceReport struct {
	SchoolID    string           `json:"school_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Accounts    []AccountBalance `json:"accounts"`
	Warnings    []BalanceWarning `json:"warnings"`
}

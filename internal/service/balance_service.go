package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-payments-api/pkg/errors"
)

type accountSource interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.Account, error)
}

type schoolTransactionSource interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.Transaction, error)
}

// BalanceServiceParams groups constructor dependencies.
type BalanceServiceParams struct {
	Accounts     accountSource
	Transactions schoolTransactionSource
	Cache        *CacheService
	Metrics      *MetricsService
	Logger       *zap.Logger
	CacheTTL     time.Duration
}

// BalanceService replays school transactions into per-account balances.
type BalanceService struct {
	accounts     accountSource
	transactions schoolTransactionSource
	cache        *CacheService
	metrics      *MetricsService
	logger       *zap.Logger
	now          func() time.Time
	cacheTTL     time.Duration
}

// NewBalanceService constructs a BalanceService.
func NewBalanceService(params BalanceServiceParams) *BalanceService {
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceService{
		accounts:     params.Accounts,
		transactions: params.Transactions,
		cache:        params.Cache,
		metrics:      params.Metrics,
		logger:       logger,
		now:          time.Now,
		cacheTTL:     ttl,
	}
}

// Report returns account balances for a school and whether it came from cache.
func (s *BalanceService) Report(ctx context.Context, schoolID string) (*models.BalanceReport, bool, error) {
	now := s.now().UTC()
	if schoolID == "" {
		return &models.BalanceReport{GeneratedAt: now, Accounts: []models.AccountBalance{}, Warnings: []models.BalanceWarning{}}, false, nil
	}

	cacheKey := fmt.Sprintf("payments:balances:%s", schoolID)
	var cached models.BalanceReport
	if s.cache.Get(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	accounts, err := s.accounts.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to list accounts")
	}
	txs, err := s.transactions.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to list transactions")
	}

	balances, warnings := CalculateBalances(accounts, txs)
	for _, w := range warnings {
		s.logger.Warn("transaction skipped in balance replay",
			zap.String("school_id", schoolID),
			zap.String("transaction_id", w.TransactionID),
			zap.String("account_id", w.AccountID),
			zap.String("reason", w.Reason),
		)
	}

	report := &models.BalanceReport{SchoolID: schoolID, GeneratedAt: now, Accounts: balances, Warnings: warnings}
	s.metrics.ObserveReport(models.ReportBalances, time.Since(start))
	s.cache.Set(ctx, cacheKey, report, s.cacheTTL)
	return report, false, nil
}

type ledgerEntry struct {
	account  models.Account
	balance  decimal.Decimal
	applied  int
	fallback string
}

// CalculateBalances replays txs in the order given. Accounts whose own data is
// unusable report a zero balance with a fallback reason instead of failing.
func CalculateBalances(accounts []models.Account, txs []models.Transaction) ([]models.AccountBalance, []models.BalanceWarning) {
	entries := make([]*ledgerEntry, 0, len(accounts))
	byID := make(map[string]*ledgerEntry, len(accounts))
	for _, account := range accounts {
		entry := &ledgerEntry{account: account, balance: account.OpeningBalance.Amount}
		switch {
		case !account.OpeningBalance.Valid:
			entry.fallback = fmt.Sprintf("malformed opening balance %q", account.OpeningBalance.Raw)
		case account.Currency == "":
			entry.fallback = "account has no currency"
		}
		entries = append(entries, entry)
		if account.ID != "" {
			byID[account.ID] = entry
		}
	}

	warnings := make([]models.BalanceWarning, 0)
	apply := func(tx models.Transaction, accountID string, delta decimal.Decimal) {
		if accountID == "" {
			return
		}
		entry, ok := byID[accountID]
		if !ok {
			warnings = append(warnings, models.BalanceWarning{TransactionID: tx.ID, AccountID: accountID, Reason: "unknown account"})
			return
		}
		if entry.fallback != "" {
			return
		}
		if tx.Currency != "" && tx.Currency != entry.account.Currency {
			warnings = append(warnings, models.BalanceWarning{
				TransactionID: tx.ID,
				AccountID:     accountID,
				Reason:        fmt.Sprintf("currency %s does not match account currency %s", tx.Currency, entry.account.Currency),
			})
			return
		}
		entry.balance = entry.balance.Add(delta)
		entry.applied++
	}

	for _, tx := range txs {
		if !tx.Amount.Valid {
			warnings = append(warnings, models.BalanceWarning{TransactionID: tx.ID, Reason: fmt.Sprintf("malformed amount %q", tx.Amount.Raw)})
			continue
		}
		amount := tx.Amount.Amount
		switch tx.Type {
		case models.TransactionIncome:
			apply(tx, tx.ToAccountID, amount)
		case models.TransactionExpense:
			apply(tx, tx.FromAccountID, amount.Neg())
		case models.TransactionTransfer:
			apply(tx, tx.FromAccountID, amount.Neg())
			apply(tx, tx.ToAccountID, amount)
		default:
			warnings = append(warnings, models.BalanceWarning{TransactionID: tx.ID, Reason: fmt.Sprintf("unknown transaction type %q", tx.Type)})
		}
	}

	balances := make([]models.AccountBalance, 0, len(entries))
	for _, entry := range entries {
		balance := models.AccountBalance{
			AccountID: entry.account.ID,
			Name:      entry.account.Name,
			Currency:  entry.account.Currency,
		}
		if entry.fallback != "" {
			balance.Fallback = true
			balance.FallbackReason = entry.fallback
		} else {
			balance.Balance = entry.balance.InexactFloat64()
			balance.TransactionsApplied = entry.applied
		}
		balances = append(balances, balance)
	}
	return balances, warnings
}

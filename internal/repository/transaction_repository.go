package repository

import (
	"context"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
	"github.com/noah-isme/tutoring-payments-api/internal/normalize"
)

// TransactionRepository reads ledger transactions through the relational RPC API.
type TransactionRepository struct {
	rpc *RPCClient
}

// NewTransactionRepository constructs a TransactionRepository.
func NewTransactionRepository(rpc *RPCClient) *TransactionRepository {
	return &TransactionRepository{rpc: rpc}
}

// ListBySubscription returns transactions recorded against a subscription.
func (r *TransactionRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]models.Transaction, error) {
	records, err := r.rpc.Call(ctx, "get_subscription_transactions", Param("p_subscription_id", subscriptionID))
	if err != nil {
		return nil, err
	}
	return mapTransactions(records), nil
}

// ListBySchool returns all transactions of a school in the order the store returns them.
func (r *TransactionRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.Transaction, error) {
	records, err := r.rpc.Call(ctx, "get_school_transactions", Param("p_school_id", schoolID))
	if err != nil {
		return nil, err
	}
	return mapTransactions(records), nil
}

func mapTransactions(records []normalize.Record) []models.Transaction {
	txs := make([]models.Transaction, 0, len(records))
	for _, record := range records {
		txs = append(txs, normalize.Transaction(record))
	}
	return txs
}

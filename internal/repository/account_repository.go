package repository

import (
	"context"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
	"github.com/noah-isme/tutoring-payments-api/internal/normalize"
)

// AccountRepository reads school accounts through the relational RPC API.
type AccountRepository struct {
	rpc *RPCClient
}

// NewAccountRepository constructs an AccountRepository.
func NewAccountRepository(rpc *RPCClient) *AccountRepository {
	return &AccountRepository{rpc: rpc}
}

// ListBySchool returns the accounts of a school.
func (r *AccountRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.Account, error) {
	records, err := r.rpc.Call(ctx, "get_school_accounts", Param("p_school_id", schoolID))
	if err != nil {
		return nil, err
	}
	accounts := make([]models.Account, 0, len(records))
	for _, record := range records {
		accounts = append(accounts, normalize.Account(record))
	}
	return accounts, nil
}

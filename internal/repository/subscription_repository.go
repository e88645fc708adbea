package repository

import (
	"context"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
	"github.com/noah-isme/tutoring-payments-api/internal/normalize"
)

// SubscriptionRepository reads subscriptions through the relational RPC API.
type SubscriptionRepository struct {
	rpc *RPCClient
}

// NewSubscriptionRepository constructs a SubscriptionRepository.
func NewSubscriptionRepository(rpc *RPCClient) *SubscriptionRepository {
	return &SubscriptionRepository{rpc: rpc}
}

// ListByStudent returns the subscriptions of a student.
func (r *SubscriptionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Subscription, error) {
	records, err := r.rpc.Call(ctx, "get_student_subscriptions", Param("p_student_id", studentID))
	if err != nil {
		return nil, err
	}
	subs := make([]models.Subscription, 0, len(records))
	for _, record := range records {
		sub := normalize.Subscription(record)
		if sub.StudentID == "" {
			sub.StudentID = studentID
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

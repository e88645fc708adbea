package repository

import (
	"context"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
	"github.com/noah-isme/tutoring-payments-api/internal/normalize"
)

// LessonRepository reads scheduled lessons through the relational RPC API.
type LessonRepository struct {
	rpc *RPCClient
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(rpc *RPCClient) *LessonRepository {
	return &LessonRepository{rpc: rpc}
}

// ListBySubscription returns lessons of a subscription. Rows without a
// schedule date are dropped.
func (r *LessonRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]models.Lesson, error) {
	records, err := r.rpc.Call(ctx, "get_subscription_lessons", Param("p_subscription_id", subscriptionID))
	if err != nil {
		return nil, err
	}
	lessons := make([]models.Lesson, 0, len(records))
	for _, record := range records {
		if lesson, ok := normalize.Lesson(record); ok {
			lessons = append(lessons, lesson)
		}
	}
	return lessons, nil
}

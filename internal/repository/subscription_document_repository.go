package repository

import (
	"context"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
	"github.com/noah-isme/tutoring-payments-api/internal/normalize"
)

// SubscriptionDocumentRepository reads legacy subscriptions kept in the document store.
type SubscriptionDocumentRepository struct {
	store *DocumentStore
}

// NewSubscriptionDocumentRepository constructs a SubscriptionDocumentRepository.
func NewSubscriptionDocumentRepository(store *DocumentStore) *SubscriptionDocumentRepository {
	return &SubscriptionDocumentRepository{store: store}
}

// ListByStudent returns the subscriptions of a student.
func (r *SubscriptionDocumentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Subscription, error) {
	records, err := r.store.Find(ctx, SubscriptionsCollection, eitherField("studentId", "student_id", studentID))
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

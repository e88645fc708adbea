package repository

import (
	"context"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
	"github.com/noah-isme/tutoring-payments-api/internal/normalize"
)

// PaymentDocumentRepository reads student payments from the document store.
type PaymentDocumentRepository struct {
	store *DocumentStore
}

// NewPaymentDocumentRepository constructs a PaymentDocumentRepository.
func NewPaymentDocumentRepository(store *DocumentStore) *PaymentDocumentRepository {
	return &PaymentDocumentRepository{store: store}
}

// ListByStudent returns every payment recorded for a student.
func (r *PaymentDocumentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	records, err := r.store.Find(ctx, PaymentsCollection, eitherField("studentId", "student_id", studentID))
	if err != nil {
		return nil, err
	}
	payments := make([]models.Payment, 0, len(records))
	for _, record := range records {
		payments = append(payments, normalize.Payment(record))
	}
	return payments, nil
}

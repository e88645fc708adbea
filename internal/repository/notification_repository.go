package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
)

// NotificationRepository persists rendered reminders into the outbox table.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs a NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a queued notification. Re-inserting the same ID is a no-op so
// retried jobs do not duplicate messages.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Status == "" {
		n.Status = models.NotificationStatusQueued
	}
	const query = `INSERT INTO notifications (id, school_id, student_id, subscription_id, channel, recipient, subject, body, status, created_by, created_at)
        VALUES (:id, :school_id, :student_id, :subscription_id, :channel, :recipient, :subject, :body, :status, :created_by, :created_at)
        ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

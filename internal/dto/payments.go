package dto

import "github.com/noah-isme/tutoring-payments-api/internal/models"

// ExportRequest captures POST /schools/:schoolId/exports.
type ExportRequest struct {
	Report models.ReportKind   `json:"report" validate:"required,oneof=overdue renewals balances"`
	Format models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ReminderRequest captures POST /schools/:schoolId/reminders.
type ReminderRequest struct {
	Channel     models.NotificationChannel `json:"channel" validate:"required,oneof=sms email whatsapp"`
	Priorities  []models.Priority          `json:"priorities,omitempty" validate:"omitempty,dive,priority"`
	TemplateKey string                     `json:"templateKey,omitempty" validate:"omitempty,max=64"`
}

// ReminderResponse summarizes a reminder run.
type ReminderResponse struct {
	RunID    string `json:"run_id"`
	Queued   int    `json:"queued"`
	Skipped  int    `json:"skipped"`
	Template string `json:"template"`
}

package models

import "time"

// Priority ranks overdue subscriptions by urgency.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// Rank orders priorities, lowest first.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	default:
		return 2
	}
}

// ParsePriority maps a query value onto a Priority.
func ParsePriority(raw string) (Priority, bool) {
	switch Priority(raw) {
	case PriorityUrgent, PriorityHigh, PriorityNormal:
		return Priority(raw), true
	}
	return "", false
}

// StudentContact is the identity block shown on payment cards.
type StudentContact struct {
	StudentID  string `json:"student_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	CourseName string `json:"course_name,omitempty"`
}

// OverduePayment is a derived view of a subscription with an outstanding balance.
type OverduePayment struct {
	StudentContact
	SubscriptionID     string             `json:"subscription_id"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	Currency           string             `json:"currency,omitempty"`
	TotalPrice         float64            `json:"total_price"`
	TotalPaid          float64            `json:"total_paid"`
	AmountOwed         float64            `json:"amount_owed"`
	PaymentPercentage  float64            `json:"payment_percentage"`
	SessionCount       int                `json:"session_count"`
	SessionsCompleted  int                `json:"sessions_completed"`
	StartDate          *time.Time         `json:"start_date,omitempty"`
	DaysSinceStart     int                `json:"days_since_start"`
	Priority           Priority           `json:"priority"`
}

// SkippedRecord explains why a student or subscription produced no result.
type SkippedRecord struct {
	StudentID      string `json:"student_id"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	Stage          string `json:"stage"`
	Reason         string `json:"reason"`
}

// Skip stages.
const (
	SkipStageSubscriptions = "subscriptions"
	SkipStagePayments      = "payments"
	SkipStageTransactions  = "transactions"
	SkipStageLessons       = "lessons"
	SkipStageEndDate       = "end_date"
)

// OverdueReport is the ranked overdue list plus the records that could not be evaluated.
type OverdueReport struct {
	SchoolID    string           `json:"school_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Items       []OverduePayment `json:"items"`
	Skipped     []SkippedRecord  `json:"skipped"`
}

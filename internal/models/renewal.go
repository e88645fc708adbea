package models

import "time"

// RenewalStatus classifies a subscription by time-to-expiry.
type RenewalStatus string

const (
	RenewalExpired  RenewalStatus = "expired"
	RenewalExpiring RenewalStatus = "expiring"
)

// End date sources.
const (
	EndDateFromLesson       = "lesson"
	EndDateFromSubscription = "subscription"
)

// SubscriptionRenewal is a subscription that has run out or is about to.
type SubscriptionRenewal struct {
	StudentContact
	SubscriptionID     string             `json:"subscription_id"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	StartDate          *time.Time         `json:"start_date,omitempty"`
	NominalEndDate     *time.Time         `json:"nominal_end_date,omitempty"`
	ActualEndDate      time.Time          `json:"actual_end_date"`
	EndDateSource      string             `json:"end_date_source"`
	DaysUntilExpiry    int                `json:"days_until_expiry"`
	Status             RenewalStatus      `json:"status"`
	SessionCount       int                `json:"session_count"`
	SessionsCompleted  int                `json:"sessions_completed"`
}

// RenewalReport lists renewal candidates for a school.
type RenewalReport struct {
	SchoolID    string                `json:"school_id"`
	GeneratedAt time.Time             `json:"generated_at"`
	Items       []SubscriptionRenewal `json:"items"`
	Skipped     []SkippedRecord       `json:"skipped"`
}

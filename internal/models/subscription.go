package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionStatus enumerates subscription lifecycle states.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPaused    SubscriptionStatus = "paused"
	SubscriptionCompleted SubscriptionStatus = "completed"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription is a purchased block of tutoring sessions.
type Subscription struct {
	ID                string
	StudentID         string
	TotalPrice        decimal.Decimal
	Currency          string
	SessionCount      int
	SessionsCompleted int
	StartDate         *time.Time
	EndDate           *time.Time
	Status            SubscriptionStatus
}

// Lesson is a scheduled session belonging to a subscription.
type Lesson struct {
	ID             string
	SubscriptionID string
	StudentID      string
	ScheduledAt    time.Time
	Status         string
}

package models

import "time"

// NotificationChannel is the delivery channel of a reminder.
type NotificationChannel string

const (
	ChannelSMS      NotificationChannel = "sms"
	ChannelEmail    NotificationChannel = "email"
	ChannelWhatsApp NotificationChannel = "whatsapp"
)

// NotificationStatusQueued marks outbox rows awaiting delivery.
const NotificationStatusQueued = "queued"

// NotificationTemplate is a school-defined message body.
type NotificationTemplate struct {
	SchoolID string
	Key      string
	Channel  NotificationChannel
	Subject  string
	Body     string
}

// Notification is a rendered reminder stored in the outbox.
type Notification struct {
	ID             string              `db:"id" json:"id"`
	SchoolID       string              `db:"school_id" json:"school_id"`
	StudentID      string              `db:"student_id" json:"student_id"`
	SubscriptionID string              `db:"subscription_id" json:"subscription_id"`
	Channel        NotificationChannel `db:"channel" json:"channel"`
	Recipient      string              `db:"recipient" json:"recipient"`
	Subject        string              `db:"subject" json:"subject,omitempty"`
	Body           string              `db:"body" json:"body"`
	Status         string              `db:"status" json:"status"`
	CreatedBy      string              `db:"created_by" json:"created_by"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
}

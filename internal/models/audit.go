package models

import "time"

// Audit actions.
const (
	AuditActionExport   = "EXPORT"
	AuditActionReminder = "REMINDER"
)

// AuditLog captures who triggered an export or reminder run.
type AuditLog struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	Action    string    `db:"action" json:"action"`
	Resource  string    `db:"resource" json:"resource"`
	Details   []byte    `db:"details" json:"details"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

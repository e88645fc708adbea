package models

import "time"

// ReportKind selects which payment view is exported.
type ReportKind string

const (
	ReportOverdue  ReportKind = "overdue"
	ReportRenewals ReportKind = "renewals"
	ReportBalances ReportKind = "balances"
)

// ExportFormat is the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult describes a stored export and its signed download link.
type ExportResult struct {
	ID          string       `json:"id"`
	SchoolID    string       `json:"school_id"`
	Report      ReportKind   `json:"report"`
	Format      ExportFormat `json:"format"`
	FileName    string       `json:"file_name"`
	Rows        int          `json:"rows"`
	DownloadURL string       `json:"download_url"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

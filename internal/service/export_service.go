package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-payments-api/internal/dto"
	"github.com/noah-isme/tutoring-payments-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-payments-api/pkg/errors"
	"github.com/noah-isme/tutoring-payments-api/pkg/export"
	"github.com/noah-isme/tutoring-payments-api/pkg/storage"
)

// ErrExportExpired is returned for well-signed download links past their expiry.
var ErrExportExpired = appErrors.New("EXPORT_EXPIRED", http.StatusGone, "download link expired")

type overdueReporter interface {
	Report(ctx context.Context, schoolID string) (*models.OverdueReport, bool, error)
}

type renewalReporter interface {
	Report(ctx context.Context, schoolID string) (*models.RenewalReport, bool, error)
}

type balanceReporter interface {
	Report(ctx context.Context, schoolID string) (*models.BalanceReport, bool, error)
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration, now time.Time) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Overdue   overdueReporter
	Renewals  renewalReporter
	Balances  balanceReporter
	Storage   fileStorage
	Signer    *storage.SignedURLSigner
	Renderers []export.Renderer
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    ExportConfig
}

// ExportService renders payment reports to files and hands out signed download links.
type ExportService struct {
	overdue   overdueReporter
	renewals  renewalReporter
	balances  balanceReporter
	storage   fileStorage
	signer    *storage.SignedURLSigner
	renderers map[models.ExportFormat]export.Renderer
	validate  *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cfg       ExportConfig
}

// Download is an opened export ready to stream.
type Download struct {
	File        *os.File
	FileName    string
	ContentType string
}

// NewExportService constructs an ExportService. Without explicit renderers CSV
// and PDF are available.
func NewExportService(params ExportServiceParams) *ExportService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = NewValidator()
	}
	renderers := params.Renderers
	if len(renderers) == 0 {
		renderers = []export.Renderer{export.NewCSVExporter(), export.NewPDFExporter("Tutoring payments")}
	}
	byFormat := make(map[models.ExportFormat]export.Renderer, len(renderers))
	for _, r := range renderers {
		byFormat[models.ExportFormat(r.Extension())] = r
	}
	cfg := params.Config
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportService{
		overdue:   params.Overdue,
		renewals:  params.Renewals,
		balances:  params.Balances,
		storage:   params.Storage,
		signer:    params.Signer,
		renderers: byFormat,
		validate:  validate,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// Create builds the requested report for schoolID, stores the rendered file and
// returns a signed download link.
func (s *ExportService) Create(ctx context.Context, schoolID string, req dto.ExportRequest) (*models.ExportResult, error) {
	if schoolID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schoolId is required")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	renderer, ok := s.renderers[req.Format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("format %s is not available", req.Format))
	}

	dataset, err := s.buildDataset(ctx, schoolID, req.Report)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	id := uuid.NewString()
	now := s.now().UTC()
	name := fmt.Sprintf("%s/%s_%s_%s.%s", sanitizeSegment(schoolID), req.Report, now.Format("20060102_150405"), id[:8], renderer.Extension())
	relPath, err := s.storage.Save(name, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}

	s.logger.Info("export created",
		zap.String("export_id", id),
		zap.String("school_id", schoolID),
		zap.String("report", string(req.Report)),
		zap.String("format", string(req.Format)),
		zap.Int("rows", len(dataset.Rows)),
	)

	return &models.ExportResult{
		ID:          id,
		SchoolID:    schoolID,
		Report:      req.Report,
		Format:      req.Format,
		FileName:    fileNameOf(relPath),
		Rows:        len(dataset.Rows),
		DownloadURL: fmt.Sprintf("%s/exports/download?token=%s", strings.TrimRight(s.cfg.APIPrefix, "/"), url.QueryEscape(token)),
		ExpiresAt:   expiresAt,
	}, nil
}

// Open verifies a download token and opens the referenced file.
func (s *ExportService) Open(token string) (*Download, error) {
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "token is required")
	}
	signed, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, ErrExportExpired
		}
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}
	file, err := s.storage.Open(signed.Path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export not found")
	}
	contentType := "application/octet-stream"
	if idx := strings.LastIndex(signed.Path, "."); idx >= 0 {
		if r, ok := s.renderers[models.ExportFormat(signed.Path[idx+1:])]; ok {
			contentType = r.ContentType()
		}
	}
	return &Download{File: file, FileName: fileNameOf(signed.Path), ContentType: contentType}, nil
}

// Cleanup deletes exports older than the signed link lifetime.
func (s *ExportService) Cleanup() ([]string, error) {
	return s.storage.CleanupOlderThan(s.signer.TTL(), s.now())
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *ExportService) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.Cleanup()
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
			}
		}
	}
}

func (s *ExportService) buildDataset(ctx context.Context, schoolID string, kind models.ReportKind) (export.Dataset, error) {
	switch kind {
	case models.ReportOverdue:
		report, _, err := s.overdue.Report(ctx, schoolID)
		if err != nil {
			return export.Dataset{}, err
		}
		return OverdueDataset(report), nil
	case models.ReportRenewals:
		report, _, err := s.renewals.Report(ctx, schoolID)
		if err != nil {
			return export.Dataset{}, err
		}
		return RenewalDataset(report), nil
	case models.ReportBalances:
		report, _, err := s.balances.Report(ctx, schoolID)
		if err != nil {
			return export.Dataset{}, err
		}
		return BalanceDataset(report), nil
	default:
		return export.Dataset{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report %s", kind))
	}
}

// OverdueDataset flattens an overdue report into export rows.
func OverdueDataset(report *models.OverdueReport) export.Dataset {
	data := export.Dataset{
		Title: "Overdue payments - " + report.SchoolID,
		Columns: []export.Column{
			{Key: "priority", Label: "Priority", Width: 18},
			{Key: "student", Label: "Student"},
			{Key: "phone", Label: "Phone", Width: 30},
			{Key: "course", Label: "Course"},
			{Key: "price", Label: "Price", Width: -22},
			{Key: "paid", Label: "Paid", Width: -22},
			{Key: "owed", Label: "Owed", Width: -22},
			{Key: "percent", Label: "% paid", Width: -16},
			{Key: "days", Label: "Days", Width: -14},
		},
	}
	for _, item := range report.Items {
		data.Rows = append(data.Rows, export.Row{
			"priority": string(item.Priority),
			"student":  item.Name,
			"phone":    item.Phone,
			"course":   item.CourseName,
			"price":    formatAmount(item.TotalPrice, item.Currency),
			"paid":     formatAmount(item.TotalPaid, item.Currency),
			"owed":     formatAmount(item.AmountOwed, item.Currency),
			"percent":  strconv.FormatFloat(item.PaymentPercentage, 'f', 2, 64),
			"days":     strconv.Itoa(item.DaysSinceStart),
		})
	}
	return data
}

// RenewalDataset flattens a renewal report into export rows.
func RenewalDataset(report *models.RenewalReport) export.Dataset {
	data := export.Dataset{
		Title: "Subscription renewals - " + report.SchoolID,
		Columns: []export.Column{
			{Key: "status", Label: "Status", Width: 20},
			{Key: "student", Label: "Student"},
			{Key: "phone", Label: "Phone", Width: 30},
			{Key: "course", Label: "Course"},
			{Key: "end", Label: "Ends", Width: 24},
			{Key: "source", Label: "Source", Width: 24},
			{Key: "days", Label: "Days left", Width: -18},
			{Key: "sessions", Label: "Sessions", Width: -20},
		},
	}
	for _, item := range report.Items {
		data.Rows = append(data.Rows, export.Row{
			"status":   string(item.Status),
			"student":  item.Name,
			"phone":    item.Phone,
			"course":   item.CourseName,
			"end":      item.ActualEndDate.Format("2006-01-02"),
			"source":   item.EndDateSource,
			"days":     strconv.Itoa(item.DaysUntilExpiry),
			"sessions": fmt.Sprintf("%d/%d", item.SessionsCompleted, item.SessionCount),
		})
	}
	return data
}

// BalanceDataset flattens account balances into export rows.
func BalanceDataset(report *models.BalanceReport) export.Dataset {
	data := export.Dataset{
		Title: "Account balances - " + report.SchoolID,
		Columns: []export.Column{
			{Key: "account", Label: "Account"},
			{Key: "currency", Label: "Currency", Width: 20},
			{Key: "balance", Label: "Balance", Width: -35},
			{Key: "applied", Label: "Transactions", Width: -25},
			{Key: "note", Label: "Note"},
		},
	}
	for _, account := range report.Accounts {
		data.Rows = append(data.Rows, export.Row{
			"account":  account.Name,
			"currency": account.Currency,
			"balance":  strconv.FormatFloat(account.Balance, 'f', 2, 64),
			"applied":  strconv.Itoa(account.TransactionsApplied),
			"note":     account.FallbackReason,
		})
	}
	return data
}

func formatAmount(v float64, currency string) string {
	amount := strconv.FormatFloat(v, 'f', 2, 64)
	if currency == "" {
		return amount
	}
	return amount + " " + currency
}

func fileNameOf(relPath string) string {
	if idx := strings.LastIndex(relPath, "/"); idx >= 0 {
		return relPath[idx+1:]
	}
	return relPath
}

func sanitizeSegment(raw string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", "..", "-", " ", "_", ":", "-")
	result := replacer.Replace(raw)
	if len(result) > 64 {
		return result[:64]
	}
	return result
}

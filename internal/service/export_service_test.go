package service

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-payments-api/internal/dto"
	"github.com/noah-isme/tutoring-payments-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-payments-api/pkg/errors"
	"github.com/noah-isme/tutoring-payments-api/pkg/storage"
)

type stubOverdue struct {
	report *models.OverdueReport
	err    error
}

func (s stubOverdue) Report(context.Context, string) (*models.OverdueReport, bool, error) {
	return s.report, false, s.err
}

type stubRenewals struct{ report *models.RenewalReport }

func (s stubRenewals) Report(context.Context, string) (*models.RenewalReport, bool, error) {
	return s.report, false, nil
}

type stubBalances struct{ report *models.BalanceReport }

func (s stubBalances) Report(context.Context, string) (*models.BalanceReport, bool, error) {
	return s.report, false, nil
}

func sampleOverdueReport() *models.OverdueReport {
	return &models.OverdueReport{
		SchoolID: "school-1",
		Items: []models.OverduePayment{{
			StudentContact: models.StudentContact{StudentID: "S1", Name: "Ana Lee", Phone: "+100"},
			SubscriptionID: "sub-1",
			Currency:       "USD",
			TotalPrice:     500,
			AmountOwed:     500,
			Priority:       models.PriorityUrgent,
		}},
	}
}

func newExportService(t *testing.T, overdue overdueReporter) (*ExportService, *storage.SignedURLSigner) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportService(ExportServiceParams{
		Overdue:  overdue,
		Renewals: stubRenewals{report: &models.RenewalReport{SchoolID: "school-1"}},
		Balances: stubBalances{report: &models.BalanceReport{SchoolID: "school-1", Accounts: []models.AccountBalance{{Name: "Cash", Currency: "USD", Balance: 12.5}}}},
		Storage:  store,
		Signer:   signer,
		Config:   ExportConfig{APIPrefix: "/api/v1/"},
	})
	return svc, signer
}

func tokenFrom(t *testing.T, downloadURL string) string {
	t.Helper()
	parsed, err := url.Parse(downloadURL)
	require.NoError(t, err)
	return parsed.Query().Get("token")
}

func TestExportServiceCreateAndOpenCSV(t *testing.T) {
	svc, _ := newExportService(t, stubOverdue{report: sampleOverdueReport()})

	result, err := svc.Create(context.Background(), "school-1", dto.ExportRequest{Report: models.ReportOverdue, Format: models.ExportFormatCSV})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	assert.True(t, strings.HasPrefix(result.DownloadURL, "/api/v1/exports/download?token="))
	assert.True(t, strings.HasSuffix(result.FileName, ".csv"))

	download, err := svc.Open(tokenFrom(t, result.DownloadURL))
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "text/csv", download.ContentType)
	content, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(content), "urgent,Ana Lee,+100,,500.00 USD")
}

func TestExportServiceCreatePDFBalances(t *testing.T) {
	svc, _ := newExportService(t, stubOverdue{report: sampleOverdueReport()})

	result, err := svc.Create(context.Background(), "school-1", dto.ExportRequest{Report: models.ReportBalances, Format: models.ExportFormatPDF})
	require.NoError(t, err)
	download, err := svc.Open(tokenFrom(t, result.DownloadURL))
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "application/pdf", download.ContentType)
}

func TestExportServiceValidation(t *testing.T) {
	svc, _ := newExportService(t, stubOverdue{report: sampleOverdueReport()})

	_, err := svc.Create(context.Background(), "school-1", dto.ExportRequest{Report: "grades", Format: models.ExportFormatCSV})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = svc.Create(context.Background(), "school-1", dto.ExportRequest{Report: models.ReportOverdue, Format: "xlsx"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = svc.Create(context.Background(), "", dto.ExportRequest{Report: models.ReportOverdue, Format: models.ExportFormatCSV})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestExportServicePropagatesReportErrors(t *testing.T) {
	boom := appErrors.Wrap(errors.New("down"), appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to list students")
	svc, _ := newExportService(t, stubOverdue{err: boom})

	_, err := svc.Create(context.Background(), "school-1", dto.ExportRequest{Report: models.ReportOverdue, Format: models.ExportFormatCSV})
	assert.ErrorIs(t, err, appErrors.ErrUpstream)
}

func TestExportServiceOpenRejectsBadTokens(t *testing.T) {
	svc, signer := newExportService(t, stubOverdue{report: sampleOverdueReport()})

	_, err := svc.Open("")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = svc.Open("garbage")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	token, _, err := signer.Generate("missing", "school-1/none.csv")
	require.NoError(t, err)
	_, err = svc.Open(token)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestExportServiceOpenExpiredLink(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Nanosecond)
	svc := NewExportService(ExportServiceParams{Overdue: stubOverdue{report: sampleOverdueReport()}, Storage: store, Signer: signer})

	result, err := svc.Create(context.Background(), "school-1", dto.ExportRequest{Report: models.ReportOverdue, Format: models.ExportFormatCSV})
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = svc.Open(tokenFrom(t, result.DownloadURL))
	assert.ErrorIs(t, err, ErrExportExpired)
}

func TestExportServiceCleanupRemovesOldFiles(t *testing.T) {
	svc, _ := newExportService(t, stubOverdue{report: sampleOverdueReport()})
	_, err := svc.Create(context.Background(), "school-1", dto.ExportRequest{Report: models.ReportOverdue, Format: models.ExportFormatCSV})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	deleted, err := svc.Cleanup()
	require.NoError(t, err)
	assert.Len(t, deleted, 1)
}

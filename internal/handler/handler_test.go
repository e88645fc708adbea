package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-payments-api/internal/dto"
	"github.com/noah-isme/tutoring-payments-api/internal/middleware"
	"github.com/noah-isme/tutoring-payments-api/internal/models"
	"github.com/noah-isme/tutoring-payments-api/internal/service"
	appErrors "github.com/noah-isme/tutoring-payments-api/pkg/errors"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func newContext(method, target string, body []byte, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	return c, rec
}

var schoolOne = gin.Param{Key: "schoolId", Value: "school-1"}

type fakeOverdue struct {
	report *models.OverdueReport
	hit    bool
	err    error
}

func (f fakeOverdue) Report(context.Context, string) (*models.OverdueReport, bool, error) {
	return f.report, f.hit, f.err
}

type fakeRenewals struct {
	report *models.RenewalReport
	err    error
}

func (f fakeRenewals) Report(context.Context, string) (*models.RenewalReport, bool, error) {
	return f.report, false, f.err
}

type fakeBalances struct {
	report *models.BalanceReport
	err    error
}

func (f fakeBalances) Report(context.Context, string) (*models.BalanceReport, bool, error) {
	return f.report, true, f.err
}

func overdueFixture() *models.OverdueReport {
	return &models.OverdueReport{
		SchoolID: "school-1",
		Items: []models.OverduePayment{
			{StudentContact: models.StudentContact{StudentID: "S1"}, SubscriptionID: "a", Priority: models.PriorityUrgent},
			{StudentContact: models.StudentContact{StudentID: "S2"}, SubscriptionID: "b", Priority: models.PriorityHigh},
			{StudentContact: models.StudentContact{StudentID: "S3"}, SubscriptionID: "c", Priority: models.PriorityNormal},
		},
		Skipped: []models.SkippedRecord{{StudentID: "S4", Stage: models.SkipStagePayments, Reason: "timeout"}},
	}
}

func TestPaymentsHandlerOverdueFiltersByPriority(t *testing.T) {
	report := overdueFixture()
	h := NewPaymentsHandler(fakeOverdue{report: report, hit: true}, nil, nil)

	c, rec := newContext(http.MethodGet, "/schools/school-1/overdue-payments?priority=urgent,HIGH", nil, schoolOne)
	h.Overdue(c)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	items := env.Data["items"].([]interface{})
	assert.Len(t, items, 2)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Equal(t, float64(1), env.Meta["skipped_records"])
	assert.Len(t, report.Items, 3, "cached report must stay untouched")
}

func TestPaymentsHandlerOverdueRejectsUnknownPriority(t *testing.T) {
	h := NewPaymentsHandler(fakeOverdue{report: overdueFixture()}, nil, nil)

	c, rec := newContext(http.MethodGet, "/schools/school-1/overdue-payments?priority=critical", nil, schoolOne)
	h.Overdue(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, rec).Error.Code)
}

func TestPaymentsHandlerPropagatesUpstreamErrors(t *testing.T) {
	h := NewPaymentsHandler(
		fakeOverdue{err: appErrors.Clone(appErrors.ErrUpstream, "failed to list students")},
		fakeRenewals{err: errors.New("boom")},
		nil,
	)

	c, rec := newContext(http.MethodGet, "/", nil, schoolOne)
	h.Overdue(c)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	c, rec = newContext(http.MethodGet, "/", nil, schoolOne)
	h.Renewals(c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	c, rec = newContext(http.MethodGet, "/", nil, schoolOne)
	h.Balances(c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPaymentsHandlerRenewalsAndBalances(t *testing.T) {
	h := NewPaymentsHandler(nil,
		fakeRenewals{report: &models.RenewalReport{SchoolID: "school-1", Items: []models.SubscriptionRenewal{{SubscriptionID: "s1", Status: models.RenewalExpired}}}},
		fakeBalances{report: &models.BalanceReport{SchoolID: "school-1", Accounts: []models.AccountBalance{{AccountID: "cash", Balance: 12.5}}}},
	)

	c, rec := newContext(http.MethodGet, "/", nil, schoolOne)
	h.Renewals(c)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Len(t, env.Data["items"], 1)
	assert.Equal(t, false, env.Meta["cache_hit"])

	c, rec = newContext(http.MethodGet, "/", nil, schoolOne)
	h.Balances(c)
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	accounts := env.Data["accounts"].([]interface{})
	assert.Equal(t, 12.5, accounts[0].(map[string]interface{})["balance"])

	c, rec = newContext(http.MethodGet, "/", nil)
	h.Balances(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeExports struct {
	lastReq  dto.ExportRequest
	result   *models.ExportResult
	download *service.Download
	err      error
}

func (f *fakeExports) Create(_ context.Context, _ string, req dto.ExportRequest) (*models.ExportResult, error) {
	f.lastReq = req
	return f.result, f.err
}

func (f *fakeExports) Open(string) (*service.Download, error) {
	return f.download, f.err
}

func TestExportHandlerCreate(t *testing.T) {
	svc := &fakeExports{result: &models.ExportResult{ID: "exp-1", DownloadURL: "/api/v1/exports/download?token=abc"}}
	h := NewExportHandler(svc)

	c, rec := newContext(http.MethodPost, "/", []byte(`{"report":"overdue","format":"pdf"}`), schoolOne)
	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.ReportOverdue, svc.lastReq.Report)
	assert.Equal(t, models.ExportFormatPDF, svc.lastReq.Format)
	assert.Equal(t, "exp-1", decodeEnvelope(t, rec).Data["id"])

	c, rec = newContext(http.MethodPost, "/", []byte(`{`), schoolOne)
	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportHandlerDownloadStreamsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overdue.csv")
	require.NoError(t, os.WriteFile(path, []byte("student_id\nS1\n"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	h := NewExportHandler(&fakeExports{download: &service.Download{File: file, FileName: "overdue.csv", ContentType: "text/csv"}})
	c, rec := newContext(http.MethodGet, "/exports/download?token=abc", nil)
	h.Download(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="overdue.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "student_id\nS1\n", rec.Body.String())
}

func TestExportHandlerDownloadErrors(t *testing.T) {
	h := NewExportHandler(&fakeExports{err: service.ErrExportExpired})
	c, rec := newContext(http.MethodGet, "/exports/download?token=old", nil)
	h.Download(c)
	assert.Equal(t, http.StatusGone, rec.Code)
}

type fakeReminders struct {
	session models.Session
	req     dto.ReminderRequest
	err     error
}

func (f *fakeReminders) Send(_ context.Context, session models.Session, _ string, req dto.ReminderRequest) (*dto.ReminderResponse, error) {
	f.session, f.req = session, req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ReminderResponse{RunID: "run-1", Queued: 2}, nil
}

func TestReminderHandlerSend(t *testing.T) {
	svc := &fakeReminders{}
	h := NewReminderHandler(svc)

	c, rec := newContext(http.MethodPost, "/", []byte(`{"channel":"sms","priorities":["urgent"]}`), schoolOne)
	h.Send(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newContext(http.MethodPost, "/", []byte(`{"channel":"sms","priorities":["urgent"]}`), schoolOne)
	c.Set(middleware.ContextSessionKey, models.Session{UserID: "u1", SchoolID: "school-1", Role: models.RoleAdmin})
	h.Send(c)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "u1", svc.session.UserID)
	assert.Equal(t, []models.Priority{models.PriorityUrgent}, svc.req.Priorities)
	assert.Equal(t, float64(2), decodeEnvelope(t, rec).Data["queued"])
}

func TestReminderHandlerMapsServiceErrors(t *testing.T) {
	h := NewReminderHandler(&fakeReminders{err: appErrors.Clone(appErrors.ErrUnavailable, "reminders are disabled")})
	c, rec := newContext(http.MethodPost, "/", []byte(`{"channel":"sms"}`), schoolOne)
	c.Set(middleware.ContextSessionKey, models.Session{UserID: "u1", SchoolID: "school-1"})
	h.Send(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	c, rec := newContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, "ok", body.Checks["postgres"])
	assert.Equal(t, "connection refused", body.Checks["redis"])

	c, rec = newContext(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsHandlerSummaryAndPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.ObserveReport(models.ReportOverdue, 0)
	h := NewMetricsHandler(metrics, nil)

	c, rec := newContext(http.MethodGet, "/metrics/summary", nil)
	h.Summary(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "payment_report_duration_seconds")

	c, rec = newContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}

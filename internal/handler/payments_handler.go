package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
	"github.com/noah-isme/tutoring-payments-api/internal/service"
	appErrors "github.com/noah-isme/tutoring-payments-api/pkg/errors"
	"github.com/noah-isme/tutoring-payments-api/pkg/response"
)

type overdueService interface {
	Report(ctx context.Context, schoolID string) (*models.OverdueReport, bool, error)
}

type renewalService interface {
	Report(ctx context.Context, schoolID string) (*models.RenewalReport, bool, error)
}

type balanceService interface {
	Report(ctx context.Context, schoolID string) (*models.BalanceReport, bool, error)
}

// PaymentsHandler serves the read-only payment views of a school.
type PaymentsHandler struct {
	overdue  overdueService
	renewals renewalService
	balances balanceService
}

// NewPaymentsHandler constructs the handler.
func NewPaymentsHandler(overdue overdueService, renewals renewalService, balances balanceService) *PaymentsHandler {
	return &PaymentsHandler{overdue: overdue, renewals: renewals, balances: balances}
}

// Overdue godoc
// @Summary Overdue payments of a school
// @Tags Payments
// @Produce json
// @Param schoolId path string true "School ID"
// @Param priority query string false "Comma separated priorities (urgent,high,normal)"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/overdue-payments [get]
func (h *PaymentsHandler) Overdue(c *gin.Context) {
	if h.overdue == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, err := schoolParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	priorities, err := parsePriorities(c.Query("priority"))
	if err != nil {
		response.Error(c, err)
		return
	}

	start := time.Now()
	report, cacheHit, err := h.overdue.Report(c.Request.Context(), schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(priorities) > 0 {
		filtered := *report
		filtered.Items = service.FilterByPriority(report.Items, priorities)
		report = &filtered
	}
	response.JSON(c, http.StatusOK, report, reportMeta(c, cacheHit, start, len(report.Skipped)))
}

// Renewals godoc
// @Summary Subscriptions that expired or expire soon
// @Tags Payments
// @Produce json
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/subscription-renewals [get]
func (h *PaymentsHandler) Renewals(c *gin.Context) {
	if h.renewals == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, err := schoolParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	report, cacheHit, err := h.renewals.Report(c.Request.Context(), schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, reportMeta(c, cacheHit, start, len(report.Skipped)))
}

// Balances godoc
// @Summary Account balances replayed from transactions
// @Tags Payments
// @Produce json
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/account-balances [get]
func (h *PaymentsHandler) Balances(c *gin.Context) {
	if h.balances == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, err := schoolParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	report, cacheHit, err := h.balances.Report(c.Request.Context(), schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, reportMeta(c, cacheHit, start, len(report.Warnings)))
}

func parsePriorities(raw string) ([]models.Priority, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []models.Priority
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		p, ok := models.ParsePriority(part)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown priority "+part)
		}
		out = append(out, p)
	}
	return out, nil
}

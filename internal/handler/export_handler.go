package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-payments-api/internal/dto"
	"github.com/noah-isme/tutoring-payments-api/internal/models"
	"github.com/noah-isme/tutoring-payments-api/internal/service"
	appErrors "github.com/noah-isme/tutoring-payments-api/pkg/errors"
	"github.com/noah-isme/tutoring-payments-api/pkg/response"
)

type exportService interface {
	Create(ctx context.Context, schoolID string, req dto.ExportRequest) (*models.ExportResult, error)
	Open(token string) (*service.Download, error)
}

// ExportHandler creates report exports and serves signed downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Create godoc
// @Summary Export a payment report
// @Tags Exports
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body dto.ExportRequest true "Export request"
// @Success 201 {object} response.Envelope
// @Router /schools/{schoolId}/exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	schoolID, err := schoolParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), schoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an export through its signed token
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	download, err := h.service.Open(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	c.Header("Content-Type", download.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.FileName))
	c.Header("Cache-Control", "no-store")
	if info, err := download.File.Stat(); err == nil {
		c.Header("Content-Length", fmt.Sprintf("%d", info.Size()))
	}
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, download.File)
}

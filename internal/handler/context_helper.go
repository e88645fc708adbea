package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-payments-api/internal/middleware"
	"github.com/noah-isme/tutoring-payments-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-payments-api/pkg/errors"
)

func schoolParam(c *gin.Context) (string, error) {
	schoolID := strings.TrimSpace(c.Param("schoolId"))
	if schoolID == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "schoolId is required")
	}
	return schoolID, nil
}

func sessionFromContext(c *gin.Context) (models.Session, error) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		return models.Session{}, appErrors.ErrUnauthorized
	}
	return session, nil
}

// reportMeta collects cache and timing metadata for report responses.
func reportMeta(c *gin.Context, cacheHit bool, start time.Time, skipped int) map[string]interface{} {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	meta["skipped_records"] = skipped
	return meta
}

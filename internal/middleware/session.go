package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
	"github.com/noah-isme/tutoring-payments-api/internal/service"
	appErrors "github.com/noah-isme/tutoring-payments-api/pkg/errors"
	"github.com/noah-isme/tutoring-payments-api/pkg/logger"
	"github.com/noah-isme/tutoring-payments-api/pkg/response"
)

// ContextSessionKey is the gin context key storing the caller's session.
const ContextSessionKey = "session"

// Session protects routes by requiring a valid bearer token and stores the
// resulting session on the context.
func Session(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		session, err := sessions.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, *session)
		logger.AddFields(c, zap.String("user_id", session.UserID), zap.String("role", string(session.Role)))
		c.Next()
	}
}

// CurrentSession returns the session stored by Session.
func CurrentSession(c *gin.Context) (models.Session, bool) {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return models.Session{}, false
	}
	session, ok := value.(models.Session)
	return session, ok
}

// SchoolScope rejects requests whose :schoolId is outside the session's school.
func SchoolScope(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := CurrentSession(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		schoolID := strings.TrimSpace(c.Param(param))
		if schoolID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, param+" is required"))
			c.Abort()
			return
		}
		if !session.CanAccessSchool(schoolID) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "school is outside your session"))
			c.Abort()
			return
		}
		logger.AddFields(c, zap.String("school_id", schoolID))
		c.Next()
	}
}

package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-payments-api/pkg/errors"
)

// SessionConfig holds the shared secret of the auth platform.
type SessionConfig struct {
	Secret string
	Issuer string
}

// SessionService turns bearer tokens into sessions.
type SessionService struct {
	cfg SessionConfig
	now func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(cfg SessionConfig) *SessionService {
	return &SessionService{cfg: cfg, now: time.Now}
}

// ValidateToken verifies an HS256 token and returns the session it carries.
func (s *SessionService) ValidateToken(tokenString string) (*models.Session, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token is missing subject or role")
	}
	if claims.Role != models.RoleSuperAdmin && claims.SchoolID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token is not bound to a school")
	}

	return &models.Session{
		UserID:   claims.Subject,
		SchoolID: claims.SchoolID,
		Role:     claims.Role,
		Email:    claims.Email,
	}, nil
}

// IssueToken signs a token for session. Used by tooling and tests; production
// tokens come from the auth platform.
func (s *SessionService) IssueToken(session models.Session, ttl time.Duration) (string, error) {
	issuedAt := s.now().UTC()
	claims := models.SessionClaims{
		SchoolID: session.SchoolID,
		Role:     session.Role,
		Email:    session.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

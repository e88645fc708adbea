package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-payments-api/pkg/errors"
)

func TestSessionServiceRoundTrip(t *testing.T) {
	svc := NewSessionService(SessionConfig{Secret: "secret", Issuer: "tutoring-auth"})
	token, err := svc.IssueToken(models.Session{UserID: "u1", SchoolID: "school-1", Role: models.RoleAdmin, Email: "a@b.c"}, time.Hour)
	require.NoError(t, err)

	session, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.Session{UserID: "u1", SchoolID: "school-1", Role: models.RoleAdmin, Email: "a@b.c"}, *session)
}

func TestSessionServiceRejectsInvalidTokens(t *testing.T) {
	svc := NewSessionService(SessionConfig{Secret: "secret", Issuer: "tutoring-auth"})

	expired, err := svc.IssueToken(models.Session{UserID: "u1", SchoolID: "school-1", Role: models.RoleAdmin}, -time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	other := NewSessionService(SessionConfig{Secret: "other", Issuer: "tutoring-auth"})
	forged, err := other.IssueToken(models.Session{UserID: "u1", SchoolID: "school-1", Role: models.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(forged)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	wrongIssuer := NewSessionService(SessionConfig{Secret: "secret", Issuer: "someone-else"})
	token, err := wrongIssuer.IssueToken(models.Session{UserID: "u1", SchoolID: "school-1", Role: models.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	unbound, err := svc.IssueToken(models.Session{UserID: "u1", Role: models.RoleTeacher}, time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unbound)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, models.SessionClaims{Role: models.RoleAdmin, SchoolID: "school-1"})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(raw)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestSessionServiceAllowsSuperAdminWithoutSchool(t *testing.T) {
	svc := NewSessionService(SessionConfig{Secret: "secret"})
	token, err := svc.IssueToken(models.Session{UserID: "root", Role: models.RoleSuperAdmin}, time.Hour)
	require.NoError(t, err)
	session, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, session.CanAccessSchool("any-school"))
}

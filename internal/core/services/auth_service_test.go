package services_test

import (
	"testing"
	"time"

	"manualcall/internal/core/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthServiceRoundTrip(t *testing.T) {
	auth := services.NewAuthService("secret", time.Hour)

	token, err := auth.GenerateToken("desk-1", services.ScopeOperator)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "desk-1", claims.Subject)
	assert.Equal(t, services.ScopeOperator, claims.Scope)
}

func TestAuthServiceRejectsForeignTokens(t *testing.T) {
	auth := services.NewAuthService("secret", time.Hour)
	other := services.NewAuthService("other-secret", time.Hour)

	token, err := other.GenerateToken("desk-1", services.ScopeViewer)
	require.NoError(t, err)

	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	_, err = auth.ValidateToken("garbage")
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"scope": "operator", "iss": "manualcall"})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.ValidateToken(raw)
	assert.ErrorIs(t, err, services.ErrInvalidToken)
}

func TestAuthServiceExpiredToken(t *testing.T) {
	auth := services.NewAuthService("secret", -time.Minute)

	token, err := auth.GenerateToken("desk-1", services.ScopeOperator)
	require.NoError(t, err)

	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, services.ErrExpiredToken)
}

func TestAuthServiceAuthorize(t *testing.T) {
	auth := services.NewAuthService("secret", time.Hour)

	viewer := &services.Claims{Scope: services.ScopeViewer}
	operator := &services.Claims{Scope: services.ScopeOperator}

	assert.NoError(t, auth.Authorize(viewer, services.ScopeViewer))
	assert.ErrorIs(t, auth.Authorize(viewer, services.ScopeOperator), services.ErrUnauthorized)
	assert.NoError(t, auth.Authorize(operator, services.ScopeViewer))
	assert.NoError(t, auth.Authorize(operator, services.ScopeOperator))
	assert.ErrorIs(t, auth.Authorize(nil, services.ScopeViewer), services.ErrUnauthorized)
	assert.ErrorIs(t, auth.Authorize(&services.Claims{Scope: "admin"}, services.ScopeViewer), services.ErrUnauthorized)

	_, err := auth.GenerateToken("desk-1", "admin")
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}

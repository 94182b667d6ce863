package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"manualcall/internal/core/services"
	"manualcall/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIssueToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := services.NewAuthService("secret", time.Hour)

	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware(zap.NewNop().Sugar()))
	NewAuthHandler(auth, "k3y").SetupRoutes(router)

	post := func(key, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set(APIKeyHeader, key)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, post("", `{"subject":"desk"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post("wrong", `{"subject":"desk"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post("k3y", `{"subject":"has space"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post("k3y", `{"subject":"desk","scope":"root"}`).Code)

	w := post("k3y", `{"subject":"desk","scope":"operator"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "operator", body.Scope)

	claims, err := auth.ValidateToken(body.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "desk", claims.Subject)
	assert.Equal(t, services.ScopeOperator, claims.Scope)

	w = post("k3y", `{"subject":"viewer-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"scope":"viewer"`)
}

func TestIssueTokenDisabledWithoutKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware(zap.NewNop().Sugar()))
	NewAuthHandler(services.NewAuthService("secret", time.Hour), "").SetupRoutes(router)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", bytes.NewBufferString(`{"subject":"desk"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

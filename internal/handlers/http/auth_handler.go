package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"manualcall/internal/core/services"
	"manualcall/pkg/errors"
	"manualcall/pkg/validation"

	"github.com/gin-gonic/gin"
)

const APIKeyHeader = "X-API-Key"

// AuthHandler trades the configured API key for a scoped bearer token.
type AuthHandler struct {
	authService services.AuthService
	apiKey      string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService services.AuthService, apiKey string) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		apiKey:      apiKey,
	}
}

func (h *AuthHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/auth")
	{
		api.POST("/token", h.IssueToken)
	}
}

type TokenRequest struct {
	Subject string `json:"subject"`
	Scope   string `json:"scope"`
}

// IssueToken exchanges the API key for a bearer token
func (h *AuthHandler) IssueToken(c *gin.Context) {
	key := c.GetHeader(APIKeyHeader)
	if h.apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) != 1 {
		_ = c.Error(errors.NewUnauthorizedError("invalid api key"))
		return
	}

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	req.Subject = strings.TrimSpace(req.Subject)
	if err := validation.ValidateSubject(req.Subject); err != nil {
		_ = c.Error(errors.NewInvalidInputError(err.Error()).WithContext("field", "subject"))
		return
	}
	scope := services.Scope(req.Scope)
	if scope == "" {
		scope = services.ScopeViewer
	}

	token, err := h.authService.GenerateToken(req.Subject, scope)
	if err != nil {
		_ = c.Error(errors.WrapError(err, errors.ErrCodeInvalidInput, "unknown scope", http.StatusBadRequest).WithContext("field", "scope"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"scope":        scope,
	})
}

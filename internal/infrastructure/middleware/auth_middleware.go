package middleware

import (
	"net/http"
	"strings"

	"manualcall/internal/core/services"
	"manualcall/pkg/errors"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// AuthMiddleware requires a valid bearer token and stores its claims on the
// gin context.
func AuthMiddleware(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, errors.NewUnauthorizedError("authorization header required"))
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || token == "" {
			abortWithError(c, errors.NewUnauthorizedError("invalid authorization header format"))
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			abortWithError(c, errors.WrapError(err, errors.ErrCodeUnauthorized, err.Error(), http.StatusUnauthorized))
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireScope rejects requests whose token scope is below required. It must
// run after AuthMiddleware.
func RequireScope(authService services.AuthService, required services.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			abortWithError(c, errors.NewUnauthorizedError("authentication required"))
			return
		}
		if err := authService.Authorize(claims, required); err != nil {
			abortWithError(c, errors.NewForbiddenError("insufficient scope"))
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the token claims stored by AuthMiddleware
func ClaimsFrom(c *gin.Context) (*services.Claims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*services.Claims)
	return claims, ok
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-escalation-api/internal/middleware"
	"github.com/noah-isme/sma-escalation-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// studentScope pins student callers to their own id; staff act on requested.
func studentScope(c *gin.Context, requested string) string {
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent {
		return claims.UserID
	}
	return requested
}

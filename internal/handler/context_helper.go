package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-planner-api/internal/middleware"
	"github.com/noah-isme/study-planner-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}

package http

import (
	"net/http"

	"wavelink/internal/core/domain"
	"wavelink/internal/core/services"
	"wavelink/pkg/validation"

	"github.com/gin-gonic/gin"
)

// AuthHandler mints identity tokens. In production the authentication
// collaborator issues tokens with the shared secret; this endpoint exists for
// development setups where no such collaborator runs.
type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) SetupRoutes(router gin.IRouter) {
	router.POST("/api/v1/auth/token", h.IssueToken)
}

func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req struct {
		UserID   string `json:"userId" binding:"required"`
		FullName string `json:"fullName"`
	}

	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateUserID(req.UserID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.authService.GenerateToken(domain.UserID(req.UserID), req.FullName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openforce/backend/internal/application/services"
	"github.com/openforce/backend/pkg/auth"
	apperrors "github.com/openforce/backend/pkg/errors"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(authSvc *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: authSvc}
}

// LoginRequest is the login body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !BindJSON(c, &req) {
		return
	}
	if !auth.IsValidEmail(req.Email) {
		RespondAppError(c, apperrors.NewValidationError("email", "invalid email format"))
		return
	}

	result, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"token":      result.Token,
		"user":       result.User,
		"expires_at": result.ExpiresAt.Format(time.RFC3339),
	})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user := UserFromContext(c)
	if user == nil {
		RespondAppError(c, apperrors.NewUnauthorizedError("user not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

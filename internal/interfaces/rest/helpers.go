package rest

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/pkg/constants"
	apperrors "github.com/openforce/backend/pkg/errors"
)

// UserFromContext extracts the authenticated user placed by RequireAuth
func UserFromContext(c *gin.Context) *models.User {
	value, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return nil
	}
	return value.(*models.User)
}

// RespondAppError writes the standardized error shape for an application error
func RespondAppError(c *gin.Context, err error) {
	status := apperrors.GetHTTPStatus(err)
	if status >= 500 {
		log.Printf("ERROR [%d] %s %s: %v", status, c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, apperrors.ToResponse(err))
}

// BindJSON binds the request body, answering a validation error on failure
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		RespondAppError(c, apperrors.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openforce/backend/internal/application/services"
	"github.com/openforce/backend/internal/domain/models"
	apperrors "github.com/openforce/backend/pkg/errors"
)

type CompositeHandler struct {
	composite *services.CompositeService
}

func NewCompositeHandler(composite *services.CompositeService) *CompositeHandler {
	return &CompositeHandler{composite: composite}
}

// maxSubRequests bounds one composite call
const maxSubRequests = 25

// Execute handles POST /services/data/composite
func (h *CompositeHandler) Execute(c *gin.Context) {
	user := UserFromContext(c)
	var req models.CompositeRequest
	if !BindJSON(c, &req) {
		return
	}
	if len(req.SubRequests) == 0 {
		RespondAppError(c, apperrors.NewValidationError("compositeRequest", "at least one sub-request is required"))
		return
	}
	if len(req.SubRequests) > maxSubRequests {
		RespondAppError(c, apperrors.NewValidationError("compositeRequest", "composite requests allow at most 25 sub-requests"))
		return
	}

	results := h.composite.Execute(c.Request.Context(), user, req)
	c.JSON(http.StatusOK, gin.H{"compositeResponse": results})
}

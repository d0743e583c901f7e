package rest

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openforce/backend/internal/application/services"
	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/pkg/constants"
	apperrors "github.com/openforce/backend/pkg/errors"
)

type QueryHandler struct {
	soql *services.SOQLService
}

func NewQueryHandler(soql *services.SOQLService) *QueryHandler {
	return &QueryHandler{soql: soql}
}

// Query handles GET /services/data/query?q=...
// Batch size comes from the Sforce-Query-Options header, batchSize=N.
func (h *QueryHandler) Query(c *gin.Context) {
	user := UserFromContext(c)
	text := c.Query("q")
	if text == "" {
		RespondAppError(c, apperrors.NewValidationError("q", "query parameter 'q' is required"))
		return
	}

	opts := models.QueryOptions{BatchSize: batchSizeOption(c)}
	result, err := h.soql.RunQuery(c.Request.Context(), user, text, opts)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// QueryMore handles GET /services/data/query/:locator
func (h *QueryHandler) QueryMore(c *gin.Context) {
	user := UserFromContext(c)
	locator := c.Param("locator")

	result, err := h.soql.QueryMore(c.Request.Context(), user, locator)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// batchSizeOption parses "batchSize=N" out of the query options header.
// Malformed values fall back to the default; clamping happens downstream.
func batchSizeOption(c *gin.Context) int {
	header := c.GetHeader(constants.HeaderQueryOptions)
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if value, ok := strings.CutPrefix(part, "batchSize="); ok {
			if n, err := strconv.Atoi(value); err == nil {
				return n
			}
		}
	}
	return 0
}

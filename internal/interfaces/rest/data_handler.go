package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openforce/backend/internal/application/services"
	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/pkg/constants"
)

type DataHandler struct {
	persistence *services.PersistenceService
	listViews   *services.ListViewService
}

func NewDataHandler(persistence *services.PersistenceService, listViews *services.ListViewService) *DataHandler {
	return &DataHandler{persistence: persistence, listViews: listViews}
}

// GetRecord handles GET /services/data/sobjects/:object/:id
func (h *DataHandler) GetRecord(c *gin.Context) {
	user := UserFromContext(c)

	record, err := h.persistence.Get(c.Request.Context(), user, c.Param("object"), c.Param("id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// CreateRecord handles POST /services/data/sobjects/:object
func (h *DataHandler) CreateRecord(c *gin.Context) {
	user := UserFromContext(c)
	var body models.SObject
	if !BindJSON(c, &body) {
		return
	}

	id, err := h.persistence.Create(c.Request.Context(), user, c.Param("object"), body)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{constants.ColumnID: id, "success": true})
}

// UpdateRecord handles PATCH /services/data/sobjects/:object/:id
func (h *DataHandler) UpdateRecord(c *gin.Context) {
	user := UserFromContext(c)
	var body models.SObject
	if !BindJSON(c, &body) {
		return
	}

	if err := h.persistence.Update(c.Request.Context(), user, c.Param("object"), c.Param("id"), body); err != nil {
		RespondAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteRecord handles DELETE /services/data/sobjects/:object/:id
func (h *DataHandler) DeleteRecord(c *gin.Context) {
	user := UserFromContext(c)

	if err := h.persistence.Delete(c.Request.Context(), user, c.Param("object"), c.Param("id")); err != nil {
		RespondAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListViewRequest filters an object with an expression rather than query text
type ListViewRequest struct {
	Object string `json:"object" binding:"required"`
	Filter string `json:"filter"`
	Limit  int    `json:"limit"`
}

// ListView handles POST /api/data/listview
func (h *DataHandler) ListView(c *gin.Context) {
	user := UserFromContext(c)
	var req ListViewRequest
	if !BindJSON(c, &req) {
		return
	}

	records, err := h.listViews.Run(c.Request.Context(), user, req.Object, req.Filter, req.Limit)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "size": len(records)})
}

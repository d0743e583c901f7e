package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openforce/backend/internal/application/services"
	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/pkg/constants"
	apperrors "github.com/openforce/backend/pkg/errors"
)

// TableEnsurer creates the storage table backing a newly registered object
type TableEnsurer interface {
	EnsureTable(ctx context.Context, object string) error
}

type MetadataHandler struct {
	metadata    *services.MetadataService
	permissions *services.PermissionService
	tables      TableEnsurer
}

func NewMetadataHandler(metadata *services.MetadataService, permissions *services.PermissionService, tables TableEnsurer) *MetadataHandler {
	return &MetadataHandler{metadata: metadata, permissions: permissions, tables: tables}
}

// ListObjects handles GET /services/data/sobjects, listing the objects the
// user can read
func (h *MetadataHandler) ListObjects(c *gin.Context) {
	user := UserFromContext(c)
	objects := h.permissions.AccessibleObjects(user, h.metadata.Objects())
	c.JSON(http.StatusOK, gin.H{"sobjects": objects})
}

// DescribeObject handles GET /services/data/sobjects/:object/describe
func (h *MetadataHandler) DescribeObject(c *gin.Context) {
	user := UserFromContext(c)
	name := c.Param("object")

	def, ok := h.metadata.Object(name)
	if !ok {
		RespondAppError(c, apperrors.NewNotFoundError("object", name))
		return
	}
	if err := h.permissions.CheckAccess(user, name, constants.PermRead); err != nil {
		RespondAppError(c, err)
		return
	}

	// Strip fields the user cannot see so describe matches query behavior
	visible := make([]models.FieldDef, 0, len(def.Fields))
	for _, field := range def.Fields {
		if h.permissions.FieldAccess(user, name, field.APIName).Visible {
			visible = append(visible, field)
		}
	}
	out := *def
	out.Fields = visible
	c.JSON(http.StatusOK, out)
}

// RegisterObject handles POST /api/metadata/objects (admin only). The storage
// table is created together with the definition.
func (h *MetadataHandler) RegisterObject(c *gin.Context) {
	var def models.ObjectDef
	if !BindJSON(c, &def) {
		return
	}

	if err := h.metadata.RegisterObject(def); err != nil {
		RespondAppError(c, err)
		return
	}
	if err := h.tables.EnsureTable(c.Request.Context(), def.APIName); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"object": def.APIName, "success": true})
}

// RemoveObject handles DELETE /api/metadata/objects/:object (admin only).
// The storage table is left in place; only the definition goes away.
func (h *MetadataHandler) RemoveObject(c *gin.Context) {
	if err := h.metadata.RemoveObject(c.Param("object")); err != nil {
		RespondAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/internal/domain/ports"
	"github.com/openforce/backend/pkg/constants"
	apperrors "github.com/openforce/backend/pkg/errors"
	"github.com/openforce/backend/pkg/query"
)

// PersistenceService implements record CRUD. Every write runs the same
// pipeline: object permission, FLS write check, system field stamping,
// validation rules, then the store.
type PersistenceService struct {
	schema      ports.SchemaProvider
	store       ports.RecordStore
	permissions *PermissionService
	validation  *ValidationService
	idGen       ports.IDGenerator
	now         func() time.Time
}

// NewPersistenceService creates a new PersistenceService
func NewPersistenceService(schema ports.SchemaProvider, store ports.RecordStore, permissions *PermissionService, validation *ValidationService, idGen ports.IDGenerator) *PersistenceService {
	return &PersistenceService{
		schema:      schema,
		store:       store,
		permissions: permissions,
		validation:  validation,
		idGen:       idGen,
		now:         time.Now,
	}
}

// Get returns one record after the read gate and FLS filtering
func (s *PersistenceService) Get(ctx context.Context, user *models.User, object, id string) (models.SObject, error) {
	if _, ok := s.schema.Object(object); !ok {
		return nil, apperrors.NewNotFoundError("object", object)
	}
	if err := s.permissions.CheckAccess(user, object, constants.PermRead); err != nil {
		return nil, err
	}
	record, err := s.store.GetByID(ctx, object, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperrors.NewNotFoundError(object, id)
	}
	return s.permissions.FilterByFLS(user, object, record), nil
}

// Create inserts a new record and returns its generated ID
func (s *PersistenceService) Create(ctx context.Context, user *models.User, object string, record models.SObject) (string, error) {
	def, ok := s.schema.Object(object)
	if !ok {
		return "", apperrors.NewNotFoundError("object", object)
	}
	if err := s.permissions.CheckAccess(user, object, constants.PermCreate); err != nil {
		return "", err
	}
	if err := s.permissions.RejectReadOnlyWrites(user, object, record); err != nil {
		return "", err
	}
	if err := s.validation.ValidateFieldTypes(def, record); err != nil {
		return "", err
	}
	if err := s.checkReferences(ctx, def, record); err != nil {
		return "", err
	}

	stamped := record.Clone()
	id := s.idGen.Generate(object)
	stamped[constants.FieldID] = id
	nowText := s.now().UTC().Format(time.RFC3339)
	stamped[constants.FieldCreatedDate] = nowText
	stamped[constants.FieldLastModifiedDate] = nowText
	if user != nil {
		stamped[constants.FieldCreatedByID] = user.Email
		stamped[constants.FieldLastModifiedByID] = user.Email
	}

	if err := s.validation.ValidateRequired(def, stamped); err != nil {
		return "", err
	}
	if err := s.validation.ValidateRecord(def, stamped); err != nil {
		return "", err
	}

	if err := s.store.Create(ctx, object, stamped); err != nil {
		return "", err
	}
	return id, nil
}

// Update applies a partial update. Validation rules evaluate against the
// merged shape so cross-field rules see the record as it will be stored.
func (s *PersistenceService) Update(ctx context.Context, user *models.User, object, id string, updates models.SObject) error {
	def, ok := s.schema.Object(object)
	if !ok {
		return apperrors.NewNotFoundError("object", object)
	}
	if err := s.permissions.CheckAccess(user, object, constants.PermEdit); err != nil {
		return err
	}
	if err := s.permissions.RejectReadOnlyWrites(user, object, updates); err != nil {
		return err
	}
	if err := s.validation.ValidateFieldTypes(def, updates); err != nil {
		return err
	}

	current, err := s.store.GetByID(ctx, object, id)
	if err != nil {
		return err
	}
	if current == nil {
		return apperrors.NewNotFoundError(object, id)
	}

	merged := current.Merge(updates)
	merged[constants.FieldID] = id
	merged[constants.FieldLastModifiedDate] = s.now().UTC().Format(time.RFC3339)
	if user != nil {
		merged[constants.FieldLastModifiedByID] = user.Email
	}

	if err := s.checkReferences(ctx, def, updates); err != nil {
		return err
	}
	if err := s.validation.ValidateRecord(def, merged); err != nil {
		return err
	}

	return s.store.Update(ctx, object, id, merged)
}

// Delete removes a record, honoring the delete constraints of inbound
// relationships: restricted children block, cascading children follow,
// plain lookups are nulled out.
func (s *PersistenceService) Delete(ctx context.Context, user *models.User, object, id string) error {
	if _, ok := s.schema.Object(object); !ok {
		return apperrors.NewNotFoundError("object", object)
	}
	if err := s.permissions.CheckAccess(user, object, constants.PermDelete); err != nil {
		return err
	}

	record, err := s.store.GetByID(ctx, object, id)
	if err != nil {
		return err
	}
	if record == nil {
		return apperrors.NewNotFoundError(object, id)
	}

	index := s.schema.Relationships()
	for _, rel := range index.ChildrenOf[object] {
		children, err := s.childrenPointingAt(ctx, rel, id)
		if err != nil {
			return err
		}
		if len(children) == 0 {
			continue
		}
		switch {
		case rel.RestrictedDelete:
			return apperrors.NewValidationError(rel.ForeignKeyField,
				fmt.Sprintf("cannot delete: %d %s record(s) reference this record", len(children), rel.ChildObject))
		case rel.CascadeDelete:
			for _, child := range children {
				if err := s.Delete(ctx, user, rel.ChildObject, child.GetString(constants.FieldID)); err != nil {
					return err
				}
			}
		default:
			// Plain lookup: detach the child
			for _, child := range children {
				childID := child.GetString(constants.FieldID)
				detached := child.Clone()
				detached[rel.ForeignKeyField] = nil
				if err := s.store.Update(ctx, rel.ChildObject, childID, detached); err != nil {
					return err
				}
			}
		}
	}

	log.Printf("deleting %s record %s", object, id)
	return s.store.Remove(ctx, object, id)
}

// checkReferences verifies that every set lookup value points at an existing
// record of the declared target object
func (s *PersistenceService) checkReferences(ctx context.Context, def *models.ObjectDef, record models.SObject) error {
	for _, field := range def.Fields {
		if !field.Type.IsReference() {
			continue
		}
		raw, ok := record[field.APIName]
		if !ok || raw == nil || raw == "" {
			continue
		}
		refID, ok := raw.(string)
		if !ok {
			return apperrors.NewValidationError(field.APIName, "lookup value must be a record ID")
		}
		target, err := s.store.GetByID(ctx, field.ReferenceTo, refID)
		if err != nil {
			return err
		}
		if target == nil {
			return apperrors.NewValidationError(field.APIName,
				fmt.Sprintf("referenced %s record '%s' does not exist", field.ReferenceTo, refID))
		}
	}
	return nil
}

func (s *PersistenceService) childrenPointingAt(ctx context.Context, rel models.ChildRelationship, parentID string) ([]models.SObject, error) {
	q := query.From(s.schema.TableFor(rel.ChildObject)).
		SelectColumns(constants.ColumnID, constants.ColumnFields).
		Where(query.FieldExpr(rel.ForeignKeyField)+" = ?", parentID).
		Build()
	return s.store.Select(ctx, rel.ChildObject, q)
}

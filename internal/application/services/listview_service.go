package services

import (
	"context"

	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/internal/domain/ports"
	"github.com/openforce/backend/pkg/constants"
	apperrors "github.com/openforce/backend/pkg/errors"
	"github.com/openforce/backend/pkg/expression"
	"github.com/openforce/backend/pkg/query"
)

// ListViewService runs list-view filter expressions over an object. Filters
// use the expression language rather than query text and are pushed down to
// SQL when the walker supports them, falling back to in-memory evaluation.
type ListViewService struct {
	schema      ports.SchemaProvider
	store       ports.RecordStore
	permissions *PermissionService
	engine      *expression.Engine
}

// NewListViewService creates a new ListViewService
func NewListViewService(schema ports.SchemaProvider, store ports.RecordStore, permissions *PermissionService) *ListViewService {
	return &ListViewService{
		schema:      schema,
		store:       store,
		permissions: permissions,
		engine:      expression.NewEngine(),
	}
}

// Run returns the records of an object matching a filter expression, FLS
// filtered, capped at limit
func (s *ListViewService) Run(ctx context.Context, user *models.User, object, filter string, limit int) ([]models.SObject, error) {
	def, ok := s.schema.Object(object)
	if !ok {
		return nil, apperrors.NewNotFoundError("object", object)
	}
	if err := s.permissions.CheckAccess(user, object, constants.PermRead); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > constants.DefaultQueryBatchSize {
		limit = constants.DefaultQueryBatchSize
	}

	resolver := func(field string) (string, error) {
		if !fieldExists(def, field) {
			return "", apperrors.NewParseError(filter, "no such field '"+field+"' on "+object)
		}
		return query.FieldExpr(field), nil
	}

	builder := query.From(s.schema.TableFor(object)).
		SelectColumns(constants.ColumnID, constants.ColumnFields)

	var inMemory bool
	if filter != "" {
		if sql, args, err := expression.ToSQL(filter, resolver); err == nil {
			builder.WhereRaw(sql, args)
		} else if apperrors.IsParse(err) {
			return nil, err
		} else {
			// The walker cannot express every filter; evaluate those in memory
			inMemory = true
		}
	}
	if !inMemory {
		builder.Limit(limit)
	}

	records, err := s.store.Select(ctx, object, builder.Build())
	if err != nil {
		return nil, err
	}

	if inMemory {
		matched := make([]models.SObject, 0, len(records))
		for _, record := range records {
			ok, err := s.engine.EvaluateBool(filter, record)
			if err != nil {
				return nil, apperrors.NewParseError(filter, err.Error())
			}
			if ok {
				matched = append(matched, record)
				if len(matched) == limit {
					break
				}
			}
		}
		records = matched
	}

	out := make([]models.SObject, 0, len(records))
	for _, record := range records {
		out = append(out, s.permissions.FilterByFLS(user, object, record))
	}
	return out, nil
}

package ports

import (
	"context"

	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/pkg/query"
)

// RecordStore is the persistence boundary for record CRUD and translated
// query execution. Lookups that find nothing return (nil, nil); errors are
// reserved for store failures.
type RecordStore interface {
	GetByID(ctx context.Context, object, id string) (models.SObject, error)
	GetAll(ctx context.Context, object string) ([]models.SObject, error)
	Create(ctx context.Context, object string, record models.SObject) error
	Update(ctx context.Context, object, id string, record models.SObject) error
	Remove(ctx context.Context, object, id string) error

	// Select runs a translated query whose projection is the standard
	// (id, fields) row pair and hydrates full records.
	Select(ctx context.Context, object string, q query.QueryResult) ([]models.SObject, error)

	// SelectRows runs a query with an arbitrary projection, one map per row.
	// Aggregate queries use this shape.
	SelectRows(ctx context.Context, q query.QueryResult) ([]models.SObject, error)

	// Count runs a query whose single column is a row count.
	Count(ctx context.Context, q query.QueryResult) (int, error)
}

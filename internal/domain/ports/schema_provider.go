package ports

import "github.com/openforce/backend/internal/domain/models"

// SchemaProvider exposes the object schema and its derived relationship
// index. Implementations must return snapshots that are safe to read while
// the schema is being swapped.
type SchemaProvider interface {
	Object(apiName string) (*models.ObjectDef, bool)
	Objects() []models.ObjectDef
	Relationships() *models.RelationshipIndex
	TableFor(objectAPIName string) string
}

// PolicyProvider resolves users, profiles and permission sets by API name
type PolicyProvider interface {
	User(email string) (*models.User, bool)
	Profile(apiName string) (*models.Profile, bool)
	PermissionSet(apiName string) (*models.PermissionSet, bool)
}

// IDGenerator issues and inspects record IDs
type IDGenerator interface {
	Generate(objectType string) string
	Validate(id string) bool
	ObjectTypeOf(id string) string
}

package constants

// System field names present on every record payload
const (
	FieldID               = "Id"
	FieldName             = "Name"
	FieldCreatedDate      = "CreatedDate"
	FieldCreatedByID      = "CreatedById"
	FieldLastModifiedDate = "LastModifiedDate"
	FieldLastModifiedByID = "LastModifiedById"
	FieldSystemModstamp   = "SystemModstamp"
	FieldIsDeleted        = "IsDeleted"
	FieldOwnerID          = "OwnerId"
	FieldEmail            = "Email"
)

// Storage column names of the row-per-record table layout.
// Every object table has an indexed id column plus one JSON payload column.
const (
	ColumnID     = "id"
	ColumnFields = "fields"
)

var systemFields = map[string]bool{
	FieldID:               true,
	FieldCreatedDate:      true,
	FieldCreatedByID:      true,
	FieldLastModifiedDate: true,
	FieldLastModifiedByID: true,
	FieldSystemModstamp:   true,
	FieldIsDeleted:        true,
}

// IsSystemField reports whether a field is server-managed and never writable by clients
func IsSystemField(apiName string) bool {
	return systemFields[apiName]
}

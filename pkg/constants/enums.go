package constants

// SchemaFieldType enumerates the supported field types
type SchemaFieldType string

const (
	FieldTypeText                SchemaFieldType = "Text"
	FieldTypeLongTextArea        SchemaFieldType = "LongTextArea"
	FieldTypeNumber              SchemaFieldType = "Number"
	FieldTypeCurrency            SchemaFieldType = "Currency"
	FieldTypePercent             SchemaFieldType = "Percent"
	FieldTypePhone               SchemaFieldType = "Phone"
	FieldTypeEmail               SchemaFieldType = "Email"
	FieldTypeUrl                 SchemaFieldType = "Url"
	FieldTypeDate                SchemaFieldType = "Date"
	FieldTypeDateTime            SchemaFieldType = "DateTime"
	FieldTypeCheckbox            SchemaFieldType = "Checkbox"
	FieldTypePicklist            SchemaFieldType = "Picklist"
	FieldTypeMultiselectPicklist SchemaFieldType = "MultiselectPicklist"
	FieldTypeLookup              SchemaFieldType = "Lookup"
	FieldTypeMasterDetail        SchemaFieldType = "MasterDetail"
	FieldTypeFormula             SchemaFieldType = "Formula"
	FieldTypeAutoNumber          SchemaFieldType = "AutoNumber"
)

// IsReference reports whether the type points at another object
func (t SchemaFieldType) IsReference() bool {
	return t == FieldTypeLookup || t == FieldTypeMasterDetail
}

// IsNumeric reports whether values of the type compare numerically
func (t SchemaFieldType) IsNumeric() bool {
	switch t {
	case FieldTypeNumber, FieldTypeCurrency, FieldTypePercent:
		return true
	}
	return false
}

// DeleteConstraint controls what happens to children when a parent is removed
type DeleteConstraint string

const (
	DeleteCascade  DeleteConstraint = "Cascade"
	DeleteRestrict DeleteConstraint = "Restrict"
	DeleteSetNull  DeleteConstraint = "SetNull"
)

package models

import "github.com/openforce/backend/pkg/constants"

// FieldType is defined in pkg/constants
type FieldType = constants.SchemaFieldType

// DeleteConstraint is defined in pkg/constants
type DeleteConstraint = constants.DeleteConstraint

// FieldDef represents field-level metadata
type FieldDef struct {
	APIName          string            `json:"api_name"`
	Label            string            `json:"label"`
	Type             FieldType         `json:"type"`
	Required         bool              `json:"required,omitempty"`
	ExternalID       bool              `json:"external_id,omitempty"`
	Length           *int              `json:"length,omitempty"`
	Precision        *int              `json:"precision,omitempty"`
	Scale            *int              `json:"scale,omitempty"`
	Values           []string          `json:"values,omitempty"`
	ReferenceTo      string            `json:"reference_to,omitempty"`
	RelationshipName string            `json:"relationship_name,omitempty"`
	DeleteConstraint *DeleteConstraint `json:"delete_constraint,omitempty"`
	Formula          *string           `json:"formula,omitempty"`
	DefaultValue     *string           `json:"default_value,omitempty"`
}

// ValidationRule represents a record-level validation rule. The formula
// expresses the error condition: evaluating to true rejects the write.
type ValidationRule struct {
	Name         string `json:"name"`
	Active       bool   `json:"active"`
	Formula      string `json:"formula"`
	ErrorMessage string `json:"error_message"`
}

// RecordType represents a record type attached to an object
type RecordType struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	IsDefault bool   `json:"is_default,omitempty"`
}

// ObjectDef represents object-level metadata
type ObjectDef struct {
	APIName         string           `json:"api_name"`
	Label           string           `json:"label"`
	PluralLabel     string           `json:"plural_label,omitempty"`
	KeyPrefix       string           `json:"key_prefix,omitempty"`
	Fields          []FieldDef       `json:"fields"`
	ValidationRules []ValidationRule `json:"validation_rules,omitempty"`
	RecordTypes     []RecordType     `json:"record_types,omitempty"`
	ListFields      []string         `json:"list_fields,omitempty"`
}

// FindField returns the field definition with the given API name, or nil
func (o *ObjectDef) FindField(apiName string) *FieldDef {
	for i := range o.Fields {
		if o.Fields[i].APIName == apiName {
			return &o.Fields[i]
		}
	}
	return nil
}

// ChildRelationship describes one Lookup/MasterDetail field pointing at a
// target object, from the target's point of view.
type ChildRelationship struct {
	ChildObject      string `json:"child_object"`
	ForeignKeyField  string `json:"foreign_key_field"`
	RelationshipName string `json:"relationship_name"`
	CascadeDelete    bool   `json:"cascade_delete"`
	RestrictedDelete bool   `json:"restricted_delete"`
}

// ParentRelationship resolves a relationship name used in a query path to the
// lookup field and parent object it traverses.
type ParentRelationship struct {
	LookupField  string `json:"lookup_field"`
	ParentObject string `json:"parent_object"`
}

// RelationshipIndex is derived from the schema and rebuilt atomically whenever
// the schema changes. It carries no state of its own.
type RelationshipIndex struct {
	// ChildrenOf maps a parent object name to the relationships targeting it.
	ChildrenOf map[string][]ChildRelationship
	// ParentsOf maps object name -> relationship-name-or-field-name -> parent.
	ParentsOf map[string]map[string]ParentRelationship
}

// BuildRelationshipIndex derives both relationship maps from the schema.
// The result is immutable; publish it with an atomic swap.
func BuildRelationshipIndex(objects []ObjectDef) *RelationshipIndex {
	idx := &RelationshipIndex{
		ChildrenOf: make(map[string][]ChildRelationship),
		ParentsOf:  make(map[string]map[string]ParentRelationship),
	}
	for _, obj := range objects {
		for _, f := range obj.Fields {
			if !f.Type.IsReference() || f.ReferenceTo == "" {
				continue
			}
			relName := f.RelationshipName
			if relName == "" {
				relName = f.APIName
			}
			cascade := f.Type == constants.FieldTypeMasterDetail
			restricted := false
			if f.DeleteConstraint != nil {
				cascade = *f.DeleteConstraint == constants.DeleteCascade
				restricted = *f.DeleteConstraint == constants.DeleteRestrict
			}
			idx.ChildrenOf[f.ReferenceTo] = append(idx.ChildrenOf[f.ReferenceTo], ChildRelationship{
				ChildObject:      obj.APIName,
				ForeignKeyField:  f.APIName,
				RelationshipName: relName,
				CascadeDelete:    cascade,
				RestrictedDelete: restricted,
			})
			if idx.ParentsOf[obj.APIName] == nil {
				idx.ParentsOf[obj.APIName] = make(map[string]ParentRelationship)
			}
			rel := ParentRelationship{LookupField: f.APIName, ParentObject: f.ReferenceTo}
			idx.ParentsOf[obj.APIName][relName] = rel
			idx.ParentsOf[obj.APIName][f.APIName] = rel
		}
	}
	return idx
}

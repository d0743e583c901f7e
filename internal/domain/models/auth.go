package models

// User is the request principal. Permission resolution consults the Profile
// only; permission sets are additive metadata exposed to clients but not
// merged into enforcement (known limitation, see DESIGN.md).
type User struct {
	Email          string   `json:"email"`
	Name           string   `json:"name,omitempty"`
	Profile        string   `json:"profile"`
	PermissionSets []string `json:"permission_sets,omitempty"`
}

// ObjectPermission grants object-level CRUD on one object, or on every object
// when Object is the wildcard "*".
type ObjectPermission struct {
	Object      string `json:"object"`
	AllowCreate bool   `json:"allow_create"`
	AllowRead   bool   `json:"allow_read"`
	AllowEdit   bool   `json:"allow_edit"`
	AllowDelete bool   `json:"allow_delete"`
}

// FieldPermission is one FLS entry. FLS is a denylist overlay: fields without
// an entry are fully visible and writable.
type FieldPermission struct {
	Field    string `json:"field"`
	Visible  bool   `json:"visible"`
	ReadOnly bool   `json:"read_only"`
}

// FieldLevelSecurity groups the FLS entries of one object
type FieldLevelSecurity struct {
	Object string            `json:"object"`
	Fields []FieldPermission `json:"fields"`
}

// Profile is the unit of access-control policy, loaded once at startup and
// read-only at request time.
type Profile struct {
	APIName            string               `json:"api_name"`
	Label              string               `json:"label,omitempty"`
	ObjectPermissions  []ObjectPermission   `json:"object_permissions"`
	FieldLevelSecurity []FieldLevelSecurity `json:"field_level_security,omitempty"`
}

// PermissionSet mirrors Profile structurally. Tracked per user, surfaced via
// the API, but not consulted by the enforcement decision.
type PermissionSet struct {
	APIName           string             `json:"api_name"`
	Label             string             `json:"label,omitempty"`
	ObjectPermissions []ObjectPermission `json:"object_permissions,omitempty"`
}

// FieldAccess is the resolved FLS decision for one field
type FieldAccess struct {
	Visible  bool `json:"visible"`
	ReadOnly bool `json:"read_only"`
}

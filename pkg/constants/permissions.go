package constants

// Permission operations, matching the four object-level CRUD grants
const (
	PermCreate = "create"
	PermRead   = "read"
	PermEdit   = "edit"
	PermDelete = "delete"
)

// WildcardObject in a profile's object permissions applies to every object
// that has no exact entry.
const WildcardObject = "*"

// Standard profile API names seeded at bootstrap
const (
	ProfileSystemAdmin  = "System Administrator"
	ProfileStandardUser = "Standard User"
	ProfileReadOnly     = "Read Only"
)

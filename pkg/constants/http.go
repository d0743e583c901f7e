package constants

// HTTP plumbing shared between middleware and handlers
const (
	HeaderAuthorization = "Authorization"
	HeaderQueryOptions  = "Sforce-Query-Options"

	ContextKeyUser = "user"
)

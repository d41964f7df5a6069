package shared

const (
	UserID    = "user_id"
	UserEmail = "user_email"
	UserRole  = "user_role"
	AuthUser  = "auth_user"

	RoleAdmin = "admin"

	JurisdictionFederal = "federal"
	JurisdictionState   = "state"
	JurisdictionLocal   = "local"

	ActivityRequestSubmitted = "request_submitted"
	ActivityStatusChanged    = "status_changed"
	ActivityDocumentSummary  = "document_summarized"
	ActivityProfileUpdated   = "profile_updated"
)

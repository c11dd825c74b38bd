package domain

// Spreadsheet is a document in the sheet service.
type Spreadsheet struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Worksheet is a tab of a spreadsheet.
type Worksheet struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Permission types and roles understood by the sheet service
const (
	PermissionTypeAnyone = "anyone"
	PermissionTypeUser   = "user"

	RoleReader = "reader"
	RoleWriter = "writer"
	RoleOwner  = "owner"
)

// Permission is a sharing grant on a spreadsheet.
type Permission struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Role         string `json:"role"`
	EmailAddress string `json:"email_address,omitempty"`
	PendingOwner bool   `json:"pending_owner,omitempty"`
}

// IsAnyoneReader reports whether the grant is "anyone with the link can read".
func (p Permission) IsAnyoneReader() bool {
	return p.Type == PermissionTypeAnyone && p.Role == RoleReader
}

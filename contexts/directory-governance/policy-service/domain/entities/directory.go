package entities

// OrganizationUnit is a node in the strict directory tree. ParentID is nil
// for root nodes. The ancestor chain drives policy inheritance at read time.
type OrganizationUnit struct {
	OUID     string  `json:"ou_id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id,omitempty"`
}

// SecurityGroup is a flat, non-hierarchical membership set.
type SecurityGroup struct {
	GroupID string `json:"group_id"`
	Name    string `json:"name"`
}

// EnterpriseUser has zero-or-one OU membership and zero-or-many group
// memberships. The applicable policy set is derived, never stored.
type EnterpriseUser struct {
	UserID   string   `json:"user_id"`
	Email    string   `json:"email,omitempty"`
	OUID     string   `json:"ou_id,omitempty"`
	GroupIDs []string `json:"group_ids,omitempty"`
}

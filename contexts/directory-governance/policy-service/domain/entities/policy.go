package entities

import "time"

// PolicyType identifies which settings payload a policy carries.
type PolicyType string

const (
	PolicyTypePassword      PolicyType = "password"
	PolicyTypeSession       PolicyType = "session"
	PolicyTypeAccessControl PolicyType = "access_control"
	PolicyTypeAudit         PolicyType = "audit"
	PolicyTypeApplication   PolicyType = "application"
	PolicyTypeNetwork       PolicyType = "network"
)

// PolicyTypes lists every valid policy type in canonical order.
var PolicyTypes = []PolicyType{
	PolicyTypePassword,
	PolicyTypeSession,
	PolicyTypeAccessControl,
	PolicyTypeAudit,
	PolicyTypeApplication,
	PolicyTypeNetwork,
}

func (t PolicyType) Valid() bool {
	switch t {
	case PolicyTypePassword, PolicyTypeSession, PolicyTypeAccessControl,
		PolicyTypeAudit, PolicyTypeApplication, PolicyTypeNetwork:
		return true
	default:
		return false
	}
}

// PolicyScope is informational; actual application is driven by targets.
type PolicyScope string

const (
	ScopeDomain PolicyScope = "domain"
	ScopeOU     PolicyScope = "ou"
	ScopeGroup  PolicyScope = "group"
)

func (s PolicyScope) Valid() bool {
	switch s {
	case ScopeDomain, ScopeOU, ScopeGroup:
		return true
	default:
		return false
	}
}

// Policy is a named, versioned rule set bound to OUs and/or groups.
// Identity never changes after creation; updates are full replacements.
type Policy struct {
	PolicyID     string      `json:"policy_id"`
	PolicyName   string      `json:"policy_name"`
	Description  string      `json:"description,omitempty"`
	Type         PolicyType  `json:"type"`
	Scope        PolicyScope `json:"scope"`
	TargetOUs    []string    `json:"target_ous,omitempty"`
	TargetGroups []string    `json:"target_groups,omitempty"`
	Settings     Settings    `json:"settings"`
	Enforced     bool        `json:"enforced"`
	Enabled      bool        `json:"enabled"`
	Order        int         `json:"order"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

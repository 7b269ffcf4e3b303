package httptransport

import (
	"time"

	"polaris/contexts/directory-governance/policy-service/domain/entities"
)

// PolicyRequest is the request body for policy creation and replacement.
type PolicyRequest struct {
	PolicyName   string            `json:"policy_name"`
	Description  string            `json:"description,omitempty"`
	Type         string            `json:"type"`
	Scope        string            `json:"scope"`
	TargetOUs    []string          `json:"target_ous,omitempty"`
	TargetGroups []string          `json:"target_groups,omitempty"`
	Settings     entities.Settings `json:"settings"`
	Enforced     bool              `json:"enforced"`
	Enabled      bool              `json:"enabled"`
	Order        int               `json:"order"`
}

// PolicyDTO is the wire form of a stored policy.
type PolicyDTO struct {
	PolicyID     string            `json:"policy_id"`
	PolicyName   string            `json:"policy_name"`
	Description  string            `json:"description,omitempty"`
	Type         string            `json:"type"`
	Scope        string            `json:"scope"`
	TargetOUs    []string          `json:"target_ous"`
	TargetGroups []string          `json:"target_groups"`
	Settings     entities.Settings `json:"settings"`
	Enforced     bool              `json:"enforced"`
	Enabled      bool              `json:"enabled"`
	Order        int               `json:"order"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type CreatePolicyResponse struct {
	Policy   PolicyDTO `json:"policy"`
	Replayed bool      `json:"replayed"`
}

type UpdatePolicyResponse struct {
	Policy   PolicyDTO `json:"policy"`
	Replayed bool      `json:"replayed"`
}

type DeletePolicyResponse struct {
	PolicyID string `json:"policy_id"`
	Replayed bool   `json:"replayed"`
}

type ListPoliciesResponse struct {
	Policies []PolicyDTO `json:"policies"`
}

// ResolvedPolicyDTO carries the merged settings for one policy type plus the
// ids of every policy that contributed at least one field.
type ResolvedPolicyDTO struct {
	Settings        entities.Settings `json:"settings"`
	SourcePolicyIDs []string          `json:"source_policy_ids"`
}

// EffectiveSettingsResponse maps policy type names to resolved settings.
type EffectiveSettingsResponse struct {
	UserID   string                       `json:"user_id"`
	Policies map[string]ResolvedPolicyDTO `json:"policies"`
}

type ConflictingValueDTO struct {
	PolicyID string `json:"policy_id"`
	Value    any    `json:"value"`
}

type ConflictDTO struct {
	Type              string                `json:"type"`
	PolicyType        string                `json:"policy_type"`
	SettingPath       string                `json:"setting_path"`
	ConflictingValues []ConflictingValueDTO `json:"conflicting_values"`
	Resolution        string                `json:"resolution"`
	Severity          string                `json:"severity"`
}

type ConflictsResponse struct {
	UserID    string        `json:"user_id"`
	Conflicts []ConflictDTO `json:"conflicts"`
}

// PolicyValueResponse reports one projected setting; Value is null and Set is
// false when no applicable policy sets the field.
type PolicyValueResponse struct {
	UserID      string `json:"user_id"`
	PolicyType  string `json:"policy_type"`
	SettingPath string `json:"setting_path"`
	Value       any    `json:"value"`
	Set         bool   `json:"set"`
}

// ErrorResponse is the uniform error envelope for every endpoint.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

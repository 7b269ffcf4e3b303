package queries

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"polaris/contexts/directory-governance/policy-service/domain/entities"
	domainerrors "polaris/contexts/directory-governance/policy-service/domain/errors"
)

// GetPolicyValueQuery projects one field out of a user's effective settings.
type GetPolicyValueQuery struct {
	UserID      string
	PolicyType  entities.PolicyType
	SettingPath string
}

// GetPolicyValueResult distinguishes "field unset" (Value nil, Set false)
// from a genuinely null-like value; an unset field is not an error.
type GetPolicyValueResult struct {
	Value any
	Set   bool
}

// GetPolicyValueUseCase runs full resolution and projects a single setting.
type GetPolicyValueUseCase struct {
	EffectiveSettings GetEffectiveSettingsUseCase
	Logger            *slog.Logger
}

// Execute resolves the user's effective settings and returns the value at
// the given path for the given policy type, or an unset result when no
// applicable policy sets that field.
func (u GetPolicyValueUseCase) Execute(
	ctx context.Context,
	query GetPolicyValueQuery,
) (GetPolicyValueResult, error) {
	if !query.PolicyType.Valid() {
		return GetPolicyValueResult{}, domainerrors.ErrInvalidPolicyType
	}
	if strings.TrimSpace(query.SettingPath) == "" {
		return GetPolicyValueResult{}, domainerrors.NewValidationError("setting_path", "non-empty path")
	}

	effective, err := u.EffectiveSettings.Execute(ctx, GetEffectiveSettingsQuery{UserID: query.UserID})
	if err != nil {
		return GetPolicyValueResult{}, err
	}

	resolved, ok := effective.Types[query.PolicyType]
	if !ok {
		return GetPolicyValueResult{}, nil
	}
	value, set := projectSetting(resolved.Settings, query.PolicyType, query.SettingPath)
	return GetPolicyValueResult{Value: value, Set: set}, nil
}

// projectSetting walks a dotted path through the JSON form of the settings
// variant, using the wire field names callers already know.
func projectSetting(settings entities.Settings, policyType entities.PolicyType, path string) (any, bool) {
	var variant any
	switch policyType {
	case entities.PolicyTypePassword:
		variant = settings.Password
	case entities.PolicyTypeSession:
		variant = settings.Session
	case entities.PolicyTypeAccessControl:
		variant = settings.AccessControl
	case entities.PolicyTypeAudit:
		variant = settings.Audit
	case entities.PolicyTypeApplication:
		variant = settings.Application
	case entities.PolicyTypeNetwork:
		variant = settings.Network
	default:
		return nil, false
	}

	raw, err := json.Marshal(variant)
	if err != nil {
		return nil, false
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, false
	}

	current := decoded
	for _, token := range strings.Split(path, ".") {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = object[token]
		if !ok {
			return nil, false
		}
	}
	return current, current != nil
}

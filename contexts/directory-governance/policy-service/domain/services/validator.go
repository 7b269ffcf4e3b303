package services

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"polaris/contexts/directory-governance/policy-service/domain/entities"
	domainerrors "polaris/contexts/directory-governance/policy-service/domain/errors"
)

// settingsValidators dispatches the per-type structural rules via the union
// tag, so adding a policy type without a validator fails loudly at lookup.
var settingsValidators = map[entities.PolicyType]func(entities.Settings) error{
	entities.PolicyTypePassword:      validatePassword,
	entities.PolicyTypeSession:       validateSession,
	entities.PolicyTypeAccessControl: validateAccessControl,
	entities.PolicyTypeAudit:         validateAudit,
	entities.PolicyTypeApplication:   validateApplication,
	entities.PolicyTypeNetwork:       validateNetwork,
}

// ValidateSettings enforces the per-type structural invariants on a settings
// payload. The check is all-or-nothing: the first violation is returned and
// no part of the policy is accepted.
func ValidateSettings(policyType entities.PolicyType, settings entities.Settings) error {
	if !policyType.Valid() {
		return domainerrors.ErrInvalidPolicyType
	}
	if !settings.Matches(policyType) {
		return domainerrors.ErrSettingsTypeMismatch
	}
	validate, ok := settingsValidators[policyType]
	if !ok {
		return domainerrors.ErrInvalidPolicyType
	}
	return validate(settings)
}

func validatePassword(settings entities.Settings) error {
	payload := settings.Password
	if err := checkRange(payload.MinimumLength, "password.minimumLength", 1, 128); err != nil {
		return err
	}
	if err := checkRange(payload.MaximumAge, "password.maximumAge", 1, 365); err != nil {
		return err
	}
	if err := checkRange(payload.HistoryCount, "password.historyCount", 0, 24); err != nil {
		return err
	}
	return checkRange(payload.LockoutThreshold, "password.lockoutThreshold", 0, 50)
}

func validateSession(settings entities.Settings) error {
	payload := settings.Session
	if err := checkRange(payload.MaxSessionDuration, "session.maxSessionDuration", 300, 86400); err != nil {
		return err
	}
	if err := checkRange(payload.IdleTimeout, "session.idleTimeout", 60, 7200); err != nil {
		return err
	}
	return checkRange(payload.ConcurrentSessionLimit, "session.concurrentSessionLimit", 1, 10)
}

func validateAccessControl(settings entities.Settings) error {
	payload := settings.AccessControl
	if err := checkIPList(payload.IPWhitelist, "access_control.ipWhitelist"); err != nil {
		return err
	}
	if err := checkIPList(payload.IPBlacklist, "access_control.ipBlacklist"); err != nil {
		return err
	}
	for i, window := range payload.AllowedTimeRanges {
		field := fmt.Sprintf("access_control.allowedTimeRanges[%d]", i)
		if !validClockTime(window.Start) || !validClockTime(window.End) {
			return domainerrors.NewValidationError(field, "start/end in HH:MM 24h notation")
		}
		if len(window.Days) == 0 {
			return domainerrors.NewValidationError(field+".days", "at least one weekday")
		}
		for _, day := range window.Days {
			if !validWeekday(day) {
				return domainerrors.NewValidationError(field+".days", "weekday names monday..sunday")
			}
		}
	}
	return nil
}

func validateAudit(settings entities.Settings) error {
	payload := settings.Audit
	if err := checkRange(payload.RetentionDays, "audit.retentionDays", 1, 2555); err != nil {
		return err
	}
	for i, threshold := range payload.AlertThresholds {
		field := fmt.Sprintf("audit.alertThresholds[%d]", i)
		if strings.TrimSpace(threshold.Event) == "" {
			return domainerrors.NewValidationError(field+".event", "non-empty event name")
		}
		if threshold.Count < 1 || threshold.Count > 1000 {
			return domainerrors.NewRangeError(field+".count", 1, 1000)
		}
		if threshold.WindowSeconds < 60 || threshold.WindowSeconds > 86400 {
			return domainerrors.NewRangeError(field+".windowSeconds", 60, 86400)
		}
	}
	return nil
}

func validateApplication(settings entities.Settings) error {
	payload := settings.Application
	for i, entry := range payload.Permissions {
		field := fmt.Sprintf("application.permissions[%d]", i)
		if strings.TrimSpace(entry.ApplicationID) == "" {
			return domainerrors.NewValidationError(field+".applicationId", "non-empty application id")
		}
		if len(entry.Permissions) == 0 {
			return domainerrors.NewValidationError(field+".permissions", "non-empty permission list")
		}
	}
	return nil
}

func validateNetwork(settings entities.Settings) error {
	payload := settings.Network
	if err := checkCIDRList(payload.AllowedCIDRs, "network.allowedCidrs"); err != nil {
		return err
	}
	if err := checkCIDRList(payload.BlockedCIDRs, "network.blockedCidrs"); err != nil {
		return err
	}
	for i, rule := range payload.FirewallRules {
		field := fmt.Sprintf("network.firewallRules[%d]", i)
		if strings.TrimSpace(rule.Name) == "" {
			return domainerrors.NewValidationError(field+".name", "non-empty rule name")
		}
		if rule.Priority < 1 || rule.Priority > 1000 {
			return domainerrors.NewRangeError(field+".priority", 1, 1000)
		}
		if rule.Action != "allow" && rule.Action != "deny" {
			return domainerrors.NewValidationError(field+".action", "allow or deny")
		}
	}
	return nil
}

func checkRange(value *int, field string, min, max int) error {
	if value == nil {
		return nil
	}
	if *value < min || *value > max {
		return domainerrors.NewRangeError(field, min, max)
	}
	return nil
}

func checkIPList(values []string, field string) error {
	for i, raw := range values {
		if net.ParseIP(strings.TrimSpace(raw)) == nil {
			return domainerrors.NewValidationError(
				fmt.Sprintf("%s[%d]", field, i),
				"IPv4 or IPv6 literal",
			)
		}
	}
	return nil
}

func checkCIDRList(values []string, field string) error {
	for i, raw := range values {
		if _, _, err := net.ParseCIDR(strings.TrimSpace(raw)); err != nil {
			return domainerrors.NewValidationError(
				fmt.Sprintf("%s[%d]", field, i),
				"CIDR notation",
			)
		}
	}
	return nil
}

func validClockTime(value string) bool {
	parts := strings.Split(value, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	return hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59
}

func validWeekday(day string) bool {
	switch strings.ToLower(strings.TrimSpace(day)) {
	case "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday":
		return true
	default:
		return false
	}
}

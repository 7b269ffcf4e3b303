package services

import (
	"errors"
	"testing"

	"polaris/contexts/directory-governance/policy-service/domain/entities"
	domainerrors "polaris/contexts/directory-governance/policy-service/domain/errors"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestValidateSettingsPasswordValid(t *testing.T) {
	settings := entities.Settings{
		Password: &entities.PasswordSettings{
			MinimumLength:    intPtr(12),
			MaximumAge:       intPtr(90),
			HistoryCount:     intPtr(5),
			LockoutThreshold: intPtr(0),
			RequireUppercase: boolPtr(true),
		},
	}
	if err := ValidateSettings(entities.PolicyTypePassword, settings); err != nil {
		t.Fatalf("expected valid password settings, got %v", err)
	}
}

func TestValidateSettingsPasswordMinimumLengthOutOfRange(t *testing.T) {
	settings := entities.Settings{
		Password: &entities.PasswordSettings{MinimumLength: intPtr(0)},
	}
	err := ValidateSettings(entities.PolicyTypePassword, settings)
	var validationErr *domainerrors.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if validationErr.Field != "password.minimumLength" {
		t.Fatalf("unexpected field %s", validationErr.Field)
	}
}

func TestValidateSettingsSessionBoundaries(t *testing.T) {
	lower := entities.Settings{
		Session: &entities.SessionSettings{
			MaxSessionDuration: intPtr(300),
			IdleTimeout:        intPtr(60),
		},
	}
	if err := ValidateSettings(entities.PolicyTypeSession, lower); err != nil {
		t.Fatalf("expected lower bounds to be valid, got %v", err)
	}

	upper := entities.Settings{
		Session: &entities.SessionSettings{
			MaxSessionDuration:     intPtr(86400),
			IdleTimeout:            intPtr(7200),
			ConcurrentSessionLimit: intPtr(10),
		},
	}
	if err := ValidateSettings(entities.PolicyTypeSession, upper); err != nil {
		t.Fatalf("expected upper bounds to be valid, got %v", err)
	}

	tooLong := entities.Settings{
		Session: &entities.SessionSettings{MaxSessionDuration: intPtr(100000)},
	}
	var validationErr *domainerrors.ValidationError
	if err := ValidateSettings(entities.PolicyTypeSession, tooLong); !errors.As(err, &validationErr) {
		t.Fatalf("expected range violation for 100000, got %v", err)
	}
}

func TestValidateSettingsTypeMismatch(t *testing.T) {
	settings := entities.Settings{
		Session: &entities.SessionSettings{MaxSessionDuration: intPtr(3600)},
	}
	err := ValidateSettings(entities.PolicyTypePassword, settings)
	if !errors.Is(err, domainerrors.ErrSettingsTypeMismatch) {
		t.Fatalf("expected settings type mismatch, got %v", err)
	}
}

func TestValidateSettingsRejectsUnknownType(t *testing.T) {
	settings := entities.Settings{
		Password: &entities.PasswordSettings{MinimumLength: intPtr(8)},
	}
	err := ValidateSettings(entities.PolicyType("firmware"), settings)
	if !errors.Is(err, domainerrors.ErrInvalidPolicyType) {
		t.Fatalf("expected invalid policy type, got %v", err)
	}
}

func TestValidateSettingsAccessControlIPList(t *testing.T) {
	valid := entities.Settings{
		AccessControl: &entities.AccessControlSettings{
			IPWhitelist: []string{"10.0.0.1", "2001:db8::1"},
			AllowedTimeRanges: []entities.TimeRange{
				{Start: "09:00", End: "17:30", Days: []string{"monday", "friday"}},
			},
		},
	}
	if err := ValidateSettings(entities.PolicyTypeAccessControl, valid); err != nil {
		t.Fatalf("expected valid access control settings, got %v", err)
	}

	badIP := entities.Settings{
		AccessControl: &entities.AccessControlSettings{IPWhitelist: []string{"10.0.0.999"}},
	}
	var validationErr *domainerrors.ValidationError
	if err := ValidateSettings(entities.PolicyTypeAccessControl, badIP); !errors.As(err, &validationErr) {
		t.Fatalf("expected IP validation failure, got %v", err)
	}

	badWindow := entities.Settings{
		AccessControl: &entities.AccessControlSettings{
			AllowedTimeRanges: []entities.TimeRange{
				{Start: "9am", End: "17:00", Days: []string{"monday"}},
			},
		},
	}
	if err := ValidateSettings(entities.PolicyTypeAccessControl, badWindow); !errors.As(err, &validationErr) {
		t.Fatalf("expected time range validation failure, got %v", err)
	}
}

func TestValidateSettingsAuditThresholds(t *testing.T) {
	valid := entities.Settings{
		Audit: &entities.AuditSettings{
			RetentionDays: intPtr(365),
			AlertThresholds: []entities.AlertThreshold{
				{Event: "failed_login", Count: 5, WindowSeconds: 300},
			},
		},
	}
	if err := ValidateSettings(entities.PolicyTypeAudit, valid); err != nil {
		t.Fatalf("expected valid audit settings, got %v", err)
	}

	badWindow := entities.Settings{
		Audit: &entities.AuditSettings{
			AlertThresholds: []entities.AlertThreshold{
				{Event: "failed_login", Count: 5, WindowSeconds: 30},
			},
		},
	}
	var validationErr *domainerrors.ValidationError
	if err := ValidateSettings(entities.PolicyTypeAudit, badWindow); !errors.As(err, &validationErr) {
		t.Fatalf("expected threshold window violation, got %v", err)
	}
}

func TestValidateSettingsNetworkCIDRs(t *testing.T) {
	valid := entities.Settings{
		Network: &entities.NetworkSettings{
			AllowedCIDRs: []string{"10.0.0.0/8", "192.168.1.0/24"},
			FirewallRules: []entities.FirewallRule{
				{Name: "allow-dns", Action: "allow", Priority: 10, Protocol: "udp"},
			},
		},
	}
	if err := ValidateSettings(entities.PolicyTypeNetwork, valid); err != nil {
		t.Fatalf("expected valid network settings, got %v", err)
	}

	badCIDR := entities.Settings{
		Network: &entities.NetworkSettings{AllowedCIDRs: []string{"10.0.0.0/99"}},
	}
	var validationErr *domainerrors.ValidationError
	if err := ValidateSettings(entities.PolicyTypeNetwork, badCIDR); !errors.As(err, &validationErr) {
		t.Fatalf("expected CIDR validation failure, got %v", err)
	}
}

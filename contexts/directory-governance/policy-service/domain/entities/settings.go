package entities

// Settings is the tagged union of per-type policy payloads. Exactly one
// variant must be non-nil and it must match the owning policy's type.
// Optional fields use pointers/slices so an unset field is distinguishable
// from a zero value during field-wise merging.
type Settings struct {
	Password      *PasswordSettings      `json:"password,omitempty"`
	Session       *SessionSettings       `json:"session,omitempty"`
	AccessControl *AccessControlSettings `json:"access_control,omitempty"`
	Audit         *AuditSettings         `json:"audit,omitempty"`
	Application   *ApplicationSettings   `json:"application,omitempty"`
	Network       *NetworkSettings       `json:"network,omitempty"`
}

// Matches reports whether the populated variant corresponds to the given
// policy type and no other variant is set.
func (s Settings) Matches(t PolicyType) bool {
	count := 0
	if s.Password != nil {
		count++
	}
	if s.Session != nil {
		count++
	}
	if s.AccessControl != nil {
		count++
	}
	if s.Audit != nil {
		count++
	}
	if s.Application != nil {
		count++
	}
	if s.Network != nil {
		count++
	}
	if count != 1 {
		return false
	}
	switch t {
	case PolicyTypePassword:
		return s.Password != nil
	case PolicyTypeSession:
		return s.Session != nil
	case PolicyTypeAccessControl:
		return s.AccessControl != nil
	case PolicyTypeAudit:
		return s.Audit != nil
	case PolicyTypeApplication:
		return s.Application != nil
	case PolicyTypeNetwork:
		return s.Network != nil
	default:
		return false
	}
}

// PasswordSettings field names follow the original wire contract.
type PasswordSettings struct {
	MinimumLength       *int  `json:"minimumLength,omitempty"`
	MaximumAge          *int  `json:"maximumAge,omitempty"`
	HistoryCount        *int  `json:"historyCount,omitempty"`
	LockoutThreshold    *int  `json:"lockoutThreshold,omitempty"`
	RequireUppercase    *bool `json:"requireUppercase,omitempty"`
	RequireLowercase    *bool `json:"requireLowercase,omitempty"`
	RequireNumbers      *bool `json:"requireNumbers,omitempty"`
	RequireSpecialChars *bool `json:"requireSpecialChars,omitempty"`
}

type SessionSettings struct {
	MaxSessionDuration     *int  `json:"maxSessionDuration,omitempty"`
	IdleTimeout            *int  `json:"idleTimeout,omitempty"`
	ConcurrentSessionLimit *int  `json:"concurrentSessionLimit,omitempty"`
	RequireMFA             *bool `json:"requireMfa,omitempty"`
}

type AccessControlSettings struct {
	IPWhitelist       []string    `json:"ipWhitelist,omitempty"`
	IPBlacklist       []string    `json:"ipBlacklist,omitempty"`
	AllowedTimeRanges []TimeRange `json:"allowedTimeRanges,omitempty"`
}

// TimeRange restricts access to a daily window on the listed weekdays.
// Start and End use 24h "HH:MM" notation.
type TimeRange struct {
	Start string   `json:"start"`
	End   string   `json:"end"`
	Days  []string `json:"days"`
}

type AuditSettings struct {
	RetentionDays   *int             `json:"retentionDays,omitempty"`
	LogLogins       *bool            `json:"logLogins,omitempty"`
	LogChanges      *bool            `json:"logChanges,omitempty"`
	AlertThresholds []AlertThreshold `json:"alertThresholds,omitempty"`
}

// AlertThreshold fires when an event occurs Count times within WindowSeconds.
type AlertThreshold struct {
	Event         string `json:"event"`
	Count         int    `json:"count"`
	WindowSeconds int    `json:"windowSeconds"`
}

type ApplicationSettings struct {
	Permissions []ApplicationPermission `json:"permissions,omitempty"`
}

type ApplicationPermission struct {
	ApplicationID string   `json:"applicationId"`
	Permissions   []string `json:"permissions"`
}

type NetworkSettings struct {
	AllowedCIDRs  []string       `json:"allowedCidrs,omitempty"`
	BlockedCIDRs  []string       `json:"blockedCidrs,omitempty"`
	FirewallRules []FirewallRule `json:"firewallRules,omitempty"`
}

type FirewallRule struct {
	Name     string `json:"name"`
	Action   string `json:"action"`
	Priority int    `json:"priority"`
	Protocol string `json:"protocol,omitempty"`
}

package entities

// ResolutionStrategy is the proposed way to settle a detected conflict.
type ResolutionStrategy string

const (
	ResolutionMin          ResolutionStrategy = "min"
	ResolutionMax          ResolutionStrategy = "max"
	ResolutionIntersection ResolutionStrategy = "intersection"
	ResolutionUnion        ResolutionStrategy = "union"
	ResolutionManual       ResolutionStrategy = "manual"
)

// ConflictSeverity grades the safety impact of picking the wrong value.
type ConflictSeverity string

const (
	SeverityLow    ConflictSeverity = "low"
	SeverityMedium ConflictSeverity = "medium"
	SeverityHigh   ConflictSeverity = "high"
)

// ConflictTypeSettingMismatch is the only conflict kind currently detected:
// two or more applicable policies assign different values to one setting.
const ConflictTypeSettingMismatch = "setting_mismatch"

// ConflictingValue pairs an observed value with the policy that set it.
type ConflictingValue struct {
	PolicyID string `json:"policy_id"`
	Value    any    `json:"value"`
}

// PolicyConflict is a detected disagreement between applicable policies,
// reported for operator review regardless of how the merge would resolve it.
type PolicyConflict struct {
	Type              string             `json:"type"`
	PolicyType        PolicyType         `json:"policy_type"`
	SettingPath       string             `json:"setting_path"`
	ConflictingValues []ConflictingValue `json:"conflicting_values"`
	Resolution        ResolutionStrategy `json:"resolution"`
	Severity          ConflictSeverity   `json:"severity"`
}

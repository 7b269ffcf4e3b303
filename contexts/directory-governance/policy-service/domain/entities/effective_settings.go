package entities

// ResolvedPolicy is the merged payload for one policy type together with the
// ordered ids of the policies that contributed to it, in precedence order.
type ResolvedPolicy struct {
	Settings        Settings `json:"settings"`
	SourcePolicyIDs []string `json:"source_policy_ids"`
}

// EffectiveSettings is the single configuration a user actually experiences.
// Types with no applicable policy are absent from the map rather than carrying
// default values. The value is a pure function of the applicable policy set,
// so repeated resolution with unchanged inputs yields identical results.
type EffectiveSettings struct {
	UserID string                        `json:"user_id"`
	Types  map[PolicyType]ResolvedPolicy `json:"types"`
}

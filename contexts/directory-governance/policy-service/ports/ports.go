package ports

import (
	"context"
	"time"

	"polaris/contexts/directory-governance/policy-service/domain/entities"
	"polaris/internal/shared/events"
)

// Clock abstracts current time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID generation for policies/outbox rows.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// DirectoryStore is the read-only projection over the directory graph. The
// engine issues no directory writes; provisioning lives elsewhere.
type DirectoryStore interface {
	GetUser(ctx context.Context, userID string) (entities.EnterpriseUser, error)
	// GetOUAncestry returns the chain from the root down to the given OU,
	// in root-to-self order.
	GetOUAncestry(ctx context.Context, ouID string) ([]entities.OrganizationUnit, error)
	// GetOUMembers returns user ids assigned to the OU or any descendant OU.
	GetOUMembers(ctx context.Context, ouID string) ([]string, error)
	GetGroupMembers(ctx context.Context, groupID string) ([]string, error)
}

// SavePolicyInput persists a policy record together with its outbox row in
// one store operation.
type SavePolicyInput struct {
	Policy       entities.Policy
	OutboxID     string
	EventType    string
	EventPayload []byte
}

// DeletePolicyInput unbinds the policy from all targets, removes the record,
// and appends the outbox row atomically.
type DeletePolicyInput struct {
	PolicyID     string
	OutboxID     string
	EventType    string
	EventPayload []byte
}

// PolicyStore is the write/read boundary for policy records and their
// OU/group bindings.
type PolicyStore interface {
	GetPolicy(ctx context.Context, policyID string) (entities.Policy, error)
	ListPolicies(ctx context.Context) ([]entities.Policy, error)
	GetPoliciesForOU(ctx context.Context, ouID string) ([]entities.Policy, error)
	GetPoliciesForGroup(ctx context.Context, groupID string) ([]entities.Policy, error)
	SavePolicy(ctx context.Context, input SavePolicyInput) error
	DeletePolicy(ctx context.Context, input DeletePolicyInput) error
}

// SettingsCache stores resolved effective settings with TTL semantics. Any
// policy or membership write must invalidate affected entries; the cache is
// an optimization only and resolution never depends on it.
type SettingsCache interface {
	Get(ctx context.Context, userID string, now time.Time) (entities.EffectiveSettings, bool, error)
	Set(ctx context.Context, userID string, settings entities.EffectiveSettings, expiresAt time.Time) error
	Invalidate(ctx context.Context, userID string) error
}

// IdempotencyRecord stores request hash and previous response payload.
type IdempotencyRecord struct {
	Key             string
	Operation       string
	RequestHash     string
	ResponsePayload []byte
	ExpiresAt       time.Time
}

// IdempotencyStore guarantees replay/conflict behavior for mutating endpoints.
type IdempotencyStore interface {
	GetRecord(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	PutRecord(ctx context.Context, record IdempotencyRecord) error
}

// OutboxMessage represents a pending relay message.
type OutboxMessage struct {
	OutboxID  string
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

// OutboxRepository supports worker relay polling and acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// PolicyChangedEvent reuses the canonical cross-process envelope contract.
type PolicyChangedEvent = events.Envelope

// PolicyChangedPublisher emits policy change events to the event bus adapter.
type PolicyChangedPublisher interface {
	PublishPolicyChanged(ctx context.Context, event PolicyChangedEvent) error
}

// EventDedupStore enforces idempotent processing for consumed events.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

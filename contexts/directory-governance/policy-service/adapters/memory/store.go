package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"polaris/contexts/directory-governance/policy-service/domain/entities"
	domainerrors "polaris/contexts/directory-governance/policy-service/domain/errors"
	"polaris/contexts/directory-governance/policy-service/ports"

	"github.com/google/uuid"
)

// Store is an in-memory adapter implementing the directory, policy, cache,
// idempotency, outbox, and dedup ports. It is intended for tests and local
// development wiring; group membership lives on the user record so there is
// a single source of truth for membership scans.
type Store struct {
	mu sync.RWMutex

	users    map[string]entities.EnterpriseUser
	ous      map[string]entities.OrganizationUnit
	groups   map[string]entities.SecurityGroup
	policies map[string]entities.Policy

	idempotency map[string]ports.IdempotencyRecord
	cache       map[string]cacheEntry
	outbox      map[string]outboxRow
	dedup       map[string]dedupEntry
}

type cacheEntry struct {
	Settings  entities.EffectiveSettings
	ExpiresAt time.Time
}

type outboxRow struct {
	ports.OutboxMessage
	PublishedAt *time.Time
}

type dedupEntry struct {
	PayloadHash string
	ExpiresAt   time.Time
}

// NewStore builds an empty in-memory adapter; callers seed directory data
// with the Add helpers.
func NewStore() *Store {
	return &Store{
		users:       make(map[string]entities.EnterpriseUser),
		ous:         make(map[string]entities.OrganizationUnit),
		groups:      make(map[string]entities.SecurityGroup),
		policies:    make(map[string]entities.Policy),
		idempotency: make(map[string]ports.IdempotencyRecord),
		cache:       make(map[string]cacheEntry),
		outbox:      make(map[string]outboxRow),
		dedup:       make(map[string]dedupEntry),
	}
}

// AddUser registers or replaces a directory user.
func (s *Store) AddUser(user entities.EnterpriseUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.UserID] = user
}

// AddOU registers or replaces an organization unit node.
func (s *Store) AddOU(ou entities.OrganizationUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ous[ou.OUID] = ou
}

// AddGroup registers or replaces a security group.
func (s *Store) AddGroup(group entities.SecurityGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[group.GroupID] = group
}

func (s *Store) GetUser(_ context.Context, userID string) (entities.EnterpriseUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return entities.EnterpriseUser{}, domainerrors.ErrUserNotFound
	}
	return user, nil
}

// GetOUAncestry walks parents up to the root and returns the chain in
// root-to-self order.
func (s *Store) GetOUAncestry(_ context.Context, ouID string) ([]entities.OrganizationUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ancestryLocked(ouID)
}

func (s *Store) ancestryLocked(ouID string) ([]entities.OrganizationUnit, error) {
	chain := make([]entities.OrganizationUnit, 0, 4)
	visited := make(map[string]struct{})
	current := ouID
	for current != "" {
		if _, seen := visited[current]; seen {
			return nil, errors.New("organization unit cycle detected")
		}
		visited[current] = struct{}{}
		ou, ok := s.ous[current]
		if !ok {
			return nil, domainerrors.ErrOUNotFound
		}
		chain = append(chain, ou)
		if ou.ParentID == nil {
			break
		}
		current = *ou.ParentID
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// GetOUMembers returns users assigned to the OU or any descendant, since an
// ancestor-bound policy reaches every user beneath it.
func (s *Store) GetOUMembers(_ context.Context, ouID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.ous[ouID]; !ok {
		return nil, domainerrors.ErrOUNotFound
	}

	members := make([]string, 0)
	for _, user := range s.users {
		if user.OUID == "" {
			continue
		}
		chain, err := s.ancestryLocked(user.OUID)
		if err != nil {
			continue
		}
		for _, ou := range chain {
			if ou.OUID == ouID {
				members = append(members, user.UserID)
				break
			}
		}
	}
	sort.Strings(members)
	return members, nil
}

func (s *Store) GetGroupMembers(_ context.Context, groupID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.groups[groupID]; !ok {
		return nil, domainerrors.ErrGroupNotFound
	}

	members := make([]string, 0)
	for _, user := range s.users {
		for _, candidate := range user.GroupIDs {
			if candidate == groupID {
				members = append(members, user.UserID)
				break
			}
		}
	}
	sort.Strings(members)
	return members, nil
}

func (s *Store) GetPolicy(_ context.Context, policyID string) (entities.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policy, ok := s.policies[policyID]
	if !ok {
		return entities.Policy{}, domainerrors.ErrPolicyNotFound
	}
	return policy, nil
}

func (s *Store) ListPolicies(_ context.Context) ([]entities.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Policy, 0, len(s.policies))
	for _, policy := range s.policies {
		items = append(items, policy)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].PolicyID < items[j].PolicyID
	})
	return items, nil
}

func (s *Store) GetPoliciesForOU(_ context.Context, ouID string) ([]entities.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Policy, 0)
	for _, policy := range s.policies {
		for _, target := range policy.TargetOUs {
			if target == ouID {
				items = append(items, policy)
				break
			}
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].PolicyID < items[j].PolicyID
	})
	return items, nil
}

func (s *Store) GetPoliciesForGroup(_ context.Context, groupID string) ([]entities.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Policy, 0)
	for _, policy := range s.policies {
		for _, target := range policy.TargetGroups {
			if target == groupID {
				items = append(items, policy)
				break
			}
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].PolicyID < items[j].PolicyID
	})
	return items, nil
}

func (s *Store) SavePolicy(_ context.Context, input ports.SavePolicyInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.policies[input.Policy.PolicyID] = input.Policy
	return s.appendOutbox(input.OutboxID, input.EventType, input.EventPayload, input.Policy.UpdatedAt.UTC())
}

func (s *Store) DeletePolicy(_ context.Context, input ports.DeletePolicyInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.policies[input.PolicyID]; !ok {
		return domainerrors.ErrPolicyNotFound
	}
	delete(s.policies, input.PolicyID)
	return s.appendOutbox(input.OutboxID, input.EventType, input.EventPayload, time.Now().UTC())
}

func (s *Store) Get(_ context.Context, userID string, now time.Time) (entities.EffectiveSettings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache[userID]
	if !ok {
		return entities.EffectiveSettings{}, false, nil
	}
	if !entry.ExpiresAt.After(now) {
		delete(s.cache, userID)
		return entities.EffectiveSettings{}, false, nil
	}
	return entry.Settings, true, nil
}

func (s *Store) Set(_ context.Context, userID string, settings entities.EffectiveSettings, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[userID] = cacheEntry{
		Settings:  settings,
		ExpiresAt: expiresAt.UTC(),
	}
	return nil
}

func (s *Store) Invalidate(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cache, userID)
	return nil
}

func (s *Store) GetRecord(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.idempotency[key]
	if !ok {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.After(now) {
		delete(s.idempotency, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) PutRecord(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.idempotency[record.Key]
	if exists && existing.RequestHash != record.RequestHash {
		return domainerrors.ErrIdempotencyConflict
	}
	s.idempotency[record.Key] = record
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.PublishedAt == nil {
			rows = append(rows, row.OutboxMessage)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.outbox[outboxID]
	if !ok {
		return errors.New("outbox record not found")
	}
	value := publishedAt.UTC()
	row.PublishedAt = &value
	s.outbox[outboxID] = row
	return nil
}

func (s *Store) ReserveEvent(_ context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.dedup[eventID]
	if !ok {
		s.dedup[eventID] = dedupEntry{
			PayloadHash: payloadHash,
			ExpiresAt:   expiresAt.UTC(),
		}
		return false, nil
	}
	if existing.PayloadHash != payloadHash {
		return false, domainerrors.ErrIdempotencyConflict
	}
	return true, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) appendOutbox(outboxID string, eventType string, payload []byte, createdAt time.Time) error {
	if _, exists := s.outbox[outboxID]; exists {
		return domainerrors.ErrIdempotencyConflict
	}
	s.outbox[outboxID] = outboxRow{
		OutboxMessage: ports.OutboxMessage{
			OutboxID:  outboxID,
			EventType: eventType,
			Payload:   append([]byte(nil), payload...),
			CreatedAt: createdAt,
		},
	}
	return nil
}

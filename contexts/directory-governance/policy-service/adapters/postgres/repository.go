package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"polaris/contexts/directory-governance/policy-service/domain/entities"
	domainerrors "polaris/contexts/directory-governance/policy-service/domain/errors"
	"polaris/contexts/directory-governance/policy-service/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the PostgreSQL adapter for policy records, their target
// bindings, the directory projection, idempotency, outbox, and event dedup.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates every table the adapter reads and writes.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&policyModel{},
		&policyOUBindingModel{},
		&policyGroupBindingModel{},
		&userModel{},
		&ouModel{},
		&groupModel{},
		&groupMemberModel{},
		&idempotencyModel{},
		&outboxModel{},
		&eventDedupModel{},
	)
}

func (r *Repository) GetPolicy(ctx context.Context, policyID string) (entities.Policy, error) {
	var row policyModel
	err := r.db.WithContext(ctx).
		Where("policy_id = ?", strings.TrimSpace(policyID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Policy{}, domainerrors.ErrPolicyNotFound
		}
		return entities.Policy{}, storeError(err)
	}
	return r.hydratePolicy(ctx, row)
}

func (r *Repository) ListPolicies(ctx context.Context) ([]entities.Policy, error) {
	var rows []policyModel
	if err := r.db.WithContext(ctx).
		Order("policy_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, storeError(err)
	}
	return r.hydratePolicies(ctx, rows)
}

func (r *Repository) GetPoliciesForOU(ctx context.Context, ouID string) ([]entities.Policy, error) {
	return r.policiesBound(ctx, &policyOUBindingModel{}, "ou_id = ?", strings.TrimSpace(ouID))
}

func (r *Repository) GetPoliciesForGroup(ctx context.Context, groupID string) ([]entities.Policy, error) {
	return r.policiesBound(ctx, &policyGroupBindingModel{}, "group_id = ?", strings.TrimSpace(groupID))
}

func (r *Repository) policiesBound(ctx context.Context, bindingModel any, where string, target string) ([]entities.Policy, error) {
	var policyIDs []string
	if err := r.db.WithContext(ctx).
		Model(bindingModel).
		Where(where, target).
		Pluck("policy_id", &policyIDs).
		Error; err != nil {
		return nil, storeError(err)
	}
	if len(policyIDs) == 0 {
		return []entities.Policy{}, nil
	}

	var rows []policyModel
	if err := r.db.WithContext(ctx).
		Where("policy_id IN ?", policyIDs).
		Order("policy_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, storeError(err)
	}
	return r.hydratePolicies(ctx, rows)
}

// SavePolicy upserts the policy row, rewrites its target bindings, and
// appends the outbox row in one transaction.
func (r *Repository) SavePolicy(ctx context.Context, input ports.SavePolicyInput) error {
	row, err := policyModelFromEntity(input.Policy)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "policy_id"}},
			UpdateAll: true,
		}).Create(&row).Error; err != nil {
			return err
		}

		if err := tx.Where("policy_id = ?", row.PolicyID).Delete(&policyOUBindingModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("policy_id = ?", row.PolicyID).Delete(&policyGroupBindingModel{}).Error; err != nil {
			return err
		}
		for _, ouID := range input.Policy.TargetOUs {
			binding := policyOUBindingModel{PolicyID: row.PolicyID, OUID: strings.TrimSpace(ouID)}
			if err := tx.Create(&binding).Error; err != nil {
				return err
			}
		}
		for _, groupID := range input.Policy.TargetGroups {
			binding := policyGroupBindingModel{PolicyID: row.PolicyID, GroupID: strings.TrimSpace(groupID)}
			if err := tx.Create(&binding).Error; err != nil {
				return err
			}
		}

		return insertOutboxTx(tx, input.OutboxID, input.EventType, row.PolicyID, input.EventPayload, row.UpdatedAt)
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrIdempotencyConflict) {
			return err
		}
		return storeError(err)
	}
	return nil
}

// DeletePolicy removes the record with its bindings and appends the outbox
// row atomically. Missing policies surface the not-found sentinel.
func (r *Repository) DeletePolicy(ctx context.Context, input ports.DeletePolicyInput) error {
	policyID := strings.TrimSpace(input.PolicyID)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("policy_id = ?", policyID).Delete(&policyOUBindingModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("policy_id = ?", policyID).Delete(&policyGroupBindingModel{}).Error; err != nil {
			return err
		}

		result := tx.Where("policy_id = ?", policyID).Delete(&policyModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrPolicyNotFound
		}

		return insertOutboxTx(tx, input.OutboxID, input.EventType, policyID, input.EventPayload, time.Now().UTC())
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrPolicyNotFound) || errors.Is(err, domainerrors.ErrIdempotencyConflict) {
			return err
		}
		return storeError(err)
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, userID string) (entities.EnterpriseUser, error) {
	var row userModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.EnterpriseUser{}, domainerrors.ErrUserNotFound
		}
		return entities.EnterpriseUser{}, storeError(err)
	}

	var groupIDs []string
	if err := r.db.WithContext(ctx).
		Model(&groupMemberModel{}).
		Where("user_id = ?", row.UserID).
		Order("group_id ASC").
		Pluck("group_id", &groupIDs).
		Error; err != nil {
		return entities.EnterpriseUser{}, storeError(err)
	}

	return entities.EnterpriseUser{
		UserID:   row.UserID,
		Email:    row.Email,
		OUID:     row.OUID,
		GroupIDs: groupIDs,
	}, nil
}

// GetOUAncestry walks parent links up to the root and returns the chain in
// root-to-self order.
func (r *Repository) GetOUAncestry(ctx context.Context, ouID string) ([]entities.OrganizationUnit, error) {
	chain := make([]entities.OrganizationUnit, 0, 4)
	visited := make(map[string]struct{})
	current := strings.TrimSpace(ouID)
	for current != "" {
		if _, seen := visited[current]; seen {
			return nil, fmt.Errorf("organization unit cycle at %s", current)
		}
		visited[current] = struct{}{}

		var row ouModel
		err := r.db.WithContext(ctx).
			Where("ou_id = ?", current).
			First(&row).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domainerrors.ErrOUNotFound
			}
			return nil, storeError(err)
		}

		chain = append(chain, entities.OrganizationUnit{
			OUID:     row.OUID,
			Name:     row.Name,
			ParentID: row.ParentID,
		})
		if row.ParentID == nil {
			break
		}
		current = *row.ParentID
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// GetOUMembers returns users assigned to the OU or any OU beneath it.
func (r *Repository) GetOUMembers(ctx context.Context, ouID string) ([]string, error) {
	root := strings.TrimSpace(ouID)
	var exists int64
	if err := r.db.WithContext(ctx).
		Model(&ouModel{}).
		Where("ou_id = ?", root).
		Count(&exists).
		Error; err != nil {
		return nil, storeError(err)
	}
	if exists == 0 {
		return nil, domainerrors.ErrOUNotFound
	}

	subtree := []string{root}
	frontier := []string{root}
	for len(frontier) > 0 {
		var children []string
		if err := r.db.WithContext(ctx).
			Model(&ouModel{}).
			Where("parent_id IN ?", frontier).
			Pluck("ou_id", &children).
			Error; err != nil {
			return nil, storeError(err)
		}
		subtree = append(subtree, children...)
		frontier = children
	}

	var members []string
	if err := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("ou_id IN ?", subtree).
		Order("user_id ASC").
		Pluck("user_id", &members).
		Error; err != nil {
		return nil, storeError(err)
	}
	return members, nil
}

func (r *Repository) GetGroupMembers(ctx context.Context, groupID string) ([]string, error) {
	target := strings.TrimSpace(groupID)
	var exists int64
	if err := r.db.WithContext(ctx).
		Model(&groupModel{}).
		Where("group_id = ?", target).
		Count(&exists).
		Error; err != nil {
		return nil, storeError(err)
	}
	if exists == 0 {
		return nil, domainerrors.ErrGroupNotFound
	}

	var members []string
	if err := r.db.WithContext(ctx).
		Model(&groupMemberModel{}).
		Where("group_id = ?", target).
		Order("user_id ASC").
		Pluck("user_id", &members).
		Error; err != nil {
		return nil, storeError(err)
	}
	return members, nil
}

func (r *Repository) GetRecord(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, storeError(err)
	}
	if !row.ExpiresAt.After(now) {
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:             row.Key,
		Operation:       row.Operation,
		RequestHash:     row.RequestHash,
		ResponsePayload: append([]byte(nil), row.ResponsePayload...),
		ExpiresAt:       row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) PutRecord(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:             strings.TrimSpace(record.Key),
		Operation:       record.Operation,
		RequestHash:     record.RequestHash,
		ResponsePayload: append([]byte(nil), record.ResponsePayload...),
		ExpiresAt:       record.ExpiresAt.UTC(),
	}
	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(&row)
	if createResult.Error != nil {
		return storeError(createResult.Error)
	}
	if createResult.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Select("request_hash").
		Where("key = ?", row.Key).
		First(&existing).
		Error; err != nil {
		return storeError(err)
	}
	if existing.RequestHash != row.RequestHash {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, storeError(err)
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:  row.OutboxID,
			EventType: row.EventType,
			Payload:   append([]byte(nil), row.Payload...),
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return storeError(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("outbox record %s not found", outboxID)
	}
	return nil
}

func (r *Repository) ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: payloadHash,
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if createResult.Error != nil {
		return false, storeError(createResult.Error)
	}
	if createResult.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", row.EventID).
		First(&existing).
		Error; err != nil {
		return false, storeError(err)
	}
	if existing.PayloadHash != row.PayloadHash {
		return false, domainerrors.ErrIdempotencyConflict
	}
	return true, nil
}

func (r *Repository) hydratePolicies(ctx context.Context, rows []policyModel) ([]entities.Policy, error) {
	items := make([]entities.Policy, 0, len(rows))
	for _, row := range rows {
		policy, err := r.hydratePolicy(ctx, row)
		if err != nil {
			return nil, err
		}
		items = append(items, policy)
	}
	return items, nil
}

func (r *Repository) hydratePolicy(ctx context.Context, row policyModel) (entities.Policy, error) {
	policy, err := row.toEntity()
	if err != nil {
		return entities.Policy{}, err
	}

	var ouIDs []string
	if err := r.db.WithContext(ctx).
		Model(&policyOUBindingModel{}).
		Where("policy_id = ?", row.PolicyID).
		Order("ou_id ASC").
		Pluck("ou_id", &ouIDs).
		Error; err != nil {
		return entities.Policy{}, storeError(err)
	}
	var groupIDs []string
	if err := r.db.WithContext(ctx).
		Model(&policyGroupBindingModel{}).
		Where("policy_id = ?", row.PolicyID).
		Order("group_id ASC").
		Pluck("group_id", &groupIDs).
		Error; err != nil {
		return entities.Policy{}, storeError(err)
	}

	policy.TargetOUs = ouIDs
	policy.TargetGroups = groupIDs
	return policy, nil
}

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

func insertOutboxTx(tx *gorm.DB, outboxID string, eventType string, partitionKey string, payload []byte, createdAt time.Time) error {
	row := outboxModel{
		OutboxID:     strings.TrimSpace(outboxID),
		EventType:    strings.TrimSpace(eventType),
		PartitionKey: strings.TrimSpace(partitionKey),
		Payload:      append([]byte(nil), payload...),
		Status:       outboxStatusPending,
		CreatedAt:    createdAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	createResult := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if createResult.Error != nil {
		return createResult.Error
	}
	if createResult.RowsAffected == 0 {
		var existing outboxModel
		if err := tx.Select("payload").Where("outbox_id = ?", row.OutboxID).First(&existing).Error; err != nil {
			return err
		}
		if !bytes.Equal(existing.Payload, row.Payload) {
			return domainerrors.ErrIdempotencyConflict
		}
	}
	return nil
}

func storeError(err error) error {
	return fmt.Errorf("%w: %v", domainerrors.ErrStoreUnavailable, err)
}

type policyModel struct {
	PolicyID    string    `gorm:"column:policy_id;primaryKey"`
	PolicyName  string    `gorm:"column:policy_name"`
	Description string    `gorm:"column:description"`
	PolicyType  string    `gorm:"column:policy_type"`
	Scope       string    `gorm:"column:scope"`
	Settings    []byte    `gorm:"column:settings;type:jsonb"`
	Enforced    bool      `gorm:"column:enforced"`
	Enabled     bool      `gorm:"column:enabled"`
	ApplyOrder  int       `gorm:"column:apply_order"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (policyModel) TableName() string {
	return "policies"
}

func policyModelFromEntity(item entities.Policy) (policyModel, error) {
	settings, err := json.Marshal(item.Settings)
	if err != nil {
		return policyModel{}, err
	}
	return policyModel{
		PolicyID:    strings.TrimSpace(item.PolicyID),
		PolicyName:  strings.TrimSpace(item.PolicyName),
		Description: strings.TrimSpace(item.Description),
		PolicyType:  string(item.Type),
		Scope:       string(item.Scope),
		Settings:    settings,
		Enforced:    item.Enforced,
		Enabled:     item.Enabled,
		ApplyOrder:  item.Order,
		CreatedAt:   item.CreatedAt.UTC(),
		UpdatedAt:   item.UpdatedAt.UTC(),
	}, nil
}

func (m policyModel) toEntity() (entities.Policy, error) {
	var settings entities.Settings
	if len(m.Settings) > 0 {
		if err := json.Unmarshal(m.Settings, &settings); err != nil {
			return entities.Policy{}, err
		}
	}
	return entities.Policy{
		PolicyID:    m.PolicyID,
		PolicyName:  m.PolicyName,
		Description: m.Description,
		Type:        entities.PolicyType(m.PolicyType),
		Scope:       entities.PolicyScope(m.Scope),
		Settings:    settings,
		Enforced:    m.Enforced,
		Enabled:     m.Enabled,
		Order:       m.ApplyOrder,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}, nil
}

type policyOUBindingModel struct {
	PolicyID string `gorm:"column:policy_id;primaryKey"`
	OUID     string `gorm:"column:ou_id;primaryKey"`
}

func (policyOUBindingModel) TableName() string {
	return "policy_ou_bindings"
}

type policyGroupBindingModel struct {
	PolicyID string `gorm:"column:policy_id;primaryKey"`
	GroupID  string `gorm:"column:group_id;primaryKey"`
}

func (policyGroupBindingModel) TableName() string {
	return "policy_group_bindings"
}

type userModel struct {
	UserID string `gorm:"column:user_id;primaryKey"`
	Email  string `gorm:"column:email"`
	OUID   string `gorm:"column:ou_id"`
}

func (userModel) TableName() string {
	return "directory_users"
}

type ouModel struct {
	OUID     string  `gorm:"column:ou_id;primaryKey"`
	Name     string  `gorm:"column:name"`
	ParentID *string `gorm:"column:parent_id"`
}

func (ouModel) TableName() string {
	return "directory_ous"
}

type groupModel struct {
	GroupID string `gorm:"column:group_id;primaryKey"`
	Name    string `gorm:"column:name"`
}

func (groupModel) TableName() string {
	return "directory_groups"
}

type groupMemberModel struct {
	GroupID string `gorm:"column:group_id;primaryKey"`
	UserID  string `gorm:"column:user_id;primaryKey"`
}

func (groupMemberModel) TableName() string {
	return "directory_group_members"
}

type idempotencyModel struct {
	Key             string    `gorm:"column:key;primaryKey"`
	Operation       string    `gorm:"column:operation"`
	RequestHash     string    `gorm:"column:request_hash"`
	ResponsePayload []byte    `gorm:"column:response_payload"`
	ExpiresAt       time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "policy_idempotency"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "policy_outbox"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "policy_event_dedup"
}

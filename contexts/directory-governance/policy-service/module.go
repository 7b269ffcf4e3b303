package policyservice

import (
	"log/slog"
	"time"

	httpadapter "polaris/contexts/directory-governance/policy-service/adapters/http"
	"polaris/contexts/directory-governance/policy-service/adapters/memory"
	"polaris/contexts/directory-governance/policy-service/application/commands"
	"polaris/contexts/directory-governance/policy-service/application/queries"
	"polaris/contexts/directory-governance/policy-service/application/workers"
	"polaris/contexts/directory-governance/policy-service/ports"
)

// Module is the policy-service composition root exposed to runtime wiring.
type Module struct {
	Handler     httpadapter.Handler
	OutboxRelay workers.OutboxRelay
	Consumer    workers.PolicyChangedConsumer
	Store       *memory.Store
}

// Dependencies captures all runtime ports/config required by NewModule.
type Dependencies struct {
	Directory        ports.DirectoryStore
	Policies         ports.PolicyStore
	Idempotency      ports.IdempotencyStore
	SettingsCache    ports.SettingsCache
	Outbox           ports.OutboxRepository
	Publisher        ports.PolicyChangedPublisher
	Dedup            ports.EventDedupStore
	Clock            ports.Clock
	IDGenerator      ports.IDGenerator
	IdempotencyTTL   time.Duration
	SettingsCacheTTL time.Duration
	Logger           *slog.Logger
}

// NewModule wires policy use-cases, workers, and the transport handler using
// explicit ports.
func NewModule(deps Dependencies) Module {
	membership := queries.MembershipResolver{
		Directory: deps.Directory,
		Logger:    deps.Logger,
	}
	collector := queries.PolicyCollector{
		Policies: deps.Policies,
		Logger:   deps.Logger,
	}
	getEffective := queries.GetEffectiveSettingsUseCase{
		Membership: membership,
		Collector:  collector,
		Cache:      deps.SettingsCache,
		Clock:      deps.Clock,
		CacheTTL:   deps.SettingsCacheTTL,
		Logger:     deps.Logger,
	}
	getConflicts := queries.GetConflictsUseCase{
		Membership: membership,
		Collector:  collector,
		Logger:     deps.Logger,
	}
	getPolicyValue := queries.GetPolicyValueUseCase{
		EffectiveSettings: getEffective,
		Logger:            deps.Logger,
	}
	getPolicy := queries.GetPolicyUseCase{
		Policies: deps.Policies,
	}
	listPolicies := queries.ListPoliciesUseCase{
		Policies: deps.Policies,
	}
	createPolicy := commands.CreatePolicyUseCase{
		Policies:       deps.Policies,
		Directory:      deps.Directory,
		Idempotency:    deps.Idempotency,
		SettingsCache:  deps.SettingsCache,
		Clock:          deps.Clock,
		IDGenerator:    deps.IDGenerator,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	updatePolicy := commands.UpdatePolicyUseCase{
		Policies:       deps.Policies,
		Directory:      deps.Directory,
		Idempotency:    deps.Idempotency,
		SettingsCache:  deps.SettingsCache,
		Clock:          deps.Clock,
		IDGenerator:    deps.IDGenerator,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	deletePolicy := commands.DeletePolicyUseCase{
		Policies:       deps.Policies,
		Directory:      deps.Directory,
		Idempotency:    deps.Idempotency,
		SettingsCache:  deps.SettingsCache,
		Clock:          deps.Clock,
		IDGenerator:    deps.IDGenerator,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}

	handler := httpadapter.Handler{
		CreatePolicy:         createPolicy,
		UpdatePolicy:         updatePolicy,
		DeletePolicy:         deletePolicy,
		GetPolicy:            getPolicy,
		ListPolicies:         listPolicies,
		GetEffectiveSettings: getEffective,
		GetConflicts:         getConflicts,
		GetPolicyValue:       getPolicyValue,
		Logger:               deps.Logger,
	}
	relay := workers.OutboxRelay{
		Outbox:    deps.Outbox,
		Publisher: deps.Publisher,
		Clock:     deps.Clock,
		Logger:    deps.Logger,
	}
	consumer := workers.PolicyChangedConsumer{
		Dedup:         deps.Dedup,
		Directory:     deps.Directory,
		SettingsCache: deps.SettingsCache,
		Clock:         deps.Clock,
		Logger:        deps.Logger,
	}

	return Module{
		Handler:     handler,
		OutboxRelay: relay,
		Consumer:    consumer,
	}
}

// NewInMemoryModule builds a development/testing module with in-memory adapters.
func NewInMemoryModule(publisher ports.PolicyChangedPublisher, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Directory:        store,
		Policies:         store,
		Idempotency:      store,
		SettingsCache:    store,
		Outbox:           store,
		Publisher:        publisher,
		Dedup:            store,
		Clock:            store,
		IDGenerator:      store,
		IdempotencyTTL:   7 * 24 * time.Hour,
		SettingsCacheTTL: 5 * time.Minute,
		Logger:           logger,
	})
	module.Store = store
	return module
}

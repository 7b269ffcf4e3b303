// Package policyservice implements the group policy resolution engine inside
// Polaris.
//
// Layering:
// - domain: policy entities, settings payloads, validation, precedence, conflicts
// - application: commands/queries/workers using explicit ports
// - ports: stable boundaries for directory reads, persistence, cache, events
// - adapters: concrete HTTP, memory, postgres, redis, and event publisher implementations
// - transport: module-private DTOs for HTTP contracts
//
// Boundary notes:
// - Keep this module self-contained under the directory-governance context.
// - Do not import other context adapters into domain/application.
// - Directory data is a read-only projection; user/OU/group provisioning lives elsewhere.
package policyservice

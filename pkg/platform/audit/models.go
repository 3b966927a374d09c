package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention and routing.
type EventCategory string

const (
	// CategoryGovernance covers changes to who controls a registry.
	CategoryGovernance EventCategory = "governance"

	// CategoryAuthorization covers proposal approvals and executions.
	CategoryAuthorization EventCategory = "authorization"

	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from the service layer to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   EventCategory `json:"category"`
	Timestamp  time.Time     `json:"timestamp"`
	RegistryID string        `json:"registry_id,omitempty"`
	ProposalID string        `json:"proposal_id,omitempty"`
	// Actor is the hex caller identity, or the derived authority for executions.
	Actor     string `json:"actor,omitempty"`
	Action    string `json:"action"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	EventRegistryInitialized     AuditEvent = "registry_initialized"
	EventRegistryOwnersChanged   AuditEvent = "registry_owners_changed"
	EventRegistryThresholdChange AuditEvent = "registry_threshold_changed"

	EventProposalCreated         AuditEvent = "proposal_created"
	EventProposalApproved        AuditEvent = "proposal_approved"
	EventProposalExecuted        AuditEvent = "proposal_executed"
	EventProposalExecutionFailed AuditEvent = "proposal_execution_failed"

	// EventProposalCommitLost records an invocation that succeeded but whose
	// executed_at write did not land. The proposal still reads as pending.
	EventProposalCommitLost AuditEvent = "proposal_commit_lost"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventRegistryInitialized:     CategoryGovernance,
	EventRegistryOwnersChanged:   CategoryGovernance,
	EventRegistryThresholdChange: CategoryGovernance,

	EventProposalApproved:        CategoryAuthorization,
	EventProposalExecuted:        CategoryAuthorization,
	EventProposalExecutionFailed: CategoryAuthorization,
	EventProposalCommitLost:      CategoryAuthorization,

	EventProposalCreated: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Sink accepts audit events. Implementations must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a Sink that can also be queried.
type Store interface {
	Sink
	ListByRegistry(ctx context.Context, registryID string) ([]Event, error)
}

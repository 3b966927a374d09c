package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"multisig/internal/multisig/models"
	"multisig/pkg/domain"
	"multisig/pkg/platform/audit"
)

// CreateProposal stores a new pending proposal with the caller's approval
// already recorded.
func (s *Service) CreateProposal(ctx context.Context, registryID domain.RegistryID, caller domain.Identity, action models.Action) (_ *models.Proposal, err error) {
	ctx, finish := s.startSpan(ctx, "create_proposal",
		attribute.String("multisig.registry_id", registryID.String()),
		attribute.Int("multisig.resources", len(action.Resources)))
	defer func() { finish(err) }()

	registry, err := s.loadRegistry(ctx, registryID)
	if err != nil {
		return nil, err
	}
	proposal, err := models.NewProposal(domain.NewProposalID(), registry, caller, action)
	if err != nil {
		return nil, err
	}
	if err := s.proposals.Create(ctx, proposal); err != nil {
		return nil, wrapStoreErr(err, "proposal")
	}

	s.logAudit(ctx, audit.EventProposalCreated,
		audit.Event{RegistryID: registry.ID.String(), ProposalID: proposal.ID.String(), Actor: caller.String()},
		"resources", len(proposal.Action.Resources), "payload_bytes", len(proposal.Action.Payload))
	s.metrics.IncrementProposalsCreated()
	return proposal, nil
}

// Approve records the caller's approval. Approving twice, or after execution,
// succeeds without further effect.
func (s *Service) Approve(ctx context.Context, registryID domain.RegistryID, proposalID domain.ProposalID, caller domain.Identity) (_ *models.Proposal, err error) {
	ctx, finish := s.startSpan(ctx, "approve",
		attribute.String("multisig.registry_id", registryID.String()),
		attribute.String("multisig.proposal_id", proposalID.String()))
	defer func() { finish(err) }()

	registry, err := s.loadRegistry(ctx, registryID)
	if err != nil {
		return nil, err
	}

	var idx int
	proposal, err := s.proposals.Execute(ctx, proposalID,
		func(p *models.Proposal) error {
			var err error
			idx, err = p.CanApprove(registry, caller)
			return err
		},
		func(p *models.Proposal) {
			p.ApplyApproval(idx)
		},
	)
	if err != nil {
		return nil, wrapStoreErr(err, "proposal")
	}

	s.logAudit(ctx, audit.EventProposalApproved,
		audit.Event{RegistryID: registry.ID.String(), ProposalID: proposal.ID.String(), Actor: caller.String()},
		"approvals", proposal.ApprovalCount(), "threshold", registry.Threshold)
	s.metrics.IncrementApprovals()
	return proposal, nil
}

// GetProposal returns the committed proposal record.
func (s *Service) GetProposal(ctx context.Context, id domain.ProposalID) (_ *models.Proposal, err error) {
	ctx, finish := s.startSpan(ctx, "get_proposal", attribute.String("multisig.proposal_id", id.String()))
	defer func() { finish(err) }()

	proposal, err := s.proposals.FindByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "proposal")
	}
	return proposal, nil
}

// ListProposals returns a registry's proposals in creation order.
func (s *Service) ListProposals(ctx context.Context, registryID domain.RegistryID) (_ []*models.Proposal, err error) {
	ctx, finish := s.startSpan(ctx, "list_proposals", attribute.String("multisig.registry_id", registryID.String()))
	defer func() { finish(err) }()

	if _, err := s.loadRegistry(ctx, registryID); err != nil {
		return nil, err
	}
	proposals, err := s.proposals.ListByRegistry(ctx, registryID)
	if err != nil {
		return nil, wrapStoreErr(err, "proposal")
	}
	return proposals, nil
}

package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"multisig/internal/multisig/authority"
	"multisig/internal/multisig/executor"
	"multisig/internal/multisig/metrics"
	"multisig/internal/multisig/models"
	"multisig/pkg/domain"
	dErrors "multisig/pkg/domain-errors"
	"multisig/pkg/platform/audit"
	"multisig/pkg/requestcontext"
)

// Execute runs a quorum-approved proposal through the invoker.
//
// Checks run in order: already executed, quorum, resource count, registry
// binding, owner-set epoch. The invocation happens inside the proposal's
// record lock and executed_at is written only when it succeeds, so concurrent
// calls invoke at most once and a failed invocation leaves the proposal
// pending.
func (s *Service) Execute(ctx context.Context, registryID domain.RegistryID, proposalID domain.ProposalID, resources []models.Resource) (_ *models.ExecutionReceipt, err error) {
	ctx, finish := s.startSpan(ctx, "execute",
		attribute.String("multisig.registry_id", registryID.String()),
		attribute.String("multisig.proposal_id", proposalID.String()),
		attribute.Int("multisig.resources", len(resources)))
	defer func() { finish(err) }()

	start := time.Now()
	defer s.metrics.ObserveExecute(start)

	registry, err := s.loadRegistry(ctx, registryID)
	if err != nil {
		return nil, err
	}
	signer := authority.Derive(registry.AuthoritySeed, registry.ID)
	now := requestcontext.Now(ctx)

	var (
		instruction models.Instruction
		invokeErr   error
		invoked     bool
	)
	proposal, err := s.proposals.Execute(ctx, proposalID,
		func(p *models.Proposal) error {
			if err := p.CanExecute(registry, len(resources)); err != nil {
				return err
			}
			instruction = models.BuildInstruction(p.Action, signer)
			invokeErr = s.invoker.Invoke(ctx, executor.Invocation{
				ProposalID:  p.ID,
				RegistryID:  registry.ID,
				Authority:   signer,
				Instruction: instruction,
				Resources:   resources,
			})
			if invokeErr != nil {
				return dErrors.Wrap(invokeErr, dErrors.CodeExecutionFailed, "execution host failed to perform the instruction")
			}
			invoked = true
			return nil
		},
		func(p *models.Proposal) {
			p.ApplyExecution(now)
		},
	)
	if err != nil && invoked {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "instruction was performed but the proposal could not be marked executed")
		s.recordCommitLost(ctx, registry, proposalID, signer, err)
		return nil, err
	}
	if err != nil {
		err = wrapStoreErr(err, "proposal")
		s.recordExecuteFailure(ctx, registry, proposalID, signer, invokeErr, err)
		return nil, err
	}

	s.logAudit(ctx, audit.EventProposalExecuted,
		audit.Event{RegistryID: registry.ID.String(), ProposalID: proposal.ID.String(), Actor: signer.String(), Decision: "executed"},
		"executed_at", proposal.ExecutedAt, "approvals", proposal.ApprovalCount())
	s.metrics.IncrementExecutions(metrics.OutcomeSuccess)

	return &models.ExecutionReceipt{
		ProposalID:  proposal.ID,
		RegistryID:  registry.ID,
		Authority:   signer,
		Instruction: instruction,
		ExecutedAt:  proposal.ExecutedAt,
	}, nil
}

func (s *Service) recordExecuteFailure(ctx context.Context, registry *models.OwnerRegistry, proposalID domain.ProposalID, signer domain.Identity, invokeErr, err error) {
	if invokeErr == nil {
		if code, ok := dErrors.CodeOf(err); ok && isRejection(code) {
			s.metrics.IncrementExecutions(metrics.OutcomeRejected)
			return
		}
		s.metrics.IncrementExecutions(metrics.OutcomeFailed)
		return
	}
	s.logAudit(ctx, audit.EventProposalExecutionFailed,
		audit.Event{
			RegistryID: registry.ID.String(),
			ProposalID: proposalID.String(),
			Actor:      signer.String(),
			Decision:   "failed",
			Reason:     invokeErr.Error(),
		},
		"error", invokeErr)
	s.metrics.IncrementExecutions(metrics.OutcomeFailed)
}

// recordCommitLost reports an invocation that succeeded while its write did
// not. The proposal still reads as pending; operators must reconcile it with
// the execution host before it is retried.
func (s *Service) recordCommitLost(ctx context.Context, registry *models.OwnerRegistry, proposalID domain.ProposalID, signer domain.Identity, err error) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "execution commit lost",
			"request_id", requestcontext.RequestID(ctx),
			"registry_id", registry.ID,
			"proposal_id", proposalID,
			"error", err,
		)
	}
	s.logAudit(ctx, audit.EventProposalCommitLost,
		audit.Event{
			RegistryID: registry.ID.String(),
			ProposalID: proposalID.String(),
			Actor:      signer.String(),
			Decision:   "commit_lost",
			Reason:     err.Error(),
		},
		"error", err)
	s.metrics.IncrementExecutions(metrics.OutcomeCommitLost)
}

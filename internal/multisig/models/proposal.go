package models

import (
	"slices"
	"time"

	"multisig/pkg/domain"
	dErrors "multisig/pkg/domain-errors"
)

// Resource is one entry of an action's resource list.
type Resource struct {
	Key        domain.Identity `json:"key"`
	IsSigner   bool            `json:"is_signer"`
	IsWritable bool            `json:"is_writable"`
}

// Action is the deferred operation a proposal authorizes.
type Action struct {
	Target    domain.Identity `json:"target"`
	Resources []Resource      `json:"resources"`
	Payload   []byte          `json:"payload"`
}

func (a Action) Clone() Action {
	return Action{
		Target:    a.Target,
		Resources: slices.Clone(a.Resources),
		Payload:   slices.Clone(a.Payload),
	}
}

// Validate enforces the resource and payload bounds.
func (a Action) Validate() error {
	if len(a.Resources) > MaxResources {
		return dErrors.New(dErrors.CodeTooManyAccounts, "too many resources in action")
	}
	if len(a.Payload) > MaxPayload {
		return dErrors.New(dErrors.CodePayloadTooLarge, "action payload too large")
	}
	return nil
}

// Proposal is a pending or executed action awaiting quorum.
//
// Invariants:
//   - len(Approvals) is fixed at creation to the registry's owner count
//   - ExecutedAt is 0 until execution and is written at most once
//   - RegistryID and CreatedEpoch never change
type Proposal struct {
	ID           domain.ProposalID `json:"id"`
	RegistryID   domain.RegistryID `json:"registry_id"`
	Action       Action            `json:"action"`
	Approvals    []bool            `json:"approvals"`
	CreatedEpoch uint32            `json:"created_epoch"`
	ExecutedAt   int64             `json:"executed_at"`
	Proposer     domain.Identity   `json:"proposer"`
}

// NewProposal builds a proposal for registry with the proposer's approval
// already recorded.
func NewProposal(id domain.ProposalID, registry *OwnerRegistry, proposer domain.Identity, action Action) (*Proposal, error) {
	idx, ok := registry.OwnerIndex(proposer)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidOwner, "caller is not an owner of the registry")
	}
	if err := action.Validate(); err != nil {
		return nil, err
	}
	approvals := make([]bool, len(registry.Owners))
	approvals[idx] = true
	return &Proposal{
		ID:           id,
		RegistryID:   registry.ID,
		Action:       action.Clone(),
		Approvals:    approvals,
		CreatedEpoch: registry.Epoch,
		ExecutedAt:   0,
		Proposer:     proposer,
	}, nil
}

// ApprovalCount is the number of true entries in Approvals.
func (p *Proposal) ApprovalCount() uint64 {
	var n uint64
	for _, approved := range p.Approvals {
		if approved {
			n++
		}
	}
	return n
}

func (p *Proposal) IsExecuted() bool {
	return p.ExecutedAt != 0
}

// CanApprove checks whether caller may approve against the given registry
// snapshot. It returns the caller's owner index.
func (p *Proposal) CanApprove(registry *OwnerRegistry, caller domain.Identity) (int, error) {
	if p.RegistryID != registry.ID {
		return 0, dErrors.New(dErrors.CodeInvalidMultisig, "proposal does not belong to registry")
	}
	if p.CreatedEpoch != registry.Epoch {
		return 0, dErrors.New(dErrors.CodeOwnerSetChanged, "owner set changed since proposal was created")
	}
	idx, ok := registry.OwnerIndex(caller)
	if !ok {
		return 0, dErrors.New(dErrors.CodeInvalidOwner, "caller is not an owner of the registry")
	}
	if idx >= len(p.Approvals) {
		return 0, dErrors.New(dErrors.CodeOwnerSetChanged, "approval vector does not match owner set")
	}
	return idx, nil
}

// ApplyApproval sets the approval bit at idx. Setting an already-set bit is a no-op.
func (p *Proposal) ApplyApproval(idx int) {
	p.Approvals[idx] = true
}

// CanExecute runs the execution checks in order: already executed, quorum,
// resource count, registry binding, owner-set epoch.
func (p *Proposal) CanExecute(registry *OwnerRegistry, supplied int) error {
	if p.IsExecuted() {
		return dErrors.New(dErrors.CodeAlreadyExecuted, "the given proposal has already been executed")
	}
	if p.ApprovalCount() < registry.Threshold {
		return dErrors.New(dErrors.CodeNotEnoughSignatures, "not enough owners approved the proposal")
	}
	if supplied != len(p.Action.Resources) {
		return dErrors.New(dErrors.CodeInvalidAccounts, "supplied resources do not match the action")
	}
	if p.RegistryID != registry.ID {
		return dErrors.New(dErrors.CodeInvalidMultisig, "proposal does not belong to registry")
	}
	if p.CreatedEpoch != registry.Epoch {
		return dErrors.New(dErrors.CodeOwnerSetChanged, "owner set changed since proposal was created")
	}
	return nil
}

// ApplyExecution records the execution time. Unix time 0 would read as
// "not executed", so it is clamped to 1.
func (p *Proposal) ApplyExecution(at time.Time) {
	p.ExecutedAt = max(at.Unix(), 1)
}

func (p *Proposal) Clone() *Proposal {
	if p == nil {
		return nil
	}
	c := *p
	c.Action = p.Action.Clone()
	c.Approvals = slices.Clone(p.Approvals)
	return &c
}

// ProposalSpace is the number of bytes a stored proposal needs for the given
// maxima: discriminator, id, registry id, target, resources, payload,
// approvals, executed_at, created_epoch, proposer.
func ProposalSpace(maxResources, maxPayload int) int {
	return 8 + // discriminator
		16 + // id
		16 + // registry id
		32 + // target
		4 + (32+1+1)*maxResources + // resources vector
		4 + maxPayload + // payload
		4 + maxResources + // approvals vector, at most MaxOwners entries
		8 + // executed_at
		4 + // created_epoch
		32 // proposer
}

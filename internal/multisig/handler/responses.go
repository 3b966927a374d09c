package handler

import (
	"multisig/internal/multisig/authority"
	"multisig/internal/multisig/models"
	"multisig/pkg/domain"
)

// RegistryResponse is a registry plus its derived authority, which owners
// need in order to name it in proposal resource lists.
type RegistryResponse struct {
	ID            domain.RegistryID `json:"id"`
	Owners        []domain.Identity `json:"owners"`
	Threshold     uint64            `json:"threshold"`
	Epoch         uint32            `json:"epoch"`
	AuthoritySeed uint8             `json:"authority_seed"`
	Authority     domain.Identity   `json:"authority"`
}

func FromRegistry(r *models.OwnerRegistry) RegistryResponse {
	return RegistryResponse{
		ID:            r.ID,
		Owners:        r.Owners,
		Threshold:     r.Threshold,
		Epoch:         r.Epoch,
		AuthoritySeed: r.AuthoritySeed,
		Authority:     authority.Derive(r.AuthoritySeed, r.ID),
	}
}

type ProposalResponse struct {
	ID            domain.ProposalID `json:"id"`
	RegistryID    domain.RegistryID `json:"registry_id"`
	Action        models.Action     `json:"action"`
	Approvals     []bool            `json:"approvals"`
	ApprovalCount uint64            `json:"approval_count"`
	CreatedEpoch  uint32            `json:"created_epoch"`
	ExecutedAt    int64             `json:"executed_at"`
	Executed      bool              `json:"executed"`
	Proposer      domain.Identity   `json:"proposer"`
}

func FromProposal(p *models.Proposal) ProposalResponse {
	return ProposalResponse{
		ID:            p.ID,
		RegistryID:    p.RegistryID,
		Action:        p.Action,
		Approvals:     p.Approvals,
		ApprovalCount: p.ApprovalCount(),
		CreatedEpoch:  p.CreatedEpoch,
		ExecutedAt:    p.ExecutedAt,
		Executed:      p.IsExecuted(),
		Proposer:      p.Proposer,
	}
}

type ProposalListResponse struct {
	Proposals []ProposalResponse `json:"proposals"`
}

func FromProposals(ps []*models.Proposal) ProposalListResponse {
	out := ProposalListResponse{Proposals: make([]ProposalResponse, 0, len(ps))}
	for _, p := range ps {
		out.Proposals = append(out.Proposals, FromProposal(p))
	}
	return out
}

package service

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"multisig/internal/multisig/executor"
	"multisig/internal/multisig/models"
	proposalstore "multisig/internal/multisig/store/proposal"
	registrystore "multisig/internal/multisig/store/registry"
	"multisig/pkg/domain"
	dErrors "multisig/pkg/domain-errors"
)

func ownerSet(n int) []domain.Identity {
	out := make([]domain.Identity, n)
	for i := range out {
		out[i] = ident(byte(i + 1))
	}
	return out
}

func TestQuorumProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 150
	properties := gopter.NewProperties(parameters)
	ctx := context.Background()

	properties.Property("execute succeeds iff approvals reach threshold, and invokes once", prop.ForAll(
		func(n, rawThreshold, rawApprovers, repeats int) bool {
			threshold := (rawThreshold-1)%n + 1
			approvers := (rawApprovers-1)%n + 1
			owners := ownerSet(n)

			recorder := &executor.Recorder{}
			svc := New(registrystore.NewInMemory(), proposalstore.NewInMemory(), recorder)
			reg, err := svc.Initialize(ctx, owners, uint64(threshold), 0)
			if err != nil || reg.Epoch != 0 {
				return false
			}
			p, err := svc.CreateProposal(ctx, reg.ID, owners[0], models.Action{})
			if err != nil || p.ApprovalCount() != 1 {
				return false
			}
			for i := 1; i < approvers; i++ {
				for range repeats {
					if _, err := svc.Approve(ctx, reg.ID, p.ID, owners[i]); err != nil {
						return false
					}
				}
			}

			_, err = svc.Execute(ctx, reg.ID, p.ID, nil)
			if approvers < threshold {
				stored, _ := svc.GetProposal(ctx, p.ID)
				return dErrors.HasCode(err, dErrors.CodeNotEnoughSignatures) &&
					stored.ExecutedAt == 0 && recorder.Count() == 0
			}
			if err != nil {
				return false
			}
			_, err = svc.Execute(ctx, reg.ID, p.ID, nil)
			return dErrors.HasCode(err, dErrors.CodeAlreadyExecuted) && recorder.Count() == 1
		},
		gen.IntRange(1, models.MaxOwners),
		gen.IntRange(1, models.MaxOwners),
		gen.IntRange(1, models.MaxOwners),
		gen.IntRange(1, 3),
	))

	properties.Property("invalid initialize input never creates a registry", prop.ForAll(
		func(n int, threshold uint64) bool {
			svc := New(registrystore.NewInMemory(), proposalstore.NewInMemory(), &executor.Recorder{})
			reg, err := svc.Initialize(ctx, ownerSet(n), threshold, 0)
			valid := n >= 1 && n <= models.MaxOwners && threshold >= 1 && threshold <= uint64(n)
			if valid {
				return err == nil && reg != nil
			}
			_, coded := dErrors.CodeOf(err)
			return reg == nil && coded
		},
		gen.IntRange(0, models.MaxOwners+2),
		gen.UInt64Range(0, models.MaxOwners+3),
	))

	properties.TestingRun(t)
}

package models

import (
	"slices"

	"multisig/pkg/domain"
)

// Instruction is an action materialized for invocation, with the signer
// flags resolved against the registry's authority.
type Instruction struct {
	Target    domain.Identity `json:"target"`
	Resources []Resource      `json:"resources"`
	Payload   []byte          `json:"payload"`
}

// BuildInstruction copies the action and marks every resource whose key is the
// authority as a writable signer. All other flags are passed through.
func BuildInstruction(action Action, authority domain.Identity) Instruction {
	resources := slices.Clone(action.Resources)
	for i := range resources {
		if resources[i].Key == authority {
			resources[i].IsSigner = true
			resources[i].IsWritable = true
		}
	}
	return Instruction{
		Target:    action.Target,
		Resources: resources,
		Payload:   slices.Clone(action.Payload),
	}
}

// ExecutionReceipt is returned by a successful execute.
type ExecutionReceipt struct {
	ProposalID  domain.ProposalID `json:"proposal_id"`
	RegistryID  domain.RegistryID `json:"registry_id"`
	Authority   domain.Identity   `json:"authority"`
	Instruction Instruction       `json:"instruction"`
	ExecutedAt  int64             `json:"executed_at"`
}

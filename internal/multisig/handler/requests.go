package handler

import (
	"multisig/internal/multisig/models"
	"multisig/pkg/domain"
	dErrors "multisig/pkg/domain-errors"
)

// InitializeRequest is the body for POST /registries.
type InitializeRequest struct {
	Owners        []domain.Identity `json:"owners"`
	Threshold     uint64            `json:"threshold"`
	AuthoritySeed uint8             `json:"authority_seed"`
}

// Validate implements httputil.Validatable. Owner and threshold rules are
// enforced by the service so they report their domain codes.
func (r *InitializeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

// SetOwnersRequest is the body for POST /registries/{registryID}/owners.
type SetOwnersRequest struct {
	Owners []domain.Identity `json:"owners"`
}

func (r *SetOwnersRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

// ChangeThresholdRequest is the body for POST /registries/{registryID}/threshold.
type ChangeThresholdRequest struct {
	Threshold *uint64 `json:"threshold"`
}

func (r *ChangeThresholdRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Threshold == nil {
		return dErrors.New(dErrors.CodeValidation, "threshold is required")
	}
	return nil
}

// CreateProposalRequest is the body for POST /registries/{registryID}/proposals.
type CreateProposalRequest struct {
	Action models.Action `json:"action"`
}

func (r *CreateProposalRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

// ApproveRequest is the body for POST /proposals/{proposalID}/approve.
type ApproveRequest struct {
	RegistryID domain.RegistryID `json:"registry_id"`
}

func (r *ApproveRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.RegistryID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "registry_id is required")
	}
	return nil
}

// ExecuteRequest is the body for POST /proposals/{proposalID}/execute.
// Resources is the execution context: the resources actually supplied for the
// invocation, which must match the action's resource count.
type ExecuteRequest struct {
	RegistryID domain.RegistryID `json:"registry_id"`
	Resources  []models.Resource `json:"resources"`
}

func (r *ExecuteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.RegistryID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "registry_id is required")
	}
	return nil
}

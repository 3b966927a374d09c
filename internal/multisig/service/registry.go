package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"multisig/internal/multisig/authority"
	"multisig/internal/multisig/models"
	"multisig/pkg/domain"
	dErrors "multisig/pkg/domain-errors"
	"multisig/pkg/platform/audit"
)

// Initialize creates a registry with the given owners and threshold at epoch 0.
// Nothing is persisted when validation fails.
func (s *Service) Initialize(ctx context.Context, owners []domain.Identity, threshold uint64, seed uint8) (_ *models.OwnerRegistry, err error) {
	ctx, finish := s.startSpan(ctx, "initialize",
		attribute.Int("multisig.owners", len(owners)),
		attribute.Int64("multisig.threshold", int64(threshold)))
	defer func() { finish(err) }()

	registry, err := models.NewOwnerRegistry(domain.NewRegistryID(), owners, threshold, seed)
	if err != nil {
		return nil, err
	}
	if err := s.registries.Create(ctx, registry); err != nil {
		return nil, wrapStoreErr(err, "registry")
	}

	s.logAudit(ctx, audit.EventRegistryInitialized,
		audit.Event{RegistryID: registry.ID.String()},
		"owners", len(registry.Owners), "threshold", registry.Threshold)
	s.metrics.IncrementRegistriesInitialized()
	return registry, nil
}

// GetRegistry returns the committed registry record.
func (s *Service) GetRegistry(ctx context.Context, id domain.RegistryID) (_ *models.OwnerRegistry, err error) {
	ctx, finish := s.startSpan(ctx, "get_registry", attribute.String("multisig.registry_id", id.String()))
	defer func() { finish(err) }()

	return s.loadRegistry(ctx, id)
}

// SetOwners replaces the owner set and bumps the epoch, which invalidates every
// live proposal. Only the registry's derived authority may call it, so owner
// changes are themselves quorum-approved executions. A threshold above the new
// owner count is lowered to it.
func (s *Service) SetOwners(ctx context.Context, registryID domain.RegistryID, caller domain.Identity, owners []domain.Identity) (_ *models.OwnerRegistry, err error) {
	ctx, finish := s.startSpan(ctx, "set_owners",
		attribute.String("multisig.registry_id", registryID.String()),
		attribute.Int("multisig.owners", len(owners)))
	defer func() { finish(err) }()

	registry, err := s.registries.Execute(ctx, registryID,
		func(r *models.OwnerRegistry) error {
			if err := requireAuthority(r, caller); err != nil {
				return err
			}
			return r.CanSetOwners(owners)
		},
		func(r *models.OwnerRegistry) {
			r.ApplySetOwners(owners)
		},
	)
	if err != nil {
		return nil, wrapStoreErr(err, "registry")
	}

	s.logAudit(ctx, audit.EventRegistryOwnersChanged,
		audit.Event{RegistryID: registry.ID.String(), Actor: caller.String()},
		"owners", len(registry.Owners), "threshold", registry.Threshold, "epoch", registry.Epoch)
	return registry, nil
}

// ChangeThreshold sets a new threshold. The owner set and epoch are unchanged,
// so live proposals stay valid and are measured against the new threshold.
func (s *Service) ChangeThreshold(ctx context.Context, registryID domain.RegistryID, caller domain.Identity, threshold uint64) (_ *models.OwnerRegistry, err error) {
	ctx, finish := s.startSpan(ctx, "change_threshold",
		attribute.String("multisig.registry_id", registryID.String()),
		attribute.Int64("multisig.threshold", int64(threshold)))
	defer func() { finish(err) }()

	registry, err := s.registries.Execute(ctx, registryID,
		func(r *models.OwnerRegistry) error {
			if err := requireAuthority(r, caller); err != nil {
				return err
			}
			return r.CanChangeThreshold(threshold)
		},
		func(r *models.OwnerRegistry) {
			r.ApplyChangeThreshold(threshold)
		},
	)
	if err != nil {
		return nil, wrapStoreErr(err, "registry")
	}

	s.logAudit(ctx, audit.EventRegistryThresholdChange,
		audit.Event{RegistryID: registry.ID.String(), Actor: caller.String()},
		"threshold", registry.Threshold)
	return registry, nil
}

func requireAuthority(r *models.OwnerRegistry, caller domain.Identity) error {
	if !authority.Verify(r.AuthoritySeed, r.ID, caller) {
		return dErrors.New(dErrors.CodeInvalidAuthority, "caller is not the registry authority")
	}
	return nil
}

package models

import (
	"slices"

	"multisig/pkg/domain"
	dErrors "multisig/pkg/domain-errors"
)

// Record bounds. Storage reserves space for the maxima, not the actual sizes.
const (
	MaxOwners    = 10
	MaxResources = 20
	MaxPayload   = 256
)

// OwnerRegistry is the aggregate root holding who may propose and approve.
//
// Invariants:
//   - 1 <= len(Owners) <= MaxOwners, no duplicate owners
//   - 1 <= Threshold <= len(Owners)
//   - Epoch starts at 0 and only ever increases, by one per owner-set change
//   - AuthoritySeed is fixed at creation
type OwnerRegistry struct {
	ID            domain.RegistryID `json:"id"`
	Owners        []domain.Identity `json:"owners"`
	Threshold     uint64            `json:"threshold"`
	Epoch         uint32            `json:"epoch"`
	AuthoritySeed uint8             `json:"authority_seed"`
}

// NewOwnerRegistry validates the owner set and threshold and returns a registry at epoch 0.
func NewOwnerRegistry(id domain.RegistryID, owners []domain.Identity, threshold uint64, seed uint8) (*OwnerRegistry, error) {
	if err := ValidateOwners(owners, threshold); err != nil {
		return nil, err
	}
	return &OwnerRegistry{
		ID:            id,
		Owners:        slices.Clone(owners),
		Threshold:     threshold,
		Epoch:         0,
		AuthoritySeed: seed,
	}, nil
}

// ValidateOwners checks an owner set against a threshold. Check order: empty
// owners, threshold below one, threshold above the owner count, owner count
// above MaxOwners, duplicates.
func ValidateOwners(owners []domain.Identity, threshold uint64) error {
	if len(owners) == 0 {
		return dErrors.New(dErrors.CodeInvalidOwners, "owners list cannot be empty")
	}
	if threshold < 1 || threshold > uint64(len(owners)) {
		return dErrors.New(dErrors.CodeInvalidThreshold, "threshold must be > 0 and <= total owners")
	}
	if len(owners) > MaxOwners {
		return dErrors.New(dErrors.CodeTooManyOwners, "too many owners provided")
	}
	seen := make(map[domain.Identity]struct{}, len(owners))
	for _, owner := range owners {
		if _, dup := seen[owner]; dup {
			return dErrors.New(dErrors.CodeInvalidOwners, "owners must be unique")
		}
		seen[owner] = struct{}{}
	}
	return nil
}

// OwnerIndex returns the position of identity in the owner list.
func (r *OwnerRegistry) OwnerIndex(identity domain.Identity) (int, bool) {
	idx := slices.Index(r.Owners, identity)
	return idx, idx >= 0
}

func (r *OwnerRegistry) IsOwner(identity domain.Identity) bool {
	_, ok := r.OwnerIndex(identity)
	return ok
}

// CanSetOwners validates a replacement owner set. The threshold is clamped to
// the new owner count before validation.
func (r *OwnerRegistry) CanSetOwners(owners []domain.Identity) error {
	return ValidateOwners(owners, min(r.Threshold, uint64(len(owners))))
}

// ApplySetOwners replaces the owner set and bumps the epoch. Proposals created
// under the old epoch become permanently stale; their approval vectors are
// never renumbered.
func (r *OwnerRegistry) ApplySetOwners(owners []domain.Identity) {
	r.Owners = slices.Clone(owners)
	if r.Threshold > uint64(len(owners)) {
		r.Threshold = uint64(len(owners))
	}
	r.Epoch++
}

func (r *OwnerRegistry) CanChangeThreshold(threshold uint64) error {
	if threshold < 1 || threshold > uint64(len(r.Owners)) {
		return dErrors.New(dErrors.CodeInvalidThreshold, "threshold must be > 0 and <= total owners")
	}
	return nil
}

// ApplyChangeThreshold leaves the epoch untouched: approval vectors stay aligned.
func (r *OwnerRegistry) ApplyChangeThreshold(threshold uint64) {
	r.Threshold = threshold
}

// Clone returns a deep copy so stores never share slices with callers.
func (r *OwnerRegistry) Clone() *OwnerRegistry {
	if r == nil {
		return nil
	}
	c := *r
	c.Owners = slices.Clone(r.Owners)
	return &c
}

// RegistrySpace is the number of bytes a stored registry needs for maxOwners owners:
// discriminator, id, owners vector, threshold, seed, epoch.
func RegistrySpace(maxOwners int) int {
	return 8 + // discriminator
		16 + // id
		4 + 32*maxOwners + // owners vector
		8 + // threshold
		1 + // authority seed
		4 // epoch
}

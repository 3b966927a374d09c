package registry

import (
	"context"
	"sync"

	"multisig/internal/multisig/models"
	"multisig/pkg/domain"
	"multisig/pkg/platform/sentinel"
	"multisig/pkg/platform/shardlock"
)

// InMemoryStore keeps registries in a map. Reads take a shared lock on the map;
// Execute additionally serializes on the record's shard.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[domain.RegistryID]*models.OwnerRegistry
	locks   *shardlock.Locker
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[domain.RegistryID]*models.OwnerRegistry),
		locks:   shardlock.New(),
	}
}

func (s *InMemoryStore) Create(_ context.Context, registry *models.OwnerRegistry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[registry.ID]; exists {
		return sentinel.ErrConflict
	}
	s.records[registry.ID] = registry.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.RegistryID) (*models.OwnerRegistry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

// Execute validates and mutates a registry under its record lock. Nothing is
// written when validate fails.
func (s *InMemoryStore) Execute(ctx context.Context, id domain.RegistryID, validate func(*models.OwnerRegistry) error, mutate func(*models.OwnerRegistry)) (*models.OwnerRegistry, error) {
	var result *models.OwnerRegistry
	err := s.locks.Do(ctx, id.String(), func(ctx context.Context) error {
		current, err := s.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := validate(current); err != nil {
			return err
		}
		mutate(current)

		s.mu.Lock()
		s.records[id] = current.Clone()
		s.mu.Unlock()

		result = current
		return nil
	})
	return result, err
}

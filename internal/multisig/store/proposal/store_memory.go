package proposal

import (
	"context"
	"sync"

	"multisig/internal/multisig/models"
	"multisig/pkg/domain"
	"multisig/pkg/platform/sentinel"
	"multisig/pkg/platform/shardlock"
)

// InMemoryStore keeps proposals in a map with a per-registry index preserving
// creation order.
type InMemoryStore struct {
	mu         sync.RWMutex
	records    map[domain.ProposalID]*models.Proposal
	byRegistry map[domain.RegistryID][]domain.ProposalID
	locks      *shardlock.Locker
}

func NewInMemory(opts ...shardlock.Option) *InMemoryStore {
	return &InMemoryStore{
		records:    make(map[domain.ProposalID]*models.Proposal),
		byRegistry: make(map[domain.RegistryID][]domain.ProposalID),
		locks:      shardlock.New(opts...),
	}
}

func (s *InMemoryStore) Create(_ context.Context, p *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[p.ID]; exists {
		return sentinel.ErrConflict
	}
	s.records[p.ID] = p.Clone()
	s.byRegistry[p.RegistryID] = append(s.byRegistry[p.RegistryID], p.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.ProposalID) (*models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *InMemoryStore) ListByRegistry(_ context.Context, registryID domain.RegistryID) ([]*models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byRegistry[registryID]
	out := make([]*models.Proposal, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.records[id].Clone())
	}
	return out, nil
}

// Execute holds the proposal's shard lock while validate and mutate run.
// validate may perform side effects; they happen at most once per successful
// mutation because concurrent callers on the same record are serialized.
func (s *InMemoryStore) Execute(ctx context.Context, id domain.ProposalID, validate func(*models.Proposal) error, mutate func(*models.Proposal)) (*models.Proposal, error) {
	var result *models.Proposal
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

// Len reports the number of stored proposals.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}


package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"multisig/internal/multisig/models"
	"multisig/pkg/domain"
	"multisig/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func identity(b byte) domain.Identity {
	var id domain.Identity
	id[0] = b
	return id
}

func newRegistry(s *suite.Suite) *models.OwnerRegistry {
	r, err := models.NewOwnerRegistry(domain.NewRegistryID(), []domain.Identity{identity(1), identity(2), identity(3)}, 2, 1)
	s.Require().NoError(err)
	return r
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	reg := newRegistry(&s.Suite)

	s.Require().NoError(s.store.Create(ctx, reg))
	s.ErrorIs(s.store.Create(ctx, reg), sentinel.ErrConflict)

	found, err := s.store.FindByID(ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(reg, found)

	found.Owners[0] = identity(9)
	again, err := s.store.FindByID(ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(identity(1), again.Owners[0], "callers must not alias stored state")

	_, err = s.store.FindByID(ctx, domain.NewRegistryID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestExecute() {
	ctx := context.Background()

	s.Run("validation failure leaves record unchanged", func() {
		reg := newRegistry(&s.Suite)
		s.Require().NoError(s.store.Create(ctx, reg))
		rejected := errors.New("rejected")
		mutated := false

		_, err := s.store.Execute(ctx, reg.ID,
			func(*models.OwnerRegistry) error { return rejected },
			func(*models.OwnerRegistry) { mutated = true },
		)
		s.ErrorIs(err, rejected)
		s.False(mutated)

		found, _ := s.store.FindByID(ctx, reg.ID)
		s.Equal(uint32(0), found.Epoch)
	})

	s.Run("mutation is persisted", func() {
		reg := newRegistry(&s.Suite)
		s.Require().NoError(s.store.Create(ctx, reg))

		updated, err := s.store.Execute(ctx, reg.ID,
			func(*models.OwnerRegistry) error { return nil },
			func(r *models.OwnerRegistry) { r.ApplySetOwners([]domain.Identity{identity(7)}) },
		)
		s.Require().NoError(err)
		s.Equal(uint32(1), updated.Epoch)

		found, _ := s.store.FindByID(ctx, reg.ID)
		s.Equal([]domain.Identity{identity(7)}, found.Owners)
		s.Equal(uint64(1), found.Threshold)
	})

	s.Run("missing record", func() {
		_, err := s.store.Execute(ctx, domain.NewRegistryID(),
			func(*models.OwnerRegistry) error { return nil },
			func(*models.OwnerRegistry) {},
		)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("concurrent epoch bumps are not lost", func() {
		reg := newRegistry(&s.Suite)
		s.Require().NoError(s.store.Create(ctx, reg))

		var wg sync.WaitGroup
		for range 25 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = s.store.Execute(ctx, reg.ID,
					func(*models.OwnerRegistry) error { return nil },
					func(r *models.OwnerRegistry) { r.ApplySetOwners(r.Owners) },
				)
			}()
		}
		wg.Wait()

		found, _ := s.store.FindByID(ctx, reg.ID)
		s.Equal(uint32(25), found.Epoch)
	})
}

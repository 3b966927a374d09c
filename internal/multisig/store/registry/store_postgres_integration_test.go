//go:build integration

package registry_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"multisig/internal/multisig/models"
	"multisig/internal/multisig/store/registry"
	"multisig/pkg/domain"
	"multisig/pkg/platform/sentinel"
	"multisig/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *registry.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.Require().NoError(s.postgres.Migrate(context.Background(), registry.Schema))
	s.store = registry.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "owner_registries"))
}

func owner(b byte) domain.Identity {
	var id domain.Identity
	id[0], id[31] = b, b
	return id
}

func (s *PostgresStoreSuite) newRegistry() *models.OwnerRegistry {
	r, err := models.NewOwnerRegistry(domain.NewRegistryID(), []domain.Identity{owner(1), owner(2), owner(3)}, 2, 200)
	s.Require().NoError(err)
	return r
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	reg := s.newRegistry()
	s.Require().NoError(s.store.Create(ctx, reg))
	s.ErrorIs(s.store.Create(ctx, reg), sentinel.ErrConflict)

	found, err := s.store.FindByID(ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(reg, found)

	_, err = s.store.FindByID(ctx, domain.NewRegistryID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestExecuteRollsBackOnValidationFailure() {
	ctx := context.Background()
	reg := s.newRegistry()
	s.Require().NoError(s.store.Create(ctx, reg))

	_, err := s.store.Execute(ctx, reg.ID,
		func(*models.OwnerRegistry) error { return errors.New("rejected") },
		func(r *models.OwnerRegistry) { r.ApplySetOwners([]domain.Identity{owner(9)}) },
	)
	s.Require().Error(err)

	found, err := s.store.FindByID(ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(uint32(0), found.Epoch)
	s.Len(found.Owners, 3)
}

func (s *PostgresStoreSuite) TestConcurrentOwnerChangesSerialize() {
	ctx := context.Background()
	reg := s.newRegistry()
	s.Require().NoError(s.store.Create(ctx, reg))

	const workers = 10
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx, reg.ID,
				func(*models.OwnerRegistry) error { return nil },
				func(r *models.OwnerRegistry) { r.ApplySetOwners(r.Owners) },
			)
			s.NoError(err)
		}()
	}
	wg.Wait()

	found, err := s.store.FindByID(ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(uint32(workers), found.Epoch)
}

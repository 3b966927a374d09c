package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"multisig/internal/multisig/models"
	"multisig/pkg/domain"
	"multisig/pkg/platform/sentinel"
	"multisig/pkg/platform/tx"
)

// PostgresStore persists registries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectRegistry = `
	SELECT id, owners, threshold, epoch, authority_seed
	FROM owner_registries
	WHERE id = $1`

func (s *PostgresStore) Create(ctx context.Context, registry *models.OwnerRegistry) error {
	_, err := tx.Q(ctx, s.db).ExecContext(ctx, `
		INSERT INTO owner_registries (id, owners, threshold, epoch, authority_seed)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(registry.ID), ownersArray(registry.Owners), int64(registry.Threshold), int64(registry.Epoch), int16(registry.AuthoritySeed),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert registry: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.RegistryID) (*models.OwnerRegistry, error) {
	r, err := scanRegistry(tx.Q(ctx, s.db).QueryRowContext(ctx, selectRegistry, uuid.UUID(id)))
	if err != nil {
		return nil, fmt.Errorf("find registry: %w", err)
	}
	return r, nil
}

// Execute locks the registry row with SELECT ... FOR UPDATE for the duration of
// validate and mutate. Nothing is written when validate fails.
func (s *PostgresStore) Execute(ctx context.Context, id domain.RegistryID, validate func(*models.OwnerRegistry) error, mutate func(*models.OwnerRegistry)) (*models.OwnerRegistry, error) {
	var result *models.OwnerRegistry
	err := tx.Run(ctx, s.db, func(ctx context.Context, sqlTx *sql.Tx) error {
		current, err := scanRegistry(sqlTx.QueryRowContext(ctx, selectRegistry+" FOR UPDATE", uuid.UUID(id)))
		if err != nil {
			return err
		}
		if err := validate(current); err != nil {
			return err
		}
		mutate(current)

		_, err = sqlTx.ExecContext(ctx, `
			UPDATE owner_registries
			SET owners = $2, threshold = $3, epoch = $4, updated_at = now()
			WHERE id = $1`,
			uuid.UUID(id), ownersArray(current.Owners), int64(current.Threshold), int64(current.Epoch),
		)
		if err != nil {
			return fmt.Errorf("update registry: %w", err)
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func ownersArray(owners []domain.Identity) pq.ByteaArray {
	out := make(pq.ByteaArray, len(owners))
	for i, owner := range owners {
		out[i] = owner.Bytes()
	}
	return out
}

func scanRegistry(row *sql.Row) (*models.OwnerRegistry, error) {
	var (
		id        uuid.UUID
		owners    pq.ByteaArray
		threshold int64
		epoch     int64
		seed      int16
	)
	if err := row.Scan(&id, &owners, &threshold, &epoch, &seed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	r := &models.OwnerRegistry{
		ID:            domain.RegistryID(id),
		Owners:        make([]domain.Identity, len(owners)),
		Threshold:     uint64(threshold),
		Epoch:         uint32(epoch),
		AuthoritySeed: uint8(seed),
	}
	for i, raw := range owners {
		owner, err := domain.IdentityFromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: owner %d: %w", sentinel.ErrCorrupt, i, err)
		}
		r.Owners[i] = owner
	}
	return r, nil
}

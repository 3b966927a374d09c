package proposal

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

// PostgresStore persists proposals in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const proposalColumns = `id, registry_id, target, resource_keys, resource_signer, resource_writable,
	payload, approvals, created_epoch, executed_at, proposer`

func (s *PostgresStore) Create(ctx context.Context, p *models.Proposal) error {
	keys, signer, writable := resourceArrays(p.Action.Resources)
	_, err := tx.Q(ctx, s.db).ExecContext(ctx, `
		INSERT INTO proposals (`+proposalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.UUID(p.ID), uuid.UUID(p.RegistryID), p.Action.Target.Bytes(), keys, signer, writable,
		nonNil(p.Action.Payload), boolArray(p.Approvals), int64(p.CreatedEpoch), p.ExecutedAt, p.Proposer.Bytes(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert proposal: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.ProposalID) (*models.Proposal, error) {
	row := tx.Q(ctx, s.db).QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, uuid.UUID(id))
	p, err := scanProposal(row)
	if err != nil {
		return nil, fmt.Errorf("find proposal: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListByRegistry(ctx context.Context, registryID domain.RegistryID) ([]*models.Proposal, error) {
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE registry_id = $1 ORDER BY seq`, uuid.UUID(registryID))
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	var out []*models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proposals: %w", err)
	}
	return out, nil
}

// Execute locks the proposal row with SELECT ... FOR UPDATE for the duration of
// validate and mutate. Concurrent executes on the same proposal queue behind
// the row lock and observe the committed result.
func (s *PostgresStore) Execute(ctx context.Context, id domain.ProposalID, validate func(*models.Proposal) error, mutate func(*models.Proposal)) (*models.Proposal, error) {
	var result *models.Proposal
	// The transaction and the write outlive ctx: once validate has run the
	// invocation may already have happened, and the write must still land.
	// Only the wait for the row lock follows ctx.
	err := tx.Run(context.WithoutCancel(ctx), s.db, func(commitCtx context.Context, sqlTx *sql.Tx) error {
		current, err := scanProposal(sqlTx.QueryRowContext(ctx,
			`SELECT `+proposalColumns+` FROM proposals WHERE id = $1 FOR UPDATE`, uuid.UUID(id)))
		if err != nil {
			return err
		}
		if err := validate(current); err != nil {
			return err
		}
		mutate(current)

		_, err = sqlTx.ExecContext(commitCtx, `
			UPDATE proposals SET approvals = $2, executed_at = $3
			WHERE id = $1`,
			uuid.UUID(id), boolArray(current.Approvals), current.ExecutedAt,
		)
		if err != nil {
			return fmt.Errorf("update proposal: %w", err)
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProposal(row scanner) (*models.Proposal, error) {
	var (
		id, registryID         uuid.UUID
		target, payload, owner []byte
		keys                   pq.ByteaArray
		signer, writable       pq.BoolArray
		approvals              pq.BoolArray
		createdEpoch           int64
		executedAt             int64
	)
	err := row.Scan(&id, &registryID, &target, &keys, &signer, &writable,
		&payload, &approvals, &createdEpoch, &executedAt, &owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	if len(keys) != len(signer) || len(keys) != len(writable) {
		return nil, fmt.Errorf("%w: resource columns have mismatched lengths", sentinel.ErrCorrupt)
	}

	p := &models.Proposal{
		ID:           domain.ProposalID(id),
		RegistryID:   domain.RegistryID(registryID),
		Approvals:    []bool(approvals),
		CreatedEpoch: uint32(createdEpoch),
		ExecutedAt:   executedAt,
	}
	if p.Action.Target, err = domain.IdentityFromBytes(target); err != nil {
		return nil, fmt.Errorf("%w: target: %w", sentinel.ErrCorrupt, err)
	}
	if p.Proposer, err = domain.IdentityFromBytes(owner); err != nil {
		return nil, fmt.Errorf("%w: proposer: %w", sentinel.ErrCorrupt, err)
	}
	if len(payload) > 0 {
		p.Action.Payload = payload
	}
	for i, raw := range keys {
		key, err := domain.IdentityFromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: resource %d: %w", sentinel.ErrCorrupt, i, err)
		}
		p.Action.Resources = append(p.Action.Resources, models.Resource{
			Key:        key,
			IsSigner:   signer[i],
			IsWritable: writable[i],
		})
	}
	return p, nil
}

func resourceArrays(resources []models.Resource) (pq.ByteaArray, pq.BoolArray, pq.BoolArray) {
	keys := make(pq.ByteaArray, len(resources))
	signer := make(pq.BoolArray, len(resources))
	writable := make(pq.BoolArray, len(resources))
	for i, r := range resources {
		keys[i] = r.Key.Bytes()
		signer[i] = r.IsSigner
		writable[i] = r.IsWritable
	}
	return keys, signer, writable
}

func boolArray(values []bool) pq.BoolArray {
	out := make(pq.BoolArray, len(values))
	copy(out, values)
	return out
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

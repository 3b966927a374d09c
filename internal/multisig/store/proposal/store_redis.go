package proposal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"multisig/internal/multisig/codec"
	"multisig/internal/multisig/models"
	"multisig/pkg/domain"
	"multisig/pkg/platform/sentinel"
)

const (
	proposalKeyPrefix = "multisig:proposal:"
	registryKeyPrefix = "multisig:registry-proposals:"
	lockKeyPrefix     = "multisig:lock:proposal:"

	defaultLockTTL   = 30 * time.Second
	defaultLockWait  = 5 * time.Second
	lockPollInterval = 10 * time.Millisecond
	commitTimeout    = 5 * time.Second
)

// releaseScript deletes the lock only if it is still held by the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// commitScript writes the record only while the caller still holds the lock.
var commitScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[2], ARGV[2])
	return 1
end
return 0
`)

// ErrLockLost is returned when the record lock expired before the write.
var ErrLockLost = errors.New("proposal lock expired before commit")

// RedisStore stores codec-encoded proposals in Redis. Execute serializes on a
// per-proposal lock key rather than WATCH so validate runs at most once per
// committed mutation.
type RedisStore struct {
	client   *redis.Client
	lockTTL  time.Duration
	lockWait time.Duration
}

type RedisOption func(*RedisStore)

// WithLockTTL sets how long a lock survives if its holder dies. It must exceed
// the longest validate callback, which includes the execution host call.
func WithLockTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.lockTTL = d
		}
	}
}

// WithLockWait bounds how long Execute waits for a busy lock.
func WithLockWait(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.lockWait = d
		}
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, lockTTL: defaultLockTTL, lockWait: defaultLockWait}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) Create(ctx context.Context, p *models.Proposal) error {
	ok, err := s.client.SetNX(ctx, proposalKeyPrefix+p.ID.String(), codec.EncodeProposal(p), 0).Result()
	if err != nil {
		return fmt.Errorf("store proposal: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	if err := s.client.RPush(ctx, registryKeyPrefix+p.RegistryID.String(), p.ID.String()).Err(); err != nil {
		return fmt.Errorf("index proposal: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, id domain.ProposalID) (*models.Proposal, error) {
	raw, err := s.client.Get(ctx, proposalKeyPrefix+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	return codec.DecodeProposal(raw)
}

func (s *RedisStore) ListByRegistry(ctx context.Context, registryID domain.RegistryID) ([]*models.Proposal, error) {
	ids, err := s.client.LRange(ctx, registryKeyPrefix+registryID.String(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list proposal ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = proposalKeyPrefix + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load proposals: %w", err)
	}
	out := make([]*models.Proposal, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: proposal %s indexed but missing", sentinel.ErrCorrupt, ids[i])
		}
		p, err := codec.DecodeProposal([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Execute acquires the proposal lock, then loads, validates, mutates and
// writes the record. A lock that cannot be taken within the wait budget yields
// sentinel.ErrLocked.
func (s *RedisStore) Execute(ctx context.Context, id domain.ProposalID, validate func(*models.Proposal) error, mutate func(*models.Proposal)) (*models.Proposal, error) {
	lockKey := lockKeyPrefix + id.String()
	token := uuid.NewString()
	if err := s.acquire(ctx, lockKey, token); err != nil {
		return nil, err
	}
	defer func() {
		// Release on a fresh context so cancellation of ctx cannot strand the lock.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, s.client, []string{lockKey}, token).Err()
	}()

	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validate(current); err != nil {
		return nil, err
	}
	mutate(current)

	// Commit on a detached context: validate may have performed the
	// invocation, so cancellation of ctx must not drop the write.
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()
	written, err := commitScript.Run(commitCtx, s.client,
		[]string{lockKey, proposalKeyPrefix + id.String()},
		token, codec.EncodeProposal(current),
	).Int()
	if err != nil {
		return nil, fmt.Errorf("commit proposal: %w", err)
	}
	if written != 1 {
		return nil, ErrLockLost
	}
	return current, nil
}

func (s *RedisStore) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(s.lockWait)
	for {
		ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
		if err != nil {
			return fmt.Errorf("acquire proposal lock: %w", err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return sentinel.ErrLocked
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

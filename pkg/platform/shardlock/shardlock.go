// Package shardlock provides per-key mutual exclusion over a fixed set of
// mutex shards. Keys hash onto shards with FNV-1a, so unrelated records rarely
// contend and there is never a global lock.
package shardlock

import (
	"context"
	"sync"
	"time"

	dErrors "multisig/pkg/domain-errors"
)

const (
	DefaultShards  = 128
	DefaultTimeout = 5 * time.Second
)

type Locker struct {
	shards  []sync.Mutex
	timeout time.Duration
}

type Option func(*Locker)

// WithShards overrides the shard count. Values below one are ignored.
func WithShards(n int) Option {
	return func(l *Locker) {
		if n > 0 {
			l.shards = make([]sync.Mutex, n)
		}
	}
}

// WithTimeout bounds how long a caller without a deadline holds the lock.
func WithTimeout(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.timeout = d
		}
	}
}

func New(opts ...Option) *Locker {
	l := &Locker{
		shards:  make([]sync.Mutex, DefaultShards),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Do runs fn while holding the shard lock for key. A context that is already
// done, or becomes done while waiting for the caller's turn, aborts with
// CodeTimeout before fn runs.
func (l *Locker) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "lock aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	mu := &l.shards[l.shard(key)]
	mu.Lock()
	defer mu.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "lock aborted: context cancelled")
	}
	return fn(ctx)
}

func (l *Locker) shard(key string) int {
	return int(hash(key) % uint32(len(l.shards)))
}

func hash(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

// Package executor provides execution-host adapters. A host receives an
// authorized instruction plus the caller-supplied resources and performs it on
// behalf of the registry's derived authority.
package executor

import (
	"context"
	"slices"
	"sync"

	"multisig/internal/multisig/models"
	"multisig/pkg/domain"
)

// Invocation is everything an execution host needs to run one instruction.
type Invocation struct {
	ProposalID  domain.ProposalID  `json:"proposal_id"`
	RegistryID  domain.RegistryID  `json:"registry_id"`
	Authority   domain.Identity    `json:"authority"`
	Instruction models.Instruction `json:"instruction"`
	Resources   []models.Resource  `json:"resources"`
}

// Func adapts a plain function to the invoker interface.
type Func func(ctx context.Context, inv Invocation) error

func (f Func) Invoke(ctx context.Context, inv Invocation) error {
	return f(ctx, inv)
}

// Recorder keeps every invocation it receives. Err, when set, is returned
// from every call; the invocation is still recorded.
type Recorder struct {
	mu    sync.Mutex
	calls []Invocation
	Err   error
}

func (r *Recorder) Invoke(_ context.Context, inv Invocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, inv)
	return r.Err
}

func (r *Recorder) Calls() []Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Package service implements the threshold-authorization engine: the owner
// registry, the proposal store and quorum-gated execution.
//
// Every mutation is a validate-then-mutate step run through a store's Execute
// callback, so checks and writes happen under the same record lock. No
// operation holds two record locks: the registry is read as a committed
// snapshot before the proposal lock is taken.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"multisig/internal/multisig/executor"
	"multisig/internal/multisig/metrics"
	"multisig/internal/multisig/models"
	"multisig/pkg/domain"
	dErrors "multisig/pkg/domain-errors"
	"multisig/pkg/platform/audit"
	"multisig/pkg/platform/sentinel"
	"multisig/pkg/requestcontext"
)

type RegistryStore interface {
	Create(ctx context.Context, registry *models.OwnerRegistry) error
	FindByID(ctx context.Context, id domain.RegistryID) (*models.OwnerRegistry, error)
	Execute(ctx context.Context, id domain.RegistryID, validate func(*models.OwnerRegistry) error, mutate func(*models.OwnerRegistry)) (*models.OwnerRegistry, error)
}

type ProposalStore interface {
	Create(ctx context.Context, proposal *models.Proposal) error
	FindByID(ctx context.Context, id domain.ProposalID) (*models.Proposal, error)
	ListByRegistry(ctx context.Context, registryID domain.RegistryID) ([]*models.Proposal, error)
	Execute(ctx context.Context, id domain.ProposalID, validate func(*models.Proposal) error, mutate func(*models.Proposal)) (*models.Proposal, error)
}

// Invoker performs an authorized instruction on behalf of a registry's
// derived authority.
type Invoker interface {
	Invoke(ctx context.Context, inv executor.Invocation) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates owner registries, proposals and execution.
type Service struct {
	registries     RegistryStore
	proposals      ProposalStore
	invoker        Invoker
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(registries RegistryStore, proposals ProposalStore, invoker Invoker, opts ...Option) *Service {
	s := &Service{
		registries: registries,
		proposals:  proposals,
		invoker:    invoker,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("multisig/service")
	}
	return s
}

// startSpan opens a span for one operation. The returned finish func records
// err on the span and counts domain rejections.
func (s *Service) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	ctx, span := s.tracer.Start(ctx, "multisig."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, dErrors.MessageOf(err))
			if code, ok := dErrors.CodeOf(err); ok {
				span.SetAttributes(attribute.String("multisig.error_code", string(code)))
				if isRejection(code) {
					s.metrics.IncrementRejections(string(code))
				}
			}
		}
		span.End()
	}
}

// isRejection reports whether code is a domain check failure rather than an
// infrastructure or invocation failure.
func isRejection(code dErrors.Code) bool {
	switch code {
	case dErrors.CodeInternal, dErrors.CodeTimeout, dErrors.CodeExecutionFailed, dErrors.CodeNotFound:
		return false
	}
	return true
}

// wrapStoreErr translates store sentinels into domain errors. Errors that are
// already coded pass through so validate callbacks keep their codes.
func wrapStoreErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.CodeOf(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, what+" already exists")
	case errors.Is(err, sentinel.ErrLocked), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, what+" is busy")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access "+what)
}

func (s *Service) loadRegistry(ctx context.Context, id domain.RegistryID) (*models.OwnerRegistry, error) {
	registry, err := s.registries.FindByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "registry")
	}
	return registry, nil
}

// logAudit writes the audit log line and publishes the event. Publishing
// failures are logged and never fail the operation.
func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, base audit.Event, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if base.RegistryID != "" {
		attributes = append(attributes, "registry_id", base.RegistryID)
	}
	if base.ProposalID != "" {
		attributes = append(attributes, "proposal_id", base.ProposalID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	base.Action = string(event)
	base.Category = event.Category()
	base.Timestamp = requestcontext.Now(ctx)
	base.RequestID = requestID
	if err := s.auditPublisher.Emit(ctx, base); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "event", string(event), "error", err)
	}
}

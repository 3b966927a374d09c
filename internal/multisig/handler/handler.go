package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"multisig/internal/multisig/models"
	"multisig/pkg/domain"
	dErrors "multisig/pkg/domain-errors"
	"multisig/pkg/platform/httputil"
	"multisig/pkg/requestcontext"
)

// Service defines the multisig operations exposed over HTTP.
type Service interface {
	Initialize(ctx context.Context, owners []domain.Identity, threshold uint64, seed uint8) (*models.OwnerRegistry, error)
	GetRegistry(ctx context.Context, id domain.RegistryID) (*models.OwnerRegistry, error)
	SetOwners(ctx context.Context, registryID domain.RegistryID, caller domain.Identity, owners []domain.Identity) (*models.OwnerRegistry, error)
	ChangeThreshold(ctx context.Context, registryID domain.RegistryID, caller domain.Identity, threshold uint64) (*models.OwnerRegistry, error)
	CreateProposal(ctx context.Context, registryID domain.RegistryID, caller domain.Identity, action models.Action) (*models.Proposal, error)
	Approve(ctx context.Context, registryID domain.RegistryID, proposalID domain.ProposalID, caller domain.Identity) (*models.Proposal, error)
	GetProposal(ctx context.Context, id domain.ProposalID) (*models.Proposal, error)
	ListProposals(ctx context.Context, registryID domain.RegistryID) ([]*models.Proposal, error)
	Execute(ctx context.Context, registryID domain.RegistryID, proposalID domain.ProposalID, resources []models.Resource) (*models.ExecutionReceipt, error)
}

// Handler wires multisig endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the registry and proposal endpoints on the router. Callers
// are expected to have run the identity middleware on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/registries", func(r chi.Router) {
		r.Post("/", h.HandleInitialize)
		r.Route("/{registryID}", func(r chi.Router) {
			r.Get("/", h.HandleGetRegistry)
			r.Post("/owners", h.HandleSetOwners)
			r.Post("/threshold", h.HandleChangeThreshold)
			r.Post("/proposals", h.HandleCreateProposal)
			r.Get("/proposals", h.HandleListProposals)
		})
	})
	r.Route("/proposals/{proposalID}", func(r chi.Router) {
		r.Get("/", h.HandleGetProposal)
		r.Post("/approve", h.HandleApprove)
		r.Post("/execute", h.HandleExecute)
	})
}

// HandleInitialize handles POST /registries.
func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[InitializeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	registry, err := h.service.Initialize(ctx, req.Owners, req.Threshold, req.AuthoritySeed)
	if err != nil {
		h.fail(ctx, w, "initialize registry failed", err)
		return
	}

	h.logger.InfoContext(ctx, "registry initialized",
		"request_id", requestID,
		"registry_id", registry.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRegistry(registry))
}

// HandleGetRegistry handles GET /registries/{registryID}.
func (h *Handler) HandleGetRegistry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registryID, err := domain.ParseRegistryID(chi.URLParam(r, "registryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	registry, err := h.service.GetRegistry(ctx, registryID)
	if err != nil {
		h.fail(ctx, w, "get registry failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRegistry(registry))
}

// HandleSetOwners handles POST /registries/{registryID}/owners.
func (h *Handler) HandleSetOwners(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	registryID, err := domain.ParseRegistryID(chi.URLParam(r, "registryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetOwnersRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	registry, err := h.service.SetOwners(ctx, registryID, caller, req.Owners)
	if err != nil {
		h.fail(ctx, w, "set owners failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRegistry(registry))
}

// HandleChangeThreshold handles POST /registries/{registryID}/threshold.
func (h *Handler) HandleChangeThreshold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	registryID, err := domain.ParseRegistryID(chi.URLParam(r, "registryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ChangeThresholdRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	registry, err := h.service.ChangeThreshold(ctx, registryID, caller, *req.Threshold)
	if err != nil {
		h.fail(ctx, w, "change threshold failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRegistry(registry))
}

// HandleCreateProposal handles POST /registries/{registryID}/proposals.
func (h *Handler) HandleCreateProposal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	registryID, err := domain.ParseRegistryID(chi.URLParam(r, "registryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateProposalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	proposal, err := h.service.CreateProposal(ctx, registryID, caller, req.Action)
	if err != nil {
		h.fail(ctx, w, "create proposal failed", err)
		return
	}

	h.logger.InfoContext(ctx, "proposal created",
		"request_id", requestID,
		"registry_id", registryID,
		"proposal_id", proposal.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromProposal(proposal))
}

// HandleListProposals handles GET /registries/{registryID}/proposals.
func (h *Handler) HandleListProposals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registryID, err := domain.ParseRegistryID(chi.URLParam(r, "registryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	proposals, err := h.service.ListProposals(ctx, registryID)
	if err != nil {
		h.fail(ctx, w, "list proposals failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProposals(proposals))
}

// HandleGetProposal handles GET /proposals/{proposalID}.
func (h *Handler) HandleGetProposal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	proposalID, err := domain.ParseProposalID(chi.URLParam(r, "proposalID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	proposal, err := h.service.GetProposal(ctx, proposalID)
	if err != nil {
		h.fail(ctx, w, "get proposal failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProposal(proposal))
}

// HandleApprove handles POST /proposals/{proposalID}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	proposalID, err := domain.ParseProposalID(chi.URLParam(r, "proposalID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ApproveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	proposal, err := h.service.Approve(ctx, req.RegistryID, proposalID, caller)
	if err != nil {
		h.fail(ctx, w, "approve proposal failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProposal(proposal))
}

// HandleExecute handles POST /proposals/{proposalID}/execute.
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()
	proposalID, err := domain.ParseProposalID(chi.URLParam(r, "proposalID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ExecuteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	receipt, err := h.service.Execute(ctx, req.RegistryID, proposalID, req.Resources)
	if err != nil {
		h.fail(ctx, w, "execute proposal failed", err)
		return
	}

	h.logger.InfoContext(ctx, "proposal executed",
		"request_id", requestID,
		"registry_id", receipt.RegistryID,
		"proposal_id", receipt.ProposalID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, receipt)
}

func (h *Handler) requireCaller(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	caller, ok := requestcontext.Caller(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return domain.Identity{}, false
	}
	return caller, true
}

// fail logs at warn for domain rejections and at error for everything else.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	level := slog.LevelError
	if code, ok := dErrors.CodeOf(err); ok && httputil.StatusFor(code) < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}

package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"multisig/internal/multisig/executor"
	"multisig/internal/multisig/models"
	"multisig/internal/multisig/service"
	proposalstore "multisig/internal/multisig/store/proposal"
	registrystore "multisig/internal/multisig/store/registry"
	"multisig/pkg/domain"
	"multisig/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router   chi.Router
	recorder *executor.Recorder

	a, b, c, outsider domain.Identity
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func ident(b byte) domain.Identity {
	var id domain.Identity
	for i := range id {
		id[i] = b
	}
	return id
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.recorder = &executor.Recorder{}
	svc := service.New(registrystore.NewInMemory(), proposalstore.NewInMemory(), s.recorder,
		service.WithLogger(logger))
	s.router = chi.NewRouter()
	New(svc, logger).Register(s.router)
	s.a, s.b, s.c, s.outsider = ident(0xA), ident(0xB), ident(0xC), ident(0xD)
}

func (s *HandlerSuite) do(req *http.Request, caller *domain.Identity) (int, []byte) {
	if caller != nil {
		req = testutil.WithCaller(req, *caller)
	}
	rr := testutil.DoRequest(s.router, req)
	return rr.Code, rr.Body.Bytes()
}

func (s *HandlerSuite) initialize(threshold uint64, owners ...domain.Identity) *RegistryResponse {
	s.T().Helper()
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/registries", map[string]any{
		"owners":         owners,
		"threshold":      threshold,
		"authority_seed": 9,
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return testutil.UnmarshalResponse[RegistryResponse](s.T(), rr)
}

func (s *HandlerSuite) TestQuorumFlowOverHTTP() {
	t := s.T()

	testutil.Given(t, "a 2-of-3 registry and a proposal from A", func(t *testing.T) {
		reg := s.initialize(2, s.a, s.b, s.c)
		assert.Equal(t, uint32(0), reg.Epoch)
		assert.False(t, reg.Authority.IsZero())

		createReq := testutil.WithCaller(testutil.NewJSONRequest(t, http.MethodPost,
			"/registries/"+reg.ID.String()+"/proposals", map[string]any{
				"action": map[string]any{
					"target":    ident(0xF0).String(),
					"resources": []map[string]any{{"key": reg.Authority.String(), "is_signer": false, "is_writable": false}},
					"payload":   []byte("hello"),
				},
			}), s.a)
		rr := testutil.DoRequest(s.router, createReq)
		testutil.AssertStatus(t, rr, http.StatusCreated)
		proposal := testutil.UnmarshalResponse[ProposalResponse](t, rr)
		assert.Equal(t, uint64(1), proposal.ApprovalCount)

		executeBody := map[string]any{
			"registry_id": reg.ID.String(),
			"resources":   []map[string]any{{"key": reg.Authority.String()}},
		}

		testutil.When(t, "executing before quorum", func(t *testing.T) {
			rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(t, http.MethodPost,
				"/proposals/"+proposal.ID.String()+"/execute", executeBody))

			testutil.Then(t, "it is rejected as not enough signatures", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusPreconditionFailed, "not_enough_signatures")
				assert.Equal(t, 0, s.recorder.Count())
			})
		})

		testutil.When(t, "B approves and the proposal is executed", func(t *testing.T) {
			approveReq := testutil.WithCaller(testutil.NewJSONRequest(t, http.MethodPost,
				"/proposals/"+proposal.ID.String()+"/approve", map[string]any{"registry_id": reg.ID.String()}), s.b)
			rr := testutil.DoRequest(s.router, approveReq)
			testutil.AssertStatusOK(t, rr)

			rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(t, http.MethodPost,
				"/proposals/"+proposal.ID.String()+"/execute", executeBody))

			testutil.Then(t, "the receipt names the authority as a writable signer", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				receipt := testutil.UnmarshalResponse[models.ExecutionReceipt](t, rr)
				assert.Equal(t, reg.Authority, receipt.Authority)
				require.Len(t, receipt.Instruction.Resources, 1)
				assert.True(t, receipt.Instruction.Resources[0].IsSigner)
				assert.True(t, receipt.Instruction.Resources[0].IsWritable)
				assert.Equal(t, []byte("hello"), receipt.Instruction.Payload)
				assert.NotZero(t, receipt.ExecutedAt)
				assert.Equal(t, 1, s.recorder.Count())
			})
		})

		testutil.When(t, "executing a second time", func(t *testing.T) {
			rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(t, http.MethodPost,
				"/proposals/"+proposal.ID.String()+"/execute", executeBody))

			testutil.Then(t, "it conflicts without re-invoking", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusConflict, "already_executed")
				assert.Equal(t, 1, s.recorder.Count())
			})
		})
	})
}

func (s *HandlerSuite) TestExecuteOrdersChecksWhateverIsSupplied() {
	reg := s.initialize(1, s.a)
	createReq := testutil.NewJSONRequest(s.T(), http.MethodPost, "/registries/"+reg.ID.String()+"/proposals",
		map[string]any{"action": map[string]any{"payload": []byte{1}}})
	rr := testutil.DoRequest(s.router, testutil.WithCaller(createReq, s.a))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	proposalID := testutil.UnmarshalResponse[ProposalResponse](s.T(), rr).ID

	execute := func(resources int) *httptest.ResponseRecorder {
		supplied := make([]map[string]any, resources)
		for i := range supplied {
			supplied[i] = map[string]any{"key": ident(byte(i + 1)).String()}
		}
		return testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost,
			"/proposals/"+proposalID.String()+"/execute",
			map[string]any{"registry_id": reg.ID.String(), "resources": supplied}))
	}

	s.Run("oversized resource list is a count mismatch", func() {
		rr := execute(models.MaxResources + 1)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "invalid_accounts")
		s.Equal(0, s.recorder.Count())
	})

	s.Run("executed proposal reports already executed", func() {
		testutil.AssertStatusOK(s.T(), execute(0))
		rr := execute(models.MaxResources + 1)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "already_executed")
		s.Equal(1, s.recorder.Count())
	})
}

func (s *HandlerSuite) TestRegistryEndpoints() {
	reg := s.initialize(2, s.a, s.b)

	s.Run("get registry", func() {
		code, body := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/registries/"+reg.ID.String()), nil)
		s.Equal(http.StatusOK, code)
		s.Contains(string(body), reg.Authority.String())
	})

	s.Run("set owners requires the authority", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/registries/"+reg.ID.String()+"/owners",
			map[string]any{"owners": []domain.Identity{s.a}})
		code, body := s.do(req, &s.a)
		s.Equal(http.StatusForbidden, code)
		s.Contains(string(body), "invalid_authority")
	})

	s.Run("set owners by the authority bumps the epoch", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/registries/"+reg.ID.String()+"/owners",
			map[string]any{"owners": []domain.Identity{s.a}})
		rr := testutil.DoRequest(s.router, testutil.WithCaller(req, reg.Authority))
		testutil.AssertStatusOK(s.T(), rr)
		updated := testutil.UnmarshalResponse[RegistryResponse](s.T(), rr)
		s.Equal(uint32(1), updated.Epoch)
		s.Equal(uint64(1), updated.Threshold)
	})

	s.Run("threshold is required", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/registries/"+reg.ID.String()+"/threshold", map[string]any{})
		rr := testutil.DoRequest(s.router, testutil.WithCaller(req, reg.Authority))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
	})

	s.Run("invalid threshold on initialize", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/registries", map[string]any{
			"owners": []domain.Identity{s.a}, "threshold": 2,
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "invalid_threshold")
	})
}

func (s *HandlerSuite) TestRequestErrors() {
	reg := s.initialize(1, s.a)

	s.Run("missing caller", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/registries/"+reg.ID.String()+"/proposals",
			map[string]any{"action": map[string]any{}})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("non-owner proposer", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/registries/"+reg.ID.String()+"/proposals",
			map[string]any{"action": map[string]any{}})
		code, body := s.do(req, &s.outsider)
		s.Equal(http.StatusForbidden, code)
		s.Contains(string(body), "invalid_owner")
	})

	s.Run("malformed registry id", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/registries/not-a-uuid"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("unknown proposal", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/proposals/"+domain.NewProposalID().String()))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("unknown body fields", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/registries", `{"owners":[],"threshold":1,"extra":true}`)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("malformed identity", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/registries", `{"owners":["zz"],"threshold":1}`)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("execute without registry id", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/proposals/"+domain.NewProposalID().String()+"/execute",
			map[string]any{"resources": []any{}})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
	})

	s.Run("list proposals", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/registries/"+reg.ID.String()+"/proposals",
			map[string]any{"action": map[string]any{"payload": []byte{1}}})
		code, _ := s.do(req, &s.a)
		s.Require().Equal(http.StatusCreated, code)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/registries/"+reg.ID.String()+"/proposals"))
		testutil.AssertStatusOK(s.T(), rr)
		list := testutil.UnmarshalResponse[ProposalListResponse](s.T(), rr)
		s.Len(list.Proposals, 1)
	})
}

// Package admin exposes the orchestrator's administrative HTTP API:
// policy CRUD, per-index explain and the manual lifecycle overrides.
package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"

	v1 "github.com/Opster/opensearch-ilm-orchestrator/api/v1"
	"github.com/Opster/opensearch-ilm-orchestrator/opensearch-gateway/services"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/metrics"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/orchestrator"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/store"
)

type Server struct {
	orch    *orchestrator.Orchestrator
	metrics *metrics.Metrics
	logger  logr.Logger
}

func New(orch *orchestrator.Orchestrator, m *metrics.Metrics, logger logr.Logger) *Server {
	return &Server{
		orch:    orch,
		metrics: m,
		logger:  logger.WithValues("component", "admin"),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/policies", func(r chi.Router) {
		r.Get("/", s.handleListPolicies)
		r.Put("/{policyID}", s.handleApplyPolicy)
		r.Get("/{policyID}", s.handleGetPolicy)
		r.Delete("/{policyID}", s.handleDeletePolicy)
	})

	r.Route("/indices", func(r chi.Router) {
		r.Get("/", s.handleListIndices)
		r.Get("/{index}/explain", s.handleExplain)
		r.Post("/{index}/retry", s.handleRetry)
		r.Post("/{index}/phase", s.handleForcePhase)
		r.Post("/{index}/pause", s.handlePause)
		r.Post("/{index}/resume", s.handleResume)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"time": time.Now().UTC(),
	})
}

func (s *Server) handleApplyPolicy(w http.ResponseWriter, r *http.Request) {
	var policy v1.Policy
	if err := decodeJSON(w, r, &policy); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	pathID := chi.URLParam(r, "policyID")
	if policy.ID == "" {
		policy.ID = pathID
	}
	if policy.ID != pathID {
		respondError(w, http.StatusBadRequest, "policy_id in body does not match URL")
		return
	}
	changed, err := s.orch.ApplyPolicy(r.Context(), policy)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	status := http.StatusOK
	if changed {
		status = http.StatusCreated
	}
	respondJSON(w, status, map[string]interface{}{"policy_id": policy.ID, "changed": changed})
}

func (s *Server) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := s.orch.GetPolicy(r.Context(), chi.URLParam(r, "policyID"))
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, policy)
}

func (s *Server) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := s.orch.ListPolicies(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	if policies == nil {
		policies = []v1.Policy{}
	}
	respondJSON(w, http.StatusOK, policies)
}

func (s *Server) handleDeletePolicy(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.DeletePolicy(r.Context(), chi.URLParam(r, "policyID")); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleListIndices(w http.ResponseWriter, r *http.Request) {
	indices, err := s.orch.ListIndices(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	if indices == nil {
		indices = []v1.ManagedIndex{}
	}
	respondJSON(w, http.StatusOK, indices)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	explanation, err := s.orch.Explain(r.Context(), chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, explanation)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	index := chi.URLParam(r, "index")
	if err := s.orch.RetryNow(r.Context(), index); err != nil {
		// The retry itself may fail again; the record already carries the
		// error, so surface it together with the refreshed explanation.
		if explanation, exErr := s.orch.Explain(r.Context(), index); exErr == nil {
			respondJSON(w, statusFor(err), explanation)
			return
		}
		respondError(w, statusFor(err), err.Error())
		return
	}
	explanation, err := s.orch.Explain(r.Context(), index)
	if err != nil {
		// Delete transitions purge the record on success.
		if errors.Is(err, store.ErrNotFound) {
			respondJSON(w, http.StatusOK, map[string]bool{"purged": true})
			return
		}
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, explanation)
}

type forcePhaseRequest struct {
	Phase v1.PhaseName `json:"phase"`
}

func (s *Server) handleForcePhase(w http.ResponseWriter, r *http.Request) {
	var req forcePhaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	index := chi.URLParam(r, "index")
	if err := s.orch.ForcePhase(r.Context(), index, req.Phase); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	explanation, err := s.orch.Explain(r.Context(), index)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondJSON(w, http.StatusOK, map[string]bool{"purged": true})
			return
		}
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, explanation)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Pause(r.Context(), chi.URLParam(r, "index")); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Resume(r.Context(), chi.URLParam(r, "index")); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, v1.ErrInvalidPolicy):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotEligible),
		errors.Is(err, services.ErrPreconditionFailed),
		errors.Is(err, orchestrator.ErrPolicyInUse):
		return http.StatusConflict
	case errors.Is(err, services.ErrRequestTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

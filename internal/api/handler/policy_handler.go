package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"loan-servicing/internal/api/handler/dto"
	"loan-servicing/internal/domain/interest"
	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type PolicyHandler struct {
	service interest.Service
	logger  *slog.Logger
}

func NewPolicyHandler(s interest.Service, l *slog.Logger) *PolicyHandler {
	if s == nil {
		panic("interest service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &PolicyHandler{
		service: s,
		logger:  l.With("component", "PolicyHandler"),
	}
}

func getPolicyNameFromURL(r *http.Request) (string, error) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		return "", fmt.Errorf("%w: policy name not found in URL path", apperrors.ErrInvalidArgument)
	}
	return name, nil
}

// SavePolicy handles POST /policies
//
// @Summary Create or replace an interest policy
// @Description Saves a named rate table for one scheme. Bands must be ordered, non-overlapping and only the last may be open-ended. An active policy deactivates the scheme's previous active policy.
// @Tags Policies
// @Accept json
// @Produce json
// @Param request body dto.SavePolicyRequest true "Policy"
// @Success 201 {object} dto.PolicyResponse "Policy saved"
// @Failure 400 {object} dto.ErrorResponse "Invalid policy"
// @Failure 409 {object} dto.ErrorResponse "Concurrent activation for the same scheme"
// @Router /policies [post]
// @Security BearerAuth
func (h *PolicyHandler) SavePolicy(w http.ResponseWriter, r *http.Request) {
	var req dto.SavePolicyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	policy, err := req.Policy()
	if err != nil {
		respondError(w, err)
		return
	}

	saved, err := h.service.SavePolicy(r.Context(), policy)
	if err != nil {
		logServiceError(r, h.logger, "Service failed to save policy", err)
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Policy saved", "policy", saved.Name, "active", saved.IsActive)
	respondJSON(w, http.StatusCreated, dto.NewPolicyResponse(saved))
}

// ListPolicies handles GET /policies
//
// @Summary List interest policies
// @Tags Policies
// @Produce json
// @Success 200 {array} dto.PolicyResponse "Policies by scheme and name"
// @Router /policies [get]
// @Security BearerAuth
func (h *PolicyHandler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.service.ListPolicies(r.Context())
	if err != nil {
		logServiceError(r, h.logger, "Service failed to list policies", err)
		respondError(w, err)
		return
	}

	resp := make([]dto.PolicyResponse, len(policies))
	for i, p := range policies {
		resp[i] = dto.NewPolicyResponse(p)
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetPolicy handles GET /policies/{name}
//
// @Summary Get an interest policy
// @Tags Policies
// @Produce json
// @Param name path string true "Policy name"
// @Success 200 {object} dto.PolicyResponse "Policy"
// @Failure 404 {object} dto.ErrorResponse "Policy not found"
// @Router /policies/{name} [get]
// @Security BearerAuth
func (h *PolicyHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	name, err := getPolicyNameFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	policy, err := h.service.GetPolicy(r.Context(), name)
	if err != nil {
		logServiceError(r, h.logger, "Service failed to get policy", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewPolicyResponse(policy))
}

// ActivatePolicy handles PUT /policies/{name}/activate
//
// @Summary Activate an interest policy
// @Description Makes the policy the active one for its scheme and deactivates the others, in one transaction.
// @Tags Policies
// @Produce json
// @Param name path string true "Policy name"
// @Success 200 {object} dto.PolicyResponse "Activated policy"
// @Failure 404 {object} dto.ErrorResponse "Policy not found"
// @Failure 409 {object} dto.ErrorResponse "Concurrent activation for the same scheme"
// @Router /policies/{name}/activate [put]
// @Security BearerAuth
func (h *PolicyHandler) ActivatePolicy(w http.ResponseWriter, r *http.Request) {
	name, err := getPolicyNameFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.ActivatePolicy(r.Context(), name); err != nil {
		logServiceError(r, h.logger, "Service failed to activate policy", err)
		respondError(w, err)
		return
	}

	policy, err := h.service.GetPolicy(r.Context(), name)
	if err != nil {
		logServiceError(r, h.logger, "Service failed to reload activated policy", err)
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Policy activated", "policy", name, "scheme", policy.Scheme)
	respondJSON(w, http.StatusOK, dto.NewPolicyResponse(policy))
}

// ResolveRate handles GET /policies/{name}/rate
//
// @Summary Resolve the rate for an amount
// @Description Returns the rate of the first band containing the amount, or the policy default.
// @Tags Policies
// @Produce json
// @Param name path string true "Policy name"
// @Param amount query string true "Loan amount"
// @Param scheme query string false "Scheme; defaults to the policy's scheme"
// @Success 200 {object} dto.RateResponse "Resolved rate"
// @Failure 400 {object} dto.ErrorResponse "Invalid amount or scheme mismatch"
// @Failure 404 {object} dto.ErrorResponse "Policy not found"
// @Router /policies/{name}/rate [get]
// @Security BearerAuth
func (h *PolicyHandler) ResolveRate(w http.ResponseWriter, r *http.Request) {
	name, err := getPolicyNameFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	rawAmount := r.URL.Query().Get("amount")
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		respondError(w, apperrors.NewValidationError("amount", fmt.Sprintf("invalid decimal %q", rawAmount)))
		return
	}

	scheme := loan.Scheme(strings.ToUpper(r.URL.Query().Get("scheme")))
	if scheme == "" {
		policy, err := h.service.GetPolicy(r.Context(), name)
		if err != nil {
			logServiceError(r, h.logger, "Service failed to get policy", err)
			respondError(w, err)
			return
		}
		scheme = policy.Scheme
	}

	rate, err := h.service.ResolveRate(r.Context(), name, scheme, amount)
	if err != nil {
		logServiceError(r, h.logger, "Service failed to resolve rate", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.RateResponse{
		Policy: name,
		Scheme: string(scheme),
		Amount: amount.StringFixed(2),
		Rate:   rate.String(),
	})
}

package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"loan-servicing/internal/api/handler/dto"
	"loan-servicing/internal/api/middleware"
	"loan-servicing/internal/domain/application"
	"loan-servicing/internal/pkg/apperrors"
)

type ApplicationHandler struct {
	service application.Service
	logger  *slog.Logger
	clock   func() time.Time
}

func NewApplicationHandler(s application.Service, l *slog.Logger) *ApplicationHandler {
	if s == nil {
		panic("application service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &ApplicationHandler{
		service: s,
		logger:  l.With("component", "ApplicationHandler"),
		clock:   time.Now,
	}
}

func getApplicationIDFromURL(r *http.Request) (int64, error) {
	return getIDFromURL(r, "applicationID")
}

// CreateApplication handles POST /applications
//
// @Summary Open a loan application
// @Description Records a loan request. Without an explicit rate, the rate is resolved from the named policy or the scheme's active policy.
// @Tags Applications
// @Accept json
// @Produce json
// @Param request body dto.CreateApplicationRequest true "Application"
// @Success 201 {object} dto.ApplicationResponse "Application opened"
// @Failure 400 {object} dto.ErrorResponse "Invalid application"
// @Failure 404 {object} dto.ErrorResponse "Policy not found"
// @Router /applications [post]
// @Security BearerAuth
func (h *ApplicationHandler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	params, err := req.Params()
	if err != nil {
		respondError(w, err)
		return
	}

	app, err := h.service.Create(r.Context(), params, h.clock())
	if err != nil {
		logServiceError(r, h.logger, "Service failed to create application", err)
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Application opened", "applicationID", app.ID, "customerID", app.CustomerID)
	respondJSON(w, http.StatusCreated, dto.NewApplicationResponse(app))
}

// GetApplication handles GET /applications/{applicationID}
//
// @Summary Get a loan application
// @Tags Applications
// @Produce json
// @Param applicationID path int true "Application ID"
// @Success 200 {object} dto.ApplicationResponse "Application"
// @Failure 404 {object} dto.ErrorResponse "Application not found"
// @Router /applications/{applicationID} [get]
// @Security BearerAuth
func (h *ApplicationHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	id, err := getApplicationIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	app, err := h.service.Get(r.Context(), id)
	if err != nil {
		logServiceError(r, h.logger, "Service failed to get application", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewApplicationResponse(app))
}

// ApproveApplication handles PUT /applications/{applicationID}/approve
//
// @Summary Approve a loan application
// @Description Approves an open application. Amount and rate default to the requested amount and resolved rate.
// @Tags Applications
// @Accept json
// @Produce json
// @Param applicationID path int true "Application ID"
// @Param request body dto.ApproveApplicationRequest false "Optional overrides"
// @Success 200 {object} dto.ApplicationResponse "Application approved"
// @Failure 400 {object} dto.ErrorResponse "Invalid overrides"
// @Failure 404 {object} dto.ErrorResponse "Application not found"
// @Failure 409 {object} dto.ErrorResponse "Application is not open"
// @Router /applications/{applicationID}/approve [put]
// @Security BearerAuth
func (h *ApplicationHandler) ApproveApplication(w http.ResponseWriter, r *http.Request) {
	id, err := getApplicationIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	// The body is optional; an empty one approves as requested.
	var req dto.ApproveApplicationRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	amount, rate, err := req.Overrides()
	if err != nil {
		respondError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	app, err := h.service.Approve(r.Context(), id, amount, rate, actor, h.clock())
	if err != nil {
		logServiceError(r, h.logger, "Service failed to approve application", err)
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Application approved", "applicationID", id, "actor", actor)
	respondJSON(w, http.StatusOK, dto.NewApplicationResponse(app))
}

// RejectApplication handles PUT /applications/{applicationID}/reject
//
// @Summary Reject a loan application
// @Tags Applications
// @Accept json
// @Produce json
// @Param applicationID path int true "Application ID"
// @Param request body dto.RejectApplicationRequest true "Rejection reason"
// @Success 200 {object} dto.ApplicationResponse "Application rejected"
// @Failure 400 {object} dto.ErrorResponse "Missing reason"
// @Failure 404 {object} dto.ErrorResponse "Application not found"
// @Failure 409 {object} dto.ErrorResponse "Application already decided or disbursed"
// @Router /applications/{applicationID}/reject [put]
// @Security BearerAuth
func (h *ApplicationHandler) RejectApplication(w http.ResponseWriter, r *http.Request) {
	id, err := getApplicationIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.RejectApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	app, err := h.service.Reject(r.Context(), id, req.Reason, actor, h.clock())
	if err != nil {
		logServiceError(r, h.logger, "Service failed to reject application", err)
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Application rejected", "applicationID", id, "actor", actor)
	respondJSON(w, http.StatusOK, dto.NewApplicationResponse(app))
}

// ConvertToLoan handles POST /applications/{applicationID}/loan
//
// @Summary Convert an approved application into a draft loan
// @Tags Applications
// @Accept json
// @Produce json
// @Param applicationID path int true "Application ID"
// @Param request body dto.ConvertApplicationRequest true "Loan start date"
// @Success 201 {object} dto.LoanResponse "Draft loan created"
// @Failure 400 {object} dto.ErrorResponse "Invalid start date"
// @Failure 404 {object} dto.ErrorResponse "Application not found"
// @Failure 409 {object} dto.ErrorResponse "Application not approved or already converted"
// @Router /applications/{applicationID}/loan [post]
// @Security BearerAuth
func (h *ApplicationHandler) ConvertToLoan(w http.ResponseWriter, r *http.Request) {
	id, err := getApplicationIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.ConvertApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	created, err := h.service.ConvertToLoan(r.Context(), id, req.Start(), h.clock())
	if err != nil {
		logServiceError(r, h.logger, "Service failed to convert application", err)
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Application converted to loan", "applicationID", id, "loanID", created.ID)
	respondJSON(w, http.StatusCreated, dto.NewLoanResponse(created, false))
}

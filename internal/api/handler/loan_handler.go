package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"loan-servicing/internal/api/handler/dto"
	"loan-servicing/internal/api/middleware"
	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type LoanHandler struct {
	service        loan.LoanService
	defaultPenalty decimal.Decimal
	logger         *slog.Logger
	clock          func() time.Time
}

func NewLoanHandler(s loan.LoanService, defaultPenalty decimal.Decimal, l *slog.Logger) *LoanHandler {
	if s == nil {
		panic("loan service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &LoanHandler{
		service:        s,
		defaultPenalty: defaultPenalty,
		logger:         l.With("component", "LoanHandler"),
		clock:          time.Now,
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, code, message, field := http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred.", ""
	var validationError *apperrors.ValidationError
	var stateError *apperrors.StateError
	var appErr *apperrors.AppError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.As(err, &validationError):
		status, code, message, field = http.StatusBadRequest, "VALIDATION_ERROR", validationError.Message, validationError.Field
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		status, code, message = http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.As(err, &stateError):
		status, code, message = http.StatusConflict, "INVALID_STATE", stateError.Error()
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrAlreadyExists):
		status, code, message = http.StatusConflict, "CONFLICT", err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, code, message = http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized"
	case errors.As(err, &appErr):
		code, message = appErr.Code, appErr.Error()
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	resp := dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Code:    code,
			Message: message,
			Field:   field,
		},
	}
	respondJSON(w, status, resp)
}

func getIDFromURL(r *http.Request, param string) (int64, error) {
	idStr := chi.URLParam(r, param)
	if idStr == "" {
		return 0, fmt.Errorf("%w: %s not found in URL path", apperrors.ErrInvalidArgument, param)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s format in URL path: %s", apperrors.ErrInvalidArgument, param, idStr)
	}
	return id, nil
}

func getLoanIDFromURL(r *http.Request) (int64, error) {
	return getIDFromURL(r, "loanID")
}

// logServiceError logs expected client-side failures at warn and everything else at error.
func logServiceError(r *http.Request, logger *slog.Logger, msg string, err error) {
	level := slog.LevelError
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrValidation) ||
		errors.Is(err, apperrors.ErrState) || errors.Is(err, apperrors.ErrConflict) ||
		errors.Is(err, apperrors.ErrInvalidArgument) || errors.Is(err, apperrors.ErrAlreadyExists) {
		level = slog.LevelWarn
	}
	logger.Log(r.Context(), level, msg, slog.Any("error", err))
}

// Calculate handles GET /calculator
//
// @Summary Calculate loan terms
// @Description Computes the installment, total interest and total amount for a principal, a monthly rate (percent) and a tenure, without creating a loan.
// @Tags Calculator
// @Produce json
// @Param scheme query string true "FLAT_RATE or EMI"
// @Param principal query string true "Principal amount" Example(100000)
// @Param rate query string true "Rate per monthly period, percent" Example(3)
// @Param tenure query int true "Number of monthly periods" Example(12)
// @Success 200 {object} dto.CalculatorResponse "Computed terms"
// @Failure 400 {object} dto.ErrorResponse "Invalid terms"
// @Router /calculator [get]
// @Security BearerAuth
func (h *LoanHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	principal, rate, tenure, scheme, err := dto.CalculatorQuery{
		Scheme:    q.Get("scheme"),
		Principal: q.Get("principal"),
		Rate:      q.Get("rate"),
		Tenure:    q.Get("tenure"),
	}.Parse()
	if err != nil {
		respondError(w, err)
		return
	}

	summary, err := h.service.ComputeTerms(principal, rate, tenure, scheme)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewCalculatorResponse(principal, rate, tenure, scheme, summary))
}

// CreateLoan handles POST /loans
//
// @Summary Create a draft loan
// @Description Creates a loan in DRAFT status for an active customer. The schedule is generated on submission.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.CreateLoanRequest true "Loan terms"
// @Success 201 {object} dto.LoanResponse "Draft loan created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload or validation error"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [post]
// @Security BearerAuth
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	params, err := req.Params(h.defaultPenalty)
	if err != nil {
		respondError(w, err)
		return
	}

	created, err := h.service.CreateLoan(r.Context(), params)
	if err != nil {
		logServiceError(r, h.logger, "Service failed to create loan", err)
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Loan created", "loanID", created.ID)
	respondJSON(w, http.StatusCreated, dto.NewLoanResponse(created, false))
}

// GetLoan handles GET /loans/{loanID}
//
// @Summary Get loan details
// @Description Returns the loan with its amortization schedule.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.LoanResponse "Loan details"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	l, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		logServiceError(r, h.logger, "Service failed to get loan", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanResponse(l, true))
}

// SubmitLoan handles POST /loans/{loanID}/submit
//
// @Summary Submit a draft loan
// @Description Generates the amortization schedule and moves the loan from DRAFT to ACTIVE.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.LoanResponse "Loan activated"
// @Failure 400 {object} dto.ErrorResponse "Invalid terms"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Loan is not a draft"
// @Router /loans/{loanID}/submit [post]
// @Security BearerAuth
func (h *LoanHandler) SubmitLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	l, err := h.service.SubmitLoan(r.Context(), loanID, h.clock())
	if err != nil {
		logServiceError(r, h.logger, "Service failed to submit loan", err)
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Loan submitted", "loanID", loanID, "installments", len(l.Schedule))
	respondJSON(w, http.StatusOK, dto.NewLoanResponse(l, true))
}

// MakePayment handles POST /loans/{loanID}/payments
//
// @Summary Settle a payment
// @Description Allocates a payment to penalty, interest and principal, reconciles the schedule and returns the updated loan figures. A manual allocation replaces the automatic split.
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.MakePaymentRequest true "Payment"
// @Success 201 {object} dto.SettlementResponse "Payment settled"
// @Failure 400 {object} dto.ErrorResponse "Invalid payment"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Loan not payable or payment reference already settled"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/payments [post]
// @Security BearerAuth
func (h *LoanHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.MakePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	paymentReq, err := req.PaymentRequest(middleware.ActorFromContext(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}

	settlement, err := h.service.ApplyPayment(r.Context(), loanID, paymentReq, h.clock())
	if err != nil {
		logServiceError(r, h.logger, "Service failed to apply payment", err)
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Payment settled", "loanID", loanID, "reference", settlement.Payment.Reference)
	respondJSON(w, http.StatusCreated, dto.NewSettlementResponse(settlement))
}

// ListPayments handles GET /loans/{loanID}/payments
//
// @Summary List settled payments
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {array} dto.PaymentResponse "Payments in settlement order"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /loans/{loanID}/payments [get]
// @Security BearerAuth
func (h *LoanHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	payments, err := h.service.ListPayments(r.Context(), loanID)
	if err != nil {
		logServiceError(r, h.logger, "Service failed to list payments", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewPaymentListResponse(payments))
}

// GetPaymentSuggestion handles GET /loans/{loanID}/payment-suggestion
//
// @Summary Suggest the next payment
// @Description Returns the unpaid part of the next open installment, or the outstanding amount when none is open.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.PaymentSuggestionResponse "Suggested payment"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /loans/{loanID}/payment-suggestion [get]
// @Security BearerAuth
func (h *LoanHandler) GetPaymentSuggestion(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	suggestion, err := h.service.GetPaymentSuggestion(r.Context(), loanID)
	if err != nil {
		logServiceError(r, h.logger, "Service failed to suggest payment", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewPaymentSuggestionResponse(loanID, suggestion))
}

// RefreshStatus handles POST /loans/{loanID}/refresh
//
// @Summary Refresh loan status
// @Description Re-derives ACTIVE/OVERDUE from the schedule as of today.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.StatusResponse "Current status"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /loans/{loanID}/refresh [post]
// @Security BearerAuth
func (h *LoanHandler) RefreshStatus(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	status, err := h.service.RefreshStatus(r.Context(), loanID, h.clock())
	if err != nil {
		logServiceError(r, h.logger, "Service failed to refresh status", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.StatusResponse{LoanID: strconv.FormatInt(loanID, 10), Status: string(status)})
}

// GetOverdue handles GET /loans/{loanID}/overdue
//
// @Summary Get overdue exposure
// @Description Sums the unpaid part of installments due before today.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.OverdueResponse "Overdue exposure"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /loans/{loanID}/overdue [get]
// @Security BearerAuth
func (h *LoanHandler) GetOverdue(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	exposure, err := h.service.GetOverdueExposure(r.Context(), loanID, h.clock())
	if err != nil {
		logServiceError(r, h.logger, "Service failed to compute overdue exposure", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewOverdueResponse(loanID, exposure))
}

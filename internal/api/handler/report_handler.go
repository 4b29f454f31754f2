package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"loan-servicing/internal/api/handler/dto"
	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/pkg/apperrors"
)

type ReportHandler struct {
	service loan.LoanService
	logger  *slog.Logger
}

func NewReportHandler(s loan.LoanService, l *slog.Logger) *ReportHandler {
	if s == nil {
		panic("loan service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &ReportHandler{
		service: s,
		logger:  l.With("component", "ReportHandler"),
	}
}

// Portfolio handles GET /reports/portfolio
//
// @Summary Portfolio report
// @Description Lists loans with customer details and summarises principal, outstanding amount and collection rate over loans that are not closed. Dates filter on the loan start date.
// @Tags Reports
// @Produce json
// @Param customerId query int false "Customer ID"
// @Param status query string false "DRAFT, ACTIVE, OVERDUE or CLOSED"
// @Param scheme query string false "FLAT_RATE or EMI"
// @Param fromDate query string false "Start date from (YYYY-MM-DD)"
// @Param toDate query string false "Start date to (YYYY-MM-DD)"
// @Success 200 {object} dto.PortfolioResponse "Portfolio"
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /reports/portfolio [get]
// @Security BearerAuth
func (h *ReportHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := dto.PortfolioQuery{
		Status:   q.Get("status"),
		Scheme:   q.Get("scheme"),
		FromDate: q.Get("fromDate"),
		ToDate:   q.Get("toDate"),
	}
	if raw := q.Get("customerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respondError(w, fmt.Errorf("%w: invalid customerId %q", apperrors.ErrInvalidArgument, raw))
			return
		}
		query.CustomerID = &id
	}

	filter, err := query.Filter()
	if err != nil {
		respondError(w, err)
		return
	}

	report, err := h.service.GetPortfolioSummary(r.Context(), filter)
	if err != nil {
		logServiceError(r, h.logger, "Service failed to build portfolio report", err)
		respondError(w, err)
		return
	}

	h.logger.DebugContext(r.Context(), "Portfolio report built", "rows", len(report.Rows))
	respondJSON(w, http.StatusOK, dto.NewPortfolioResponse(report))
}

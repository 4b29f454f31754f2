package dto

import (
	"strings"

	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/pkg/apperrors"
)

type PortfolioRowResponse struct {
	LoanID            string  `json:"loanId"`
	CustomerID        string  `json:"customerId"`
	CustomerName      string  `json:"customerName"`
	MobileNumber      string  `json:"mobileNumber"`
	Scheme            string  `json:"scheme"`
	StartDate         string  `json:"startDate"`
	Principal         string  `json:"principal"`
	RatePerPeriod     string  `json:"ratePerPeriod"`
	TotalAmount       string  `json:"totalAmount"`
	PaidAmount        string  `json:"paidAmount"`
	OutstandingAmount string  `json:"outstandingAmount"`
	Status            string  `json:"status"`
	LastPaymentDate   *string `json:"lastPaymentDate,omitempty"`
}

type PortfolioSummaryResponse struct {
	OpenLoanCount    int    `json:"openLoanCount"`
	TotalPrincipal   string `json:"totalPrincipal"`
	TotalOutstanding string `json:"totalOutstanding"`
	CollectionRate   string `json:"collectionRate"`
}

type PortfolioResponse struct {
	Summary PortfolioSummaryResponse `json:"summary"`
	Loans   []PortfolioRowResponse   `json:"loans"`
}

// PortfolioQuery holds the raw query parameters of a portfolio report.
type PortfolioQuery struct {
	CustomerID *int64
	Status     string
	Scheme     string
	FromDate   string
	ToDate     string
}

func (q PortfolioQuery) Filter() (loan.PortfolioFilter, error) {
	filter := loan.PortfolioFilter{CustomerID: q.CustomerID}

	if q.Status != "" {
		filter.Status = loan.LoanStatus(strings.ToUpper(q.Status))
		switch filter.Status {
		case loan.StatusDraft, loan.StatusActive, loan.StatusOverdue, loan.StatusClosed:
		default:
			return loan.PortfolioFilter{}, apperrors.NewValidationError("status", "unsupported loan status")
		}
	}
	if q.Scheme != "" {
		filter.Scheme = loan.Scheme(strings.ToUpper(q.Scheme))
		if !filter.Scheme.Valid() {
			return loan.PortfolioFilter{}, apperrors.NewValidationError("scheme", "unsupported scheme")
		}
	}

	var err error
	if filter.FromDate, err = ParseDate("fromDate", q.FromDate); err != nil {
		return loan.PortfolioFilter{}, err
	}
	if filter.ToDate, err = ParseDate("toDate", q.ToDate); err != nil {
		return loan.PortfolioFilter{}, err
	}
	if filter.FromDate != nil && filter.ToDate != nil && filter.ToDate.Before(*filter.FromDate) {
		return loan.PortfolioFilter{}, apperrors.NewValidationError("toDate", "must not be before fromDate")
	}
	return filter, nil
}

func NewPortfolioResponse(report loan.PortfolioReport) PortfolioResponse {
	resp := PortfolioResponse{
		Summary: PortfolioSummaryResponse{
			OpenLoanCount:    report.OpenLoanCount,
			TotalPrincipal:   report.TotalPrincipal.StringFixed(moneyPlaces),
			TotalOutstanding: report.TotalOutstanding.StringFixed(moneyPlaces),
			CollectionRate:   report.CollectionRate.StringFixed(moneyPlaces),
		},
		Loans: make([]PortfolioRowResponse, len(report.Rows)),
	}
	for i, row := range report.Rows {
		resp.Loans[i] = PortfolioRowResponse{
			LoanID:            formatID(row.LoanID),
			CustomerID:        formatID(row.CustomerID),
			CustomerName:      row.CustomerName,
			MobileNumber:      row.MobileNumber,
			Scheme:            string(row.Scheme),
			StartDate:         row.StartDate.Format(DateLayout),
			Principal:         row.Principal.StringFixed(moneyPlaces),
			RatePerPeriod:     row.RatePerPeriod.String(),
			TotalAmount:       row.TotalAmount.StringFixed(moneyPlaces),
			PaidAmount:        row.PaidAmount.StringFixed(moneyPlaces),
			OutstandingAmount: row.OutstandingAmount.StringFixed(moneyPlaces),
			Status:            string(row.Status),
			LastPaymentDate:   formatDate(row.LastPaymentDate),
		}
	}
	return resp
}

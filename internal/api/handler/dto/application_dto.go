package dto

import (
	"fmt"
	"strings"
	"time"

	"loan-servicing/internal/domain/application"
	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

type CreateApplicationRequest struct {
	CustomerID    int64   `json:"customerId"`
	Scheme        string  `json:"scheme"`
	PolicyName    string  `json:"policyName,omitempty"`
	Amount        string  `json:"amount"`
	TenurePeriods int     `json:"tenurePeriods"`
	RatePerPeriod *string `json:"ratePerPeriod,omitempty"`
}

func (r *CreateApplicationRequest) Params() (application.CreateParams, error) {
	amount, err := parseDecimal("amount", r.Amount)
	if err != nil {
		return application.CreateParams{}, err
	}
	rate, err := parseOptionalDecimal("ratePerPeriod", r.RatePerPeriod)
	if err != nil {
		return application.CreateParams{}, err
	}
	params := application.CreateParams{
		CustomerID:    r.CustomerID,
		Scheme:        loan.Scheme(strings.ToUpper(r.Scheme)),
		PolicyName:    strings.TrimSpace(r.PolicyName),
		Amount:        amount,
		TenurePeriods: r.TenurePeriods,
		RatePerPeriod: rate,
	}
	return params, params.Validate()
}

type ApproveApplicationRequest struct {
	ApprovedAmount *string `json:"approvedAmount,omitempty"`
	ApprovedRate   *string `json:"approvedRate,omitempty"`
}

// Overrides returns the optional amount and rate overrides of an approval.
func (r *ApproveApplicationRequest) Overrides() (amount, rate *decimal.Decimal, err error) {
	if amount, err = parseOptionalDecimal("approvedAmount", r.ApprovedAmount); err != nil {
		return nil, nil, err
	}
	if rate, err = parseOptionalDecimal("approvedRate", r.ApprovedRate); err != nil {
		return nil, nil, err
	}
	return amount, rate, nil
}

type RejectApplicationRequest struct {
	Reason string `json:"reason"`
}

func (r *RejectApplicationRequest) Validate() error {
	if strings.TrimSpace(r.Reason) == "" {
		return apperrors.NewValidationError("reason", "is required")
	}
	return nil
}

type ConvertApplicationRequest struct {
	StartDate string `json:"startDate"`
}

func (r *ConvertApplicationRequest) Validate() error {
	if _, err := parseDate("startDate", r.StartDate); err != nil {
		return fmt.Errorf("invalid conversion request: %w", err)
	}
	return nil
}

func (r *ConvertApplicationRequest) Start() time.Time {
	t, _ := time.Parse(DateLayout, r.StartDate)
	return t
}

type ApplicationResponse struct {
	ID              string     `json:"id"`
	CustomerID      string     `json:"customerId"`
	Scheme          string     `json:"scheme"`
	PolicyName      string     `json:"policyName,omitempty"`
	RequestedAmount string     `json:"requestedAmount"`
	TenurePeriods   int        `json:"tenurePeriods"`
	RatePerPeriod   string     `json:"ratePerPeriod"`
	PenaltyRate     string     `json:"penaltyRate"`
	ApprovedAmount  *string    `json:"approvedAmount,omitempty"`
	ApprovedRate    *string    `json:"approvedRate,omitempty"`
	Status          string     `json:"status"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	DecidedBy       string     `json:"decidedBy,omitempty"`
	DecidedAt       *time.Time `json:"decidedAt,omitempty"`
	LoanID          *string    `json:"loanId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func NewApplicationResponse(a *application.Application) ApplicationResponse {
	if a == nil {
		return ApplicationResponse{}
	}
	resp := ApplicationResponse{
		ID:              formatID(a.ID),
		CustomerID:      formatID(a.CustomerID),
		Scheme:          string(a.Scheme),
		PolicyName:      a.PolicyName,
		RequestedAmount: a.RequestedAmount.StringFixed(moneyPlaces),
		TenurePeriods:   a.TenurePeriods,
		RatePerPeriod:   a.RatePerPeriod.String(),
		PenaltyRate:     a.PenaltyRate.String(),
		Status:          string(a.Status),
		RejectionReason: a.RejectionReason,
		DecidedBy:       a.DecidedBy,
		DecidedAt:       a.DecidedAt,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.Status == application.StatusApproved || a.Status == application.StatusDisbursed {
		amount := a.ApprovedAmount.StringFixed(moneyPlaces)
		rate := a.ApprovedRate.String()
		resp.ApprovedAmount = &amount
		resp.ApprovedRate = &rate
	}
	if a.LoanID != nil {
		id := formatID(*a.LoanID)
		resp.LoanID = &id
	}
	return resp
}

func NewApplicationListResponse(apps []*application.Application) []ApplicationResponse {
	resp := make([]ApplicationResponse, 0, len(apps))
	for _, a := range apps {
		resp = append(resp, NewApplicationResponse(a))
	}
	return resp
}

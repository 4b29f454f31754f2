package application

import (
	"fmt"
	"time"

	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusDisbursed Status = "DISBURSED"
)

// Application is a customer's request for a loan. The rate is resolved when the application is
// created; approval may override amount and rate.
type Application struct {
	ID              int64
	CustomerID      int64
	Scheme          loan.Scheme
	PolicyName      string
	RequestedAmount decimal.Decimal
	TenurePeriods   int
	RatePerPeriod   decimal.Decimal
	PenaltyRate     decimal.Decimal
	ApprovedAmount  decimal.Decimal
	ApprovedRate    decimal.Decimal
	Status          Status
	RejectionReason string
	DecidedBy       string
	DecidedAt       *time.Time
	LoanID          *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type CreateParams struct {
	CustomerID    int64
	Scheme        loan.Scheme
	PolicyName    string
	Amount        decimal.Decimal
	TenurePeriods int
	// RatePerPeriod overrides the policy rate when set.
	RatePerPeriod *decimal.Decimal
}

func (p CreateParams) Validate() error {
	if p.CustomerID <= 0 {
		return apperrors.NewValidationError("customerID", "must be a positive identifier")
	}
	if !p.Scheme.Valid() {
		return apperrors.NewValidationError("scheme", fmt.Sprintf("unsupported scheme %q", p.Scheme))
	}
	if !p.Amount.IsPositive() {
		return apperrors.NewValidationError("amount", "must be greater than zero")
	}
	if p.TenurePeriods <= 0 {
		return apperrors.NewValidationError("tenurePeriods", "must be greater than zero")
	}
	if p.RatePerPeriod != nil && !p.RatePerPeriod.IsPositive() {
		return apperrors.NewValidationError("ratePerPeriod", "must be greater than zero")
	}
	return nil
}

func (a *Application) Approve(amount, rate *decimal.Decimal, actor string, now time.Time) error {
	if a.Status != StatusOpen {
		return apperrors.NewStateError(string(a.Status), "approve application", "")
	}

	a.ApprovedAmount = a.RequestedAmount
	if amount != nil {
		if !amount.IsPositive() {
			return apperrors.NewValidationError("approvedAmount", "must be greater than zero")
		}
		a.ApprovedAmount = *amount
	}
	a.ApprovedRate = a.RatePerPeriod
	if rate != nil {
		if !rate.IsPositive() {
			return apperrors.NewValidationError("approvedRate", "must be greater than zero")
		}
		a.ApprovedRate = *rate
	}

	a.decide(StatusApproved, actor, now)
	return nil
}

func (a *Application) Reject(reason, actor string, now time.Time) error {
	if reason == "" {
		return apperrors.NewValidationError("reason", "is required")
	}
	if a.Status != StatusOpen && a.Status != StatusApproved {
		return apperrors.NewStateError(string(a.Status), "reject application", "")
	}
	a.RejectionReason = reason
	a.decide(StatusRejected, actor, now)
	return nil
}

// LoanParams builds the draft loan for an approved application.
func (a *Application) LoanParams(startDate time.Time) (loan.NewLoanParams, error) {
	if a.Status != StatusApproved {
		return loan.NewLoanParams{}, apperrors.NewStateError(string(a.Status), "convert application to loan", "")
	}
	id := a.ID
	return loan.NewLoanParams{
		CustomerID:    a.CustomerID,
		ApplicationID: &id,
		Terms: loan.Terms{
			Principal:     a.ApprovedAmount,
			RatePerPeriod: a.ApprovedRate,
			TenurePeriods: a.TenurePeriods,
			Scheme:        a.Scheme,
			Frequency:     loan.FrequencyMonthly,
			StartDate:     startDate,
		},
		PenaltyRate: a.PenaltyRate,
	}, nil
}

func (a *Application) MarkDisbursed(loanID int64, now time.Time) {
	a.LoanID = &loanID
	a.Status = StatusDisbursed
	a.UpdatedAt = now
}

func (a *Application) decide(status Status, actor string, now time.Time) {
	a.Status = status
	a.DecidedBy = actor
	decided := now
	a.DecidedAt = &decided
	a.UpdatedAt = now
}

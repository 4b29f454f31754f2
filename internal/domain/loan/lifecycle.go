package loan

import (
	"fmt"
	"time"

	"loan-servicing/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// Submit moves a draft loan to Active and generates its schedule. The schedule is generated once.
func (l *Loan) Submit(now time.Time) error {
	if l.Status != StatusDraft {
		return apperrors.NewStateError(string(l.Status), "submit loan", "")
	}
	if len(l.Schedule) > 0 {
		return apperrors.NewStateError(string(l.Status), "submit loan", "schedule already exists")
	}
	if err := l.Terms.Validate(); err != nil {
		return err
	}

	schedule, err := GenerateSchedule(l.Terms)
	if err != nil {
		return err
	}
	for i := range schedule {
		schedule[i].LoanID = l.ID
	}

	l.Schedule = schedule
	l.Status = StatusActive
	l.RecomputeAggregates(decimal.Zero, now)
	return nil
}

// ApplyPayment validates the request, allocates it and reconciles the schedule. It leaves PaidAmount
// untouched: the caller recomputes aggregates from the settled payment total afterwards. A rejected
// request leaves the loan unchanged.
func (l *Loan) ApplyPayment(req PaymentRequest, now time.Time) (*Payment, error) {
	if err := l.validatePayment(&req, now); err != nil {
		return nil, err
	}

	var allocation Allocation
	if req.Allocation != nil {
		allocation = *req.Allocation
	} else {
		allocation = Allocate(l, req.Amount, now)
	}

	before := l.OutstandingAmount
	ReconcileSchedule(l.Schedule, req.Amount, req.PaymentDate)

	paymentDate := req.PaymentDate
	l.LastPaymentDate = &paymentDate
	l.UpdatedAt = now

	return &Payment{
		Reference:     req.Reference,
		LoanID:        l.ID,
		Amount:        req.Amount,
		PaymentDate:   req.PaymentDate,
		PaymentType:   req.Type,
		PenaltyPaid:   allocation.Penalty,
		InterestPaid:  allocation.Interest,
		PrincipalPaid: allocation.Principal,
		BalanceBefore: before,
		BalanceAfter:  floorZero(before.Sub(req.Amount)),
		ExcessAmount:  floorZero(req.Amount.Sub(before)),
		ManualSplit:   req.Allocation != nil,
		CreatedBy:     req.Actor,
		SettledAt:     now,
	}, nil
}

func (l *Loan) validatePayment(req *PaymentRequest, now time.Time) error {
	if l.Status != StatusActive && l.Status != StatusOverdue {
		return apperrors.NewStateError(string(l.Status), "settle payment", "")
	}
	if !req.Amount.IsPositive() {
		return apperrors.NewValidationError("amount", "must be greater than zero")
	}
	if req.Type == "" {
		req.Type = PaymentRegular
	}
	if !req.Type.Valid() {
		return apperrors.NewValidationError("paymentType", fmt.Sprintf("unsupported payment type %q", req.Type))
	}
	if req.Amount.GreaterThan(l.OutstandingAmount) && !req.Type.AllowsOverpayment() {
		return apperrors.NewValidationError("amount",
			fmt.Sprintf("payment %s exceeds outstanding amount %s",
				req.Amount.StringFixed(moneyPlaces), l.OutstandingAmount.StringFixed(moneyPlaces)))
	}
	if req.Allocation != nil {
		if err := validateManualAllocation(*req.Allocation, req.Amount); err != nil {
			return err
		}
	}
	if req.PaymentDate.IsZero() {
		req.PaymentDate = now
	}
	return nil
}

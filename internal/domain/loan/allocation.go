package loan

import (
	"time"

	"loan-servicing/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

var daysPerPenaltyPeriod = decimal.NewFromInt(30)

type Allocation struct {
	Penalty   decimal.Decimal
	Interest  decimal.Decimal
	Principal decimal.Decimal
}

func (a Allocation) Total() decimal.Decimal {
	return a.Penalty.Add(a.Interest).Add(a.Principal)
}

// Allocate splits amount across penalty, interest and principal, in that order. Each bucket is
// capped by what remains of the payment, and principal takes the rest.
func Allocate(l *Loan, amount decimal.Decimal, now time.Time) Allocation {
	remaining := floorZero(amount)

	penalty := decimal.Min(l.PenaltyDue(now), remaining)
	remaining = remaining.Sub(penalty)

	interest := decimal.Min(l.InterestDue(), remaining)
	remaining = remaining.Sub(interest)

	return Allocation{
		Penalty:   penalty,
		Interest:  interest,
		Principal: remaining,
	}
}

// PenaltyDue is a flat single-period penalty on the full amount of every overdue installment.
func (l *Loan) PenaltyDue(now time.Time) decimal.Decimal {
	if !l.PenaltyRate.IsPositive() {
		return decimal.Zero
	}
	overdue := l.OverdueExposure(now).Amount
	return roundMoney(overdue.Mul(l.PenaltyRate).Div(hundred))
}

// InterestDue sums the interest not yet covered on open installments.
func (l *Loan) InterestDue() decimal.Decimal {
	due := decimal.Zero
	for _, row := range l.Schedule {
		if !row.Open() {
			continue
		}
		due = due.Add(floorZero(row.InterestPortion.Sub(row.PaidAmount)))
	}
	return due
}

// ProratedPenalty charges ratePerMonth percent per 30 days overdue. Used for reporting only.
func ProratedPenalty(overdueAmount decimal.Decimal, overdueDays int, ratePerMonth decimal.Decimal) decimal.Decimal {
	if overdueDays <= 0 || !overdueAmount.IsPositive() || !ratePerMonth.IsPositive() {
		return decimal.Zero
	}
	days := decimal.NewFromInt(int64(overdueDays))
	return roundMoney(overdueAmount.Mul(ratePerMonth).Div(hundred).Mul(days).Div(daysPerPenaltyPeriod))
}

func validateManualAllocation(a Allocation, amount decimal.Decimal) error {
	if a.Penalty.IsNegative() {
		return apperrors.NewValidationError("allocation.penalty", "must not be negative")
	}
	if a.Interest.IsNegative() {
		return apperrors.NewValidationError("allocation.interest", "must not be negative")
	}
	if a.Principal.IsNegative() {
		return apperrors.NewValidationError("allocation.principal", "must not be negative")
	}
	if !a.Total().Equal(amount) {
		return apperrors.NewValidationError("allocation", "penalty, interest and principal must add up to the payment amount")
	}
	return nil
}

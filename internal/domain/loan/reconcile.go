package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

type OverdueExposure struct {
	Amount           decimal.Decimal
	InstallmentCount int
	EarliestDueDate  *time.Time
}

// ReconcileSchedule distributes amount over open installments, oldest first, and returns what is
// left once every installment is paid.
func ReconcileSchedule(schedule []Installment, amount decimal.Decimal, paidDate time.Time) decimal.Decimal {
	remaining := amount
	for i := range schedule {
		if !remaining.IsPositive() {
			break
		}
		row := &schedule[i]
		if !row.Open() {
			continue
		}

		due := row.Due()
		if remaining.GreaterThanOrEqual(due) {
			row.PaidAmount = row.InstallmentAmount
			row.Status = InstallmentPaid
			paid := paidDate
			row.PaidDate = &paid
			remaining = remaining.Sub(due)
			continue
		}

		row.PaidAmount = row.PaidAmount.Add(remaining)
		row.Status = InstallmentPartial
		remaining = decimal.Zero
	}
	return remaining
}

// RecomputeAggregates resets the loan totals from its schedule and the freshly summed settled
// payments, then derives the status.
func (l *Loan) RecomputeAggregates(settledTotal decimal.Decimal, now time.Time) {
	if len(l.Schedule) > 0 {
		interest, amount := decimal.Zero, decimal.Zero
		for _, row := range l.Schedule {
			interest = interest.Add(row.InterestPortion)
			amount = amount.Add(row.InstallmentAmount)
		}
		l.TotalInterest = interest
		l.TotalAmount = amount
	}

	l.PaidAmount = settledTotal
	l.OutstandingAmount = floorZero(l.TotalAmount.Sub(settledTotal))
	l.CreditBalance = floorZero(settledTotal.Sub(l.TotalAmount))
	l.RefreshStatus(now)
}

// RefreshStatus derives Active, Overdue or Closed. Draft and Closed loans keep their status.
func (l *Loan) RefreshStatus(now time.Time) LoanStatus {
	switch l.Status {
	case StatusDraft, StatusClosed:
		return l.Status
	}

	switch {
	case !l.OutstandingAmount.IsPositive():
		l.OutstandingAmount = decimal.Zero
		l.Status = StatusClosed
	case l.IsOverdue(now):
		l.Status = StatusOverdue
	default:
		l.Status = StatusActive
	}
	l.UpdatedAt = now
	return l.Status
}

func (l *Loan) IsOverdue(now time.Time) bool {
	today := startOfDay(now)
	for _, row := range l.Schedule {
		if isOverdueRow(row, today) {
			return true
		}
	}
	return false
}

func (l *Loan) OverdueExposure(now time.Time) OverdueExposure {
	today := startOfDay(now)
	exposure := OverdueExposure{Amount: decimal.Zero}
	for _, row := range l.Schedule {
		if !isOverdueRow(row, today) {
			continue
		}
		exposure.Amount = exposure.Amount.Add(row.InstallmentAmount)
		exposure.InstallmentCount++
		if exposure.EarliestDueDate == nil || row.DueDate.Before(*exposure.EarliestDueDate) {
			due := row.DueDate
			exposure.EarliestDueDate = &due
		}
	}
	return exposure
}

// An installment is overdue when it is still Pending and its due date is before today. A partly
// paid row is not overdue.
func isOverdueRow(row Installment, today time.Time) bool {
	if row.Status != InstallmentPending {
		return false
	}
	y, m, d := row.DueDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, today.Location()).Before(today)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

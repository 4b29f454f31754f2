package loan

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submittedLoan(t *testing.T, scheme Scheme, rate, penaltyRate string) *Loan {
	t.Helper()
	l, err := NewLoan(NewLoanParams{
		CustomerID: 1,
		Terms: Terms{
			Principal:     d("100000"),
			RatePerPeriod: d(rate),
			TenurePeriods: 12,
			Scheme:        scheme,
			StartDate:     startDate,
		},
		PenaltyRate: d(penaltyRate),
	}, startDate)
	require.NoError(t, err)
	l.ID = 42
	require.NoError(t, l.Submit(startDate))
	return l
}

func flatLoan(t *testing.T) *Loan {
	return submittedLoan(t, SchemeFlatRate, "3", "0")
}

func TestReconcileSchedule_SpillsIntoNextInstallment(t *testing.T) {
	l := flatLoan(t)
	paidOn := time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)

	remaining := ReconcileSchedule(l.Schedule, d("15000"), paidOn)

	assert.True(t, remaining.IsZero())
	assert.Equal(t, InstallmentPaid, l.Schedule[0].Status)
	assertMoney(t, "11333.33", l.Schedule[0].PaidAmount)
	require.NotNil(t, l.Schedule[0].PaidDate)
	assert.Equal(t, paidOn, *l.Schedule[0].PaidDate)

	assert.Equal(t, InstallmentPartial, l.Schedule[1].Status)
	assertMoney(t, "3666.67", l.Schedule[1].PaidAmount)
	assert.Nil(t, l.Schedule[1].PaidDate)
	assert.Equal(t, InstallmentPending, l.Schedule[2].Status)
}

func TestReconcileSchedule_ExactInstallment(t *testing.T) {
	l := flatLoan(t)

	remaining := ReconcileSchedule(l.Schedule, d("11333.33"), startDate)

	assert.True(t, remaining.IsZero())
	assert.Equal(t, InstallmentPaid, l.Schedule[0].Status)
	assert.Equal(t, InstallmentPending, l.Schedule[1].Status)
	assert.True(t, l.Schedule[1].PaidAmount.IsZero())
}

func TestReconcileSchedule_CompletesPartialBeforeMovingOn(t *testing.T) {
	l := flatLoan(t)
	ReconcileSchedule(l.Schedule, d("11433.33"), startDate)
	require.Equal(t, InstallmentPartial, l.Schedule[1].Status)

	ReconcileSchedule(l.Schedule, d("11300"), startDate)

	assert.Equal(t, InstallmentPaid, l.Schedule[1].Status)
	assert.Equal(t, InstallmentPartial, l.Schedule[2].Status)
	assertMoney(t, "66.67", l.Schedule[2].PaidAmount)
}

func TestReconcileSchedule_ReturnsExcess(t *testing.T) {
	l := flatLoan(t)

	remaining := ReconcileSchedule(l.Schedule, d("140000"), startDate)

	assertMoney(t, "4000.00", remaining)
	for _, row := range l.Schedule {
		assert.Equal(t, InstallmentPaid, row.Status, "row %d", row.Number)
		assert.True(t, row.PaidAmount.Equal(row.InstallmentAmount))
	}
}

func TestRecomputeAggregates(t *testing.T) {
	l := flatLoan(t)
	now := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

	l.RecomputeAggregates(d("20000"), now)

	assertMoney(t, "136000.00", l.TotalAmount)
	assertMoney(t, "36000.00", l.TotalInterest)
	assertMoney(t, "20000.00", l.PaidAmount)
	assertMoney(t, "116000.00", l.OutstandingAmount)
	assert.True(t, l.CreditBalance.IsZero())
	assert.Equal(t, StatusActive, l.Status)
}

func TestRecomputeAggregates_OverpaymentClosesWithCredit(t *testing.T) {
	l := flatLoan(t)
	ReconcileSchedule(l.Schedule, d("140000"), startDate)

	l.RecomputeAggregates(d("140000"), startDate)

	assert.Equal(t, StatusClosed, l.Status)
	assert.True(t, l.OutstandingAmount.IsZero())
	assertMoney(t, "4000.00", l.CreditBalance)
	assert.True(t, l.PaidAmount.Equal(l.TotalAmount.Add(l.CreditBalance)))
}

func TestRefreshStatus(t *testing.T) {
	t.Run("due today is not overdue", func(t *testing.T) {
		l := flatLoan(t)
		assert.Equal(t, StatusActive, l.RefreshStatus(time.Date(2024, time.February, 15, 23, 59, 0, 0, time.UTC)))
	})

	t.Run("unpaid past due becomes overdue", func(t *testing.T) {
		l := flatLoan(t)
		assert.Equal(t, StatusOverdue, l.RefreshStatus(time.Date(2024, time.February, 16, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("partly paid past due row is not overdue", func(t *testing.T) {
		l := flatLoan(t)
		ReconcileSchedule(l.Schedule, d("11000"), startDate)
		require.Equal(t, InstallmentPartial, l.Schedule[0].Status)
		assert.Equal(t, StatusActive, l.RefreshStatus(time.Date(2024, time.February, 16, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("next pending row past due makes it overdue again", func(t *testing.T) {
		l := flatLoan(t)
		ReconcileSchedule(l.Schedule, d("11000"), startDate)
		assert.Equal(t, StatusOverdue, l.RefreshStatus(time.Date(2024, time.March, 16, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("catching up returns to active", func(t *testing.T) {
		l := flatLoan(t)
		now := time.Date(2024, time.February, 16, 0, 0, 0, 0, time.UTC)
		require.Equal(t, StatusOverdue, l.RefreshStatus(now))

		ReconcileSchedule(l.Schedule, d("11333.33"), now)

		assert.Equal(t, StatusActive, l.RefreshStatus(now))
	})

	t.Run("draft is left alone", func(t *testing.T) {
		l := &Loan{Status: StatusDraft, OutstandingAmount: decimal.Zero}
		assert.Equal(t, StatusDraft, l.RefreshStatus(startDate))
	})

	t.Run("closed is terminal", func(t *testing.T) {
		l := flatLoan(t)
		l.Status = StatusClosed
		l.OutstandingAmount = d("10")
		assert.Equal(t, StatusClosed, l.RefreshStatus(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("nothing outstanding closes", func(t *testing.T) {
		l := flatLoan(t)
		l.OutstandingAmount = d("-0.01")
		assert.Equal(t, StatusClosed, l.RefreshStatus(startDate))
		assert.True(t, l.OutstandingAmount.IsZero())
	})
}

func TestOverdueExposure(t *testing.T) {
	l := flatLoan(t)
	ReconcileSchedule(l.Schedule, d("5000"), startDate)
	now := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)

	exposure := l.OverdueExposure(now)

	// the partly paid February row is not counted
	assertMoney(t, "11333.33", exposure.Amount)
	assert.Equal(t, 1, exposure.InstallmentCount)
	require.NotNil(t, exposure.EarliestDueDate)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), *exposure.EarliestDueDate)
	assert.True(t, l.IsOverdue(now))
}

func TestOverdueExposure_PartialRowOnly(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	l, err := NewLoan(NewLoanParams{
		CustomerID:  1,
		Terms:       Terms{Principal: d("1200"), RatePerPeriod: d("1"), TenurePeriods: 12, Scheme: SchemeFlatRate, StartDate: start},
		PenaltyRate: d("1"),
	}, start)
	require.NoError(t, err)
	require.NoError(t, l.Submit(start))
	ReconcileSchedule(l.Schedule, d("50"), start)
	l.RecomputeAggregates(d("50"), start)
	now := time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, InstallmentPartial, l.Schedule[0].Status)
	assert.Equal(t, StatusActive, l.RefreshStatus(now))
	assert.True(t, l.OverdueExposure(now).Amount.IsZero())
	assert.True(t, l.PenaltyDue(now).IsZero())
}

func TestOverdueExposure_NoneWhenCurrent(t *testing.T) {
	l := flatLoan(t)

	exposure := l.OverdueExposure(startDate)

	assert.True(t, exposure.Amount.IsZero())
	assert.Zero(t, exposure.InstallmentCount)
	assert.Nil(t, exposure.EarliestDueDate)
	assert.False(t, l.IsOverdue(startDate))
}

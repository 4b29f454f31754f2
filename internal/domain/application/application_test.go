package application

import (
	"testing"
	"time"

	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)

func openApplication() *Application {
	return &Application{
		ID:              11,
		CustomerID:      3,
		Scheme:          loan.SchemeEMI,
		RequestedAmount: decimal.NewFromInt(50000),
		TenurePeriods:   24,
		RatePerPeriod:   decimal.RequireFromString("1.5"),
		PenaltyRate:     decimal.NewFromInt(2),
		Status:          StatusOpen,
	}
}

func TestCreateParams_Validate(t *testing.T) {
	zero := decimal.Zero
	valid := CreateParams{CustomerID: 1, Scheme: loan.SchemeFlatRate, Amount: decimal.NewFromInt(1000), TenurePeriods: 12}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(p *CreateParams)
		field  string
	}{
		{"customer", func(p *CreateParams) { p.CustomerID = 0 }, "customerID"},
		{"scheme", func(p *CreateParams) { p.Scheme = "" }, "scheme"},
		{"amount", func(p *CreateParams) { p.Amount = decimal.Zero }, "amount"},
		{"tenure", func(p *CreateParams) { p.TenurePeriods = -1 }, "tenurePeriods"},
		{"rate", func(p *CreateParams) { p.RatePerPeriod = &zero }, "ratePerPeriod"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)

			var vErr *apperrors.ValidationError
			require.ErrorAs(t, p.Validate(), &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestApprove_DefaultsToRequest(t *testing.T) {
	app := openApplication()

	require.NoError(t, app.Approve(nil, nil, "officer", now))

	assert.Equal(t, StatusApproved, app.Status)
	assert.True(t, app.ApprovedAmount.Equal(app.RequestedAmount))
	assert.True(t, app.ApprovedRate.Equal(app.RatePerPeriod))
	assert.Equal(t, "officer", app.DecidedBy)
	require.NotNil(t, app.DecidedAt)
	assert.Equal(t, now, *app.DecidedAt)
}

func TestApprove_Overrides(t *testing.T) {
	app := openApplication()
	amount := decimal.NewFromInt(40000)
	rate := decimal.RequireFromString("1.25")

	require.NoError(t, app.Approve(&amount, &rate, "officer", now))

	assert.True(t, app.ApprovedAmount.Equal(amount))
	assert.True(t, app.ApprovedRate.Equal(rate))
}

func TestApprove_OnlyOpen(t *testing.T) {
	app := openApplication()
	app.Status = StatusRejected

	err := app.Approve(nil, nil, "officer", now)

	assert.ErrorIs(t, err, apperrors.ErrState)
}

func TestReject(t *testing.T) {
	t.Run("requires reason", func(t *testing.T) {
		app := openApplication()
		assert.ErrorIs(t, app.Reject("", "officer", now), apperrors.ErrValidation)
		assert.Equal(t, StatusOpen, app.Status)
	})

	t.Run("approved can still be rejected", func(t *testing.T) {
		app := openApplication()
		require.NoError(t, app.Approve(nil, nil, "officer", now))

		require.NoError(t, app.Reject("income not verified", "supervisor", now))
		assert.Equal(t, StatusRejected, app.Status)
		assert.Equal(t, "income not verified", app.RejectionReason)
	})

	t.Run("disbursed cannot", func(t *testing.T) {
		app := openApplication()
		app.Status = StatusDisbursed
		assert.ErrorIs(t, app.Reject("late", "officer", now), apperrors.ErrState)
	})
}

func TestLoanParams(t *testing.T) {
	app := openApplication()
	start := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

	_, err := app.LoanParams(start)
	require.ErrorIs(t, err, apperrors.ErrState)

	require.NoError(t, app.Approve(nil, nil, "officer", now))
	params, err := app.LoanParams(start)

	require.NoError(t, err)
	assert.Equal(t, int64(3), params.CustomerID)
	require.NotNil(t, params.ApplicationID)
	assert.Equal(t, int64(11), *params.ApplicationID)
	assert.Equal(t, loan.SchemeEMI, params.Terms.Scheme)
	assert.Equal(t, 24, params.Terms.TenurePeriods)
	assert.Equal(t, start, params.Terms.StartDate)
	assert.True(t, params.PenaltyRate.Equal(decimal.NewFromInt(2)))
}

package interest

import (
	"errors"
	"testing"

	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func tieredPolicy() *Policy {
	return &Policy{
		Name:        "standard-flat",
		Scheme:      loan.SchemeFlatRate,
		DefaultRate: d("3"),
		PenaltyRate: d("1"),
		Bands: []Band{
			{MinAmount: d("1000"), MaxAmount: dp("50000"), Rate: d("3.5")},
			{MinAmount: d("50000.01"), MaxAmount: dp("200000"), Rate: d("2.5")},
			{MinAmount: d("200000.01"), Rate: d("2")},
		},
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Policy)
		field  string
	}{
		{name: "valid", mutate: func(p *Policy) {}},
		{name: "empty name", mutate: func(p *Policy) { p.Name = " " }, field: "name"},
		{name: "unknown scheme", mutate: func(p *Policy) { p.Scheme = "BALLOON" }, field: "scheme"},
		{name: "zero default rate", mutate: func(p *Policy) { p.DefaultRate = decimal.Zero }, field: "defaultRate"},
		{name: "negative penalty", mutate: func(p *Policy) { p.PenaltyRate = d("-0.5") }, field: "penaltyRate"},
		{name: "overlapping bands", mutate: func(p *Policy) { p.Bands[1].MinAmount = d("50000") }, field: "bands[1].minAmount"},
		{name: "inverted band", mutate: func(p *Policy) { p.Bands[0].MaxAmount = dp("500") }, field: "bands[0].maxAmount"},
		{name: "first band at zero", mutate: func(p *Policy) { p.Bands[0].MinAmount = decimal.Zero }, field: "bands[0].minAmount"},
		{name: "band after open-ended", mutate: func(p *Policy) { p.Bands[1].MaxAmount = nil }, field: "bands[2]"},
		{name: "non-positive band rate", mutate: func(p *Policy) { p.Bands[2].Rate = decimal.Zero }, field: "bands[2].rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tieredPolicy()
			tt.mutate(p)

			err := p.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *apperrors.ValidationError
			require.True(t, errors.As(err, &vErr), "expected validation error, got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestResolveRate(t *testing.T) {
	p := tieredPolicy()

	tests := []struct {
		amount string
		want   string
	}{
		{amount: "500", want: "3"},
		{amount: "1000", want: "3.5"},
		{amount: "50000", want: "3.5"},
		{amount: "100000", want: "2.5"},
		{amount: "200000", want: "2.5"},
		{amount: "1000000", want: "2"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			rate, err := ResolveRate(p, loan.SchemeFlatRate, d(tt.amount))
			require.NoError(t, err)
			assert.True(t, d(tt.want).Equal(rate), "expected %s got %s", tt.want, rate)
		})
	}
}

func TestResolveRate_FirstMatchingBandWins(t *testing.T) {
	p := &Policy{
		Name:        "unordered",
		Scheme:      loan.SchemeEMI,
		DefaultRate: d("2"),
		Bands: []Band{
			{MinAmount: d("1"), Rate: d("1.5")},
		},
	}

	rate, err := ResolveRate(p, loan.SchemeEMI, d("999999"))

	require.NoError(t, err)
	assert.True(t, d("1.5").Equal(rate))
}

func TestResolveRate_Errors(t *testing.T) {
	p := tieredPolicy()

	_, err := ResolveRate(p, loan.SchemeEMI, d("1000"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = ResolveRate(p, loan.SchemeFlatRate, decimal.Zero)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = ResolveRate(nil, loan.SchemeFlatRate, d("1000"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	noDefault := &Policy{Name: "broken", Scheme: loan.SchemeFlatRate}
	_, err = ResolveRate(noDefault, loan.SchemeFlatRate, d("1000"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

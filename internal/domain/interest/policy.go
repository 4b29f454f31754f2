package interest

import (
	"fmt"
	"strings"
	"time"

	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// Policy is a named rate table for one scheme. Rates are percentages per monthly period.
type Policy struct {
	ID          int64
	Name        string
	Scheme      loan.Scheme
	DefaultRate decimal.Decimal
	PenaltyRate decimal.Decimal
	IsActive    bool
	Bands       []Band
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Band applies Rate to amounts in [MinAmount, MaxAmount]. A nil MaxAmount leaves the band open-ended.
type Band struct {
	MinAmount decimal.Decimal
	MaxAmount *decimal.Decimal
	Rate      decimal.Decimal
}

func (b Band) Contains(amount decimal.Decimal) bool {
	if amount.LessThan(b.MinAmount) {
		return false
	}
	return b.MaxAmount == nil || amount.LessThanOrEqual(*b.MaxAmount)
}

// Validate rejects a policy whose bands overlap or are inverted, or whose rates are out of range.
func (p *Policy) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return apperrors.NewValidationError("name", "is required")
	}
	if !p.Scheme.Valid() {
		return apperrors.NewValidationError("scheme", fmt.Sprintf("unsupported scheme %q", p.Scheme))
	}
	if !p.DefaultRate.IsPositive() {
		return apperrors.NewValidationError("defaultRate", "must be greater than zero")
	}
	if p.PenaltyRate.IsNegative() {
		return apperrors.NewValidationError("penaltyRate", "must not be negative")
	}

	prevMax := decimal.Zero
	openEnded := false
	for i, band := range p.Bands {
		field := fmt.Sprintf("bands[%d]", i)
		if openEnded {
			return apperrors.NewValidationError(field, "follows an open-ended band")
		}
		if !band.Rate.IsPositive() {
			return apperrors.NewValidationError(field+".rate", "must be greater than zero")
		}
		if band.MinAmount.LessThanOrEqual(prevMax) {
			return apperrors.NewValidationError(field+".minAmount", "overlaps the previous band")
		}
		if band.MaxAmount == nil {
			openEnded = true
			continue
		}
		if band.MaxAmount.LessThanOrEqual(band.MinAmount) {
			return apperrors.NewValidationError(field+".maxAmount", "must be greater than minAmount")
		}
		prevMax = *band.MaxAmount
	}
	return nil
}

// ResolveRate returns the rate of the first band containing amount, or the policy default.
func ResolveRate(p *Policy, scheme loan.Scheme, amount decimal.Decimal) (decimal.Decimal, error) {
	if p == nil {
		return decimal.Zero, apperrors.NewValidationError("policy", "is required")
	}
	if p.Scheme != scheme {
		return decimal.Zero, apperrors.NewValidationError("scheme",
			fmt.Sprintf("policy %q applies to %s, not %s", p.Name, p.Scheme, scheme))
	}
	if !amount.IsPositive() {
		return decimal.Zero, apperrors.NewValidationError("amount", "must be greater than zero")
	}

	for _, band := range p.Bands {
		if band.Contains(amount) {
			return band.Rate, nil
		}
	}
	if !p.DefaultRate.IsPositive() {
		return decimal.Zero, apperrors.NewValidationError("defaultRate", fmt.Sprintf("policy %q has no applicable rate", p.Name))
	}
	return p.DefaultRate, nil
}

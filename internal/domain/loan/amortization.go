package loan

import (
	"fmt"
	"time"

	"loan-servicing/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

type TermsSummary struct {
	Installment   decimal.Decimal
	TotalInterest decimal.Decimal
	TotalAmount   decimal.Decimal
}

func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// ComputeTerms returns the headline figures for a loan. A zero rate is accepted and yields no interest.
func ComputeTerms(principal, ratePerPeriod decimal.Decimal, tenure int, scheme Scheme) (TermsSummary, error) {
	if err := validateCalculatorInput(principal, ratePerPeriod, tenure, scheme); err != nil {
		return TermsSummary{}, err
	}

	n := decimal.NewFromInt(int64(tenure))
	r := ratePerPeriod.Div(hundred)

	var totalInterest, installment decimal.Decimal
	switch scheme {
	case SchemeFlatRate:
		totalInterest = roundMoney(principal.Mul(r).Mul(n))
		installment = roundMoney(principal.Add(totalInterest).Div(n))
	case SchemeEMI:
		if r.IsZero() {
			totalInterest = decimal.Zero
			installment = roundMoney(principal.Div(n))
			break
		}
		installment = roundMoney(annuityPayment(principal, r, tenure))
		totalInterest = decimal.Zero
		walkEMI(principal, installment, r, tenure, func(_ int, _, interest, _ decimal.Decimal) {
			totalInterest = totalInterest.Add(interest)
		})
	}

	return TermsSummary{
		Installment:   installment,
		TotalInterest: totalInterest,
		TotalAmount:   principal.Add(totalInterest),
	}, nil
}

// GenerateSchedule builds one installment per period. Due dates fall on the same day of month as the
// start date, clamped to the month's last day.
func GenerateSchedule(terms Terms) ([]Installment, error) {
	if err := validateCalculatorInput(terms.Principal, terms.RatePerPeriod, terms.TenurePeriods, terms.Scheme); err != nil {
		return nil, err
	}
	if terms.StartDate.IsZero() {
		return nil, apperrors.NewValidationError("startDate", "is required")
	}

	var schedule []Installment
	r := terms.RatePerPeriod.Div(hundred)
	if terms.Scheme == SchemeEMI && !r.IsZero() {
		schedule = emiSchedule(terms, r)
	} else {
		summary, err := ComputeTerms(terms.Principal, terms.RatePerPeriod, terms.TenurePeriods, terms.Scheme)
		if err != nil {
			return nil, err
		}
		schedule = flatSchedule(terms, summary)
	}

	if err := checkSchedule(terms.Principal, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// Non-final rows are truncated to the cent so the final row only ever absorbs a non-negative residue.
func flatSchedule(terms Terms, summary TermsSummary) []Installment {
	n := terms.TenurePeriods
	periods := decimal.NewFromInt(int64(n))
	principalPortion := terms.Principal.Div(periods).Truncate(moneyPlaces)
	interestPortion := summary.TotalInterest.Div(periods).Truncate(moneyPlaces)

	schedule := make([]Installment, 0, n)
	paidPrincipal := decimal.Zero
	paidInterest := decimal.Zero

	for k := 1; k <= n; k++ {
		p, i := principalPortion, interestPortion
		if k == n {
			p = terms.Principal.Sub(paidPrincipal)
			i = summary.TotalInterest.Sub(paidInterest)
		}
		paidPrincipal = paidPrincipal.Add(p)
		paidInterest = paidInterest.Add(i)

		schedule = append(schedule, newInstallment(terms.StartDate, k, p, i, floorZero(terms.Principal.Sub(paidPrincipal))))
	}
	return schedule
}

func emiSchedule(terms Terms, r decimal.Decimal) []Installment {
	n := terms.TenurePeriods
	installment := roundMoney(annuityPayment(terms.Principal, r, n))

	schedule := make([]Installment, 0, n)
	walkEMI(terms.Principal, installment, r, n, func(k int, principal, interest, balance decimal.Decimal) {
		schedule = append(schedule, newInstallment(terms.StartDate, k, principal, interest, balance))
	})
	return schedule
}

// walkEMI runs the reducing-balance walk with cent-rounded interest. The final row, or any row whose
// principal would overshoot, takes the whole remaining balance.
func walkEMI(principal, installment, r decimal.Decimal, n int, row func(k int, principal, interest, balance decimal.Decimal)) {
	balance := principal
	for k := 1; k <= n; k++ {
		interest := roundMoney(balance.Mul(r))
		p := floorZero(installment.Sub(interest))
		if k == n || p.GreaterThan(balance) {
			p = balance
		}
		balance = floorZero(balance.Sub(p))
		row(k, p, interest, balance)
	}
}

func newInstallment(start time.Time, number int, principal, interest, balance decimal.Decimal) Installment {
	return Installment{
		Number:            number,
		DueDate:           addMonths(start, number),
		InstallmentAmount: principal.Add(interest),
		PrincipalPortion:  principal,
		InterestPortion:   interest,
		RemainingBalance:  balance,
		PaidAmount:        decimal.Zero,
		Status:            InstallmentPending,
	}
}

// annuityPayment is P*r*(1+r)^n / ((1+r)^n - 1), unrounded.
func annuityPayment(principal, r decimal.Decimal, n int) decimal.Decimal {
	growth := decimal.NewFromInt(1).Add(r).Pow(decimal.NewFromInt(int64(n)))
	return principal.Mul(r).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1)))
}

func checkSchedule(principal decimal.Decimal, schedule []Installment) error {
	total := decimal.Zero
	for _, row := range schedule {
		if row.PrincipalPortion.IsNegative() {
			return fmt.Errorf("%w: installment %d has negative principal %s",
				apperrors.ErrInternalServer, row.Number, row.PrincipalPortion.StringFixed(moneyPlaces))
		}
		total = total.Add(row.PrincipalPortion)
	}
	if !total.Equal(principal) {
		return fmt.Errorf("%w: schedule generation failed sanity check - principal %s != expected %s",
			apperrors.ErrInternalServer, total.StringFixed(moneyPlaces), principal.StringFixed(moneyPlaces))
	}
	if last := schedule[len(schedule)-1]; !last.RemainingBalance.IsZero() {
		return fmt.Errorf("%w: schedule leaves remaining balance %s",
			apperrors.ErrInternalServer, last.RemainingBalance.StringFixed(moneyPlaces))
	}
	return nil
}

func validateCalculatorInput(principal, rate decimal.Decimal, tenure int, scheme Scheme) error {
	if !principal.IsPositive() {
		return apperrors.NewValidationError("principal", "must be greater than zero")
	}
	if rate.IsNegative() {
		return apperrors.NewValidationError("ratePerPeriod", "must not be negative")
	}
	if tenure <= 0 {
		return apperrors.NewValidationError("tenurePeriods", "must be greater than zero")
	}
	if !scheme.Valid() {
		return apperrors.NewValidationError("scheme", fmt.Sprintf("unsupported scheme %q", scheme))
	}
	return nil
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return firstOfTarget.AddDate(0, 0, d-1)
}

package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

type PortfolioFilter struct {
	CustomerID *int64
	Status     LoanStatus
	Scheme     Scheme
	FromDate   *time.Time
	ToDate     *time.Time
}

type PortfolioRow struct {
	LoanID            int64
	CustomerID        int64
	CustomerName      string
	MobileNumber      string
	Scheme            Scheme
	StartDate         time.Time
	Principal         decimal.Decimal
	RatePerPeriod     decimal.Decimal
	TotalAmount       decimal.Decimal
	PaidAmount        decimal.Decimal
	OutstandingAmount decimal.Decimal
	Status            LoanStatus
	LastPaymentDate   *time.Time
}

type PortfolioReport struct {
	Rows             []PortfolioRow
	OpenLoanCount    int
	TotalPrincipal   decimal.Decimal
	TotalOutstanding decimal.Decimal
	CollectionRate   decimal.Decimal
}

// SummarisePortfolio totals the rows. The summary covers loans that are not closed; the collection
// rate is the share of their principal already recovered, as a percentage.
func SummarisePortfolio(rows []PortfolioRow) PortfolioReport {
	report := PortfolioReport{
		Rows:             rows,
		TotalPrincipal:   decimal.Zero,
		TotalOutstanding: decimal.Zero,
		CollectionRate:   decimal.Zero,
	}
	for _, row := range rows {
		if row.Status == StatusClosed {
			continue
		}
		report.OpenLoanCount++
		report.TotalPrincipal = report.TotalPrincipal.Add(row.Principal)
		report.TotalOutstanding = report.TotalOutstanding.Add(row.OutstandingAmount)
	}
	if report.TotalPrincipal.IsPositive() {
		recovered := report.TotalPrincipal.Sub(report.TotalOutstanding)
		report.CollectionRate = roundMoney(recovered.Div(report.TotalPrincipal).Mul(hundred))
	}
	return report
}

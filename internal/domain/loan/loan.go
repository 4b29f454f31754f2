package loan

import (
	"fmt"
	"time"

	"loan-servicing/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

type Scheme string

const (
	SchemeFlatRate Scheme = "FLAT_RATE"
	SchemeEMI      Scheme = "EMI"
)

func (s Scheme) Valid() bool {
	return s == SchemeFlatRate || s == SchemeEMI
}

type Frequency string

const FrequencyMonthly Frequency = "MONTHLY"

type LoanStatus string

const (
	StatusDraft   LoanStatus = "DRAFT"
	StatusActive  LoanStatus = "ACTIVE"
	StatusOverdue LoanStatus = "OVERDUE"
	StatusClosed  LoanStatus = "CLOSED"
)

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPartial InstallmentStatus = "PARTIAL"
	InstallmentPaid    InstallmentStatus = "PAID"
)

type PaymentType string

const (
	PaymentRegular    PaymentType = "REGULAR"
	PaymentPrepayment PaymentType = "PREPAYMENT"
	PaymentAdjustment PaymentType = "ADJUSTMENT"
)

func (t PaymentType) Valid() bool {
	return t == PaymentRegular || t == PaymentPrepayment || t == PaymentAdjustment
}

// AllowsOverpayment reports whether a payment of this type may exceed the outstanding amount.
func (t PaymentType) AllowsOverpayment() bool {
	return t == PaymentPrepayment || t == PaymentAdjustment
}

// Terms are fixed once the loan leaves draft. RatePerPeriod is a percentage per monthly period.
type Terms struct {
	Principal     decimal.Decimal
	RatePerPeriod decimal.Decimal
	TenurePeriods int
	Scheme        Scheme
	Frequency     Frequency
	StartDate     time.Time
}

func (t Terms) Validate() error {
	if !t.Principal.IsPositive() {
		return apperrors.NewValidationError("principal", "must be greater than zero")
	}
	if !t.RatePerPeriod.IsPositive() {
		return apperrors.NewValidationError("ratePerPeriod", "must be greater than zero")
	}
	if t.TenurePeriods <= 0 {
		return apperrors.NewValidationError("tenurePeriods", "must be greater than zero")
	}
	if !t.Scheme.Valid() {
		return apperrors.NewValidationError("scheme", fmt.Sprintf("unsupported scheme %q", t.Scheme))
	}
	if t.Frequency != "" && t.Frequency != FrequencyMonthly {
		return apperrors.NewValidationError("periodFrequency", fmt.Sprintf("unsupported frequency %q", t.Frequency))
	}
	if t.StartDate.IsZero() {
		return apperrors.NewValidationError("startDate", "is required")
	}
	return nil
}

type Loan struct {
	ID                int64
	CustomerID        int64
	ApplicationID     *int64
	Terms             Terms
	PenaltyRate       decimal.Decimal
	TotalInterest     decimal.Decimal
	TotalAmount       decimal.Decimal
	PaidAmount        decimal.Decimal
	OutstandingAmount decimal.Decimal
	CreditBalance     decimal.Decimal
	Status            LoanStatus
	LastPaymentDate   *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Schedule          []Installment
}

type Installment struct {
	ID                int64
	LoanID            int64
	Number            int
	DueDate           time.Time
	InstallmentAmount decimal.Decimal
	PrincipalPortion  decimal.Decimal
	InterestPortion   decimal.Decimal
	RemainingBalance  decimal.Decimal
	PaidAmount        decimal.Decimal
	PaidDate          *time.Time
	Status            InstallmentStatus
}

// Due is the part of the installment not yet paid.
func (i Installment) Due() decimal.Decimal {
	return i.InstallmentAmount.Sub(i.PaidAmount)
}

func (i Installment) Open() bool {
	return i.Status == InstallmentPending || i.Status == InstallmentPartial
}

type Payment struct {
	ID            int64
	Reference     string
	LoanID        int64
	Amount        decimal.Decimal
	PaymentDate   time.Time
	PaymentType   PaymentType
	PenaltyPaid   decimal.Decimal
	InterestPaid  decimal.Decimal
	PrincipalPaid decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	ExcessAmount  decimal.Decimal
	ManualSplit   bool
	CreatedBy     string
	SettledAt     time.Time
}

type PaymentRequest struct {
	Reference   string
	Amount      decimal.Decimal
	PaymentDate time.Time
	Type        PaymentType
	// Allocation, when set, replaces the automatic penalty/interest/principal split.
	Allocation *Allocation
	Actor      string
}

// Aggregates are the loan-level figures derived from the schedule and settled payments.
type Aggregates struct {
	TotalInterest     decimal.Decimal
	TotalAmount       decimal.Decimal
	PaidAmount        decimal.Decimal
	OutstandingAmount decimal.Decimal
	CreditBalance     decimal.Decimal
	Status            LoanStatus
}

type NewLoanParams struct {
	CustomerID    int64
	ApplicationID *int64
	Terms         Terms
	PenaltyRate   decimal.Decimal
}

// NewLoan builds a draft loan. Totals come from ComputeTerms until the schedule is generated on submission.
func NewLoan(params NewLoanParams, now time.Time) (*Loan, error) {
	if params.CustomerID <= 0 {
		return nil, apperrors.NewValidationError("customerID", "must be a positive identifier")
	}
	if params.PenaltyRate.IsNegative() {
		return nil, apperrors.NewValidationError("penaltyRate", "must not be negative")
	}

	terms := params.Terms
	if terms.Frequency == "" {
		terms.Frequency = FrequencyMonthly
	}
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	summary, err := ComputeTerms(terms.Principal, terms.RatePerPeriod, terms.TenurePeriods, terms.Scheme)
	if err != nil {
		return nil, err
	}

	return &Loan{
		CustomerID:        params.CustomerID,
		ApplicationID:     params.ApplicationID,
		Terms:             terms,
		PenaltyRate:       params.PenaltyRate,
		TotalInterest:     summary.TotalInterest,
		TotalAmount:       summary.TotalAmount,
		PaidAmount:        decimal.Zero,
		OutstandingAmount: summary.TotalAmount,
		CreditBalance:     decimal.Zero,
		Status:            StatusDraft,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (l *Loan) Aggregates() Aggregates {
	return Aggregates{
		TotalInterest:     l.TotalInterest,
		TotalAmount:       l.TotalAmount,
		PaidAmount:        l.PaidAmount,
		OutstandingAmount: l.OutstandingAmount,
		CreditBalance:     l.CreditBalance,
		Status:            l.Status,
	}
}

// NextOpenInstallment returns the earliest installment that is not fully paid.
func (l *Loan) NextOpenInstallment() *Installment {
	for i := range l.Schedule {
		if l.Schedule[i].Open() {
			return &l.Schedule[i]
		}
	}
	return nil
}

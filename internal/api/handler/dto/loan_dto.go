package dto

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

const (
	DateLayout  = time.DateOnly
	moneyPlaces = 2
)

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type TokenRequest struct {
	Username string `json:"username"`
}

func parseDecimal(field, value string) (decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return decimal.Zero, apperrors.NewValidationError(field, "is required")
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, apperrors.NewValidationError(field, fmt.Sprintf("invalid decimal %q", value))
	}
	return d, nil
}

func parseOptionalDecimal(field string, value *string) (*decimal.Decimal, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	d, err := parseDecimal(field, *value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, apperrors.NewValidationError(field, "is required")
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(field, "invalid date format (use YYYY-MM-DD)")
	}
	return t, nil
}

// ParseDate parses an optional YYYY-MM-DD value; an empty string yields nil.
func ParseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := parseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

type CreateLoanRequest struct {
	CustomerID    int64   `json:"customerId"`
	Principal     string  `json:"principal"`
	RatePerPeriod string  `json:"ratePerPeriod"`
	TenurePeriods int     `json:"tenurePeriods"`
	Scheme        string  `json:"scheme"`
	StartDate     string  `json:"startDate"`
	PenaltyRate   *string `json:"penaltyRate,omitempty"`
}

func (r *CreateLoanRequest) Validate() error {
	_, err := r.Params(decimal.Zero)
	return err
}

// Params converts the request; defaultPenalty applies when no penalty rate is given.
func (r *CreateLoanRequest) Params(defaultPenalty decimal.Decimal) (loan.NewLoanParams, error) {
	if r.CustomerID <= 0 {
		return loan.NewLoanParams{}, apperrors.NewValidationError("customerId", "must be a positive identifier")
	}
	principal, err := parseDecimal("principal", r.Principal)
	if err != nil {
		return loan.NewLoanParams{}, err
	}
	rate, err := parseDecimal("ratePerPeriod", r.RatePerPeriod)
	if err != nil {
		return loan.NewLoanParams{}, err
	}
	if r.TenurePeriods <= 0 {
		return loan.NewLoanParams{}, apperrors.NewValidationError("tenurePeriods", "must be greater than zero")
	}
	scheme := loan.Scheme(strings.ToUpper(r.Scheme))
	if !scheme.Valid() {
		return loan.NewLoanParams{}, apperrors.NewValidationError("scheme", fmt.Sprintf("unsupported scheme %q", r.Scheme))
	}
	start, err := parseDate("startDate", r.StartDate)
	if err != nil {
		return loan.NewLoanParams{}, err
	}
	penalty, err := parseOptionalDecimal("penaltyRate", r.PenaltyRate)
	if err != nil {
		return loan.NewLoanParams{}, err
	}
	if penalty == nil {
		penalty = &defaultPenalty
	}

	return loan.NewLoanParams{
		CustomerID: r.CustomerID,
		Terms: loan.Terms{
			Principal:     principal,
			RatePerPeriod: rate,
			TenurePeriods: r.TenurePeriods,
			Scheme:        scheme,
			Frequency:     loan.FrequencyMonthly,
			StartDate:     start,
		},
		PenaltyRate: *penalty,
	}, nil
}

type AllocationRequest struct {
	Penalty   string `json:"penalty"`
	Interest  string `json:"interest"`
	Principal string `json:"principal"`
}

type MakePaymentRequest struct {
	Reference   string             `json:"reference,omitempty"`
	Amount      string             `json:"amount"`
	PaymentDate string             `json:"paymentDate"`
	Type        string             `json:"type,omitempty"`
	Allocation  *AllocationRequest `json:"allocation,omitempty"`
}

func (r *MakePaymentRequest) Validate() error {
	_, err := r.PaymentRequest("")
	return err
}

// PaymentRequest converts the request. An empty type defaults to a regular payment.
func (r *MakePaymentRequest) PaymentRequest(actor string) (loan.PaymentRequest, error) {
	amount, err := parseDecimal("amount", r.Amount)
	if err != nil {
		return loan.PaymentRequest{}, err
	}
	paymentDate, err := parseDate("paymentDate", r.PaymentDate)
	if err != nil {
		return loan.PaymentRequest{}, err
	}
	paymentType := loan.PaymentRegular
	if r.Type != "" {
		paymentType = loan.PaymentType(strings.ToUpper(r.Type))
	}
	if !paymentType.Valid() {
		return loan.PaymentRequest{}, apperrors.NewValidationError("type", fmt.Sprintf("unsupported payment type %q", r.Type))
	}

	req := loan.PaymentRequest{
		Reference:   strings.TrimSpace(r.Reference),
		Amount:      amount,
		PaymentDate: paymentDate,
		Type:        paymentType,
		Actor:       actor,
	}
	if r.Allocation != nil {
		var a loan.Allocation
		if a.Penalty, err = parseDecimal("allocation.penalty", r.Allocation.Penalty); err != nil {
			return loan.PaymentRequest{}, err
		}
		if a.Interest, err = parseDecimal("allocation.interest", r.Allocation.Interest); err != nil {
			return loan.PaymentRequest{}, err
		}
		if a.Principal, err = parseDecimal("allocation.principal", r.Allocation.Principal); err != nil {
			return loan.PaymentRequest{}, err
		}
		req.Allocation = &a
	}
	return req, nil
}

type LoanResponse struct {
	ID                string                `json:"id"`
	CustomerID        string                `json:"customerId"`
	ApplicationID     *string               `json:"applicationId,omitempty"`
	Principal         string                `json:"principal"`
	RatePerPeriod     string                `json:"ratePerPeriod"`
	TenurePeriods     int                   `json:"tenurePeriods"`
	Scheme            string                `json:"scheme"`
	PeriodFrequency   string                `json:"periodFrequency"`
	StartDate         string                `json:"startDate"`
	PenaltyRate       string                `json:"penaltyRate"`
	TotalInterest     string                `json:"totalInterest"`
	TotalAmount       string                `json:"totalAmount"`
	PaidAmount        string                `json:"paidAmount"`
	OutstandingAmount string                `json:"outstandingAmount"`
	CreditBalance     string                `json:"creditBalance"`
	Status            string                `json:"status"`
	LastPaymentDate   *string               `json:"lastPaymentDate,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
	Schedule          []InstallmentResponse `json:"schedule,omitempty"`
}

type InstallmentResponse struct {
	Number            int     `json:"number"`
	DueDate           string  `json:"dueDate"`
	InstallmentAmount string  `json:"installmentAmount"`
	PrincipalPortion  string  `json:"principalPortion"`
	InterestPortion   string  `json:"interestPortion"`
	RemainingBalance  string  `json:"remainingBalance"`
	PaidAmount        string  `json:"paidAmount"`
	PaidDate          *string `json:"paidDate,omitempty"`
	Status            string  `json:"status"`
}

func NewLoanResponse(l *loan.Loan, includeSchedule bool) LoanResponse {
	if l == nil {
		return LoanResponse{}
	}

	resp := LoanResponse{
		ID:                formatID(l.ID),
		CustomerID:        formatID(l.CustomerID),
		Principal:         l.Terms.Principal.StringFixed(moneyPlaces),
		RatePerPeriod:     l.Terms.RatePerPeriod.String(),
		TenurePeriods:     l.Terms.TenurePeriods,
		Scheme:            string(l.Terms.Scheme),
		PeriodFrequency:   string(l.Terms.Frequency),
		StartDate:         l.Terms.StartDate.Format(DateLayout),
		PenaltyRate:       l.PenaltyRate.String(),
		TotalInterest:     l.TotalInterest.StringFixed(moneyPlaces),
		TotalAmount:       l.TotalAmount.StringFixed(moneyPlaces),
		PaidAmount:        l.PaidAmount.StringFixed(moneyPlaces),
		OutstandingAmount: l.OutstandingAmount.StringFixed(moneyPlaces),
		CreditBalance:     l.CreditBalance.StringFixed(moneyPlaces),
		Status:            string(l.Status),
		LastPaymentDate:   formatDate(l.LastPaymentDate),
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
	if l.ApplicationID != nil {
		id := formatID(*l.ApplicationID)
		resp.ApplicationID = &id
	}

	if includeSchedule && len(l.Schedule) > 0 {
		resp.Schedule = make([]InstallmentResponse, len(l.Schedule))
		for i, row := range l.Schedule {
			resp.Schedule[i] = InstallmentResponse{
				Number:            row.Number,
				DueDate:           row.DueDate.Format(DateLayout),
				InstallmentAmount: row.InstallmentAmount.StringFixed(moneyPlaces),
				PrincipalPortion:  row.PrincipalPortion.StringFixed(moneyPlaces),
				InterestPortion:   row.InterestPortion.StringFixed(moneyPlaces),
				RemainingBalance:  row.RemainingBalance.StringFixed(moneyPlaces),
				PaidAmount:        row.PaidAmount.StringFixed(moneyPlaces),
				PaidDate:          formatDate(row.PaidDate),
				Status:            string(row.Status),
			}
		}
	}
	return resp
}

type PaymentResponse struct {
	ID            string    `json:"id"`
	Reference     string    `json:"reference"`
	LoanID        string    `json:"loanId"`
	Amount        string    `json:"amount"`
	PaymentDate   string    `json:"paymentDate"`
	Type          string    `json:"type"`
	PenaltyPaid   string    `json:"penaltyPaid"`
	InterestPaid  string    `json:"interestPaid"`
	PrincipalPaid string    `json:"principalPaid"`
	BalanceBefore string    `json:"balanceBefore"`
	BalanceAfter  string    `json:"balanceAfter"`
	ExcessAmount  string    `json:"excessAmount"`
	ManualSplit   bool      `json:"manualSplit"`
	CreatedBy     string    `json:"createdBy,omitempty"`
	SettledAt     time.Time `json:"settledAt"`
}

func NewPaymentResponse(p *loan.Payment) PaymentResponse {
	if p == nil {
		return PaymentResponse{}
	}
	return PaymentResponse{
		ID:            formatID(p.ID),
		Reference:     p.Reference,
		LoanID:        formatID(p.LoanID),
		Amount:        p.Amount.StringFixed(moneyPlaces),
		PaymentDate:   p.PaymentDate.Format(DateLayout),
		Type:          string(p.PaymentType),
		PenaltyPaid:   p.PenaltyPaid.StringFixed(moneyPlaces),
		InterestPaid:  p.InterestPaid.StringFixed(moneyPlaces),
		PrincipalPaid: p.PrincipalPaid.StringFixed(moneyPlaces),
		BalanceBefore: p.BalanceBefore.StringFixed(moneyPlaces),
		BalanceAfter:  p.BalanceAfter.StringFixed(moneyPlaces),
		ExcessAmount:  p.ExcessAmount.StringFixed(moneyPlaces),
		ManualSplit:   p.ManualSplit,
		CreatedBy:     p.CreatedBy,
		SettledAt:     p.SettledAt,
	}
}

func NewPaymentListResponse(payments []loan.Payment) []PaymentResponse {
	resp := make([]PaymentResponse, len(payments))
	for i := range payments {
		resp[i] = NewPaymentResponse(&payments[i])
	}
	return resp
}

type AggregatesResponse struct {
	TotalInterest     string `json:"totalInterest"`
	TotalAmount       string `json:"totalAmount"`
	PaidAmount        string `json:"paidAmount"`
	OutstandingAmount string `json:"outstandingAmount"`
	CreditBalance     string `json:"creditBalance"`
	Status            string `json:"status"`
}

type SettlementResponse struct {
	Payment        PaymentResponse    `json:"payment"`
	Loan           AggregatesResponse `json:"loan"`
	PreviousStatus string             `json:"previousStatus"`
}

func NewSettlementResponse(s *loan.Settlement) SettlementResponse {
	if s == nil {
		return SettlementResponse{}
	}
	a := s.Aggregates
	return SettlementResponse{
		Payment: NewPaymentResponse(s.Payment),
		Loan: AggregatesResponse{
			TotalInterest:     a.TotalInterest.StringFixed(moneyPlaces),
			TotalAmount:       a.TotalAmount.StringFixed(moneyPlaces),
			PaidAmount:        a.PaidAmount.StringFixed(moneyPlaces),
			OutstandingAmount: a.OutstandingAmount.StringFixed(moneyPlaces),
			CreditBalance:     a.CreditBalance.StringFixed(moneyPlaces),
			Status:            string(a.Status),
		},
		PreviousStatus: string(s.PreviousStatus),
	}
}

type PaymentSuggestionResponse struct {
	LoanID            string  `json:"loanId"`
	Amount            string  `json:"amount"`
	DueDate           *string `json:"dueDate,omitempty"`
	InstallmentNumber int     `json:"installmentNumber,omitempty"`
	OutstandingAmount string  `json:"outstandingAmount"`
}

func NewPaymentSuggestionResponse(loanID int64, s loan.PaymentSuggestion) PaymentSuggestionResponse {
	return PaymentSuggestionResponse{
		LoanID:            formatID(loanID),
		Amount:            s.Amount.StringFixed(moneyPlaces),
		DueDate:           formatDate(s.DueDate),
		InstallmentNumber: s.InstallmentNumber,
		OutstandingAmount: s.OutstandingAmount.StringFixed(moneyPlaces),
	}
}

type OverdueResponse struct {
	LoanID           string  `json:"loanId"`
	Amount           string  `json:"amount"`
	InstallmentCount int     `json:"installmentCount"`
	EarliestDueDate  *string `json:"earliestDueDate,omitempty"`
}

func NewOverdueResponse(loanID int64, e loan.OverdueExposure) OverdueResponse {
	return OverdueResponse{
		LoanID:           formatID(loanID),
		Amount:           e.Amount.StringFixed(moneyPlaces),
		InstallmentCount: e.InstallmentCount,
		EarliestDueDate:  formatDate(e.EarliestDueDate),
	}
}

type StatusResponse struct {
	LoanID string `json:"loanId"`
	Status string `json:"status"`
}

type CalculatorResponse struct {
	Scheme        string `json:"scheme"`
	Principal     string `json:"principal"`
	RatePerPeriod string `json:"ratePerPeriod"`
	TenurePeriods int    `json:"tenurePeriods"`
	Installment   string `json:"installment"`
	TotalInterest string `json:"totalInterest"`
	TotalAmount   string `json:"totalAmount"`
}

// CalculatorQuery holds the raw query parameters of a terms calculation.
type CalculatorQuery struct {
	Scheme    string
	Principal string
	Rate      string
	Tenure    string
}

func (q CalculatorQuery) Parse() (principal, rate decimal.Decimal, tenure int, scheme loan.Scheme, err error) {
	scheme = loan.Scheme(strings.ToUpper(q.Scheme))
	if !scheme.Valid() {
		err = apperrors.NewValidationError("scheme", fmt.Sprintf("unsupported scheme %q", q.Scheme))
		return
	}
	if principal, err = parseDecimal("principal", q.Principal); err != nil {
		return
	}
	if rate, err = parseDecimal("rate", q.Rate); err != nil {
		return
	}
	tenure, convErr := strconv.Atoi(q.Tenure)
	if convErr != nil {
		err = apperrors.NewValidationError("tenure", fmt.Sprintf("invalid integer %q", q.Tenure))
	}
	return
}

func NewCalculatorResponse(principal, rate decimal.Decimal, tenure int, scheme loan.Scheme, summary loan.TermsSummary) CalculatorResponse {
	return CalculatorResponse{
		Scheme:        string(scheme),
		Principal:     principal.StringFixed(moneyPlaces),
		RatePerPeriod: rate.String(),
		TenurePeriods: tenure,
		Installment:   summary.Installment.StringFixed(moneyPlaces),
		TotalInterest: summary.TotalInterest.StringFixed(moneyPlaces),
		TotalAmount:   summary.TotalAmount.StringFixed(moneyPlaces),
	}
}

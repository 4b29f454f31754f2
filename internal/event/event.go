package event

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoutingKeyCustomerCreated   = "customer.created"
	RoutingKeyCustomerUpdated   = "customer.updated"
	RoutingKeyLoanStatusChanged = "loan.status.changed"
	RoutingKeyPaymentSettled    = "loan.payment.settled"
	RoutingKeyLoanOverdue       = "loan.overdue"
)

type EventPublisher interface {
	PublishCustomerCreated(ctx context.Context, event CustomerCreatedEvent) error
	PublishCustomerUpdated(ctx context.Context, event CustomerUpdatedEvent) error
	PublishLoanStatusChanged(ctx context.Context, event LoanStatusChangedEvent) error
	PublishPaymentSettled(ctx context.Context, event PaymentSettledEvent) error
	PublishLoanOverdue(ctx context.Context, event LoanOverdueEvent) error
}

type CustomerEventPayload struct {
	CustomerID   int64     `json:"customerId"`
	Name         string    `json:"name"`
	MobileNumber string    `json:"mobileNumber"`
	Address      string    `json:"address"`
	Active       bool      `json:"active"`
	CreateDate   time.Time `json:"createDate"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type CustomerCreatedEvent struct {
	Timestamp time.Time            `json:"timestamp"`
	Payload   CustomerEventPayload `json:"payload"`
}

type CustomerUpdatedEvent struct {
	Timestamp time.Time            `json:"timestamp"`
	Payload   CustomerEventPayload `json:"payload"`
}

type LoanStatusChangedEvent struct {
	LoanID     int64     `json:"loanId"`
	CustomerID int64     `json:"customerId"`
	OldStatus  string    `json:"oldStatus"`
	NewStatus  string    `json:"newStatus"`
	Timestamp  time.Time `json:"timestamp"`
}

type PaymentSettledEvent struct {
	PaymentReference  string          `json:"paymentReference"`
	LoanID            int64           `json:"loanId"`
	CustomerID        int64           `json:"customerId"`
	Amount            decimal.Decimal `json:"amount"`
	PaymentType       string          `json:"paymentType"`
	PenaltyPaid       decimal.Decimal `json:"penaltyPaid"`
	InterestPaid      decimal.Decimal `json:"interestPaid"`
	PrincipalPaid     decimal.Decimal `json:"principalPaid"`
	OutstandingAmount decimal.Decimal `json:"outstandingAmount"`
	LoanStatus        string          `json:"loanStatus"`
	Timestamp         time.Time       `json:"timestamp"`
}

// LoanOverdueEvent asks downstream consumers to remind the customer about overdue installments.
type LoanOverdueEvent struct {
	LoanID           int64           `json:"loanId"`
	CustomerID       int64           `json:"customerId"`
	OverdueAmount    decimal.Decimal `json:"overdueAmount"`
	InstallmentCount int             `json:"installmentCount"`
	EarliestDueDate  *time.Time      `json:"earliestDueDate,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
}

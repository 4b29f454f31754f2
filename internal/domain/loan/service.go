package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"loan-servicing/internal/domain/customer"
	"loan-servicing/internal/event"
	"loan-servicing/internal/infrastructure/monitoring"
	"loan-servicing/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type LoanService interface {
	ComputeTerms(principal, ratePerPeriod decimal.Decimal, tenure int, scheme Scheme) (TermsSummary, error)

	CreateLoan(ctx context.Context, params NewLoanParams) (*Loan, error)

	SubmitLoan(ctx context.Context, loanID int64, now time.Time) (*Loan, error)

	ApplyPayment(ctx context.Context, loanID int64, req PaymentRequest, now time.Time) (*Settlement, error)

	RefreshStatus(ctx context.Context, loanID int64, now time.Time) (LoanStatus, error)

	GetOverdueExposure(ctx context.Context, loanID int64, now time.Time) (OverdueExposure, error)

	GetLoan(ctx context.Context, loanID int64) (*Loan, error)

	FindLoanByApplication(ctx context.Context, applicationID int64) (*Loan, error)

	ListPayments(ctx context.Context, loanID int64) ([]Payment, error)

	GetPaymentSuggestion(ctx context.Context, loanID int64) (PaymentSuggestion, error)

	GetPortfolioSummary(ctx context.Context, filter PortfolioFilter) (PortfolioReport, error)
}

type Settlement struct {
	Payment        *Payment
	Aggregates     Aggregates
	PreviousStatus LoanStatus
}

// PaymentSuggestion is the amount a customer is expected to pay next.
type PaymentSuggestion struct {
	Amount            decimal.Decimal
	DueDate           *time.Time
	InstallmentNumber int
	OutstandingAmount decimal.Decimal
}

type ServiceConfig struct {
	MaxTenure int
}

type loanServiceImpl struct {
	repo            Repository
	customerService customer.CustomerService
	locker          Locker
	publisher       event.EventPublisher
	cfg             ServiceConfig
	logger          *slog.Logger
}

func NewLoanService(r Repository, cs customer.CustomerService, locker Locker, pub event.EventPublisher, cfg ServiceConfig, logger *slog.Logger) LoanService {
	return &loanServiceImpl{
		repo:            r,
		customerService: cs,
		locker:          locker,
		publisher:       pub,
		cfg:             cfg,
		logger:          logger.With("component", "LoanService"),
	}
}

func lockKey(loanID int64) string {
	return "loan:" + strconv.FormatInt(loanID, 10)
}

func (s *loanServiceImpl) ComputeTerms(principal, ratePerPeriod decimal.Decimal, tenure int, scheme Scheme) (TermsSummary, error) {
	return ComputeTerms(principal, ratePerPeriod, tenure, scheme)
}

func (s *loanServiceImpl) CreateLoan(ctx context.Context, params NewLoanParams) (*Loan, error) {
	log := s.logger.With("customerID", params.CustomerID)
	log.InfoContext(ctx, "Creating new loan")

	cust, err := s.customerService.GetCustomer(ctx, params.CustomerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.WarnContext(ctx, "Customer not found")
			return nil, apperrors.NewValidationError("customerID", fmt.Sprintf("customer %d not found", params.CustomerID))
		}
		log.ErrorContext(ctx, "Failed to get customer details", "error", err)
		return nil, fmt.Errorf("failed to verify customer status: %w", err)
	}
	if !cust.Active {
		log.WarnContext(ctx, "Attempted to create loan for inactive customer")
		return nil, apperrors.NewValidationError("customerID", fmt.Sprintf("customer %d is not active", params.CustomerID))
	}

	if s.cfg.MaxTenure > 0 && params.Terms.TenurePeriods > s.cfg.MaxTenure {
		return nil, apperrors.NewValidationError("tenurePeriods", fmt.Sprintf("must not exceed %d periods", s.cfg.MaxTenure))
	}

	l, err := NewLoan(params, time.Now())
	if err != nil {
		log.WarnContext(ctx, "Loan terms rejected", "error", err)
		return nil, err
	}

	created, err := s.repo.CreateLoan(ctx, l)
	if err != nil {
		log.ErrorContext(ctx, "Failed to save loan", "error", err)
		return nil, fmt.Errorf("%w: failed to save loan: %v", apperrors.ErrInternalServer, err)
	}

	log.InfoContext(ctx, "Draft loan created", "loanID", created.ID, "scheme", created.Terms.Scheme)
	return created, nil
}

func (s *loanServiceImpl) SubmitLoan(ctx context.Context, loanID int64, now time.Time) (l *Loan, err error) {
	log := s.logger.With("loanID", loanID)

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer s.rollbackOnError(ctx, tx, &err)

	l, err = s.loadForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}

	if err = l.Submit(now); err != nil {
		log.WarnContext(ctx, "Loan submission rejected", "error", err)
		return nil, err
	}
	if err = s.repo.InsertScheduleInTx(ctx, tx, l.ID, l.Schedule); err != nil {
		log.ErrorContext(ctx, "Failed to persist schedule", "error", err)
		return nil, fmt.Errorf("%w: could not persist schedule: %v", apperrors.ErrInternalServer, err)
	}
	if err = s.repo.UpdateLoanInTx(ctx, tx, l); err != nil {
		log.ErrorContext(ctx, "Failed to update loan", "error", err)
		return nil, fmt.Errorf("%w: could not update loan: %v", apperrors.ErrInternalServer, err)
	}
	if err = s.repo.CommitTx(ctx, tx); err != nil {
		log.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	monitoring.RecordLoanSubmitted(string(l.Terms.Scheme))
	s.publishStatusChange(ctx, l, StatusDraft, now)
	log.InfoContext(ctx, "Loan submitted", "installments", len(l.Schedule), "totalAmount", l.TotalAmount.StringFixed(moneyPlaces))
	return l, nil
}

// ApplyPayment settles one payment under the per-loan lock and a row lock on the loan.
func (s *loanServiceImpl) ApplyPayment(ctx context.Context, loanID int64, req PaymentRequest, now time.Time) (settlement *Settlement, err error) {
	log := s.logger.With("loanID", loanID, "amount", req.Amount.String(), "paymentType", req.Type)
	log.InfoContext(ctx, "Applying payment")

	defer func() {
		status := "success"
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrValidation):
			status = "failure_validation"
		case errors.Is(err, apperrors.ErrState):
			status = "failure_state"
		case errors.Is(err, apperrors.ErrNotFound):
			status = "failure_not_found"
		default:
			status = "failure_internal"
		}
		monitoring.RecordPayment(status)
	}()

	unlock, err := s.locker.Lock(ctx, lockKey(loanID))
	if err != nil {
		log.ErrorContext(ctx, "Failed to acquire loan lock", "error", err)
		return nil, fmt.Errorf("%w: loan %d is busy: %v", apperrors.ErrConflict, loanID, err)
	}
	defer unlock()

	if req.Reference == "" {
		req.Reference = uuid.NewString()
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer s.rollbackOnError(ctx, tx, &err)

	l, err := s.loadForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	previous := l.Status

	payment, err := l.ApplyPayment(req, now)
	if err != nil {
		log.WarnContext(ctx, "Payment rejected", "error", err)
		return nil, err
	}

	if err = s.repo.InsertPaymentInTx(ctx, tx, payment); err != nil {
		log.ErrorContext(ctx, "Failed to record payment", "error", err)
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: payment reference %s already settled", apperrors.ErrConflict, payment.Reference)
		}
		return nil, fmt.Errorf("%w: could not record payment: %v", apperrors.ErrInternalServer, err)
	}

	settled, err := s.repo.SumSettledPaymentsInTx(ctx, tx, loanID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to sum settled payments", "error", err)
		return nil, fmt.Errorf("%w: could not sum settled payments: %v", apperrors.ErrInternalServer, err)
	}
	l.RecomputeAggregates(settled, now)

	if err = s.repo.UpdateInstallmentsInTx(ctx, tx, l.Schedule); err != nil {
		log.ErrorContext(ctx, "Failed to update installments", "error", err)
		return nil, fmt.Errorf("%w: could not update installments: %v", apperrors.ErrInternalServer, err)
	}
	if err = s.repo.UpdateLoanInTx(ctx, tx, l); err != nil {
		log.ErrorContext(ctx, "Failed to update loan", "error", err)
		return nil, fmt.Errorf("%w: could not update loan: %v", apperrors.ErrInternalServer, err)
	}
	if err = s.repo.CommitTx(ctx, tx); err != nil {
		log.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	monitoring.RecordAllocation(payment.PenaltyPaid, payment.InterestPaid, payment.PrincipalPaid)
	s.publishSettlement(ctx, l, payment, now)
	s.publishStatusChange(ctx, l, previous, now)

	log.InfoContext(ctx, "Payment settled",
		"reference", payment.Reference,
		"outstanding", l.OutstandingAmount.StringFixed(moneyPlaces),
		"status", l.Status)

	return &Settlement{Payment: payment, Aggregates: l.Aggregates(), PreviousStatus: previous}, nil
}

func (s *loanServiceImpl) RefreshStatus(ctx context.Context, loanID int64, now time.Time) (status LoanStatus, err error) {
	log := s.logger.With("loanID", loanID)

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer s.rollbackOnError(ctx, tx, &err)

	l, err := s.loadForUpdate(ctx, tx, loanID)
	if err != nil {
		return "", err
	}

	previous := l.Status
	status = l.RefreshStatus(now)
	if status == previous {
		if err = s.repo.CommitTx(ctx, tx); err != nil {
			return "", fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
		}
		return status, nil
	}

	if err = s.repo.UpdateLoanInTx(ctx, tx, l); err != nil {
		log.ErrorContext(ctx, "Failed to update loan status", "error", err)
		return "", fmt.Errorf("%w: could not update loan status: %v", apperrors.ErrInternalServer, err)
	}
	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return "", fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	s.publishStatusChange(ctx, l, previous, now)
	log.InfoContext(ctx, "Loan status refreshed", "from", previous, "to", status)
	return status, nil
}

func (s *loanServiceImpl) GetOverdueExposure(ctx context.Context, loanID int64, now time.Time) (OverdueExposure, error) {
	l, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return OverdueExposure{}, err
	}
	return l.OverdueExposure(now), nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID int64) (*Loan, error) {
	l, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		return nil, s.translateLoadError(ctx, loanID, err)
	}
	return l, nil
}

func (s *loanServiceImpl) FindLoanByApplication(ctx context.Context, applicationID int64) (*Loan, error) {
	l, err := s.repo.GetLoanByApplicationID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, ErrLoanNotFound) || errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no loan for application %d", apperrors.ErrNotFound, applicationID)
		}
		return nil, fmt.Errorf("%w: failed to find loan for application %d: %v", apperrors.ErrInternalServer, applicationID, err)
	}
	return l, nil
}

func (s *loanServiceImpl) ListPayments(ctx context.Context, loanID int64) ([]Payment, error) {
	if _, err := s.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, loanID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list payments", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("%w: failed to list payments for loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}
	return payments, nil
}

// GetPaymentSuggestion proposes the unpaid part of the next open installment, or the outstanding
// amount when no installment is open.
func (s *loanServiceImpl) GetPaymentSuggestion(ctx context.Context, loanID int64) (PaymentSuggestion, error) {
	l, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return PaymentSuggestion{}, err
	}

	suggestion := PaymentSuggestion{
		Amount:            l.OutstandingAmount,
		OutstandingAmount: l.OutstandingAmount,
	}
	if next := l.NextOpenInstallment(); next != nil {
		due := next.DueDate
		suggestion.Amount = decimal.Min(next.Due(), l.OutstandingAmount)
		suggestion.DueDate = &due
		suggestion.InstallmentNumber = next.Number
	}
	return suggestion, nil
}

func (s *loanServiceImpl) GetPortfolioSummary(ctx context.Context, filter PortfolioFilter) (PortfolioReport, error) {
	rows, err := s.repo.ListPortfolio(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load portfolio", "error", err)
		return PortfolioReport{}, fmt.Errorf("%w: failed to load portfolio: %v", apperrors.ErrInternalServer, err)
	}
	return SummarisePortfolio(rows), nil
}

func (s *loanServiceImpl) loadForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error) {
	l, err := s.repo.GetLoanForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, s.translateLoadError(ctx, loanID, err)
	}
	return l, nil
}

func (s *loanServiceImpl) translateLoadError(ctx context.Context, loanID int64, err error) error {
	if errors.Is(err, ErrLoanNotFound) || errors.Is(err, pgx.ErrNoRows) {
		s.logger.WarnContext(ctx, "Loan not found", "loanID", loanID)
		return fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
	}
	s.logger.ErrorContext(ctx, "Failed to load loan", "loanID", loanID, "error", err)
	return fmt.Errorf("%w: failed to load loan %d: %v", apperrors.ErrInternalServer, loanID, err)
}

func (s *loanServiceImpl) rollbackOnError(ctx context.Context, tx pgx.Tx, err *error) {
	if p := recover(); p != nil {
		s.logger.ErrorContext(ctx, "Panic occurred inside loan transaction", "error", p)
		_ = s.repo.RollbackTx(ctx, tx)
		panic(p)
	}
	if *err != nil {
		_ = s.repo.RollbackTx(ctx, tx)
	}
}

func (s *loanServiceImpl) publishStatusChange(ctx context.Context, l *Loan, previous LoanStatus, now time.Time) {
	if l.Status == previous {
		return
	}
	monitoring.RecordStatusTransition(string(previous), string(l.Status))
	err := s.publisher.PublishLoanStatusChanged(ctx, event.LoanStatusChangedEvent{
		LoanID:     l.ID,
		CustomerID: l.CustomerID,
		OldStatus:  string(previous),
		NewStatus:  string(l.Status),
		Timestamp:  now,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish loan status change", "loanID", l.ID, "error", err)
	}
}

func (s *loanServiceImpl) publishSettlement(ctx context.Context, l *Loan, p *Payment, now time.Time) {
	err := s.publisher.PublishPaymentSettled(ctx, event.PaymentSettledEvent{
		PaymentReference:  p.Reference,
		LoanID:            l.ID,
		CustomerID:        l.CustomerID,
		Amount:            p.Amount,
		PaymentType:       string(p.PaymentType),
		PenaltyPaid:       p.PenaltyPaid,
		InterestPaid:      p.InterestPaid,
		PrincipalPaid:     p.PrincipalPaid,
		OutstandingAmount: l.OutstandingAmount,
		LoanStatus:        string(l.Status),
		Timestamp:         now,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish payment settlement", "loanID", l.ID, "error", err)
	}
}

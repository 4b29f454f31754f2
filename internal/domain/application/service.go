package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-servicing/internal/domain/customer"
	"loan-servicing/internal/domain/interest"
	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, params CreateParams, now time.Time) (*Application, error)
	Get(ctx context.Context, id int64) (*Application, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]*Application, error)
	Approve(ctx context.Context, id int64, amount, rate *decimal.Decimal, actor string, now time.Time) (*Application, error)
	Reject(ctx context.Context, id int64, reason, actor string, now time.Time) (*Application, error)
	ConvertToLoan(ctx context.Context, id int64, startDate, now time.Time) (*loan.Loan, error)
}

type service struct {
	repo               Repository
	customers          customer.CustomerService
	policies           interest.Service
	loans              loan.LoanService
	defaultPenaltyRate decimal.Decimal
	logger             *slog.Logger
}

func NewService(repo Repository, customers customer.CustomerService, policies interest.Service, loans loan.LoanService, defaultPenaltyRate decimal.Decimal, logger *slog.Logger) Service {
	return &service{
		repo:               repo,
		customers:          customers,
		policies:           policies,
		loans:              loans,
		defaultPenaltyRate: defaultPenaltyRate,
		logger:             logger.With("component", "ApplicationService"),
	}
}

func (s *service) Create(ctx context.Context, params CreateParams, now time.Time) (*Application, error) {
	log := s.logger.With("customerID", params.CustomerID, "scheme", params.Scheme)

	if err := params.Validate(); err != nil {
		log.WarnContext(ctx, "Application rejected", "error", err)
		return nil, err
	}

	cust, err := s.customers.GetCustomer(ctx, params.CustomerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewValidationError("customerID", fmt.Sprintf("customer %d not found", params.CustomerID))
		}
		return nil, fmt.Errorf("failed to verify customer: %w", err)
	}
	if !cust.Active {
		return nil, apperrors.NewValidationError("customerID", fmt.Sprintf("customer %d is not active", params.CustomerID))
	}

	app := &Application{
		CustomerID:      params.CustomerID,
		Scheme:          params.Scheme,
		RequestedAmount: params.Amount,
		TenurePeriods:   params.TenurePeriods,
		Status:          StatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.priceApplication(ctx, app, params); err != nil {
		log.WarnContext(ctx, "Could not price application", "error", err)
		return nil, err
	}

	created, err := s.repo.Create(ctx, app)
	if err != nil {
		log.ErrorContext(ctx, "Failed to save application", "error", err)
		return nil, fmt.Errorf("%w: failed to save application: %v", apperrors.ErrInternalServer, err)
	}

	log.InfoContext(ctx, "Application created", "applicationID", created.ID, "rate", created.RatePerPeriod.String())
	return created, nil
}

// priceApplication sets the rate and penalty rate from the named policy, or from the scheme's active
// policy. An explicit rate needs no policy; the configured default penalty applies then.
func (s *service) priceApplication(ctx context.Context, app *Application, params CreateParams) error {
	var (
		policy *interest.Policy
		err    error
	)
	if params.PolicyName != "" {
		policy, err = s.policies.GetPolicy(ctx, params.PolicyName)
	} else {
		policy, err = s.policies.GetActivePolicy(ctx, params.Scheme)
	}

	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNotFound) && params.RatePerPeriod != nil:
		app.RatePerPeriod = *params.RatePerPeriod
		app.PenaltyRate = s.defaultPenaltyRate
		return nil
	case errors.Is(err, apperrors.ErrNotFound):
		return apperrors.NewValidationError("policyName", err.Error())
	default:
		return err
	}

	app.PolicyName = policy.Name
	app.PenaltyRate = policy.PenaltyRate
	if params.RatePerPeriod != nil {
		app.RatePerPeriod = *params.RatePerPeriod
		return nil
	}
	app.RatePerPeriod, err = interest.ResolveRate(policy, params.Scheme, params.Amount)
	return err
}

func (s *service) Get(ctx context.Context, id int64) (*Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: application with ID %d not found", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: failed to load application %d: %v", apperrors.ErrInternalServer, id, err)
	}
	return app, nil
}

func (s *service) ListByCustomer(ctx context.Context, customerID int64) ([]*Application, error) {
	apps, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list applications: %v", apperrors.ErrInternalServer, err)
	}
	return apps, nil
}

func (s *service) Approve(ctx context.Context, id int64, amount, rate *decimal.Decimal, actor string, now time.Time) (*Application, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := app.Approve(amount, rate, actor, now); err != nil {
		s.logger.WarnContext(ctx, "Approval rejected", "applicationID", id, "error", err)
		return nil, err
	}
	if err := s.save(ctx, app); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Application approved", "applicationID", id, "actor", actor,
		"amount", app.ApprovedAmount.String(), "rate", app.ApprovedRate.String())
	return app, nil
}

func (s *service) Reject(ctx context.Context, id int64, reason, actor string, now time.Time) (*Application, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := app.Reject(reason, actor, now); err != nil {
		s.logger.WarnContext(ctx, "Rejection refused", "applicationID", id, "error", err)
		return nil, err
	}
	if err := s.save(ctx, app); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Application rejected", "applicationID", id, "actor", actor)
	return app, nil
}

// ConvertToLoan creates the draft loan for an approved application. An application converts once.
func (s *service) ConvertToLoan(ctx context.Context, id int64, startDate, now time.Time) (*loan.Loan, error) {
	log := s.logger.With("applicationID", id)

	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	params, err := app.LoanParams(startDate)
	if err != nil {
		return nil, err
	}

	existing, err := s.loans.FindLoanByApplication(ctx, id)
	switch {
	case err == nil:
		log.WarnContext(ctx, "Application already has a loan", "loanID", existing.ID)
		return nil, apperrors.NewStateError(string(app.Status), "convert application to loan",
			fmt.Sprintf("loan %d already exists", existing.ID))
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}

	created, err := s.loans.CreateLoan(ctx, params)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create loan from application", "error", err)
		return nil, err
	}

	app.MarkDisbursed(created.ID, now)
	if err := s.save(ctx, app); err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "Application converted to loan", "loanID", created.ID)
	return created, nil
}

func (s *service) save(ctx context.Context, app *Application) error {
	if err := s.repo.Update(ctx, app); err != nil {
		s.logger.ErrorContext(ctx, "Failed to update application", "applicationID", app.ID, "error", err)
		return fmt.Errorf("%w: failed to update application %d: %v", apperrors.ErrInternalServer, app.ID, err)
	}
	return nil
}

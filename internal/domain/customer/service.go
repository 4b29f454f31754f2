package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"loan-servicing/internal/event"
	"loan-servicing/internal/pkg/apperrors"
)

const customerNotFound = "Customer not found by repository"

type CustomerService interface {
	CreateNewCustomer(ctx context.Context, name, mobileNumber, address string) (*Customer, error)
	GetCustomer(ctx context.Context, customerID int64) (*Customer, error)
	ListActiveCustomers(ctx context.Context) ([]*Customer, error)
	UpdateCustomerAddress(ctx context.Context, customerID int64, newAddress string) error
	DeactivateCustomer(ctx context.Context, customerID int64) error
	ReactivateCustomer(ctx context.Context, customerID int64) error
}

var _ CustomerService = (*customerService)(nil)

type customerService struct {
	repo   CustomerRepository
	pub    event.EventPublisher
	logger *slog.Logger
}

func NewCustomerService(repo CustomerRepository, pub event.EventPublisher, logger *slog.Logger) CustomerService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}
	if pub == nil {
		panic("event publisher cannot be nil")
	}
	return &customerService{
		repo:   repo,
		pub:    pub,
		logger: logger.With(slog.String("component", "customerService")),
	}
}

func NewCustomerEventPayload(cust *Customer) event.CustomerEventPayload {
	if cust == nil {
		return event.CustomerEventPayload{}
	}
	return event.CustomerEventPayload{
		CustomerID:   cust.CustomerID,
		Name:         cust.Name,
		MobileNumber: cust.MobileNumber,
		Address:      cust.Address,
		Active:       cust.Active,
		CreateDate:   cust.CreateDate,
		UpdatedAt:    cust.UpdatedAt,
	}
}

func (s *customerService) publishUpdated(ctx context.Context, customer *Customer) {
	log := s.logger.With(slog.Int64("customerID", customer.CustomerID))
	updated := event.CustomerUpdatedEvent{
		Timestamp: time.Now(),
		Payload:   NewCustomerEventPayload(customer),
	}
	if err := s.pub.PublishCustomerUpdated(ctx, updated); err != nil {
		log.ErrorContext(ctx, "Failed to publish customer update event", slog.Any("error", err))
	}
}

func (s *customerService) CreateNewCustomer(ctx context.Context, name, mobileNumber, address string) (*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to create new customer")

	customer, err := NewCustomer(name, mobileNumber, address)
	if err != nil {
		s.logger.WarnContext(ctx, "Customer validation failed", slog.Any("error", err))
		return nil, err
	}

	existing, err := s.repo.FindByMobileNumber(ctx, customer.MobileNumber)
	switch {
	case err == nil && existing != nil:
		s.logger.WarnContext(ctx, "Mobile number already registered", slog.Int64("existingCustomerID", existing.CustomerID))
		return nil, apperrors.NewValidationError("mobileNumber", "is already registered to another customer")
	case err != nil && !errors.Is(err, ErrNotFound):
		s.logger.ErrorContext(ctx, "Repository error checking mobile number", slog.Any("error", err))
		return nil, fmt.Errorf("failed to check mobile number: %w", err)
	}

	if err := s.repo.Save(ctx, customer); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save new customer", slog.Any("error", err))
		if errors.Is(err, ErrDuplicateMobile) {
			return nil, apperrors.NewValidationError("mobileNumber", "is already registered to another customer")
		}
		return nil, fmt.Errorf("failed to save new customer: %w", err)
	}

	log := s.logger.With(slog.Int64("customerID", customer.CustomerID))
	created := event.CustomerCreatedEvent{
		Timestamp: time.Now(),
		Payload:   NewCustomerEventPayload(customer),
	}
	if pubErr := s.pub.PublishCustomerCreated(ctx, created); pubErr != nil {
		log.ErrorContext(ctx, "Customer created, but FAILED to publish creation event", slog.Any("error", pubErr))
	}

	log.InfoContext(ctx, "Successfully created new customer")
	return customer, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID int64) (*Customer, error) {
	log := s.logger.With(slog.Int64("customerID", customerID))

	customer, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.WarnContext(ctx, customerNotFound)
			return nil, ErrNotFound
		}
		log.ErrorContext(ctx, "Repository error finding customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get customer %d: %w", customerID, err)
	}
	return customer, nil
}

func (s *customerService) ListActiveCustomers(ctx context.Context) ([]*Customer, error) {
	customers, err := s.repo.FindAll(ctx, true)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing active customers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list active customers: %w", err)
	}

	s.logger.InfoContext(ctx, "Retrieved active customers", slog.Int("count", len(customers)))
	return customers, nil
}

func (s *customerService) UpdateCustomerAddress(ctx context.Context, customerID int64, newAddress string) error {
	log := s.logger.With(slog.Int64("customerID", customerID))

	newAddress = strings.TrimSpace(newAddress)
	if newAddress == "" {
		log.WarnContext(ctx, "Validation failed: new address is empty")
		return apperrors.NewValidationError("address", "cannot be empty")
	}

	customer, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.WarnContext(ctx, customerNotFound)
			return ErrNotFound
		}
		log.ErrorContext(ctx, "Repository error finding customer for update", slog.Any("error", err))
		return fmt.Errorf("cannot find customer %d to update address: %w", customerID, err)
	}

	if customer.Address == newAddress {
		log.InfoContext(ctx, "No address change needed, skipping save")
		return nil
	}
	customer.Address = newAddress
	customer.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, customer); err != nil {
		log.ErrorContext(ctx, "Repository failed to save updated address", slog.Any("error", err))
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to save updated address for customer %d: %w", customerID, err)
	}

	s.publishUpdated(ctx, customer)
	log.InfoContext(ctx, "Successfully updated customer address")
	return nil
}

func (s *customerService) DeactivateCustomer(ctx context.Context, customerID int64) error {
	return s.setActive(ctx, customerID, false)
}

func (s *customerService) ReactivateCustomer(ctx context.Context, customerID int64) error {
	return s.setActive(ctx, customerID, true)
}

func (s *customerService) setActive(ctx context.Context, customerID int64, active bool) error {
	log := s.logger.With(slog.Int64("customerID", customerID), slog.Bool("isActive", active))

	if err := s.repo.SetActiveStatus(ctx, customerID, active); err != nil {
		if errors.Is(err, ErrNotFound) {
			log.WarnContext(ctx, customerNotFound)
			return ErrNotFound
		}
		log.ErrorContext(ctx, "Repository error changing active status", slog.Any("error", err))
		return fmt.Errorf("failed to set active status for customer %d: %w", customerID, err)
	}

	updated, fetchErr := s.repo.FindByID(ctx, customerID)
	if fetchErr != nil {
		log.ErrorContext(ctx, "Updated status, but FAILED to re-fetch customer for event publishing", slog.Any("error", fetchErr))
	} else {
		s.publishUpdated(ctx, updated)
	}

	log.InfoContext(ctx, "Successfully changed customer active status")
	return nil
}

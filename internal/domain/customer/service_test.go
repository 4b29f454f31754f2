package customer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"loan-servicing/internal/domain/customer"
	"loan-servicing/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTest() (*customer.MockCustomerRepository, *customer.MockEventPublisher, customer.CustomerService) {
	mockRepo := new(customer.MockCustomerRepository)
	mockPub := new(customer.MockEventPublisher)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := customer.NewCustomerService(mockRepo, mockPub, logger)
	return mockRepo, mockPub, service
}

func TestCustomerService_CreateNewCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo, mockPub, service := setupTest()

		mockRepo.On("FindByMobileNumber", ctx, "9876543210").Return(nil, customer.ErrNotFound).Once()
		mockRepo.On("Save", ctx, mock.MatchedBy(func(c *customer.Customer) bool {
			if c.Name != "Test User" || c.MobileNumber != "9876543210" || !c.Active {
				return false
			}
			c.CustomerID = 1
			return true
		})).Return(nil).Once()
		mockPub.On("PublishCustomerCreated", ctx, mock.Anything).Return(nil).Once()

		created, err := service.CreateNewCustomer(ctx, "  Test User ", "98765-43210", "123 Test St")

		require.NoError(t, err)
		assert.Equal(t, int64(1), created.CustomerID)
		assert.Equal(t, "123 Test St", created.Address)
		mockRepo.AssertExpectations(t)
		mockPub.AssertExpectations(t)
	})

	t.Run("Error - Invalid mobile", func(t *testing.T) {
		mockRepo, _, service := setupTest()

		_, err := service.CreateNewCustomer(ctx, "Test User", "12345", "Addr")

		assert.True(t, errors.Is(err, apperrors.ErrValidation))
		mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("Error - Duplicate mobile", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		mockRepo.On("FindByMobileNumber", ctx, "9876543210").Return(&customer.Customer{CustomerID: 9}, nil).Once()

		_, err := service.CreateNewCustomer(ctx, "Test User", "9876543210", "Addr")

		var vErr *apperrors.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "mobileNumber", vErr.Field)
		mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("Publish failure does not fail creation", func(t *testing.T) {
		mockRepo, mockPub, service := setupTest()
		mockRepo.On("FindByMobileNumber", ctx, "9876543210").Return(nil, customer.ErrNotFound).Once()
		mockRepo.On("Save", ctx, mock.Anything).Return(nil).Once()
		mockPub.On("PublishCustomerCreated", ctx, mock.Anything).Return(errors.New("broker down")).Once()

		created, err := service.CreateNewCustomer(ctx, "", "9876543210", "")

		require.NoError(t, err)
		assert.Equal(t, "Customer-9876543210", created.Name)
	})
}

func TestCustomerService_GetCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("Not found", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		mockRepo.On("FindByID", ctx, int64(5)).Return(nil, customer.ErrNotFound).Once()

		_, err := service.GetCustomer(ctx, 5)

		assert.ErrorIs(t, err, customer.ErrNotFound)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Repository error", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		mockRepo.On("FindByID", ctx, int64(5)).Return(nil, errors.New("db down")).Once()

		_, err := service.GetCustomer(ctx, 5)

		assert.ErrorContains(t, err, "db down")
	})
}

func TestCustomerService_UpdateCustomerAddress(t *testing.T) {
	ctx := context.Background()

	t.Run("Success publishes update", func(t *testing.T) {
		mockRepo, mockPub, service := setupTest()
		existing := &customer.Customer{CustomerID: 3, Address: "Old", Active: true}
		mockRepo.On("FindByID", ctx, int64(3)).Return(existing, nil).Once()
		mockRepo.On("Save", ctx, existing).Return(nil).Once()
		mockPub.On("PublishCustomerUpdated", ctx, mock.Anything).Return(nil).Once()

		err := service.UpdateCustomerAddress(ctx, 3, " New ")

		require.NoError(t, err)
		assert.Equal(t, "New", existing.Address)
		mockPub.AssertExpectations(t)
	})

	t.Run("Same address skips save", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		mockRepo.On("FindByID", ctx, int64(3)).Return(&customer.Customer{CustomerID: 3, Address: "Same"}, nil).Once()

		require.NoError(t, service.UpdateCustomerAddress(ctx, 3, "Same"))
		mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("Empty address", func(t *testing.T) {
		_, _, service := setupTest()

		err := service.UpdateCustomerAddress(ctx, 3, "  ")

		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestCustomerService_DeactivateAndReactivate(t *testing.T) {
	ctx := context.Background()

	t.Run("Deactivate", func(t *testing.T) {
		mockRepo, mockPub, service := setupTest()
		mockRepo.On("SetActiveStatus", ctx, int64(4), false).Return(nil).Once()
		mockRepo.On("FindByID", ctx, int64(4)).Return(&customer.Customer{CustomerID: 4}, nil).Once()
		mockPub.On("PublishCustomerUpdated", ctx, mock.Anything).Return(nil).Once()

		require.NoError(t, service.DeactivateCustomer(ctx, 4))
		mockRepo.AssertExpectations(t)
	})

	t.Run("Reactivate unknown customer", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		mockRepo.On("SetActiveStatus", ctx, int64(4), true).Return(customer.ErrNotFound).Once()

		assert.ErrorIs(t, service.ReactivateCustomer(ctx, 4), customer.ErrNotFound)
	})
}

func TestCustomerService_ListActiveCustomers(t *testing.T) {
	ctx := context.Background()
	mockRepo, _, service := setupTest()
	mockRepo.On("FindAll", ctx, true).Return([]*customer.Customer{{CustomerID: 1}, {CustomerID: 2}}, nil).Once()

	customers, err := service.ListActiveCustomers(ctx)

	require.NoError(t, err)
	assert.Len(t, customers, 2)
}

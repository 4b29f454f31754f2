package customer

import (
	"context"
	"fmt"

	"loan-servicing/internal/pkg/apperrors"
)

var (
	ErrNotFound = fmt.Errorf("customer %w", apperrors.ErrNotFound)

	ErrDuplicateMobile = fmt.Errorf("%w: mobile number already registered", apperrors.ErrAlreadyExists)
)

type CustomerRepository interface {
	Save(ctx context.Context, customer *Customer) error

	FindByID(ctx context.Context, customerID int64) (*Customer, error)

	FindByMobileNumber(ctx context.Context, mobileNumber string) (*Customer, error)

	FindAll(ctx context.Context, activeOnly bool) ([]*Customer, error)

	SetActiveStatus(ctx context.Context, customerID int64, isActive bool) error
}

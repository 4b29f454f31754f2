package application

import (
	"context"
	"fmt"

	"loan-servicing/internal/pkg/apperrors"
)

var ErrApplicationNotFound = fmt.Errorf("application %w", apperrors.ErrNotFound)

type Repository interface {
	Create(ctx context.Context, app *Application) (*Application, error)
	GetByID(ctx context.Context, id int64) (*Application, error)
	Update(ctx context.Context, app *Application) error
	ListByCustomer(ctx context.Context, customerID int64) ([]*Application, error)
}

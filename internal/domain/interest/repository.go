package interest

import (
	"context"
	"fmt"

	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

var ErrPolicyNotFound = fmt.Errorf("interest policy %w", apperrors.ErrNotFound)

type Repository interface {
	GetByName(ctx context.Context, name string) (*Policy, error)

	GetActive(ctx context.Context, scheme loan.Scheme) (*Policy, error)

	List(ctx context.Context) ([]*Policy, error)

	SaveInTx(ctx context.Context, tx pgx.Tx, policy *Policy) error

	DeactivateSchemeInTx(ctx context.Context, tx pgx.Tx, scheme loan.Scheme, exceptName string) error

	SetActiveInTx(ctx context.Context, tx pgx.Tx, name string, active bool) error

	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error
}

package loan

import (
	"context"
	"fmt"

	"loan-servicing/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var ErrLoanNotFound = fmt.Errorf("loan %w", apperrors.ErrNotFound)

type Repository interface {
	CreateLoan(ctx context.Context, loan *Loan) (*Loan, error)

	GetLoanByID(ctx context.Context, loanID int64) (*Loan, error)

	GetLoanByApplicationID(ctx context.Context, applicationID int64) (*Loan, error)

	GetLoanForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error)

	InsertScheduleInTx(ctx context.Context, tx pgx.Tx, loanID int64, schedule []Installment) error

	UpdateInstallmentsInTx(ctx context.Context, tx pgx.Tx, schedule []Installment) error

	UpdateLoanInTx(ctx context.Context, tx pgx.Tx, loan *Loan) error

	InsertPaymentInTx(ctx context.Context, tx pgx.Tx, payment *Payment) error

	SumSettledPaymentsInTx(ctx context.Context, tx pgx.Tx, loanID int64) (decimal.Decimal, error)

	ListPayments(ctx context.Context, loanID int64) ([]Payment, error)

	ListOpenLoanIDs(ctx context.Context) ([]int64, error)

	ListPortfolio(ctx context.Context, filter PortfolioFilter) ([]PortfolioRow, error)

	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error
}

// Locker serialises settlement per loan. The returned function releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

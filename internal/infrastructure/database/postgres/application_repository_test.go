package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"loan-servicing/internal/domain/application"
	"loan-servicing/internal/domain/loan"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var applicationColumnNames = []string{"id", "customer_id", "scheme", "policy_name", "requested_amount", "tenure_periods",
	"rate_per_period", "penalty_rate", "approved_amount", "approved_rate", "status", "rejection_reason", "decided_by",
	"decided_at", "loan_id", "created_at", "updated_at"}

func setupApplicationRepo(t *testing.T) (context.Context, *ApplicationRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}
	return context.Background(), NewApplicationRepository(mockPool, logger), mockPool
}

func TestApplicationRepository_Create(t *testing.T) {
	ctx, repo, mockPool := setupApplicationRepo(t)
	defer mockPool.Close()

	app := &application.Application{
		CustomerID:      1,
		Scheme:          loan.SchemeEMI,
		PolicyName:      "retail-emi",
		RequestedAmount: decimal.NewFromInt(50000),
		TenurePeriods:   12,
		RatePerPeriod:   decimal.RequireFromString("1.75"),
		PenaltyRate:     decimal.NewFromInt(2),
		Status:          application.StatusOpen,
	}
	created := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery(regexp.QuoteMeta(`INSERT INTO loan_applications (customer_id, scheme, policy_name`)).
		WithArgs(int64(1), "EMI", "retail-emi", app.RequestedAmount, 12, app.RatePerPeriod, app.PenaltyRate,
			app.ApprovedAmount, app.ApprovedRate, "OPEN").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(9), created, created))

	result, err := repo.Create(ctx, app)
	require.NoError(t, err)
	assert.Equal(t, int64(9), result.ID)
	assert.Equal(t, created, result.CreatedAt)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestApplicationRepository_GetByID(t *testing.T) {
	ctx, repo, mockPool := setupApplicationRepo(t)
	defer mockPool.Close()

	decided := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	loanID := int64(42)
	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM loan_applications WHERE id = $1`)).
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows(applicationColumnNames).
			AddRow(int64(9), int64(1), "EMI", "retail-emi", "50000", 12, "1.75", "2", "45000", "1.5", "DISBURSED",
				"", "officer", &decided, &loanID, decided, decided))

	app, err := repo.GetByID(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, application.StatusDisbursed, app.Status)
	assert.Equal(t, loan.SchemeEMI, app.Scheme)
	assert.Equal(t, "45000", app.ApprovedAmount.String())
	require.NotNil(t, app.LoanID)
	assert.Equal(t, int64(42), *app.LoanID)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestApplicationRepository_GetByIDNotFound(t *testing.T) {
	ctx, repo, mockPool := setupApplicationRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM loan_applications WHERE id = $1`)).
		WithArgs(int64(9)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(ctx, 9)
	assert.ErrorIs(t, err, application.ErrApplicationNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestApplicationRepository_Update(t *testing.T) {
	ctx, repo, mockPool := setupApplicationRepo(t)
	defer mockPool.Close()

	decided := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	app := &application.Application{
		ID:              9,
		RatePerPeriod:   decimal.RequireFromString("1.75"),
		Status:          application.StatusRejected,
		RejectionReason: "insufficient income",
		DecidedBy:       "officer",
		DecidedAt:       &decided,
	}

	mockPool.ExpectExec(regexp.QuoteMeta(`UPDATE loan_applications SET rate_per_period = $1`)).
		WithArgs(app.RatePerPeriod, app.PenaltyRate, app.ApprovedAmount, app.ApprovedRate, "REJECTED",
			"insufficient income", "officer", &decided, app.LoanID, int64(9)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectExec(regexp.QuoteMeta(`UPDATE loan_applications`)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.Update(ctx, app))
	assert.ErrorIs(t, repo.Update(ctx, app), application.ErrApplicationNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestApplicationRepository_ListByCustomer(t *testing.T) {
	ctx, repo, mockPool := setupApplicationRepo(t)
	defer mockPool.Close()
	created := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM loan_applications WHERE customer_id = $1 ORDER BY id DESC`)).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(applicationColumnNames).
			AddRow(int64(10), int64(1), "FLAT_RATE", "", "20000", 6, "3", "1", "0", "0", "OPEN",
				"", "", (*time.Time)(nil), (*int64)(nil), created, created))

	apps, err := repo.ListByCustomer(ctx, 1)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, application.StatusOpen, apps[0].Status)
	assert.Nil(t, apps[0].DecidedAt)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

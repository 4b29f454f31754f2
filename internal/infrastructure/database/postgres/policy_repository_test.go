package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"loan-servicing/internal/domain/interest"
	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var policyColumnNames = []string{"id", "name", "scheme", "default_rate", "penalty_rate", "is_active", "created_at", "updated_at"}

func setupPolicyRepo(t *testing.T) (context.Context, *PolicyRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}
	return context.Background(), NewPolicyRepository(mockPool, logger), mockPool
}

func TestPolicyRepository_GetByName(t *testing.T) {
	ctx, repo, mockPool := setupPolicyRepo(t)
	defer mockPool.Close()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM interest_policies WHERE name = $1`)).
		WithArgs("retail-emi").
		WillReturnRows(pgxmock.NewRows(policyColumnNames).
			AddRow(int64(4), "retail-emi", "EMI", "2.5", "2", true, created, created))
	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM interest_bands WHERE policy_id = $1 ORDER BY policy_id, min_amount`)).
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"policy_id", "min_amount", "max_amount", "rate"}).
			AddRow(int64(4), "1", "100000", "1.75").
			AddRow(int64(4), "100001", nil, "1.5"))

	policy, err := repo.GetByName(ctx, "retail-emi")
	require.NoError(t, err)
	assert.Equal(t, loan.SchemeEMI, policy.Scheme)
	assert.True(t, policy.IsActive)
	require.Len(t, policy.Bands, 2)
	require.NotNil(t, policy.Bands[0].MaxAmount)
	assert.Equal(t, "100000", policy.Bands[0].MaxAmount.String())
	assert.Nil(t, policy.Bands[1].MaxAmount)
	assert.Equal(t, "1.5", policy.Bands[1].Rate.String())
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestPolicyRepository_GetActiveNotFound(t *testing.T) {
	ctx, repo, mockPool := setupPolicyRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM interest_policies WHERE scheme = $1 AND is_active = TRUE`)).
		WithArgs("FLAT_RATE").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetActive(ctx, loan.SchemeFlatRate)
	assert.ErrorIs(t, err, interest.ErrPolicyNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestPolicyRepository_List(t *testing.T) {
	ctx, repo, mockPool := setupPolicyRepo(t)
	defer mockPool.Close()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM interest_policies ORDER BY scheme, name`)).
		WillReturnRows(pgxmock.NewRows(policyColumnNames).
			AddRow(int64(4), "retail-emi", "EMI", "2.5", "2", true, created, created).
			AddRow(int64(5), "flat-standard", "FLAT_RATE", "3", "1", true, created, created))
	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM interest_bands ORDER BY policy_id, min_amount`)).
		WillReturnRows(pgxmock.NewRows([]string{"policy_id", "min_amount", "max_amount", "rate"}).
			AddRow(int64(4), "1", nil, "1.75"))

	policies, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, policies, 2)
	assert.Len(t, policies[0].Bands, 1)
	assert.Empty(t, policies[1].Bands)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestPolicyRepository_SaveInTx(t *testing.T) {
	ctx, repo, mockPool := setupPolicyRepo(t)
	defer mockPool.Close()

	bandMax := decimal.NewFromInt(100000)
	policy := &interest.Policy{
		Name:        "retail-emi",
		Scheme:      loan.SchemeEMI,
		DefaultRate: decimal.RequireFromString("2.5"),
		PenaltyRate: decimal.NewFromInt(2),
		IsActive:    true,
		Bands: []interest.Band{
			{MinAmount: decimal.NewFromInt(1), MaxAmount: &bandMax, Rate: decimal.RequireFromString("1.75")},
		},
	}
	saved := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta(`INSERT INTO interest_policies (name, scheme, default_rate, penalty_rate, is_active, created_at, updated_at)`)).
		WithArgs("retail-emi", "EMI", policy.DefaultRate, policy.PenaltyRate, true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(4), saved, saved))
	mockPool.ExpectExec(regexp.QuoteMeta(`DELETE FROM interest_bands WHERE policy_id = $1`)).
		WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mockPool.ExpectExec(regexp.QuoteMeta(`INSERT INTO interest_bands (policy_id, min_amount, max_amount, rate)`)).
		WithArgs(int64(4), policy.Bands[0].MinAmount, decimal.NewNullDecimal(bandMax), policy.Bands[0].Rate).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectCommit()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.SaveInTx(ctx, tx, policy))
	require.NoError(t, repo.CommitTx(ctx, tx))
	assert.Equal(t, int64(4), policy.ID)
	assert.Equal(t, saved, policy.UpdatedAt)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestPolicyRepository_SaveInTxDatabaseError(t *testing.T) {
	ctx, repo, mockPool := setupPolicyRepo(t)
	defer mockPool.Close()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta(`INSERT INTO interest_policies`)).
		WillReturnError(&pgconn.PgError{Code: "22003"})
	mockPool.ExpectRollback()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	err = repo.SaveInTx(ctx, tx, &interest.Policy{Name: "x", Scheme: loan.SchemeEMI})
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	require.NoError(t, repo.RollbackTx(ctx, tx))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestPolicyRepository_CommitConcurrentActivation(t *testing.T) {
	ctx, repo, mockPool := setupPolicyRepo(t)
	defer mockPool.Close()

	mockPool.ExpectBegin()
	mockPool.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "23P01", ConstraintName: "interest_policies_one_active_per_scheme"})

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	err = repo.CommitTx(ctx, tx)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestPolicyRepository_Activation(t *testing.T) {
	ctx, repo, mockPool := setupPolicyRepo(t)
	defer mockPool.Close()

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta(`UPDATE interest_policies SET is_active = FALSE`)).
		WithArgs("EMI", "retail-emi").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectExec(regexp.QuoteMeta(`UPDATE interest_policies SET is_active = $1`)).
		WithArgs(true, "retail-emi").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectExec(regexp.QuoteMeta(`UPDATE interest_policies SET is_active = $1`)).
		WithArgs(true, "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.DeactivateSchemeInTx(ctx, tx, loan.SchemeEMI, "retail-emi"))
	require.NoError(t, repo.SetActiveInTx(ctx, tx, "retail-emi", true))
	assert.ErrorIs(t, repo.SetActiveInTx(ctx, tx, "missing", true), interest.ErrPolicyNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

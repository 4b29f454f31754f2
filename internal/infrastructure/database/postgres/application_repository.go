package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"loan-servicing/internal/domain/application"
	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

var _ application.Repository = (*ApplicationRepository)(nil)

const applicationColumns = `id, customer_id, scheme, policy_name, requested_amount, tenure_periods, rate_per_period,
        penalty_rate, approved_amount, approved_rate, status, rejection_reason, decided_by, decided_at, loan_id,
        created_at, updated_at`

type ApplicationRepository struct {
	db     DBPool
	logger *slog.Logger
}

func NewApplicationRepository(db DBPool, logger *slog.Logger) *ApplicationRepository {
	return &ApplicationRepository{db: db, logger: logger.With("component", "ApplicationRepository")}
}

func (r *ApplicationRepository) Create(ctx context.Context, app *application.Application) (*application.Application, error) {
	query := `
        INSERT INTO loan_applications (customer_id, scheme, policy_name, requested_amount, tenure_periods,
            rate_per_period, penalty_rate, approved_amount, approved_rate, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	created := *app
	err := r.db.QueryRow(ctx, query,
		app.CustomerID, string(app.Scheme), app.PolicyName, app.RequestedAmount, app.TenurePeriods,
		app.RatePerPeriod, app.PenaltyRate, app.ApprovedAmount, app.ApprovedRate, string(app.Status),
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan application", "customer_id", app.CustomerID, "error", err)
		return nil, translateDBError(err, r.logger)
	}

	r.logger.InfoContext(ctx, "Loan application created in DB", "application_id", created.ID)
	return &created, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*application.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM loan_applications WHERE id = $1`

	app, err := scanApplication(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan application not found", "application_id", id)
			return nil, application.ErrApplicationNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query loan application", "application_id", id, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return app, nil
}

func (r *ApplicationRepository) Update(ctx context.Context, app *application.Application) error {
	query := `
        UPDATE loan_applications
        SET rate_per_period = $1, penalty_rate = $2, approved_amount = $3, approved_rate = $4, status = $5,
            rejection_reason = $6, decided_by = $7, decided_at = $8, loan_id = $9, updated_at = NOW()
        WHERE id = $10`

	cmdTag, err := r.db.Exec(ctx, query,
		app.RatePerPeriod, app.PenaltyRate, app.ApprovedAmount, app.ApprovedRate, string(app.Status),
		app.RejectionReason, app.DecidedBy, app.DecidedAt, app.LoanID, app.ID,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan application", "application_id", app.ID, "error", err)
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() == 0 {
		return application.ErrApplicationNotFound
	}
	return nil
}

func (r *ApplicationRepository) ListByCustomer(ctx context.Context, customerID int64) ([]*application.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM loan_applications WHERE customer_id = $1 ORDER BY id DESC`

	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loan applications", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	apps := make([]*application.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan loan application row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		apps = append(apps, app)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return apps, nil
}

func scanApplication(row pgx.Row) (*application.Application, error) {
	var (
		app            application.Application
		scheme, status string
	)
	err := row.Scan(
		&app.ID, &app.CustomerID, &scheme, &app.PolicyName, &app.RequestedAmount, &app.TenurePeriods,
		&app.RatePerPeriod, &app.PenaltyRate, &app.ApprovedAmount, &app.ApprovedRate, &status,
		&app.RejectionReason, &app.DecidedBy, &app.DecidedAt, &app.LoanID, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	app.Scheme = loan.Scheme(scheme)
	app.Status = application.Status(status)
	return &app, nil
}

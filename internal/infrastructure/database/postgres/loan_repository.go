package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/infrastructure/monitoring"
	"loan-servicing/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var _ loan.Repository = (*LoanRepository)(nil)

var errMsgFormat = "%w: %w"

const loanColumns = `id, customer_id, application_id, principal, rate_per_period, tenure_periods, scheme,
        period_frequency, start_date, penalty_rate, total_interest, total_amount, paid_amount,
        outstanding_amount, credit_balance, status, last_payment_date, created_at, updated_at`

const installmentColumns = `id, loan_id, installment_number, due_date, installment_amount, principal_portion,
        interest_portion, remaining_balance, paid_amount, paid_date, status`

const paymentColumns = `id, reference, loan_id, amount, payment_date, payment_type, penalty_paid, interest_paid,
        principal_paid, balance_before, balance_after, excess_amount, manual_split, created_by, settled_at`

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

func (r *LoanRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *LoanRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Commit(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) CreateLoan(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	query := `
        INSERT INTO loans (customer_id, application_id, principal, rate_per_period, tenure_periods, scheme,
            period_frequency, start_date, penalty_rate, total_interest, total_amount, paid_amount,
            outstanding_amount, credit_balance, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	startTime := time.Now()
	created := *l
	err := r.db.QueryRow(ctx, query,
		l.CustomerID, l.ApplicationID, l.Terms.Principal, l.Terms.RatePerPeriod, l.Terms.TenurePeriods,
		string(l.Terms.Scheme), string(l.Terms.Frequency), l.Terms.StartDate, l.PenaltyRate,
		l.TotalInterest, l.TotalAmount, l.PaidAmount, l.OutstandingAmount, l.CreditBalance, string(l.Status),
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	r.recordQuery("CreateLoan", startTime, err)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", "customer_id", l.CustomerID, "error", err)
		return nil, translateDBError(err, r.logger)
	}

	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", created.ID)
	return &created, nil
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	return r.loadLoan(ctx, r.db, "GetLoanByID", query, loanID)
}

func (r *LoanRepository) GetLoanByApplicationID(ctx context.Context, applicationID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE application_id = $1`
	return r.loadLoan(ctx, r.db, "GetLoanByApplicationID", query, applicationID)
}

// GetLoanForUpdate locks the loan row until tx ends.
func (r *LoanRepository) GetLoanForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`
	return r.loadLoan(ctx, tx, "GetLoanForUpdate", query, loanID)
}

func (r *LoanRepository) loadLoan(ctx context.Context, q querier, op, query string, arg int64) (*loan.Loan, error) {
	startTime := time.Now()
	l, err := scanLoan(q.QueryRow(ctx, query, arg))
	r.recordQuery(op, startTime, err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "operation", op, "key", arg)
			return nil, loan.ErrLoanNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to load loan", "operation", op, "key", arg, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	schedule, err := r.getSchedule(ctx, q, l.ID)
	if err != nil {
		return nil, err
	}
	l.Schedule = schedule
	return l, nil
}

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var (
		l                 loan.Loan
		scheme, frequency string
		status            string
	)
	err := row.Scan(
		&l.ID, &l.CustomerID, &l.ApplicationID, &l.Terms.Principal, &l.Terms.RatePerPeriod, &l.Terms.TenurePeriods,
		&scheme, &frequency, &l.Terms.StartDate, &l.PenaltyRate, &l.TotalInterest, &l.TotalAmount, &l.PaidAmount,
		&l.OutstandingAmount, &l.CreditBalance, &status, &l.LastPaymentDate, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Terms.Scheme = loan.Scheme(scheme)
	l.Terms.Frequency = loan.Frequency(frequency)
	l.Status = loan.LoanStatus(status)
	return &l, nil
}

func (r *LoanRepository) getSchedule(ctx context.Context, q querier, loanID int64) ([]loan.Installment, error) {
	query := `SELECT ` + installmentColumns + `
        FROM loan_installments
        WHERE loan_id = $1
        ORDER BY installment_number ASC`

	rows, err := q.Query(ctx, query, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loan schedule", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	schedule := make([]loan.Installment, 0)
	for rows.Next() {
		var (
			row    loan.Installment
			status string
		)
		err := rows.Scan(
			&row.ID, &row.LoanID, &row.Number, &row.DueDate, &row.InstallmentAmount, &row.PrincipalPortion,
			&row.InterestPortion, &row.RemainingBalance, &row.PaidAmount, &row.PaidDate, &status,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan installment row", "loan_id", loanID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		row.Status = loan.InstallmentStatus(status)
		schedule = append(schedule, row)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating installment rows", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return schedule, nil
}

func (r *LoanRepository) InsertScheduleInTx(ctx context.Context, tx pgx.Tx, loanID int64, schedule []loan.Installment) error {
	if len(schedule) == 0 {
		return nil
	}
	sql := `
        INSERT INTO loan_installments (loan_id, installment_number, due_date, installment_amount, principal_portion,
            interest_portion, remaining_balance, paid_amount, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`

	batch := &pgx.Batch{}
	for _, row := range schedule {
		batch.Queue(sql, loanID, row.Number, row.DueDate, row.InstallmentAmount, row.PrincipalPortion,
			row.InterestPortion, row.RemainingBalance, row.PaidAmount, string(row.Status))
	}

	results := tx.SendBatch(ctx, batch)
	for i := range schedule {
		if _, err := results.Exec(); err != nil {
			results.Close()
			r.logger.ErrorContext(ctx, "Failed executing schedule batch insert", "error", err, "entry_index", i, "loan_id", loanID)
			return fmt.Errorf("%w: failed inserting installment %d: %w", apperrors.ErrDatabase, i+1, err)
		}
	}
	if err := results.Close(); err != nil {
		r.logger.ErrorContext(ctx, "Failed closing schedule batch results", "error", err, "loan_id", loanID)
		return fmt.Errorf("%w: closing batch results failed: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Loan schedule created in DB", "loan_id", loanID, "num_entries", len(schedule))
	return nil
}

func (r *LoanRepository) UpdateInstallmentsInTx(ctx context.Context, tx pgx.Tx, schedule []loan.Installment) error {
	sql := `
        UPDATE loan_installments
        SET paid_amount = $1, paid_date = $2, status = $3, updated_at = NOW()
        WHERE loan_id = $4 AND installment_number = $5`

	for _, row := range schedule {
		cmdTag, err := tx.Exec(ctx, sql, row.PaidAmount, row.PaidDate, string(row.Status), row.LoanID, row.Number)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to update installment", "loan_id", row.LoanID, "number", row.Number, "error", err)
			return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		if cmdTag.RowsAffected() != 1 {
			r.logger.ErrorContext(ctx, "Installment update affected zero rows", "loan_id", row.LoanID, "number", row.Number)
			return fmt.Errorf("%w: installment %d of loan %d not found", apperrors.ErrDatabase, row.Number, row.LoanID)
		}
	}
	return nil
}

func (r *LoanRepository) UpdateLoanInTx(ctx context.Context, tx pgx.Tx, l *loan.Loan) error {
	sql := `
        UPDATE loans
        SET total_interest = $1, total_amount = $2, paid_amount = $3, outstanding_amount = $4,
            credit_balance = $5, status = $6, last_payment_date = $7, updated_at = NOW()
        WHERE id = $8`

	cmdTag, err := tx.Exec(ctx, sql, l.TotalInterest, l.TotalAmount, l.PaidAmount, l.OutstandingAmount,
		l.CreditBalance, string(l.Status), l.LastPaymentDate, l.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan", "loan_id", l.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Loan update affected zero rows", "loan_id", l.ID)
		return fmt.Errorf("%w: loan update affected zero rows", apperrors.ErrDatabase)
	}
	return nil
}

func (r *LoanRepository) InsertPaymentInTx(ctx context.Context, tx pgx.Tx, p *loan.Payment) error {
	sql := `
        INSERT INTO payments (reference, loan_id, amount, payment_date, payment_type, penalty_paid, interest_paid,
            principal_paid, balance_before, balance_after, excess_amount, manual_split, created_by, settled_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING id`

	startTime := time.Now()
	err := tx.QueryRow(ctx, sql,
		p.Reference, p.LoanID, p.Amount, p.PaymentDate, string(p.PaymentType), p.PenaltyPaid, p.InterestPaid,
		p.PrincipalPaid, p.BalanceBefore, p.BalanceAfter, p.ExcessAmount, p.ManualSplit, p.CreatedBy, p.SettledAt,
	).Scan(&p.ID)
	r.recordQuery("InsertPayment", startTime, err)

	if err != nil {
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *LoanRepository) SumSettledPaymentsInTx(ctx context.Context, tx pgx.Tx, loanID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE loan_id = $1`
	if err := tx.QueryRow(ctx, query, loanID).Scan(&total); err != nil {
		r.logger.ErrorContext(ctx, "Failed to sum settled payments", "loan_id", loanID, "error", err)
		return decimal.Zero, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return total, nil
}

func (r *LoanRepository) ListPayments(ctx context.Context, loanID int64) ([]loan.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE loan_id = $1 ORDER BY settled_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query payments", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	payments := make([]loan.Payment, 0)
	for rows.Next() {
		var (
			p           loan.Payment
			paymentType string
		)
		err := rows.Scan(
			&p.ID, &p.Reference, &p.LoanID, &p.Amount, &p.PaymentDate, &paymentType, &p.PenaltyPaid, &p.InterestPaid,
			&p.PrincipalPaid, &p.BalanceBefore, &p.BalanceAfter, &p.ExcessAmount, &p.ManualSplit, &p.CreatedBy, &p.SettledAt,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan payment row", "loan_id", loanID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		p.PaymentType = loan.PaymentType(paymentType)
		payments = append(payments, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return payments, nil
}

// ListOpenLoanIDs returns loans whose status can still change with time.
func (r *LoanRepository) ListOpenLoanIDs(ctx context.Context) ([]int64, error) {
	logCtx := r.logger.With(slog.String("operation", "ListOpenLoanIDs"))
	query := `SELECT id FROM loans WHERE status IN ($1, $2) ORDER BY id`

	rows, err := r.db.Query(ctx, query, string(loan.StatusActive), string(loan.StatusOverdue))
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to query open loan IDs", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query open loans: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loanIDs := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			logCtx.ErrorContext(ctx, "Failed to scan open loan ID row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed scanning open loan ID: %w", apperrors.ErrDatabase, err)
		}
		loanIDs = append(loanIDs, id)
	}

	if err = rows.Err(); err != nil {
		logCtx.ErrorContext(ctx, "Error iterating open loan ID rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating open loan IDs: %w", apperrors.ErrDatabase, err)
	}

	logCtx.DebugContext(ctx, "Finished getting open loan IDs", slog.Int("count", len(loanIDs)))
	return loanIDs, nil
}

func (r *LoanRepository) ListPortfolio(ctx context.Context, filter loan.PortfolioFilter) ([]loan.PortfolioRow, error) {
	query, args := portfolioQuery(filter)

	startTime := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	r.recordQuery("ListPortfolio", startTime, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query portfolio", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	result := make([]loan.PortfolioRow, 0)
	for rows.Next() {
		var (
			row            loan.PortfolioRow
			scheme, status string
		)
		err := rows.Scan(
			&row.LoanID, &row.CustomerID, &row.CustomerName, &row.MobileNumber, &scheme, &row.StartDate,
			&row.Principal, &row.RatePerPeriod, &row.TotalAmount, &row.PaidAmount, &row.OutstandingAmount,
			&status, &row.LastPaymentDate,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan portfolio row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		row.Scheme = loan.Scheme(scheme)
		row.Status = loan.LoanStatus(status)
		result = append(result, row)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return result, nil
}

func portfolioQuery(filter loan.PortfolioFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.CustomerID != nil {
		add("l.customer_id = $%d", *filter.CustomerID)
	}
	if filter.Status != "" {
		add("l.status = $%d", string(filter.Status))
	}
	if filter.Scheme != "" {
		add("l.scheme = $%d", string(filter.Scheme))
	}
	if filter.FromDate != nil {
		add("l.start_date >= $%d", *filter.FromDate)
	}
	if filter.ToDate != nil {
		add("l.start_date <= $%d", *filter.ToDate)
	}

	query := `
        SELECT l.id, l.customer_id, c.name, c.mobile_number, l.scheme, l.start_date, l.principal, l.rate_per_period,
            l.total_amount, l.paid_amount, l.outstanding_amount, l.status, l.last_payment_date
        FROM loans l
        JOIN customers c ON c.id = l.customer_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY l.id ASC"
	return query, args
}

func (r *LoanRepository) recordQuery(op string, startTime time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery(op, status, time.Since(startTime))
}

func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		case "23P01":
			contextLogger.Warn("Database exclusion constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrConflict, pgErr.ConstraintName)
		case "23503":
			contextLogger.Warn("Database foreign key violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrInvalidArgument, pgErr.ConstraintName)
		}

		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return fmt.Errorf("%w: db error code %s", apperrors.ErrDatabase, pgErr.Code)
	}

	contextLogger.Error("Generic database error", "error", err)
	return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}

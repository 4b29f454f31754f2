package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"loan-servicing/internal/domain/interest"
	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var _ interest.Repository = (*PolicyRepository)(nil)

const policyColumns = `id, name, scheme, default_rate, penalty_rate, is_active, created_at, updated_at`

type PolicyRepository struct {
	db     DBPool
	logger *slog.Logger
}

func NewPolicyRepository(db DBPool, logger *slog.Logger) *PolicyRepository {
	return &PolicyRepository{db: db, logger: logger.With("component", "PolicyRepository")}
}

func (r *PolicyRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

// CommitTx surfaces the deferred one-active-per-scheme check as a conflict.
func (r *PolicyRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *PolicyRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *PolicyRepository) GetByName(ctx context.Context, name string) (*interest.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM interest_policies WHERE name = $1`
	return r.loadPolicy(ctx, query, name)
}

// GetActive returns the single active policy of the scheme.
func (r *PolicyRepository) GetActive(ctx context.Context, scheme loan.Scheme) (*interest.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM interest_policies WHERE scheme = $1 AND is_active = TRUE`
	return r.loadPolicy(ctx, query, string(scheme))
}

func (r *PolicyRepository) loadPolicy(ctx context.Context, query string, arg any) (*interest.Policy, error) {
	policy, err := scanPolicy(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.DebugContext(ctx, "Interest policy not found", "key", arg)
			return nil, interest.ErrPolicyNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query interest policy", "key", arg, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	bands, err := r.listBands(ctx, `WHERE policy_id = $1`, policy.ID)
	if err != nil {
		return nil, err
	}
	policy.Bands = bands[policy.ID]
	return policy, nil
}

func (r *PolicyRepository) List(ctx context.Context) ([]*interest.Policy, error) {
	rows, err := r.db.Query(ctx, `SELECT `+policyColumns+` FROM interest_policies ORDER BY scheme, name`)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query interest policies", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	policies := make([]*interest.Policy, 0)
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan interest policy row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		policies = append(policies, policy)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if len(policies) == 0 {
		return policies, nil
	}

	bands, err := r.listBands(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, policy := range policies {
		policy.Bands = bands[policy.ID]
	}
	return policies, nil
}

func (r *PolicyRepository) listBands(ctx context.Context, where string, args ...any) (map[int64][]interest.Band, error) {
	query := `SELECT policy_id, min_amount, max_amount, rate FROM interest_bands ` + where + ` ORDER BY policy_id, min_amount`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query interest bands", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	bands := make(map[int64][]interest.Band)
	for rows.Next() {
		var (
			policyID  int64
			band      interest.Band
			maxAmount decimal.NullDecimal
		)
		if err := rows.Scan(&policyID, &band.MinAmount, &maxAmount, &band.Rate); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan interest band row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		if maxAmount.Valid {
			band.MaxAmount = &maxAmount.Decimal
		}
		bands[policyID] = append(bands[policyID], band)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return bands, nil
}

// SaveInTx upserts the policy by name and replaces its bands.
func (r *PolicyRepository) SaveInTx(ctx context.Context, tx pgx.Tx, policy *interest.Policy) error {
	query := `
        INSERT INTO interest_policies (name, scheme, default_rate, penalty_rate, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
        ON CONFLICT (name) DO UPDATE
        SET scheme = EXCLUDED.scheme,
            default_rate = EXCLUDED.default_rate,
            penalty_rate = EXCLUDED.penalty_rate,
            is_active = EXCLUDED.is_active,
            updated_at = NOW()
        RETURNING id, created_at, updated_at`

	err := tx.QueryRow(ctx, query, policy.Name, string(policy.Scheme), policy.DefaultRate, policy.PenaltyRate, policy.IsActive).
		Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to upsert interest policy", "name", policy.Name, "error", err)
		return translateDBError(err, r.logger)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM interest_bands WHERE policy_id = $1`, policy.ID); err != nil {
		r.logger.ErrorContext(ctx, "Failed to clear interest bands", "policy_id", policy.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	for _, band := range policy.Bands {
		var maxAmount decimal.NullDecimal
		if band.MaxAmount != nil {
			maxAmount = decimal.NewNullDecimal(*band.MaxAmount)
		}
		_, err := tx.Exec(ctx, `INSERT INTO interest_bands (policy_id, min_amount, max_amount, rate) VALUES ($1, $2, $3, $4)`,
			policy.ID, band.MinAmount, maxAmount, band.Rate)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to insert interest band", "policy_id", policy.ID, "error", err)
			return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
	}
	return nil
}

func (r *PolicyRepository) DeactivateSchemeInTx(ctx context.Context, tx pgx.Tx, scheme loan.Scheme, exceptName string) error {
	query := `UPDATE interest_policies SET is_active = FALSE, updated_at = NOW() WHERE scheme = $1 AND name <> $2 AND is_active`
	cmdTag, err := tx.Exec(ctx, query, string(scheme), exceptName)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to deactivate interest policies", "scheme", scheme, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	r.logger.DebugContext(ctx, "Deactivated sibling policies", "scheme", scheme, "count", cmdTag.RowsAffected())
	return nil
}

func (r *PolicyRepository) SetActiveInTx(ctx context.Context, tx pgx.Tx, name string, active bool) error {
	cmdTag, err := tx.Exec(ctx, `UPDATE interest_policies SET is_active = $1, updated_at = NOW() WHERE name = $2`, active, name)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update policy active flag", "name", name, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return interest.ErrPolicyNotFound
	}
	return nil
}

func scanPolicy(row pgx.Row) (*interest.Policy, error) {
	var (
		p      interest.Policy
		scheme string
	)
	if err := row.Scan(&p.ID, &p.Name, &scheme, &p.DefaultRate, &p.PenaltyRate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Scheme = loan.Scheme(scheme)
	return &p, nil
}

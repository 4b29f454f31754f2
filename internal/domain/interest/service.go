package interest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type Service interface {
	SavePolicy(ctx context.Context, policy *Policy) (*Policy, error)
	GetPolicy(ctx context.Context, name string) (*Policy, error)
	GetActivePolicy(ctx context.Context, scheme loan.Scheme) (*Policy, error)
	ListPolicies(ctx context.Context) ([]*Policy, error)
	ActivatePolicy(ctx context.Context, name string) error
	ResolveRate(ctx context.Context, policyName string, scheme loan.Scheme, amount decimal.Decimal) (decimal.Decimal, error)
}

type service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) Service {
	return &service{repo: repo, logger: logger.With("component", "InterestPolicyService")}
}

// SavePolicy validates and stores the policy. When the policy is marked active, siblings of the same
// scheme are deactivated in the same transaction.
func (s *service) SavePolicy(ctx context.Context, policy *Policy) (*Policy, error) {
	if err := policy.Validate(); err != nil {
		s.logger.WarnContext(ctx, "Interest policy rejected", "name", policy.Name, "error", err)
		return nil, err
	}

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.SaveInTx(ctx, tx, policy); err != nil {
			return err
		}
		if policy.IsActive {
			return s.repo.DeactivateSchemeInTx(ctx, tx, policy.Scheme, policy.Name)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save interest policy", "name", policy.Name, "error", err)
		return nil, fmt.Errorf("failed to save interest policy %q: %w", policy.Name, err)
	}

	s.logger.InfoContext(ctx, "Interest policy saved", "name", policy.Name, "scheme", policy.Scheme, "active", policy.IsActive)
	return policy, nil
}

func (s *service) GetPolicy(ctx context.Context, name string) (*Policy, error) {
	policy, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrPolicyNotFound) || errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: interest policy %q not found", apperrors.ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to load interest policy %q: %w", name, err)
	}
	return policy, nil
}

func (s *service) GetActivePolicy(ctx context.Context, scheme loan.Scheme) (*Policy, error) {
	policy, err := s.repo.GetActive(ctx, scheme)
	if err != nil {
		if errors.Is(err, ErrPolicyNotFound) || errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no active interest policy for %s", apperrors.ErrNotFound, scheme)
		}
		return nil, fmt.Errorf("failed to load active interest policy for %s: %w", scheme, err)
	}
	return policy, nil
}

func (s *service) ListPolicies(ctx context.Context) ([]*Policy, error) {
	policies, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list interest policies: %w", err)
	}
	return policies, nil
}

// ActivatePolicy makes name the only active policy of its scheme. Last write wins.
func (s *service) ActivatePolicy(ctx context.Context, name string) error {
	policy, err := s.GetPolicy(ctx, name)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.DeactivateSchemeInTx(ctx, tx, policy.Scheme, policy.Name); err != nil {
			return err
		}
		return s.repo.SetActiveInTx(ctx, tx, policy.Name, true)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to activate interest policy", "name", name, "error", err)
		return fmt.Errorf("failed to activate interest policy %q: %w", name, err)
	}

	s.logger.InfoContext(ctx, "Interest policy activated", "name", name, "scheme", policy.Scheme)
	return nil
}

func (s *service) ResolveRate(ctx context.Context, policyName string, scheme loan.Scheme, amount decimal.Decimal) (decimal.Decimal, error) {
	var (
		policy *Policy
		err    error
	)
	if policyName != "" {
		policy, err = s.GetPolicy(ctx, policyName)
	} else {
		policy, err = s.GetActivePolicy(ctx, scheme)
	}
	if err != nil {
		return decimal.Zero, err
	}
	return ResolveRate(policy, scheme, amount)
}

func (s *service) withTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return s.repo.CommitTx(ctx, tx)
}

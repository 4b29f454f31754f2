package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/event"
	"loan-servicing/internal/infrastructure/monitoring"
	"loan-servicing/internal/pkg/apperrors"
)

const (
	statusRefreshJobName = "status_refresh"
	defaultConcurrency   = 4
)

// StatusRefreshJob re-derives Active/Overdue for every open loan and publishes an overdue
// reminder for each loan left Overdue.
type StatusRefreshJob struct {
	loanRepo    loan.Repository
	loanService loan.LoanService
	publisher   event.EventPublisher
	concurrency int
	logger      *slog.Logger
}

func NewStatusRefreshJob(
	loanRepo loan.Repository,
	loanSvc loan.LoanService,
	publisher event.EventPublisher,
	concurrency int,
	logger *slog.Logger,
) *StatusRefreshJob {
	if loanRepo == nil || loanSvc == nil || publisher == nil || logger == nil {
		panic("StatusRefreshJob dependencies cannot be nil")
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &StatusRefreshJob{
		loanRepo:    loanRepo,
		loanService: loanSvc,
		publisher:   publisher,
		concurrency: concurrency,
		logger:      logger.With("job", "StatusRefresh"),
	}
}

func (j *StatusRefreshJob) Run(ctx context.Context) error {
	return j.RunAt(ctx, time.Now())
}

func (j *StatusRefreshJob) RunAt(ctx context.Context, now time.Time) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting loan status refresh job.", slog.Time("as_of", now))

	loanIDs, err := j.loanRepo.ListOpenLoanIDs(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to get open loan IDs, aborting job.", slog.Any("error", err))
		monitoring.RecordBatchRun(statusRefreshJobName, "error")
		return fmt.Errorf("cannot run job, failed to get open loans: %w", err)
	}
	j.logger.InfoContext(ctx, "Fetched open loan IDs.", slog.Int("count", len(loanIDs)))

	var (
		wg                                  sync.WaitGroup
		processed, overdue, reminded, fails atomic.Int32
		sem                                 = make(chan struct{}, j.concurrency)
	)

	for _, loanID := range loanIDs {
		if ctx.Err() != nil {
			j.logger.WarnContext(ctx, "Job context finished before all loans were scheduled", slog.Any("error", ctx.Err()))
			fails.Add(1)
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(loanID int64) {
			defer wg.Done()
			defer func() { <-sem }()

			isOverdue, sent, err := j.refreshLoan(ctx, loanID, now)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					j.logger.WarnContext(ctx, "Loan disappeared during status refresh", slog.Int64("loanID", loanID))
					monitoring.RecordBatchLoan(statusRefreshJobName, "skipped")
					return
				}
				j.logger.ErrorContext(ctx, "Failed to refresh loan status", slog.Int64("loanID", loanID), slog.Any("error", err))
				monitoring.RecordBatchLoan(statusRefreshJobName, "error")
				fails.Add(1)
				return
			}

			processed.Add(1)
			monitoring.RecordBatchLoan(statusRefreshJobName, "success")
			if isOverdue {
				overdue.Add(1)
			}
			if sent {
				reminded.Add(1)
			}
		}(loanID)
	}
	wg.Wait()

	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("total_open_loans", len(loanIDs)),
		slog.Int("loans_processed", int(processed.Load())),
		slog.Int("loans_overdue", int(overdue.Load())),
		slog.Int("reminders_published", int(reminded.Load())),
		slog.Int("errors_encountered", int(fails.Load())),
	)

	if n := fails.Load(); n > 0 {
		summaryLog.WarnContext(ctx, "Loan status refresh job finished with errors.")
		monitoring.RecordBatchRun(statusRefreshJobName, "error")
		return fmt.Errorf("job completed with %d errors", n)
	}
	summaryLog.InfoContext(ctx, "Loan status refresh job finished successfully.")
	monitoring.RecordBatchRun(statusRefreshJobName, "success")
	return nil
}

// refreshLoan reports whether the loan is overdue after the refresh and whether a reminder went out.
// A failed publish is logged and does not fail the loan.
func (j *StatusRefreshJob) refreshLoan(ctx context.Context, loanID int64, now time.Time) (bool, bool, error) {
	status, err := j.loanService.RefreshStatus(ctx, loanID, now)
	if err != nil {
		return false, false, err
	}
	if status != loan.StatusOverdue {
		return false, false, nil
	}

	l, err := j.loanService.GetLoan(ctx, loanID)
	if err != nil {
		return true, false, err
	}
	exposure := l.OverdueExposure(now)

	evt := event.LoanOverdueEvent{
		LoanID:           l.ID,
		CustomerID:       l.CustomerID,
		OverdueAmount:    exposure.Amount,
		InstallmentCount: exposure.InstallmentCount,
		EarliestDueDate:  exposure.EarliestDueDate,
		Timestamp:        now,
	}
	if err := j.publisher.PublishLoanOverdue(ctx, evt); err != nil {
		j.logger.WarnContext(ctx, "Failed to publish overdue reminder", slog.Int64("loanID", loanID), slog.Any("error", err))
		return true, false, nil
	}
	return true, true, nil
}

package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	PaymentsTotal        *prometheus.CounterVec
	AllocatedAmountTotal *prometheus.CounterVec
	StatusTransitions    *prometheus.CounterVec
	LoansSubmittedTotal  *prometheus.CounterVec
	BatchRunsTotal       *prometheus.CounterVec
	BatchLoansProcessed  *prometheus.CounterVec
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loan_servicing_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		PaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_servicing_payments_total",
				Help: "Total number of payment settlement attempts by outcome.",
			},
			[]string{"status"},
		),
		AllocatedAmountTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_servicing_allocated_amount_total",
				Help: "Cumulative amount allocated to each payment bucket.",
			},
			[]string{"bucket"},
		),
		StatusTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_servicing_status_transitions_total",
				Help: "Loan status transitions.",
			},
			[]string{"from", "to"},
		),
		LoansSubmittedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_servicing_loans_submitted_total",
				Help: "Loans moved from draft to active, by scheme.",
			},
			[]string{"scheme"},
		),
		BatchRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_servicing_batch_runs_total",
				Help: "Batch job runs by job and outcome.",
			},
			[]string{"job", "status"},
		),
		BatchLoansProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_servicing_batch_loans_processed_total",
				Help: "Loans processed by batch jobs, by outcome.",
			},
			[]string{"job", "status"},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordPayment(status string) {
	Business.PaymentsTotal.WithLabelValues(status).Inc()
}

func RecordAllocation(penalty, interest, principal decimal.Decimal) {
	Business.AllocatedAmountTotal.WithLabelValues("penalty").Add(penalty.InexactFloat64())
	Business.AllocatedAmountTotal.WithLabelValues("interest").Add(interest.InexactFloat64())
	Business.AllocatedAmountTotal.WithLabelValues("principal").Add(principal.InexactFloat64())
}

func RecordStatusTransition(from, to string) {
	if from == to {
		return
	}
	Business.StatusTransitions.WithLabelValues(from, to).Inc()
}

func RecordLoanSubmitted(scheme string) {
	Business.LoansSubmittedTotal.WithLabelValues(scheme).Inc()
}

func RecordBatchRun(job, status string) {
	Business.BatchRunsTotal.WithLabelValues(job, status).Inc()
}

func RecordBatchLoan(job, status string) {
	Business.BatchLoansProcessed.WithLabelValues(job, status).Inc()
}

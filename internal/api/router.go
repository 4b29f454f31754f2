package api

import (
	"log/slog"
	"net/http"
	"time"

	_ "loan-servicing/docs"
	"loan-servicing/internal/api/handler"
	mw "loan-servicing/internal/api/middleware"
	"loan-servicing/internal/config"
	"loan-servicing/internal/domain/application"
	"loan-servicing/internal/domain/customer"
	"loan-servicing/internal/domain/interest"
	"loan-servicing/internal/domain/loan"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Services are the domain services exposed over HTTP.
type Services struct {
	Loans        loan.LoanService
	Customers    customer.CustomerService
	Policies     interest.Service
	Applications application.Service
}

// SetupRouter builds the HTTP router. The returned function stops background middleware work.
func SetupRouter(svc Services, cfg *config.Config, logger *slog.Logger) (*chi.Mux, func()) {
	router := chi.NewRouter()

	limiter := mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, logger)
	setupMiddleware(router, limiter, logger)
	setupMetricsEndpoint(router, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	authHandler := handler.NewAuthHandler(cfg.Server.Auth, logger)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})

	defaultPenalty, err := cfg.Loan.PenaltyRate()
	if err != nil {
		logger.Warn("Falling back to zero default penalty rate", "error", err)
		defaultPenalty = decimal.Zero
	}

	router.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		setupCustomerRoutes(r, svc, logger)
		setupPolicyRoutes(r, svc.Policies, logger)
		setupApplicationRoutes(r, svc.Applications, logger)
		setupLoanRoutes(r, svc.Loans, defaultPenalty, logger)
	})

	return router, limiter.Stop
}

func setupMiddleware(router *chi.Mux, limiter *mw.RateLimiterMiddleware, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(limiter.Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupCustomerRoutes(r chi.Router, svc Services, logger *slog.Logger) {
	h := handler.NewCustomerHandler(svc.Customers, svc.Applications, logger)

	r.Route("/customers", func(r chi.Router) {
		r.Post("/", h.CreateCustomer)
		r.Get("/", h.ListCustomers)
		r.Route("/{customerID}", func(r chi.Router) {
			r.Get("/", h.GetCustomer)
			r.Delete("/", h.DeactivateCustomer)
			r.Put("/address", h.UpdateCustomerAddress)
			r.Put("/reactivate", h.ReactivateCustomer)
			r.Get("/applications", h.ListApplications)
		})
	})
}

func setupPolicyRoutes(r chi.Router, svc interest.Service, logger *slog.Logger) {
	h := handler.NewPolicyHandler(svc, logger)

	r.Route("/policies", func(r chi.Router) {
		r.Post("/", h.SavePolicy)
		r.Get("/", h.ListPolicies)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", h.GetPolicy)
			r.Put("/activate", h.ActivatePolicy)
			r.Get("/rate", h.ResolveRate)
		})
	})
}

func setupApplicationRoutes(r chi.Router, svc application.Service, logger *slog.Logger) {
	h := handler.NewApplicationHandler(svc, logger)

	r.Route("/applications", func(r chi.Router) {
		r.Post("/", h.CreateApplication)
		r.Route("/{applicationID}", func(r chi.Router) {
			r.Get("/", h.GetApplication)
			r.Put("/approve", h.ApproveApplication)
			r.Put("/reject", h.RejectApplication)
			r.Post("/loan", h.ConvertToLoan)
		})
	})
}

func setupLoanRoutes(r chi.Router, svc loan.LoanService, defaultPenalty decimal.Decimal, logger *slog.Logger) {
	loanHandler := handler.NewLoanHandler(svc, defaultPenalty, logger)
	reportHandler := handler.NewReportHandler(svc, logger)

	r.Get("/calculator", loanHandler.Calculate)
	r.Get("/reports/portfolio", reportHandler.Portfolio)

	r.Route("/loans", func(r chi.Router) {
		r.Post("/", loanHandler.CreateLoan)
		r.Route("/{loanID}", func(r chi.Router) {
			r.Get("/", loanHandler.GetLoan)
			r.Post("/submit", loanHandler.SubmitLoan)
			r.Post("/payments", loanHandler.MakePayment)
			r.Get("/payments", loanHandler.ListPayments)
			r.Get("/payment-suggestion", loanHandler.GetPaymentSuggestion)
			r.Post("/refresh", loanHandler.RefreshStatus)
			r.Get("/overdue", loanHandler.GetOverdue)
		})
	})
}

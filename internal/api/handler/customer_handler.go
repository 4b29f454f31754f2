package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"loan-servicing/internal/api/handler/dto"
	"loan-servicing/internal/domain/application"
	"loan-servicing/internal/domain/customer"
	"loan-servicing/internal/pkg/apperrors"
)

type CustomerHandler struct {
	service      customer.CustomerService
	applications application.Service
	logger       *slog.Logger
}

func NewCustomerHandler(s customer.CustomerService, apps application.Service, l *slog.Logger) *CustomerHandler {
	if s == nil {
		panic("customer service cannot be nil")
	}
	if apps == nil {
		panic("application service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &CustomerHandler{
		service:      s,
		applications: apps,
		logger:       l.With("component", "CustomerHandler"),
	}
}

func getCustomerIDFromURL(r *http.Request) (int64, error) {
	return getIDFromURL(r, "customerID")
}

// CreateCustomer handles POST /customers
// @Summary Register a customer
// @Description Creates a customer identified by a 10-digit mobile number. An empty name defaults to "Customer-<mobile>".
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body dto.CreateCustomerRequest true "Customer creation request"
// @Success 201 {object} dto.CustomerResponse "Customer successfully created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload or mobile number already registered"
// @Failure 500 {object} dto.ErrorResponse "Internal server error during creation"
// @Router /customers [post]
// @Security BearerAuth
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	created, err := h.service.CreateNewCustomer(r.Context(), req.Name, req.MobileNumber, req.Address)
	if err != nil {
		logServiceError(r, h.logger, "Service failed to create customer", err)
		respondError(w, err)
		return
	}

	resp := dto.NewCustomerResponse(created)
	h.logger.InfoContext(r.Context(), "Customer created successfully", slog.String("customerID", resp.CustomerID))
	respondJSON(w, http.StatusCreated, resp)
}

// GetCustomer handles GET /customers/{customerID}
// @Summary Retrieve customer details
// @Tags Customers
// @Produce json
// @Param customerID path int true "Customer ID" Minimum(1)
// @Success 200 {object} dto.CustomerResponse "Customer details retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid customer ID format"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /customers/{customerID} [get]
// @Security BearerAuth
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := getCustomerIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	found, err := h.service.GetCustomer(r.Context(), customerID)
	if err != nil {
		logServiceError(r, h.logger, "Service failed to get customer", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewCustomerResponse(found))
}

// ListCustomers handles GET /customers
// @Summary List active customers
// @Tags Customers
// @Produce json
// @Success 200 {array} dto.CustomerResponse "List of customers"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /customers [get]
// @Security BearerAuth
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.ListActiveCustomers(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list active customers", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := make([]dto.CustomerResponse, len(customers))
	for i, cust := range customers {
		resp[i] = dto.NewCustomerResponse(cust)
	}

	h.logger.DebugContext(r.Context(), "Customers listed successfully", slog.Int("count", len(resp)))
	respondJSON(w, http.StatusOK, resp)
}

// ListApplications handles GET /customers/{customerID}/applications
// @Summary List a customer's loan applications
// @Tags Customers
// @Produce json
// @Param customerID path int true "Customer ID" Minimum(1)
// @Success 200 {array} dto.ApplicationResponse "Applications, newest first"
// @Failure 400 {object} dto.ErrorResponse "Invalid customer ID format"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /customers/{customerID}/applications [get]
// @Security BearerAuth
func (h *CustomerHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	customerID, err := getCustomerIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	apps, err := h.applications.ListByCustomer(r.Context(), customerID)
	if err != nil {
		logServiceError(r, h.logger, "Service failed to list applications", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewApplicationListResponse(apps))
}

// UpdateCustomerAddress handles PUT /customers/{customerID}/address
// @Summary Update customer address
// @Tags Customers
// @Accept json
// @Produce json
// @Param customerID path int true "Customer ID" Minimum(1)
// @Param request body dto.UpdateCustomerAddressRequest true "New address payload"
// @Success 204 "Address successfully updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid customer ID or request payload (e.g., empty address)"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /customers/{customerID}/address [put]
// @Security BearerAuth
func (h *CustomerHandler) UpdateCustomerAddress(w http.ResponseWriter, r *http.Request) {
	customerID, err := getCustomerIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.UpdateCustomerAddressRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	if err := h.service.UpdateCustomerAddress(r.Context(), customerID, req.Address); err != nil {
		logServiceError(r, h.logger, "Service failed to update customer address", err)
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Customer address updated successfully", "customerID", customerID)
	respondJSON(w, http.StatusNoContent, nil)
}

// DeactivateCustomer handles DELETE /customers/{customerID}
// @Summary Deactivate a customer
// @Description Marks a customer as inactive. Inactive customers cannot take new loans.
// @Tags Customers
// @Produce json
// @Param customerID path int true "Customer ID" Minimum(1)
// @Success 204 "Customer successfully deactivated"
// @Failure 400 {object} dto.ErrorResponse "Invalid customer ID"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /customers/{customerID} [delete]
// @Security BearerAuth
func (h *CustomerHandler) DeactivateCustomer(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// ReactivateCustomer handles PUT /customers/{customerID}/reactivate
// @Summary Reactivate a customer
// @Tags Customers
// @Produce json
// @Param customerID path int true "Customer ID" Minimum(1)
// @Success 204 "Customer successfully reactivated"
// @Failure 400 {object} dto.ErrorResponse "Invalid customer ID"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /customers/{customerID}/reactivate [put]
// @Security BearerAuth
func (h *CustomerHandler) ReactivateCustomer(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *CustomerHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	customerID, err := getCustomerIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if active {
		err = h.service.ReactivateCustomer(r.Context(), customerID)
	} else {
		err = h.service.DeactivateCustomer(r.Context(), customerID)
	}
	if err != nil {
		logServiceError(r, h.logger, "Service failed to change customer status", err)
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Customer status changed", "customerID", customerID, "active", active)
	respondJSON(w, http.StatusNoContent, nil)
}

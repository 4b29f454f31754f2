package dto

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"loan-servicing/internal/domain/customer"
	"loan-servicing/internal/pkg/apperrors"
)

type CreateCustomerRequest struct {
	Name         string `json:"name"`
	MobileNumber string `json:"mobileNumber"`
	Address      string `json:"address"`
}

func (r *CreateCustomerRequest) Validate() error {
	if strings.TrimSpace(r.MobileNumber) == "" {
		return apperrors.NewValidationError("mobileNumber", "cannot be empty")
	}
	if strings.TrimSpace(r.Address) == "" {
		return apperrors.NewValidationError("address", "cannot be empty")
	}
	return nil
}

type UpdateCustomerAddressRequest struct {
	Address string `json:"address"`
}

func (r *UpdateCustomerAddressRequest) Validate() error {
	if strings.TrimSpace(r.Address) == "" {
		return fmt.Errorf("address cannot be empty")
	}
	return nil
}

type CustomerResponse struct {
	CustomerID   string    `json:"customerId"`
	Name         string    `json:"name"`
	MobileNumber string    `json:"mobileNumber"`
	Address      string    `json:"address"`
	Active       bool      `json:"active"`
	CreateDate   time.Time `json:"createDate"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func NewCustomerResponse(cust *customer.Customer) CustomerResponse {
	if cust == nil {
		return CustomerResponse{}
	}

	return CustomerResponse{
		CustomerID:   strconv.FormatInt(cust.CustomerID, 10),
		Name:         cust.Name,
		MobileNumber: cust.MobileNumber,
		Address:      cust.Address,
		Active:       cust.Active,
		CreateDate:   cust.CreateDate,
		UpdatedAt:    cust.UpdatedAt,
	}
}

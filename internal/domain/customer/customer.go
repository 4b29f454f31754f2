package customer

import (
	"strings"
	"time"

	"loan-servicing/internal/pkg/apperrors"
)

const mobileNumberDigits = 10

type Customer struct {
	CustomerID   int64     `json:"customerId"`
	Name         string    `json:"name"`
	MobileNumber string    `json:"mobileNumber"`
	Address      string    `json:"address"`
	Active       bool      `json:"active"`
	CreateDate   time.Time `json:"createDate"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewCustomer validates the mobile number and defaults an empty name to "Customer-<mobile>".
func NewCustomer(name, mobileNumber, address string) (*Customer, error) {
	mobile, err := NormalizeMobileNumber(mobileNumber)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = "Customer-" + mobile
	}

	now := time.Now()
	return &Customer{
		Name:         name,
		MobileNumber: mobile,
		Address:      strings.TrimSpace(address),
		Active:       true,
		CreateDate:   now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeMobileNumber strips spaces, dashes and '+' and requires exactly ten digits.
func NormalizeMobileNumber(raw string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "+", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return "", apperrors.NewValidationError("mobileNumber", "is required")
	}
	if len(cleaned) != mobileNumberDigits {
		return "", apperrors.NewValidationError("mobileNumber", "must contain exactly 10 digits")
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", apperrors.NewValidationError("mobileNumber", "must contain digits only")
		}
	}
	return cleaned, nil
}

func (c *Customer) Deactivate() {
	if c.Active {
		c.Active = false
		c.UpdatedAt = time.Now()
	}
}

func (c *Customer) Reactivate() {
	if !c.Active {
		c.Active = true
		c.UpdatedAt = time.Now()
	}
}

package dto

import (
	"fmt"
	"strings"
	"time"

	"loan-servicing/internal/domain/interest"
	"loan-servicing/internal/domain/loan"
)

type BandRequest struct {
	MinAmount string  `json:"minAmount"`
	MaxAmount *string `json:"maxAmount,omitempty"`
	Rate      string  `json:"rate"`
}

type SavePolicyRequest struct {
	Name        string        `json:"name"`
	Scheme      string        `json:"scheme"`
	DefaultRate string        `json:"defaultRate"`
	PenaltyRate string        `json:"penaltyRate"`
	Active      bool          `json:"active"`
	Bands       []BandRequest `json:"bands,omitempty"`
}

// Policy converts the request. Range checks on rates and bands are left to the domain.
func (r *SavePolicyRequest) Policy() (*interest.Policy, error) {
	defaultRate, err := parseDecimal("defaultRate", r.DefaultRate)
	if err != nil {
		return nil, err
	}
	penaltyRate, err := parseDecimal("penaltyRate", r.PenaltyRate)
	if err != nil {
		return nil, err
	}

	p := &interest.Policy{
		Name:        strings.TrimSpace(r.Name),
		Scheme:      loan.Scheme(strings.ToUpper(r.Scheme)),
		DefaultRate: defaultRate,
		PenaltyRate: penaltyRate,
		IsActive:    r.Active,
		Bands:       make([]interest.Band, 0, len(r.Bands)),
	}
	for i, b := range r.Bands {
		field := fmt.Sprintf("bands[%d]", i)
		minAmount, err := parseDecimal(field+".minAmount", b.MinAmount)
		if err != nil {
			return nil, err
		}
		maxAmount, err := parseOptionalDecimal(field+".maxAmount", b.MaxAmount)
		if err != nil {
			return nil, err
		}
		rate, err := parseDecimal(field+".rate", b.Rate)
		if err != nil {
			return nil, err
		}
		p.Bands = append(p.Bands, interest.Band{MinAmount: minAmount, MaxAmount: maxAmount, Rate: rate})
	}
	return p, nil
}

func (r *SavePolicyRequest) Validate() error {
	p, err := r.Policy()
	if err != nil {
		return err
	}
	return p.Validate()
}

type BandResponse struct {
	MinAmount string  `json:"minAmount"`
	MaxAmount *string `json:"maxAmount,omitempty"`
	Rate      string  `json:"rate"`
}

type PolicyResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Scheme      string         `json:"scheme"`
	DefaultRate string         `json:"defaultRate"`
	PenaltyRate string         `json:"penaltyRate"`
	Active      bool           `json:"active"`
	Bands       []BandResponse `json:"bands"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func NewPolicyResponse(p *interest.Policy) PolicyResponse {
	if p == nil {
		return PolicyResponse{}
	}
	resp := PolicyResponse{
		ID:          formatID(p.ID),
		Name:        p.Name,
		Scheme:      string(p.Scheme),
		DefaultRate: p.DefaultRate.String(),
		PenaltyRate: p.PenaltyRate.String(),
		Active:      p.IsActive,
		Bands:       make([]BandResponse, len(p.Bands)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for i, b := range p.Bands {
		resp.Bands[i] = BandResponse{MinAmount: b.MinAmount.StringFixed(moneyPlaces), Rate: b.Rate.String()}
		if b.MaxAmount != nil {
			maxAmount := b.MaxAmount.StringFixed(moneyPlaces)
			resp.Bands[i].MaxAmount = &maxAmount
		}
	}
	return resp
}

type RateResponse struct {
	Policy string `json:"policy"`
	Scheme string `json:"scheme"`
	Amount string `json:"amount"`
	Rate   string `json:"rate"`
}

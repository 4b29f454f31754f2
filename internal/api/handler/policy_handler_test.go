package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"loan-servicing/internal/api/handler/dto"
	"loan-servicing/internal/domain/interest"
	"loan-servicing/internal/domain/loan"
	"loan-servicing/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockInterestService struct {
	mock.Mock
}

func (_m *MockInterestService) SavePolicy(ctx context.Context, policy *interest.Policy) (*interest.Policy, error) {
	ret := _m.Called(ctx, policy)
	if p, ok := ret.Get(0).(*interest.Policy); ok {
		return p, ret.Error(1)
	}
	return nil, ret.Error(1)
}

func (_m *MockInterestService) GetPolicy(ctx context.Context, name string) (*interest.Policy, error) {
	ret := _m.Called(ctx, name)
	if p, ok := ret.Get(0).(*interest.Policy); ok {
		return p, ret.Error(1)
	}
	return nil, ret.Error(1)
}

func (_m *MockInterestService) GetActivePolicy(ctx context.Context, scheme loan.Scheme) (*interest.Policy, error) {
	ret := _m.Called(ctx, scheme)
	if p, ok := ret.Get(0).(*interest.Policy); ok {
		return p, ret.Error(1)
	}
	return nil, ret.Error(1)
}

func (_m *MockInterestService) ListPolicies(ctx context.Context) ([]*interest.Policy, error) {
	ret := _m.Called(ctx)
	if p, ok := ret.Get(0).([]*interest.Policy); ok {
		return p, ret.Error(1)
	}
	return nil, ret.Error(1)
}

func (_m *MockInterestService) ActivatePolicy(ctx context.Context, name string) error {
	return _m.Called(ctx, name).Error(0)
}

func (_m *MockInterestService) ResolveRate(ctx context.Context, policyName string, scheme loan.Scheme, amount decimal.Decimal) (decimal.Decimal, error) {
	ret := _m.Called(ctx, policyName, scheme, amount)
	return ret.Get(0).(decimal.Decimal), ret.Error(1)
}

func tieredPolicy() *interest.Policy {
	upper := decimal.NewFromInt(50000)
	return &interest.Policy{
		ID:          1,
		Name:        "retail-2024",
		Scheme:      loan.SchemeEMI,
		DefaultRate: decimal.RequireFromString("2.5"),
		PenaltyRate: decimal.NewFromInt(1),
		IsActive:    true,
		Bands: []interest.Band{
			{MinAmount: decimal.NewFromInt(1), MaxAmount: &upper, Rate: decimal.NewFromInt(3)},
			{MinAmount: decimal.RequireFromString("50000.01"), Rate: decimal.NewFromInt(2)},
		},
	}
}

func TestSavePolicy(t *testing.T) {
	t.Run("saves tiered policy", func(t *testing.T) {
		svc := new(MockInterestService)
		h := NewPolicyHandler(svc, logger)
		svc.On("SavePolicy", mock.Anything, mock.MatchedBy(func(p *interest.Policy) bool {
			return p.Name == "retail-2024" && p.Scheme == loan.SchemeEMI && p.IsActive &&
				len(p.Bands) == 2 && p.Bands[0].MaxAmount != nil && p.Bands[1].MaxAmount == nil
		})).Return(tieredPolicy(), nil)

		body := `{"name":"retail-2024","scheme":"emi","defaultRate":"2.5","penaltyRate":"1","active":true,
			"bands":[{"minAmount":"1","maxAmount":"50000","rate":"3"},{"minAmount":"50000.01","rate":"2"}]}`
		req := httptest.NewRequest(http.MethodPost, "/policies", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.SavePolicy(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.PolicyResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Bands, 2)
		assert.Equal(t, "50000.00", *resp.Bands[0].MaxAmount)
		assert.Nil(t, resp.Bands[1].MaxAmount)
		assert.True(t, resp.Active)
		svc.AssertExpectations(t)
	})

	t.Run("names the malformed band", func(t *testing.T) {
		svc := new(MockInterestService)
		h := NewPolicyHandler(svc, logger)

		body := `{"name":"retail","scheme":"EMI","defaultRate":"2","penaltyRate":"1","bands":[{"minAmount":"0","rate":"x"}]}`
		req := httptest.NewRequest(http.MethodPost, "/policies", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.SavePolicy(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bands[0].rate", decodeError(t, rec).Field)
	})

	t.Run("concurrent activation conflicts", func(t *testing.T) {
		svc := new(MockInterestService)
		h := NewPolicyHandler(svc, logger)
		svc.On("SavePolicy", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: another policy is being activated for EMI", apperrors.ErrConflict))

		body := `{"name":"retail","scheme":"EMI","defaultRate":"2","penaltyRate":"1","active":true}`
		req := httptest.NewRequest(http.MethodPost, "/policies", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.SavePolicy(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestListAndGetPolicies(t *testing.T) {
	svc := new(MockInterestService)
	h := NewPolicyHandler(svc, logger)

	t.Run("list", func(t *testing.T) {
		svc.On("ListPolicies", mock.Anything).Return([]*interest.Policy{tieredPolicy()}, nil).Once()

		rec := httptest.NewRecorder()
		h.ListPolicies(rec, httptest.NewRequest(http.MethodGet, "/policies", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp []dto.PolicyResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp, 1)
		assert.Equal(t, "retail-2024", resp[0].Name)
	})

	t.Run("get unknown", func(t *testing.T) {
		svc.On("GetPolicy", mock.Anything, "missing").Return(nil, interest.ErrPolicyNotFound).Once()

		req := withURLParams(httptest.NewRequest(http.MethodGet, "/policies/missing", nil), "name", "missing")
		rec := httptest.NewRecorder()

		h.GetPolicy(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	svc.AssertExpectations(t)
}

func TestActivatePolicy(t *testing.T) {
	t.Run("activates and returns policy", func(t *testing.T) {
		svc := new(MockInterestService)
		h := NewPolicyHandler(svc, logger)
		svc.On("ActivatePolicy", mock.Anything, "retail-2024").Return(nil)
		svc.On("GetPolicy", mock.Anything, "retail-2024").Return(tieredPolicy(), nil)

		req := withURLParams(httptest.NewRequest(http.MethodPut, "/policies/retail-2024/activate", nil), "name", "retail-2024")
		rec := httptest.NewRecorder()

		h.ActivatePolicy(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.PolicyResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.Active)
		svc.AssertExpectations(t)
	})

	t.Run("unknown policy", func(t *testing.T) {
		svc := new(MockInterestService)
		h := NewPolicyHandler(svc, logger)
		svc.On("ActivatePolicy", mock.Anything, "missing").Return(interest.ErrPolicyNotFound)

		req := withURLParams(httptest.NewRequest(http.MethodPut, "/policies/missing/activate", nil), "name", "missing")
		rec := httptest.NewRecorder()

		h.ActivatePolicy(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		svc.AssertNotCalled(t, "GetPolicy", mock.Anything, mock.Anything)
	})
}

func TestResolveRate(t *testing.T) {
	t.Run("uses requested scheme", func(t *testing.T) {
		svc := new(MockInterestService)
		h := NewPolicyHandler(svc, logger)
		svc.On("ResolveRate", mock.Anything, "retail-2024", loan.SchemeEMI, decimal.RequireFromString("75000")).
			Return(decimal.NewFromInt(2), nil)

		req := withURLParams(httptest.NewRequest(http.MethodGet, "/policies/retail-2024/rate?amount=75000&scheme=emi", nil), "name", "retail-2024")
		rec := httptest.NewRecorder()

		h.ResolveRate(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.RateResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, dto.RateResponse{Policy: "retail-2024", Scheme: "EMI", Amount: "75000.00", Rate: "2"}, resp)
		svc.AssertNotCalled(t, "GetPolicy", mock.Anything, mock.Anything)
	})

	t.Run("defaults to policy scheme", func(t *testing.T) {
		svc := new(MockInterestService)
		h := NewPolicyHandler(svc, logger)
		svc.On("GetPolicy", mock.Anything, "retail-2024").Return(tieredPolicy(), nil)
		svc.On("ResolveRate", mock.Anything, "retail-2024", loan.SchemeEMI, decimal.RequireFromString("1000")).
			Return(decimal.NewFromInt(3), nil)

		req := withURLParams(httptest.NewRequest(http.MethodGet, "/policies/retail-2024/rate?amount=1000", nil), "name", "retail-2024")
		rec := httptest.NewRecorder()

		h.ResolveRate(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("scheme mismatch", func(t *testing.T) {
		svc := new(MockInterestService)
		h := NewPolicyHandler(svc, logger)
		svc.On("ResolveRate", mock.Anything, "retail-2024", loan.SchemeFlatRate, mock.Anything).
			Return(decimal.Zero, apperrors.NewValidationError("scheme", "policy retail-2024 applies to EMI"))

		req := withURLParams(httptest.NewRequest(http.MethodGet, "/policies/retail-2024/rate?amount=1000&scheme=FLAT_RATE", nil), "name", "retail-2024")
		rec := httptest.NewRecorder()

		h.ResolveRate(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "scheme", decodeError(t, rec).Field)
	})

	t.Run("invalid amount", func(t *testing.T) {
		svc := new(MockInterestService)
		h := NewPolicyHandler(svc, logger)

		req := withURLParams(httptest.NewRequest(http.MethodGet, "/policies/retail-2024/rate?amount=abc", nil), "name", "retail-2024")
		rec := httptest.NewRecorder()

		h.ResolveRate(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "amount", decodeError(t, rec).Field)
	})
}

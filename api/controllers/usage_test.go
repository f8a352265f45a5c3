package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplydesk-backend/internal/usage"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

type stubUsageService struct {
	usage.Service

	checkFn   func(ctx context.Context, input usage.CheckInput) (usage.Result, error)
	monthlyFn func(ctx context.Context, input usage.MonthlyInput) (*usage.MonthlyResult, error)
}

func (s *stubUsageService) CheckLimit(ctx context.Context, input usage.CheckInput) (usage.Result, error) {
	return s.checkFn(ctx, input)
}

func (s *stubUsageService) ListMonthly(ctx context.Context, input usage.MonthlyInput) (*usage.MonthlyResult, error) {
	return s.monthlyFn(ctx, input)
}

func TestCheckUsageUsesTokenPosition(t *testing.T) {
	itemID := uuid.New()
	var got usage.CheckInput
	svc := &stubUsageService{
		checkFn: func(ctx context.Context, input usage.CheckInput) (usage.Result, error) {
			got = input
			return usage.Result{Allowed: false, Limited: true, CurrentUsage: 4, Limit: 5, Remaining: 1}, nil
		},
	}

	req, caller := withCaller(httptest.NewRequest(http.MethodGet, "/api/v1/usage/check?itemId="+itemID.String()+"&quantity=2&position=Director", nil), enums.UserRoleEmployee)
	rec := httptest.NewRecorder()
	CheckUsage(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, caller.UserID, got.UserID)
	assert.Equal(t, itemID, got.ItemID)
	assert.Equal(t, "Analyst", got.Position)
	assert.Equal(t, 2, got.Quantity)

	var result usage.Result
	decodeData(t, rec, &result)
	assert.False(t, result.Allowed)
	assert.Equal(t, 1, result.Remaining)
}

func TestCheckUsageDefaultsQuantity(t *testing.T) {
	var got usage.CheckInput
	svc := &stubUsageService{
		checkFn: func(ctx context.Context, input usage.CheckInput) (usage.Result, error) {
			got = input
			return usage.Result{Allowed: true}, nil
		},
	}
	req, _ := withCaller(httptest.NewRequest(http.MethodGet, "/api/v1/usage/check?itemId="+uuid.NewString(), nil), enums.UserRoleEmployee)
	rec := httptest.NewRecorder()
	CheckUsage(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, got.Quantity)
}

func TestCheckUsageRequiresItem(t *testing.T) {
	for _, target := range []string{"/api/v1/usage/check", "/api/v1/usage/check?itemId=x", "/api/v1/usage/check?itemId=" + uuid.NewString() + "&quantity=0"} {
		req, _ := withCaller(httptest.NewRequest(http.MethodGet, target, nil), enums.UserRoleEmployee)
		rec := httptest.NewRecorder()
		CheckUsage(&stubUsageService{}, testLogger())(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestMyMonthlyUsagePeriod(t *testing.T) {
	var got usage.MonthlyInput
	svc := &stubUsageService{
		monthlyFn: func(ctx context.Context, input usage.MonthlyInput) (*usage.MonthlyResult, error) {
			got = input
			return &usage.MonthlyResult{Period: input.Period, Items: []usage.MonthlyItem{}}, nil
		},
	}

	req, _ := withCaller(httptest.NewRequest(http.MethodGet, "/api/v1/usage/me?year=2024&month=2", nil), enums.UserRoleEmployee)
	rec := httptest.NewRecorder()
	MyMonthlyUsage(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usage.Period{Year: 2024, Month: 2}, got.Period)
	assert.Equal(t, "Analyst", got.Position)

	req, _ = withCaller(httptest.NewRequest(http.MethodGet, "/api/v1/usage/me?year=2024", nil), enums.UserRoleEmployee)
	rec = httptest.NewRecorder()
	MyMonthlyUsage(svc, testLogger())(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

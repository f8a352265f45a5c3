package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplydesk-backend/internal/reports"
)

type stubReportsService struct {
	reports.Service

	summaryFn func(ctx context.Context, filter reports.Filter) (*reports.Summary, error)
}

func (s *stubReportsService) Summary(ctx context.Context, filter reports.Filter) (*reports.Summary, error) {
	return s.summaryFn(ctx, filter)
}

func TestReportSummaryInclusiveRange(t *testing.T) {
	var got reports.Filter
	svc := &stubReportsService{
		summaryFn: func(ctx context.Context, filter reports.Filter) (*reports.Summary, error) {
			got = filter
			return &reports.Summary{Total: 7}, nil
		},
	}

	rec := httptest.NewRecorder()
	ReportSummary(svc, testLogger())(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/reports/summary?from=2024-03-01&to=2024-03-31&department=Finance", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got.From)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), got.To)
	assert.Equal(t, "Finance", got.Department)

	var summary reports.Summary
	decodeData(t, rec, &summary)
	assert.EqualValues(t, 7, summary.Total)
}

func TestReportSummarySingleDay(t *testing.T) {
	var got reports.Filter
	svc := &stubReportsService{
		summaryFn: func(ctx context.Context, filter reports.Filter) (*reports.Summary, error) {
			got = filter
			return &reports.Summary{}, nil
		},
	}
	rec := httptest.NewRecorder()
	ReportSummary(svc, testLogger())(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/reports/summary?from=2024-03-05&to=2024-03-05", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 24*time.Hour, got.To.Sub(got.From))
}

func TestReportSummaryRejectsInvertedRange(t *testing.T) {
	rec := httptest.NewRecorder()
	ReportSummary(&stubReportsService{}, testLogger())(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/reports/summary?from=2024-03-10&to=2024-03-01", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

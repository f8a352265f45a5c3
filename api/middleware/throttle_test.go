package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

func TestThrottleRejectsAfterLimit(t *testing.T) {
	l, err := NewThrottle("2-M", memory.NewStore())
	require.NoError(t, err)
	handler := Throttle(l, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory", nil)
		req.RemoteAddr = "10.0.0.7:5123"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
			assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		}
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestThrottleKeysByUserBeforeIP(t *testing.T) {
	l, err := NewThrottle("1-M", memory.NewStore())
	require.NoError(t, err)
	handler := Throttle(l, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(userID string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.RemoteAddr = "192.168.1.4:9000"
		if userID != "" {
			req = req.WithContext(WithIdentity(context.Background(), Identity{UserID: uuid.MustParse(userID), Role: enums.UserRoleEmployee}))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("6f1c1b0e-4a53-4a4e-9b0c-1d2e3f405162"))
	assert.Equal(t, http.StatusOK, send("0b7d9c4e-2f11-4c7a-8e5d-9a8b7c6d5e4f"))
	assert.Equal(t, http.StatusOK, send(""))
	assert.Equal(t, http.StatusTooManyRequests, send(""))
}

func TestNewThrottleEmptyRateDisables(t *testing.T) {
	l, err := NewThrottle("", memory.NewStore())
	require.NoError(t, err)
	assert.Nil(t, l)

	called := false
	Throttle(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

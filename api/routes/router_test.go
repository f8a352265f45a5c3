package routes

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplydesk-backend/internal/requests"
	"github.com/angelmondragon/supplydesk-backend/internal/users"
	pkgAuth "github.com/angelmondragon/supplydesk-backend/pkg/auth"
	"github.com/angelmondragon/supplydesk-backend/pkg/config"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
	"github.com/angelmondragon/supplydesk-backend/pkg/metrics"
)

type memoryRedis struct {
	mu      sync.Mutex
	values  map[string]string
	pingErr error
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}}
}

func (m *memoryRedis) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryRedis) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryRedis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value.(string)
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryRedis) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryRedis) Ping(ctx context.Context) error {
	return m.pingErr
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubUsers struct {
	users.Service
}

func (stubUsers) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID, Name: "Dana Ruiz", Role: enums.UserRoleEmployee}, nil
}

type countingRequests struct {
	requests.Service
	submits int
}

func (c *countingRequests) Submit(ctx context.Context, actor requests.Actor, input requests.SubmitInput) (*requests.RequestDTO, error) {
	c.submits++
	return &requests.RequestDTO{ID: uuid.New(), Quantity: input.Quantity}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "supplydesk-test", ExpirationMinutes: 15},
	}
}

func testRouter(t *testing.T, p Params) http.Handler {
	t.Helper()
	if p.Config == nil {
		p.Config = testConfig()
	}
	if p.Logger == nil {
		p.Logger = logger.New(logger.Options{ServiceName: "router-test", Output: &bytes.Buffer{}})
	}
	return NewRouter(p)
}

func bearer(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   uuid.New(),
		Role:     role,
		Name:     "Dana Ruiz",
		Position: "Analyst",
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	router := testRouter(t, Params{DB: stubPinger{}, Redis: newMemoryRedis()})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-SupplyDesk-Env"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyReportsFailingDependency(t *testing.T) {
	router := testRouter(t, Params{DB: stubPinger{err: errors.New("db down")}, Redis: newMemoryRedis()})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "db down")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := testRouter(t, Params{Gatherer: reg, HTTP: metrics.NewHTTPMetrics(reg)})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "supplydesk_http_requests_total")
}

func TestAuthenticatedRoutesRequireToken(t *testing.T) {
	router := testRouter(t, Params{Users: stubUsers{}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeReturnsProfile(t *testing.T) {
	cfg := testConfig()
	router := testRouter(t, Params{Config: cfg, Users: stubUsers{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleEmployee))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dana Ruiz")
}

func TestAdminRoutesRejectEmployees(t *testing.T) {
	cfg := testConfig()
	router := testRouter(t, Params{Config: cfg})

	for _, path := range []string{"/api/v1/admin/users", "/api/v1/admin/requests", "/api/v1/admin/reports/summary"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleEmployee))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}
}

func TestSubmitRequestIsIdempotent(t *testing.T) {
	cfg := testConfig()
	svc := &countingRequests{}
	router := testRouter(t, Params{Config: cfg, Redis: newMemoryRedis(), Requests: svc})
	token := bearer(t, cfg, enums.UserRoleEmployee)
	body := `{"item_id":"` + uuid.NewString() + `","quantity":2}`

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(body))
		req.Header.Set("Authorization", token)
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, send("").Code)

	first := send("submit-1")
	require.Equal(t, http.StatusCreated, first.Code)
	replay := send("submit-1")
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, first.Body.String(), replay.Body.String())
	assert.Equal(t, 1, svc.submits)
}

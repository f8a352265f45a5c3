package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
)

type replayStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newReplayStore() *replayStore {
	return &replayStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *replayStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (s *replayStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value.(string)
	s.ttls[key] = ttl
	return nil
}

func (s *replayStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = value.(string)
	s.ttls[key] = ttl
	return true, nil
}

func (s *replayStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *replayStore) IdempotencyKey(scope, id string) string { return scope + "#" + id }

func keyedRequest(method, target, key, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestReplayTTL(t *testing.T) {
	cases := []struct {
		method, path string
		want         time.Duration
		guarded      bool
	}{
		{http.MethodPost, "/api/v1/requests", longReplayTTL, true},
		{http.MethodPost, "/api/v1/requests/", longReplayTTL, true},
		{http.MethodPost, "/api/v1/requests/bulk", longReplayTTL, true},
		{http.MethodPost, "/api/v1/requests/8c1e/cancel", longReplayTTL, true},
		{http.MethodPost, "/api/v1/admin/requests/8c1e/approve", longReplayTTL, true},
		{http.MethodPost, "/api/v1/admin/requests/groups/77aa/fulfill", longReplayTTL, true},
		{http.MethodPut, "/api/v1/admin/inventory/42/stock", shortReplayTTL, true},
		{http.MethodPost, "/api/v1/notifications/9/read", shortReplayTTL, true},
		{http.MethodPost, "/api/v1/notifications/read-all", shortReplayTTL, true},
		{http.MethodGet, "/api/v1/requests", 0, false},
		{http.MethodPut, "/api/v1/admin/inventory/42", 0, false},
		{http.MethodPost, "/api/v1/auth/login", 0, false},
	}
	for _, tc := range cases {
		ttl, guarded := replayTTL(tc.method, tc.path)
		assert.Equal(t, tc.guarded, guarded, "%s %s", tc.method, tc.path)
		assert.Equal(t, tc.want, ttl, "%s %s", tc.method, tc.path)
	}
}

func TestIdempotencyRequiresKey(t *testing.T) {
	called := false
	handler := Idempotency(newReplayStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, keyedRequest(http.MethodPost, "/api/v1/requests", "", `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, keyedRequest(http.MethodPost, "/api/v1/requests", strings.Repeat("k", 256), `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newReplayStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"r-1"}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, keyedRequest(http.MethodPost, "/api/v1/requests", "abc", `{"quantity":1}`))
	require.Equal(t, http.StatusCreated, first.Code)

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, keyedRequest(http.MethodPost, "/api/v1/requests", "abc", `{"quantity":1}`))
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get(replayHeader))
	assert.Equal(t, `{"data":{"id":"r-1"}}`, replay.Body.String())
	assert.Equal(t, 1, calls)

	for key, ttl := range store.ttls {
		assert.Equal(t, longReplayTTL, ttl, key)
	}
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	handler := Idempotency(newReplayStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/api/v1/requests", "xyz", `{"quantity":1}`))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, keyedRequest(http.MethodPost, "/api/v1/requests", "xyz", `{"quantity":2}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestIdempotencyConflictsWhileInFlight(t *testing.T) {
	store := newReplayStore()
	entered := make(chan struct{})
	release := make(chan struct{})
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusCreated)
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/api/v1/requests/bulk", "race", `[]`))
	}()
	<-entered

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, keyedRequest(http.MethodPost, "/api/v1/requests/bulk", "race", `[]`))
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(release)
	<-done
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newReplayStore()
	status := http.StatusServiceUnavailable
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, keyedRequest(http.MethodPost, "/api/v1/requests/1/cancel", "retry-me", ``))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, store.data)

	status = http.StatusOK
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, keyedRequest(http.MethodPost, "/api/v1/requests/1/cancel", "retry-me", ``))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyScopeIsPerUser(t *testing.T) {
	calls := 0
	handler := Idempotency(newReplayStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for range 2 {
		req := keyedRequest(http.MethodPost, "/api/v1/requests", "same-key", `{"quantity":1}`)
		req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: uuid.New()}))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotencyIgnoresUnguardedRoutes(t *testing.T) {
	calls := 0
	handler := Idempotency(newReplayStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	for range 2 {
		handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodGet, "/api/v1/requests", "k", ``))
	}
	assert.Equal(t, 2, calls)
}

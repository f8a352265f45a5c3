package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplydesk-backend/pkg/auth"
	"github.com/angelmondragon/supplydesk-backend/pkg/auth/session"
	"github.com/angelmondragon/supplydesk-backend/pkg/config"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(ctx context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.ok, nil
}

func mintTestToken(t *testing.T, payload auth.AccessTokenPayload) string {
	t.Helper()
	if payload.JTI == "" {
		payload.JTI = session.NewAccessID()
	}
	token, err := auth.MintAccessToken(testJWT, time.Now(), payload)
	require.NoError(t, err)
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthSeedsIdentity(t *testing.T) {
	userID := uuid.New()
	token := mintTestToken(t, auth.AccessTokenPayload{
		UserID:     userID,
		Role:       enums.UserRoleEmployee,
		Name:       "Ana Ruiz",
		Department: "Finance",
		Position:   "Officer",
	})

	var captured Identity
	var ok bool
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, ok = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, ok)
	assert.Equal(t, Identity{UserID: userID, Role: enums.UserRoleEmployee, Name: "Ana Ruiz", Department: "Finance", Position: "Officer"}, captured)
	assert.False(t, captured.IsAdmin())
}

func TestAuthRequiresLiveSession(t *testing.T) {
	token := mintTestToken(t, auth.AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleAdmin})

	for name, tc := range map[string]struct {
		verifier stubSessionVerifier
		status   int
	}{
		"revoked":     {verifier: stubSessionVerifier{ok: false}, status: http.StatusUnauthorized},
		"redis error": {verifier: stubSessionVerifier{err: errors.New("down")}, status: http.StatusServiceUnavailable},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			resp := httptest.NewRecorder()
			Auth(testJWT, tc.verifier, nil)(okHandler()).ServeHTTP(resp, req)
			assert.Equal(t, tc.status, resp.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.UserRoleAdmin)(okHandler())

	for name, tc := range map[string]struct {
		ctx    context.Context
		status int
	}{
		"anonymous": {ctx: context.Background(), status: http.StatusUnauthorized},
		"employee":  {ctx: WithIdentity(context.Background(), Identity{UserID: uuid.New(), Role: enums.UserRoleEmployee}), status: http.StatusForbidden},
		"admin":     {ctx: WithIdentity(context.Background(), Identity{UserID: uuid.New(), Role: enums.UserRoleAdmin}), status: http.StatusOK},
	} {
		t.Run(name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(tc.ctx))
			assert.Equal(t, tc.status, resp.Code)
		})
	}
}

func TestBearerToken(t *testing.T) {
	for header, want := range map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"abc":          "abc",
		"Basic abc":    "Basic abc",
		"":             "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		assert.Equal(t, want, BearerToken(req), header)
	}
}

func TestIdentityFromContextWithoutAuth(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)
}

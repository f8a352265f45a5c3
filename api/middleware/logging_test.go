package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

type observedRequest struct {
	route  string
	method string
	status int
}

type recordingObserver struct {
	seen []observedRequest
}

func (r *recordingObserver) ObserveRequest(route, method string, status int, _ time.Duration) {
	r.seen = append(r.seen, observedRequest{route: route, method: method, status: status})
}

func TestLoggingObservesRoutePattern(t *testing.T) {
	observer := &recordingObserver{}
	router := chi.NewRouter()
	router.Use(Logging(nil, observer))
	router.Get("/api/v1/requests/{requestId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/requests/abc", nil))

	require.Len(t, observer.seen, 1)
	assert.Equal(t, observedRequest{route: "/api/v1/requests/{requestId}", method: http.MethodGet, status: http.StatusTeapot}, observer.seen[0])
}

func TestLoggingWritesOneLinePerRequest(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "mw-test", Output: buf})
	handler := Logging(logg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"message":"request.complete"`)
	assert.Contains(t, lines[0], `"status":200`)
	assert.Contains(t, lines[0], `"bytes":5`)
}

func TestRequestIDEchoesHeader(t *testing.T) {
	handler := RequestID(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, "req-123", resp.Header().Get("X-Request-Id"))

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))
}

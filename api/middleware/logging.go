package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

type requestObserver interface {
	ObserveRequest(route, method string, status int, elapsed time.Duration)
}

// Logging emits one line per finished request and feeds the latency
// observer, keyed by the matched route pattern. Either argument may be nil.
func Logging(logg *logger.Logger, observer requestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			if observer != nil {
				observer.ObserveRequest(route, r.Method, status, elapsed)
			}
			if logg == nil {
				return
			}

			ctx := logg.WithFields(r.Context(), map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"route":       route,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": elapsed.Milliseconds(),
			})
			switch {
			case status >= http.StatusInternalServerError:
				logg.Warn(ctx, "request.failed")
			case status >= http.StatusBadRequest:
				logg.Info(ctx, "request.rejected")
			default:
				logg.Info(ctx, "request.complete")
			}
		})
	}
}

// routePattern must be read after the handler ran, once chi has matched.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

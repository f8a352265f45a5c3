package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ulule/limiter/v3"

	"github.com/angelmondragon/supplydesk-backend/api/responses"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

// NewThrottle parses a "<limit>-<period>" rate such as "600-M". An empty
// rate returns a nil limiter, which Throttle treats as disabled.
func NewThrottle(rate string, store limiter.Store) (*limiter.Limiter, error) {
	if rate == "" {
		return nil, nil
	}
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	return limiter.New(store, parsed), nil
}

// Throttle limits requests per authenticated user, or per client IP when the
// caller is anonymous. Store failures let the request through.
func Throttle(l *limiter.Limiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			state, err := l.Get(ctx, throttleKey(r))
			if err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "throttle.store_unavailable")
				}
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(state.Limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(state.Remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(state.Reset, 10))
			if state.Reached {
				wait := time.Until(time.Unix(state.Reset, 0))
				h.Set("Retry-After", strconv.Itoa(max(1, int(wait.Seconds()))))
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func throttleKey(r *http.Request) string {
	if userID := UserIDFromContext(r.Context()); userID != "" {
		return "user:" + userID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

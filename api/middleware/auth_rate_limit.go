package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/ulule/limiter/v3"

	"github.com/angelmondragon/supplydesk-backend/api/responses"
	"github.com/angelmondragon/supplydesk-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

// LoginGuard holds the per-IP and per-email login counters. Either may be nil.
type LoginGuard struct {
	byIP    *limiter.Limiter
	byEmail *limiter.Limiter
}

// NewLoginGuard builds both counters on one store. A zero window or limit
// disables the matching counter.
func NewLoginGuard(cfg config.AuthRateLimitConfig, store limiter.Store) LoginGuard {
	counter := func(limit int) *limiter.Limiter {
		if cfg.LoginWindow <= 0 || limit <= 0 || store == nil {
			return nil
		}
		return limiter.New(store, limiter.Rate{Period: cfg.LoginWindow, Limit: int64(limit)})
	}
	return LoginGuard{byIP: counter(cfg.LoginIPLimit), byEmail: counter(cfg.LoginEmailLimit)}
}

// LoginRateLimit answers RATE_LIMIT_EXCEEDED once the caller's IP or the
// submitted email exhausts its window. Unlike Throttle it fails closed.
func LoginRateLimit(guard LoginGuard, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if guard.byIP == nil && guard.byEmail == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if ip := clientIP(r); guard.byIP != nil && ip != "" {
				if !admit(ctx, w, logg, guard.byIP, "ip", ip) {
					return
				}
			}

			if guard.byEmail != nil {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if email := emailOf(body); email != "" && !admit(ctx, w, logg, guard.byEmail, "email", digest(email)) {
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func admit(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, l *limiter.Limiter, scope, subject string) bool {
	state, err := l.Get(ctx, "login:"+scope+":"+subject)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "login rate limit unavailable"))
		return false
	}
	if !state.Reached {
		return true
	}
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"scope":          scope,
			"limit":          state.Limit,
			"window_seconds": int(l.Rate.Period.Seconds()),
		}), "auth.rate_limit.blocked")
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts"))
	return false
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func emailOf(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

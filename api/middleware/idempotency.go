package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/supplydesk-backend/api/responses"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/supplydesk-backend/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	replayHeader      = "Idempotent-Replayed"

	shortReplayTTL = 24 * time.Hour
	longReplayTTL  = 7 * 24 * time.Hour
	// pendingTTL bounds how long a crashed request can hold its key.
	pendingTTL = 2 * time.Minute
)

type replayRule struct {
	method  string
	pattern string
	ttl     time.Duration
}

// Patterns use path.Match syntax; * spans one path segment.
var replayRules = []replayRule{
	{http.MethodPost, "/api/v1/requests", longReplayTTL},
	{http.MethodPost, "/api/v1/requests/bulk", longReplayTTL},
	{http.MethodPost, "/api/v1/requests/*/cancel", longReplayTTL},
	{http.MethodPost, "/api/v1/admin/requests/*/*", longReplayTTL},
	{http.MethodPost, "/api/v1/admin/requests/groups/*/*", longReplayTTL},
	{http.MethodPost, "/api/v1/new-item-requests", shortReplayTTL},
	{http.MethodPost, "/api/v1/admin/new-item-requests/*/*", shortReplayTTL},
	{http.MethodPut, "/api/v1/admin/inventory/*/stock", shortReplayTTL},
	{http.MethodPost, "/api/v1/notifications/*/read", shortReplayTTL},
	{http.MethodPost, "/api/v1/notifications/read-all", shortReplayTTL},
}

func replayTTL(method, urlPath string) (time.Duration, bool) {
	urlPath = strings.TrimSuffix(urlPath, "/")
	for _, rule := range replayRules {
		if rule.method != method {
			continue
		}
		if ok, _ := path.Match(rule.pattern, urlPath); ok {
			return rule.ttl, true
		}
	}
	return 0, false
}

// storedResponse is kept under the key. A pending entry has Status 0.
type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency makes the mutating routes in replayRules safe to retry. The
// first request with a key reserves it; retries with the same body get the
// stored response, a different body gets 409, and a retry that races the
// first request gets 409 too. 5xx responses release the key.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := replayTTL(r.Method, r.URL.Path)
			if !guarded {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" || len(clientKey) > 255 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "an Idempotency-Key header of at most 255 characters is required"))
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := store.IdempotencyKey(UserIDFromContext(ctx)+"|"+r.Method+"|"+r.URL.Path, clientKey)
			fingerprint := fingerprintOf(body)
			pending, _ := json.Marshal(storedResponse{Fingerprint: fingerprint})

			reserved, err := store.SetNX(ctx, key, string(pending), pendingTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency store unavailable"))
				return
			}
			if !reserved {
				replayExisting(ctx, w, store, key, fingerprint, logg)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			settle(ctx, store, key, fingerprint, capture, ttl, logg)
		})
	}
}

func replayExisting(ctx context.Context, w http.ResponseWriter, store pkgredis.IdempotencyStore, key, fingerprint string, logg *logger.Logger) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// Released between our SETNX and GET: the first attempt failed.
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "previous attempt with this key failed, retry"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency store unavailable"))
		return
	}
	var prior storedResponse
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt idempotency record"))
		return
	}
	switch {
	case prior.Fingerprint != fingerprint:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request body"))
	case prior.Status == 0:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is still in progress"))
	default:
		if prior.ContentType != "" {
			w.Header().Set("Content-Type", prior.ContentType)
		}
		w.Header().Set(replayHeader, "true")
		w.WriteHeader(prior.Status)
		_, _ = w.Write(prior.Body)
	}
}

func settle(ctx context.Context, store pkgredis.IdempotencyStore, key, fingerprint string, capture *responseCapture, ttl time.Duration, logg *logger.Logger) {
	// The response is already written; failures here only cost replayability.
	ctx = context.WithoutCancel(ctx)
	status := capture.statusCode()
	if status >= http.StatusInternalServerError {
		if err := store.Del(ctx, key); err != nil && logg != nil {
			logg.Error(ctx, "release idempotency key", err)
		}
		return
	}
	record, err := json.Marshal(storedResponse{
		Fingerprint: fingerprint,
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
	})
	if err == nil {
		err = store.Set(ctx, key, string(record), ttl)
	}
	if err != nil && logg != nil {
		logg.Error(ctx, "store idempotent response", err)
	}
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/supplydesk-backend/api/responses"
	pkgAuth "github.com/angelmondragon/supplydesk-backend/pkg/auth"
	"github.com/angelmondragon/supplydesk-backend/pkg/auth/session"
	"github.com/angelmondragon/supplydesk-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

// Auth admits requests whose bearer token verifies and whose session is
// still live. A nil checker skips the session lookup.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authenticate(r.Context(), cfg, sessions, BearerToken(r))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ctx := WithIdentity(r.Context(), id)
			if logg != nil {
				ctx = logg.WithActorRole(logg.WithUserID(ctx, id.UserID.String()), string(id.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, cfg config.JWTConfig, sessions session.AccessSessionChecker, token string) (Identity, error) {
	if token == "" {
		return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "token has no session id")
	}
	if sessions != nil {
		live, err := sessions.HasSession(ctx, claims.ID)
		if err != nil {
			return Identity{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check session")
		}
		if !live {
			return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired or revoked")
		}
	}
	return Identity{
		UserID:     claims.UserID,
		Role:       claims.Role,
		Name:       claims.Name,
		Department: claims.Department,
		Position:   claims.Position,
	}, nil
}

// BearerToken strips an optional case-insensitive "Bearer " prefix.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if found && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return header
}

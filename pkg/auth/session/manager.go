// Package session keeps refresh sessions in Redis. Each access token's jti
// maps to a hash of its refresh token, and a per-user set indexes the jtis so
// every session of a user can be dropped at once.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/supplydesk-backend/pkg/config"
)

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	AccessSessionKey(accessID string) string
	UserSessionsKey(userID string) string
}

// AccessSessionChecker is what the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager requires the refresh TTL to outlive the access token.
func NewManager(store Store, cfg config.JWTConfig) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store required")
	}
	refresh := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if refresh <= 0 || refresh <= access {
		return nil, fmt.Errorf("refresh ttl %s must be positive and longer than access ttl %s", refresh, access)
	}
	return &Manager{store: store, ttl: refresh}, nil
}

// NewAccessID returns a fresh jti.
func NewAccessID() string { return uuid.NewString() }

// Generate opens a session under accessID and returns the plaintext refresh
// token. Only its hash is stored.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	if userID == uuid.Nil || strings.TrimSpace(accessID) == "" {
		return "", errors.New("session needs a user id and access id")
	}
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw[:])

	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), record(userID, token), m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	if err := m.store.SAdd(ctx, m.store.UserSessionsKey(userID.String()), m.ttl, accessID); err != nil {
		return "", fmt.Errorf("index session: %w", err)
	}
	return token, nil
}

// Rotate consumes the session under oldAccessID if refreshToken matches and
// opens a new one. The old record is removed with compare-and-delete, so two
// concurrent rotations of the same token cannot both succeed.
func (m *Manager) Rotate(ctx context.Context, userID uuid.UUID, oldAccessID, refreshToken string) (string, string, error) {
	if userID == uuid.Nil || strings.TrimSpace(oldAccessID) == "" || refreshToken == "" {
		return "", "", ErrInvalidRefreshToken
	}
	key := m.store.AccessSessionKey(oldAccessID)
	stored, err := m.store.Get(ctx, key)
	switch {
	case errors.Is(err, goredis.Nil):
		return "", "", ErrInvalidRefreshToken
	case err != nil:
		return "", "", err
	}
	want := record(userID, refreshToken)
	if subtle.ConstantTimeCompare([]byte(stored), []byte(want)) != 1 {
		return "", "", ErrInvalidRefreshToken
	}

	consumed, err := m.store.CompareAndDelete(ctx, key, stored)
	if err != nil {
		return "", "", err
	}
	if !consumed {
		return "", "", ErrInvalidRefreshToken
	}
	if err := m.store.SRem(ctx, m.store.UserSessionsKey(userID.String()), oldAccessID); err != nil {
		return "", "", err
	}

	accessID := NewAccessID()
	token, err := m.Generate(ctx, userID, accessID)
	if err != nil {
		return "", "", err
	}
	return accessID, token, nil
}

// Revoke ends one session. A nil userID skips the index cleanup.
func (m *Manager) Revoke(ctx context.Context, userID uuid.UUID, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errors.New("access id required")
	}
	if err := m.store.Del(ctx, m.store.AccessSessionKey(accessID)); err != nil {
		return err
	}
	if userID == uuid.Nil {
		return nil
	}
	return m.store.SRem(ctx, m.store.UserSessionsKey(userID.String()), accessID)
}

// RevokeUser ends every session indexed for the user.
func (m *Manager) RevokeUser(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return errors.New("user id required")
	}
	index := m.store.UserSessionsKey(userID.String())
	ids, err := m.store.SMembers(ctx, index)
	if err != nil {
		return err
	}
	keys := []string{index}
	for _, id := range ids {
		keys = append(keys, m.store.AccessSessionKey(id))
	}
	return m.store.Del(ctx, keys...)
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, nil
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, goredis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// record binds the token hash to its owner.
func record(userID uuid.UUID, token string) string {
	sum := sha256.Sum256([]byte(token))
	return userID.String() + "." + hex.EncodeToString(sum[:])
}

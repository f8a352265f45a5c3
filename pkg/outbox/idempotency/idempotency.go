// Package idempotency lets Pub/Sub consumers process each outbox event once.
// A consumer claims an event id before doing work and releases the claim if
// the work fails, so the redelivery can try again.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"
)

type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

type Guard struct {
	store Store
	ttl   time.Duration
}

// NewGuard keeps claims for ttl; zero keeps them forever.
func NewGuard(store Store, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store required")
	}
	if ttl < 0 {
		return nil, errors.New("idempotency ttl must not be negative")
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// Claim reports true when this call is the first to see eventID for consumer.
func (g *Guard) Claim(ctx context.Context, consumer, eventID string) (bool, error) {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	return g.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl)
}

func (g *Guard) Release(ctx context.Context, consumer, eventID string) error {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *Guard) key(consumer, eventID string) (string, error) {
	consumer, eventID = strings.TrimSpace(consumer), strings.TrimSpace(eventID)
	if consumer == "" || eventID == "" {
		return "", errors.New("idempotency claim needs consumer and event id")
	}
	return g.store.IdempotencyKey("consumer:"+consumer, eventID), nil
}

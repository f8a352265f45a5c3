package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

type stubPinger struct {
	err   error
	calls int
}

func (s *stubPinger) Ping(ctx context.Context) error {
	s.calls++
	return s.err
}

type stubConsumer struct {
	err   error
	block bool
}

func (s stubConsumer) Run(ctx context.Context) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

func newTestService(t *testing.T, db *stubPinger, consumers map[string]consumer) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:    logger.New(logger.Options{ServiceName: "worker-test", Output: &bytes.Buffer{}}),
		DB:        db,
		Redis:     &stubPinger{},
		PubSub:    &stubPinger{},
		Consumers: consumers,
	})
	require.NoError(t, err)
	return svc
}

func TestRunStopsWhenDependencyDown(t *testing.T) {
	db := &stubPinger{err: errors.New("connection refused")}
	svc := newTestService(t, db, map[string]consumer{"c": stubConsumer{block: true}})

	err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database ping failed")
}

func TestRunReturnsConsumerFailure(t *testing.T) {
	svc := newTestService(t, &stubPinger{}, map[string]consumer{
		"low-stock": stubConsumer{err: errors.New("subscription deleted")},
		"idle":      stubConsumer{block: true},
	})

	err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "low-stock: subscription deleted")
}

func TestRunHonorsCancellation(t *testing.T) {
	svc := newTestService(t, &stubPinger{}, map[string]consumer{"idle": stubConsumer{block: true}})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewServiceRequiresConsumers(t *testing.T) {
	_, err := NewService(ServiceParams{
		Logger: logger.New(logger.Options{ServiceName: "worker-test", Output: &bytes.Buffer{}}),
		DB:     &stubPinger{},
		Redis:  &stubPinger{},
		PubSub: &stubPinger{},
	})
	require.Error(t, err)
}

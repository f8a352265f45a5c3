package cron

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

type fakeLock struct {
	held     bool
	acquires int
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquires++
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.releases++
	f.held = false
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

type recordingJobMetrics struct {
	durations map[string]int
	successes map[string]int
	failures  map[string]int
}

func newRecordingJobMetrics() *recordingJobMetrics {
	return &recordingJobMetrics{durations: map[string]int{}, successes: map[string]int{}, failures: map[string]int{}}
}

func (r *recordingJobMetrics) ObserveDuration(job string, _ time.Duration) { r.durations[job]++ }
func (r *recordingJobMetrics) IncSuccess(job string)                       { r.successes[job]++ }
func (r *recordingJobMetrics) IncFailure(job string)                       { r.failures[job]++ }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: &bytes.Buffer{}})
}

func TestRunOnceRunsAllJobsAndAggregatesFailures(t *testing.T) {
	ok := &testJob{name: "ok"}
	failA := &testJob{name: "fail-a", err: errors.New("boom")}
	failB := &testJob{name: "fail-b", err: errors.New("bang")}
	registry := NewRegistry()
	for _, job := range []Job{failA, ok, failB} {
		require.NoError(t, registry.Register(job))
	}
	lock := &fakeLock{}
	jobMetrics := newRecordingJobMetrics()

	service, err := NewService(ServiceParams{Logger: testLogger(), Registry: registry, Lock: lock, Metrics: jobMetrics})
	require.NoError(t, err)

	err = service.RunOnce(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Contains(t, err.Error(), "fail-a: boom")
	assert.Contains(t, err.Error(), "fail-b: bang")

	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failA.runs)
	assert.Equal(t, 1, failB.runs)
	assert.Equal(t, 1, jobMetrics.successes["ok"])
	assert.Equal(t, 1, jobMetrics.failures["fail-a"])
	assert.Equal(t, 3, len(jobMetrics.durations))
	assert.Equal(t, 1, lock.releases)
	assert.False(t, lock.held)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "ok"}
	registry := NewRegistry()
	require.NoError(t, registry.Register(job))
	lock := &fakeLock{held: true}

	service, err := NewService(ServiceParams{Logger: testLogger(), Registry: registry, Lock: lock})
	require.NoError(t, err)

	require.NoError(t, service.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
	assert.Zero(t, lock.releases)
}

// cancelingJob cancels the cycle's context from inside its run.
type cancelingJob struct {
	cancel context.CancelFunc
	runs   int
}

func (c *cancelingJob) Name() string { return "cancels" }

func (c *cancelingJob) Run(context.Context) error {
	c.runs++
	c.cancel()
	return nil
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := &cancelingJob{cancel: cancel}
	second := &testJob{name: "after"}
	registry := NewRegistry()
	require.NoError(t, registry.Register(first))
	require.NoError(t, registry.Register(second))
	lock := &fakeLock{}

	service, err := NewService(ServiceParams{Logger: testLogger(), Registry: registry, Lock: lock, Interval: time.Hour})
	require.NoError(t, err)

	err = service.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, first.runs)
	assert.Zero(t, second.runs)
	assert.Equal(t, 1, lock.releases)
	assert.False(t, lock.held)
}

func TestRunOnceWithCanceledContextRunsNothing(t *testing.T) {
	job := &testJob{name: "ok"}
	registry := NewRegistry()
	require.NoError(t, registry.Register(job))
	lock := &fakeLock{}

	service, err := NewService(ServiceParams{Logger: testLogger(), Registry: registry, Lock: lock, Interval: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, service.RunOnce(ctx), context.Canceled)
	assert.ErrorIs(t, service.Run(ctx), context.Canceled)
	assert.Zero(t, job.runs)
	assert.Zero(t, lock.acquires)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &fakeLock{}})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Logger: testLogger()})
	require.Error(t, err)
}

type panickingJob struct{}

func (panickingJob) Name() string              { return "explodes" }
func (panickingJob) Run(context.Context) error { panic("nil map") }

type slowJob struct{}

func (slowJob) Name() string { return "slow" }
func (slowJob) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRunOnceContainsPanicsAndTimeouts(t *testing.T) {
	after := &testJob{name: "after"}
	registry := NewRegistry()
	for _, job := range []Job{panickingJob{}, slowJob{}, after} {
		require.NoError(t, registry.Register(job))
	}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{Logger: testLogger(), Registry: registry, Lock: lock, JobTimeout: 20 * time.Millisecond})
	require.NoError(t, err)

	err = service.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "explodes: panic: nil map")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, after.runs)
	assert.False(t, lock.held)
}

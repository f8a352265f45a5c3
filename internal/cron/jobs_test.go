package cron

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplydesk-backend/internal/notifications"
	"github.com/angelmondragon/supplydesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox"
)

func TestNotificationCleanupJobDeletesExpired(t *testing.T) {
	client := dbtest.Client(t)
	repo := notifications.NewRepository(client.DB())
	ctx := context.Background()
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	insert := func(age time.Duration, read bool) {
		n := &models.Notification{UserID: userID, Type: enums.NotificationLowStock, MessageKey: "k", Title: "t", Message: "m", Count: 1, CreatedAt: now.Add(-age)}
		if read {
			readAt := now.Add(-age)
			n.ReadAt = &readAt
		}
		require.NoError(t, repo.Create(ctx, n))
	}
	insert(31*24*time.Hour, true)
	insert(91*24*time.Hour, false)
	insert(31*24*time.Hour, false)
	insert(24*time.Hour, true)

	job, err := NewNotificationCleanupJob(NotificationCleanupParams{
		Logger:     testLogger(),
		DB:         client,
		Repository: repo,
		ReadMaxAge: 30 * 24 * time.Hour,
		MaxAge:     90 * 24 * time.Hour,
	})
	require.NoError(t, err)
	job.(*notificationCleanupJob).now = func() time.Time { return now }

	require.NoError(t, job.Run(ctx))

	var remaining int64
	require.NoError(t, client.DB().Model(&models.Notification{}).Count(&remaining).Error)
	assert.EqualValues(t, 2, remaining)
	assert.Equal(t, "notification-cleanup", job.Name())
}

func TestOutboxRetentionJobKeepsUnpublished(t *testing.T) {
	client := dbtest.Client(t)
	repo := outbox.NewRepository(client.DB())
	ctx := context.Background()
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

	insert := func(publishedAgo *time.Duration) {
		event := &models.OutboxEvent{
			EventType:     enums.EventRequestSubmitted,
			AggregateType: enums.AggregateSupplyRequest,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
		}
		if publishedAgo != nil {
			at := now.Add(-*publishedAgo)
			event.PublishedAt = &at
		}
		require.NoError(t, client.DB().Create(event).Error)
	}
	old, recent := 10*24*time.Hour, time.Hour
	insert(&old)
	insert(&recent)
	insert(nil)

	job, err := NewOutboxRetentionJob(OutboxRetentionParams{
		Logger:     testLogger(),
		DB:         client,
		Repository: repo,
		Retention:  7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	job.(*outboxRetentionJob).now = func() time.Time { return now }

	require.NoError(t, job.Run(ctx))

	var remaining int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&remaining).Error)
	assert.EqualValues(t, 2, remaining)
}

func TestJobsRequireDependencies(t *testing.T) {
	_, err := NewNotificationCleanupJob(NotificationCleanupParams{Logger: testLogger()})
	require.Error(t, err)
	_, err = NewOutboxRetentionJob(OutboxRetentionParams{Logger: testLogger(), DB: dbtest.Client(t), Repository: outbox.NewRepository(nil)})
	require.Error(t, err)
}

package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notificationPurger interface {
	DeleteExpiredTx(ctx context.Context, tx *gorm.DB, readBefore, createdBefore time.Time) (int64, error)
}

type outboxPurger interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NotificationCleanupParams configure the notification cleanup job.
type NotificationCleanupParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository notificationPurger
	// ReadMaxAge removes read notifications older than this.
	ReadMaxAge time.Duration
	// MaxAge removes every notification older than this.
	MaxAge time.Duration
}

type notificationCleanupJob struct {
	logg       *logger.Logger
	db         txRunner
	repo       notificationPurger
	readMaxAge time.Duration
	maxAge     time.Duration
	now        func() time.Time
}

func NewNotificationCleanupJob(params NotificationCleanupParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.ReadMaxAge <= 0 || params.MaxAge <= 0 {
		return nil, fmt.Errorf("notification retention ages must be positive")
	}
	return &notificationCleanupJob{
		logg:       params.Logger,
		db:         params.DB,
		repo:       params.Repository,
		readMaxAge: params.ReadMaxAge,
		maxAge:     params.MaxAge,
		now:        time.Now,
	}, nil
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	readBefore, createdBefore := now.Add(-j.readMaxAge), now.Add(-j.maxAge)

	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		deleted, err = j.repo.DeleteExpiredTx(ctx, tx, readBefore, createdBefore)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete expired notifications: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"read_before":    readBefore,
		"created_before": createdBefore,
		"rows_deleted":   deleted,
	}), "notification cleanup complete")
	return nil
}

// OutboxRetentionParams configure the outbox retention job.
type OutboxRetentionParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxPurger
	Retention  time.Duration
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      outboxPurger
	retention time.Duration
	now       func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if params.Retention <= 0 {
		return nil, fmt.Errorf("outbox retention must be positive")
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		retention: params.Retention,
		now:       time.Now,
	}, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		deleted, err = j.repo.DeletePublishedBefore(tx, cutoff)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete published outbox events: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "outbox retention complete")
	return nil
}

// Package relay drains the transactional outbox into Pub/Sub.
//
// Each batch claims rows inside one transaction, publishes them in order and
// records the outcome on the row before committing. Rows that can never be
// delivered, or that exhaust their attempts, are copied to the DLQ table.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
	"github.com/angelmondragon/supplydesk-backend/pkg/metrics"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox/registry"
)

type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Store interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type DeadLetters interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type Resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// Sender publishes one message and waits for the broker ack.
type Sender interface {
	Send(ctx context.Context, topic string, msg *gcppubsub.Message) (string, error)
}

type Options struct {
	BatchSize      int
	MaxAttempts    int
	PollInterval   time.Duration
	MaxBackoff     time.Duration
	PublishTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.MaxBackoff < o.PollInterval {
		o.MaxBackoff = 10 * time.Second
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 15 * time.Second
	}
	return o
}

type Deps struct {
	Tx          TxRunner
	Store       Store
	DeadLetters DeadLetters
	Resolver    Resolver
	Sender      Sender
	Metrics     *metrics.OutboxMetrics
	Logger      *logger.Logger
}

type Relay struct {
	Deps
	opts Options
	now  func() time.Time
}

func New(deps Deps, opts Options) (*Relay, error) {
	switch {
	case deps.Tx == nil:
		return nil, errors.New("relay: transaction runner required")
	case deps.Store == nil:
		return nil, errors.New("relay: outbox store required")
	case deps.DeadLetters == nil:
		return nil, errors.New("relay: dlq store required")
	case deps.Resolver == nil:
		return nil, errors.New("relay: event resolver required")
	case deps.Sender == nil:
		return nil, errors.New("relay: sender required")
	case deps.Logger == nil:
		return nil, errors.New("relay: logger required")
	}
	return &Relay{Deps: deps, opts: opts.withDefaults(), now: time.Now}, nil
}

// Run polls until ctx is canceled. Batch errors back off exponentially with
// jitter; an empty batch waits one poll interval.
func (r *Relay) Run(ctx context.Context) error {
	backoff := r.newBackoff()
	for {
		claimed, err := r.Drain(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.Logger.Error(ctx, "outbox batch failed", err)
			wait, _ = backoff.Next()
		case claimed > 0:
			backoff = r.newBackoff()
			continue
		default:
			backoff = r.newBackoff()
			wait = r.opts.PollInterval
		}

		select {
		case <-ctx.Done():
			r.Logger.Info(ctx, "outbox relay stopping")
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (r *Relay) newBackoff() retry.Backoff {
	b := retry.NewExponential(r.opts.PollInterval)
	b = retry.WithCappedDuration(r.opts.MaxBackoff, b)
	return retry.WithJitter(r.opts.PollInterval/2, b)
}

// Drain handles one batch and reports how many rows it claimed.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	var claimed int
	err := r.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.Store.FetchUnpublishedForPublish(tx, r.opts.BatchSize, r.opts.MaxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		claimed = len(rows)
		r.Metrics.SetBatchSize(claimed)
		for i := range rows {
			if err := r.handle(ctx, tx, rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

type outcome string

const (
	outcomePublished    outcome = "published"
	outcomeRetry        outcome = "retry"
	outcomeDeadLettered outcome = "dead_lettered"
)

// handle only returns an error when the row's bookkeeping fails; delivery
// failures are recorded on the row itself.
func (r *Relay) handle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	logCtx := r.Logger.WithFields(ctx, map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
	})

	result, cause := r.deliver(logCtx, row)
	r.Metrics.ObserveEvent(string(row.EventType), string(result))

	switch result {
	case outcomePublished:
		if err := r.Store.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", row.ID, err)
		}
		r.Logger.Info(logCtx, "outbox event published")
	case outcomeRetry:
		r.Logger.Warn(r.Logger.WithField(logCtx, "error", cause.Error()), "outbox publish failed, will retry")
		if err := r.Store.MarkFailedTx(tx, row.ID, cause); err != nil {
			return fmt.Errorf("mark %s failed: %w", row.ID, err)
		}
	case outcomeDeadLettered:
		reason := enums.OutboxDLQReasonNonRetryable
		var permanent registry.NonRetryableError
		if !errors.As(cause, &permanent) {
			reason = enums.OutboxDLQReasonMaxAttempts
		}
		r.Logger.Warn(r.Logger.WithFields(logCtx, map[string]any{"error": cause.Error(), "dlq_reason": string(reason)}), "outbox event dead-lettered")
		if err := r.deadLetter(tx, row, reason, cause); err != nil {
			return err
		}
	}
	return nil
}

func (r *Relay) deliver(ctx context.Context, row models.OutboxEvent) (outcome, error) {
	resolved, err := r.Resolver.Resolve(row)
	if err != nil {
		return outcomeDeadLettered, registry.NewNonRetryableError(err)
	}

	msg := &gcppubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.opts.PublishTimeout)
	defer cancel()
	if _, err := r.Sender.Send(sendCtx, resolved.Descriptor.Topic, msg); err != nil {
		var permanent registry.NonRetryableError
		if errors.As(err, &permanent) {
			return outcomeDeadLettered, err
		}
		if row.AttemptCount+1 >= r.opts.MaxAttempts {
			return outcomeDeadLettered, fmt.Errorf("gave up after %d attempts: %w", row.AttemptCount+1, err)
		}
		return outcomeRetry, err
	}
	return outcomePublished, nil
}

func (r *Relay) deadLetter(tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	message := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &message,
		AttemptCount:  row.AttemptCount,
		FailedAt:      r.now().UTC(),
	}
	if err := r.DeadLetters.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("dead-letter %s: %w", row.ID, err)
	}
	if err := r.Store.MarkTerminalTx(tx, row.ID, cause, r.opts.MaxAttempts); err != nil {
		return fmt.Errorf("mark %s terminal: %w", row.ID, err)
	}
	return nil
}

package outbox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox/payloads"
)

func emit(t *testing.T, conn *gorm.DB, svc *Service, requestID uuid.UUID) {
	t.Helper()
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventRequestSubmitted,
			AggregateType: enums.AggregateSupplyRequest,
			AggregateID:   requestID,
			Data:          payloads.RequestSubmittedEvent{RequestIDs: []uuid.UUID{requestID}},
		})
	}))
}

func TestRepositoryLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)

	first, second := uuid.New(), uuid.New()
	emit(t, conn, svc, first)
	emit(t, conn, svc, second)

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	byAggregate := map[uuid.UUID]uuid.UUID{}
	for _, row := range rows {
		byAggregate[row.AggregateID] = row.ID
	}

	require.NoError(t, repo.MarkPublishedTx(conn, byAggregate[first]))
	require.NoError(t, repo.MarkFailedTx(conn, byAggregate[second], errors.New("broker unavailable")))

	pending, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].AttemptCount)
	require.NotNil(t, pending[0].LastError)
	assert.Equal(t, "broker unavailable", *pending[0].LastError)

	require.NoError(t, repo.MarkTerminalTx(conn, pending[0].ID, errors.New("gave up"), 3))
	pending, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, pending)

	deleted, err := repo.DeletePublishedBefore(nil, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}

func TestDLQInsertClipsError(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := NewDLQRepository(conn)

	long := strings.Repeat("é", maxDLQErrorLen)
	entry := models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventRequestSubmitted,
		AggregateType: enums.AggregateSupplyRequest,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &long,
		FailedAt:      time.Now().UTC(),
	}
	require.Error(t, dlq.InsertTx(nil, entry))
	require.NoError(t, dlq.InsertTx(conn, entry))

	var stored models.OutboxDLQ
	require.NoError(t, conn.First(&stored, "event_id = ?", entry.EventID).Error)
	require.NotNil(t, stored.ErrorMessage)
	assert.LessOrEqual(t, len(*stored.ErrorMessage), maxDLQErrorLen)
	assert.True(t, strings.HasSuffix(*stored.ErrorMessage, "é"))
}

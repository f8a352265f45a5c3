package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox"
	paginationpkg "github.com/angelmondragon/supplydesk-backend/pkg/pagination"
)

type fakeRepository struct {
	queries []listQuery
	page    []models.Notification
	next    *paginationpkg.Cursor
	exists  bool
	markAt  time.Time
	marked  int64
	err     error
}

func (f *fakeRepository) WithTx(*gorm.DB) Repository { return f }

func (f *fakeRepository) Create(context.Context, *models.Notification) error { return f.err }

func (f *fakeRepository) List(_ context.Context, q listQuery) ([]models.Notification, *paginationpkg.Cursor, error) {
	f.queries = append(f.queries, q)
	return f.page, f.next, f.err
}

func (f *fakeRepository) UnreadCount(context.Context, uuid.UUID) (int64, error) { return 0, f.err }

func (f *fakeRepository) MarkRead(_ context.Context, _, _ uuid.UUID, at time.Time) (bool, error) {
	f.markAt = at
	return f.exists, f.err
}

func (f *fakeRepository) MarkAllRead(_ context.Context, _ uuid.UUID, at time.Time) (int64, error) {
	f.markAt = at
	return f.marked, f.err
}

func (f *fakeRepository) DeleteExpiredTx(context.Context, *gorm.DB, time.Time, time.Time) (int64, error) {
	return 0, f.err
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubEmitter struct {
	events []outbox.DomainEvent
}

func (s *stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type staticAdmins struct {
	ids []uuid.UUID
	err error
}

func (s staticAdmins) ListActiveAdminIDs(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error) {
	return s.ids, s.err
}

var frozen = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newServiceWithRepo(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, &stubEmitter{}, staticAdmins{})
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return frozen }
	return svc
}

func TestService_ListPassesCursorAndEncodesNext(t *testing.T) {
	last := models.Notification{ID: uuid.New(), CreatedAt: frozen.Add(-time.Hour)}
	after := paginationpkg.Cursor{CreatedAt: frozen.Add(-2 * time.Hour), ID: uuid.New()}
	repo := &fakeRepository{
		page: []models.Notification{last},
		next: &paginationpkg.Cursor{CreatedAt: last.CreatedAt, ID: last.ID},
	}
	svc := newServiceWithRepo(t, repo)

	result, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Limit: 1, UnreadOnly: true, Cursor: paginationpkg.EncodeCursor(after)})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	require.Len(t, repo.queries, 1)
	q := repo.queries[0]
	assert.Equal(t, 1, q.Limit)
	assert.True(t, q.UnreadOnly)
	require.NotNil(t, q.After)
	assert.Equal(t, after.ID, q.After.ID)

	next, err := paginationpkg.ParseCursor(result.Cursor)
	require.NoError(t, err)
	assert.Equal(t, last.ID, next.ID)
}

func TestService_ListValidation(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{})

	_, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Cursor: "bad"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.List(context.Background(), ListParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestService_MarkRead(t *testing.T) {
	repo := &fakeRepository{exists: true}
	svc := newServiceWithRepo(t, repo)
	require.NoError(t, svc.MarkRead(context.Background(), uuid.New(), uuid.New()))
	assert.Equal(t, frozen, repo.markAt)

	repo.exists = false
	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	err = svc.MarkRead(context.Background(), uuid.New(), uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestService_MarkAllRead(t *testing.T) {
	repo := &fakeRepository{marked: 3}
	svc := newServiceWithRepo(t, repo)
	count, err := svc.MarkAllRead(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	repo.err = errors.New("boom")
	_, err = svc.MarkAllRead(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestService_NotifyTxRequiresTransaction(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{})
	_, err := svc.NotifyTx(context.Background(), nil, Draft{UserID: uuid.New(), Type: enums.NotificationLowStock})
	require.Error(t, err)
}

func TestService_NotifyAdminsPersistsAndQueuesPush(t *testing.T) {
	client := dbtest.Client(t)
	admins := []uuid.UUID{uuid.New(), uuid.New()}
	svc, err := NewService(NewRepository(client.DB()), client, outbox.NewService(outbox.NewRepository(client.DB()), nil), staticAdmins{ids: admins})
	require.NoError(t, err)
	ctx := context.Background()

	itemID := uuid.New()
	sent, err := svc.NotifyAdmins(ctx, Draft{
		Type:   enums.NotificationLowStock,
		ItemID: &itemID,
		Params: map[string]string{ParamItem: "Toner", ParamAvailable: "1", ParamMinimum: "2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	for _, adminID := range admins {
		count, err := svc.UnreadCount(ctx, adminID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	}

	var pushes int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventNotificationCreated).Count(&pushes).Error)
	assert.EqualValues(t, 2, pushes)

	list, err := svc.List(ctx, ListParams{UserID: admins[0], UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Toner is running low: 1 left (minimum 2).", list.Items[0].Message)
	assert.Equal(t, &itemID, list.Items[0].ItemID)

	require.NoError(t, svc.MarkRead(ctx, admins[0], list.Items[0].ID))
	count, err := svc.UnreadCount(ctx, admins[0])
	require.NoError(t, err)
	assert.Zero(t, count)

	err = svc.MarkRead(ctx, admins[1], list.Items[0].ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRepository_DeleteExpired(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()
	userID := uuid.New()

	insert := func(age time.Duration, read bool) {
		n := &models.Notification{UserID: userID, Type: enums.NotificationLowStock, MessageKey: "k", Title: "t", Message: "m", Count: 1, CreatedAt: now.Add(-age)}
		if read {
			readAt := now.Add(-age)
			n.ReadAt = &readAt
		}
		require.NoError(t, repo.Create(ctx, n))
	}
	insert(40*24*time.Hour, true)
	insert(40*24*time.Hour, false)
	insert(100*24*time.Hour, false)
	insert(time.Hour, true)

	deleted, err := repo.DeleteExpiredTx(ctx, nil, now.Add(-30*24*time.Hour), now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	var remaining int64
	require.NoError(t, conn.Model(&models.Notification{}).Count(&remaining).Error)
	assert.EqualValues(t, 2, remaining)
}

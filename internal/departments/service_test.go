package departments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
)

func TestDepartments(t *testing.T) {
	svc, err := NewService(dbtest.Open(t))
	require.NoError(t, err)
	ctx := context.Background()

	finance, err := svc.Create(ctx, CreateInput{Name: " Finance "})
	require.NoError(t, err)
	assert.Equal(t, "Finance", finance.Name)
	_, err = svc.Create(ctx, CreateInput{Name: "Audit"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Name: "Finance"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Audit", list[0].Name)

	require.NoError(t, svc.Delete(ctx, finance.ID))
	err = svc.Delete(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestNewServiceRequiresDatabase(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}

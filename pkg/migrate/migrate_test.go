package migrate

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplydesk-backend/pkg/config"
	"github.com/angelmondragon/supplydesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

func TestShippedMigrationsAreValid(t *testing.T) {
	require.NoError(t, Validate(Embedded()))
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()

	path, err := CreateSQLMigration(dir, "Add Usage Index!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_usage_index.sql"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "-- +goose Up")
	assert.Contains(t, string(data), "-- +goose Down")
	require.NoError(t, Validate(os.DirFS(dir)))
}

func TestCreateSQLMigrationRejectsEmptyName(t *testing.T) {
	_, err := CreateSQLMigration(t.TempDir(), "!!!")
	require.Error(t, err)
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "create_things.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	require.Error(t, Validate(os.DirFS(dir)))
}

func TestValidateDirRequiresDownSection(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_things.sql"), []byte("-- +goose Up\nSELECT 1;\n"), 0o644))

	require.Error(t, Validate(os.DirFS(dir)))
}

func TestValidateReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_a.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_b.sql"), []byte("-- +goose Up\n"), 0o644))

	err := Validate(os.DirFS(dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version already used")
	assert.Contains(t, err.Error(), "missing \"-- +goose Down\"")
}

func TestEmbeddedMigrationsListed(t *testing.T) {
	entries, err := fs.ReadDir(Embedded(), ".")
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestNewRunnerRequiresDB(t *testing.T) {
	_, err := NewRunner(nil, Embedded(), nil)
	require.Error(t, err)
}

func TestMaybeRunDevSkipsSQLite(t *testing.T) {
	cfg := &config.Config{
		App:          config.AppConfig{Env: config.AppEnvDev},
		FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true, UseSQLite: true},
	}
	logg := logger.New(logger.Options{ServiceName: "migrate-test", Output: os.Stderr})

	require.NoError(t, MaybeRunDev(context.Background(), cfg, logg, dbtest.Client(t)))
}

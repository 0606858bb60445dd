package migrate

import (
	"bytes"
	"context"
	"testing"
	"testing/fstest"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var sqliteMigrations = fstest.MapFS{
	"20260101000000_notes.sql": {Data: []byte("-- +goose Up\nCREATE TABLE notes (id INTEGER PRIMARY KEY);\n-- +goose Down\nDROP TABLE notes;\n")},
	"20260101000100_tags.sql":  {Data: []byte("-- +goose Up\nCREATE TABLE tags (id INTEGER PRIMARY KEY);\n-- +goose Down\nDROP TABLE tags;\n")},
}

func TestRunnerMovesBetweenVersions(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:runner?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	runner, err := newRunner(goose.DialectSQLite3, sqlDB, sqliteMigrations)
	require.NoError(t, err)
	ctx := context.Background()

	applied, err := runner.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	require.NoError(t, runner.To(ctx, 20260101000000))
	version, err := runner.Version(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 20260101000000, version)

	var out bytes.Buffer
	require.NoError(t, runner.Status(ctx, &out))
	assert.Contains(t, out.String(), "applied")
	assert.Contains(t, out.String(), "pending")

	require.NoError(t, runner.Down(ctx))
	version, err = runner.Version(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, version)
}

func TestNewRunnerRequiresDB(t *testing.T) {
	_, err := NewRunner(nil, sqliteMigrations)
	assert.Error(t, err)
}

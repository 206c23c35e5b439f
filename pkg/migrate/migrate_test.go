package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShippedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func writeMigration(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestValidateDirRejectsBadFilenames(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "001_short_version.sql", "-- +goose Up\n-- +goose Down\n")

	err := ValidateDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid migration filename")
}

func TestValidateDirRejectsDuplicateVersions(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20260815120000_first.sql", "-- +goose Up\n-- +goose Down\n")
	writeMigration(t, dir, "20260815120000_second.sql", "-- +goose Up\n-- +goose Down\n")

	err := ValidateDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate migration version")
}

func TestValidateDirRequiresGooseMarkers(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20260815120000_no_down.sql", "-- +goose Up\nCREATE TABLE x (id INT);\n")

	err := ValidateDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "+goose Down")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()

	path, err := CreateSQLMigration(dir, "Add Shelf Locations!")
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "_add_shelf_locations.sql")

	// The generated file passes its own validation.
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "")
	require.Error(t, err)
}

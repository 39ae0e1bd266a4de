package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add batches index", "add_batches_index"},
		{"Add-Batches-Index", "add_batches_index"},
		{"ADD__BATCHES__INDEX", "add_batches_index"},
		{"payout 2 reference", "payout_2_reference"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "init schema", "Batch ledger tables")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, "000001_init_schema.up.sql", filepath.Base(first.UpPath))
	assert.Equal(t, "000001_init_schema.down.sql", filepath.Base(first.DownPath))

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "init_schema")
	assert.Contains(t, string(up), "Batch ledger tables")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")

	second, err := CreateMigration(dir, "Add audit index", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)

	t.Run("empty name is rejected", func(t *testing.T) {
		_, err := CreateMigration(dir, "!!!", "")
		assert.Error(t, err)
	})
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000002_b.up.sql", "000002_b.down.sql",
		"000001_a.up.sql", "000001_a.down.sql",
		"000010_c.up.sql",
		"README.md",
		"draft.up.sql",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	files, err := ListMigrations(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, uint(1), files[0].Version)
	assert.Equal(t, "a", files[0].Name)
	assert.Equal(t, uint(10), files[2].Version)

	pending := Pending(files, 2)
	require.Len(t, pending, 1)
	assert.Equal(t, "000010_c", pending[0].BaseName())

	t.Run("missing directory", func(t *testing.T) {
		files, err := ListMigrations(filepath.Join(dir, "nope"))
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

func TestRepositoryMigrations(t *testing.T) {
	files, err := ListMigrations(filepath.Join("..", "..", "..", DefaultDir))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "init_schema", files[0].Name)
	for _, f := range files {
		_, err := os.Stat(f.DownPath)
		assert.NoError(t, err, "%s has no down migration", f.BaseName())
	}
}

func TestResolveDir(t *testing.T) {
	dir := t.TempDir()
	abs, err := ResolveDir(dir)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))

	_, err = ResolveDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

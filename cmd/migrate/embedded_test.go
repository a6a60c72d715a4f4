package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userdir/db"
)

// diskMigrations is db/migrations as seen from this package directory.
var diskMigrations = filepath.Join("..", "..", "db", db.MigrationsDir)

func versions(t *testing.T, base fs.FS, dir string) []int64 {
	t.Helper()
	goose.SetBaseFS(base)
	t.Cleanup(func() { goose.SetBaseFS(nil) })

	migrations, err := goose.CollectMigrations(dir, 0, goose.MaxVersion)
	require.NoError(t, err)

	out := make([]int64, 0, len(migrations))
	for _, m := range migrations {
		out = append(out, m.Version)
	}
	return out
}

func TestEmbeddedMigrations_MatchDisk(t *testing.T) {
	onDisk := versions(t, nil, diskMigrations)
	embedded := versions(t, db.Migrations, db.MigrationsDir)

	require.NotEmpty(t, onDisk)
	assert.Equal(t, onDisk, embedded, "binary would apply a different migration set than db/migrations")
}

func TestEmbeddedMigrations_SameContentAsDisk(t *testing.T) {
	entries, err := os.ReadDir(diskMigrations)
	require.NoError(t, err)

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		t.Run(e.Name(), func(t *testing.T) {
			disk, err := os.ReadFile(filepath.Join(diskMigrations, e.Name()))
			require.NoError(t, err)
			embedded, err := fs.ReadFile(db.Migrations, db.MigrationsDir+"/"+e.Name())
			require.NoError(t, err)

			assert.Equal(t, string(disk), string(embedded))
			assert.True(t, strings.Contains(string(disk), "-- +goose Up"), "missing Up section")
			assert.True(t, strings.Contains(string(disk), "-- +goose Down"), "missing Down section")
		})
	}
}

func TestUseEmbedded_PathIsAFile(t *testing.T) {
	_ = os.Unsetenv("MIGRATIONS_DIR")

	file := filepath.Join(t.TempDir(), "migrations")
	require.NoError(t, os.WriteFile(file, []byte("not a directory"), 0o644))

	assert.True(t, useEmbedded(file))
}

package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles(t *testing.T) {
	files, err := MigrationFiles()
	require.NoError(t, err)

	names, err := fs.Glob(files, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "00001_init.sql", names[0])

	for _, name := range names {
		data, err := fs.ReadFile(files, name)
		require.NoError(t, err)
		sql := string(data)
		assert.True(t, strings.HasPrefix(sql, "-- +goose Up"), name)
		assert.Contains(t, sql, "-- +goose Down", name)
	}
}

func TestInitMigrationConstraints(t *testing.T) {
	files, err := MigrationFiles()
	require.NoError(t, err)
	data, err := fs.ReadFile(files, "00001_init.sql")
	require.NoError(t, err)
	sql := string(data)

	// Repositories map these constraints to their sentinel errors.
	for _, want := range []string{
		"idx_sets_one_in_progress",
		"sets_match_number_unique",
		"standings_team_season_unique",
		"matches_distinct_teams_check",
		"version          INTEGER NOT NULL DEFAULT 0",
	} {
		assert.Contains(t, sql, want)
	}
}

package base_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MobRulesGames/mapasset/base"
	"github.com/MobRulesGames/mapasset/logging/logtesting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
}

func TestWalkDataFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "assets.json"))
	touch(t, filepath.Join(dir, "maps", "town.json"))
	touch(t, filepath.Join(dir, "maps", "town.lua"))
	touch(t, filepath.Join(dir, ".cache", "stale.json"))
	touch(t, filepath.Join(dir, "maps", ".draft.json"))

	t.Run("visits matching files and skips dot entries", func(t *testing.T) {
		var seen []string
		err := base.WalkDataFiles(dir, ".json", func(path string) error {
			rel, err := filepath.Rel(dir, path)
			require.NoError(t, err)
			seen = append(seen, filepath.ToSlash(rel))
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"assets.json", "maps/town.json"}, seen)
	})

	t.Run("keeps going past failures and reports all of them", func(t *testing.T) {
		visited := 0
		var err error
		logtesting.CollectOutput(func() {
			err = base.WalkDataFiles(dir, ".json", func(path string) error {
				visited++
				return errors.New("nope: " + filepath.Base(path))
			})
		})
		assert.Equal(t, 2, visited)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nope: assets.json")
		assert.Contains(t, err.Error(), "nope: town.json")
	})

	t.Run("a missing directory is an error", func(t *testing.T) {
		err := base.WalkDataFiles(filepath.Join(dir, "missing"), ".json", func(string) error {
			return nil
		})
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}

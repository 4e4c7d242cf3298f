package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		t.Setenv("FIBER_CONFIG", "")

		c, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), c)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fiber.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
expiration:
  async_ms: 1000
  async_bucket_ms: 100
work_loop:
  max_nested_updates: 10
log:
  level: debug
`), 0o644))

		c, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), c.Expiration.AsyncMs)
		assert.Equal(t, int64(100), c.Expiration.AsyncBucketMs)
		assert.Equal(t, int64(150), c.Expiration.InteractiveMs)
		assert.Equal(t, 10, c.WorkLoop.MaxNestedUpdates)
		assert.Equal(t, "debug", c.Log.Level)
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		t.Setenv("FIBER_CONFIG", "")
		t.Setenv("FIBER_WORK_LOOP_MAX_NESTED_UPDATES", "7")

		c, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 7, c.WorkLoop.MaxNestedUpdates)
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid values fail", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fiber.yaml")
		require.NoError(t, os.WriteFile(path, []byte("expiration:\n  async_bucket_ms: 1\n"), 0o644))

		_, err := Load(path)
		assert.ErrorContains(t, err, "buckets")
	})
}

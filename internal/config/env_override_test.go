package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("all variables", func(t *testing.T) {
		t.Setenv("OUTREACH_DEBUGGER_URL", "ws://127.0.0.1:9222/devtools/browser/abc")
		t.Setenv("OUTREACH_LISTEN", "127.0.0.1:8000")
		t.Setenv("OUTREACH_STORE", "REDIS")
		t.Setenv("OUTREACH_DB", "/tmp/o.db")
		t.Setenv("OUTREACH_REDIS_ADDR", "redis:6379")
		t.Setenv("OUTREACH_REDIS_DB", "3")
		t.Setenv("OUTREACH_LOG_LEVEL", "debug")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/abc", cfg.Browser.DebuggerURL)
		assert.Equal(t, "127.0.0.1:8000", cfg.Control.Listen)
		assert.Equal(t, "redis", cfg.Store.Backend)
		assert.Equal(t, "/tmp/o.db", cfg.Store.Path)
		assert.Equal(t, "redis:6379", cfg.Store.RedisAddr)
		assert.Equal(t, 3, cfg.Store.RedisDB)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("empty values leave config alone", func(t *testing.T) {
		t.Setenv("OUTREACH_LISTEN", "")
		t.Setenv("OUTREACH_REDIS_DB", "not-a-number")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, DefaultConfig().Control.Listen, cfg.Control.Listen)
		assert.Equal(t, 0, cfg.Store.RedisDB)
	})

	t.Run("applied when file is missing", func(t *testing.T) {
		t.Setenv("OUTREACH_STORE", "redis")
		cfg, err := Load(t.TempDir() + "/missing.yaml")
		assert.NoError(t, err)
		assert.Equal(t, "redis", cfg.Store.Backend)
	})
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "compiled", cfg.Engine.Mode)
	assert.Equal(t, "souffle", cfg.Engine.Binary)
	assert.Equal(t, 5*time.Minute, cfg.Engine.Timeout())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Store.Path)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  mode: interpreted
  binary: /opt/souffle/bin/souffle
  run_timeout: 30s
store:
  path: facts.db
logging:
  level: debug
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "interpreted", cfg.Engine.Mode)
	assert.Equal(t, "/opt/souffle/bin/souffle", cfg.Engine.Binary)
	assert.Equal(t, 30*time.Second, cfg.Engine.Timeout())
	assert.Equal(t, "facts.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  mode: compiled\n"), 0o644))

	t.Setenv("FACTBRIDGE_ENGINE_MODE", "interpreted")
	t.Setenv("FACTBRIDGE_ENGINE_RUN_TIMEOUT", "45s")
	t.Setenv("FACTBRIDGE_STORE_PATH", "/var/lib/factbridge/facts.db")
	t.Setenv("FACTBRIDGE_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "interpreted", cfg.Engine.Mode)
	assert.Equal(t, 45*time.Second, cfg.Engine.Timeout())
	assert.Equal(t, "/var/lib/factbridge/facts.db", cfg.Store.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()

	bad := map[string]string{
		"bad mode":    "engine:\n  mode: jit\n",
		"bad timeout": "engine:\n  run_timeout: soon\n",
		"bad format":  "logging:\n  format: xml\n",
		"bad yaml":    "engine: [\n",
	}
	for name, content := range bad {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "cfg.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestTimeoutZeroWhenUnset(t *testing.T) {
	assert.Zero(t, EngineConfig{}.Timeout())
	assert.Zero(t, EngineConfig{RunTimeout: "garbage"}.Timeout())
}

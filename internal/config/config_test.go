package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config dir at a temp dir and clears REVGATE_* vars.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for env := range envKeys {
		t.Setenv(env, "")
	}
	return filepath.Join(dir, "revgate")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "standard", cfg.Mode)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, ".revgate.yaml", cfg.Manifest)
	assert.True(t, cfg.Privacy.RedactSecrets)
	assert.NoError(t, cfg.Validate())
}

func TestConfigPath_XDG(t *testing.T) {
	dir := isolate(t)
	p, err := ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.json"), p)
}

func TestLoad_Layering(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{
  "mode": "deep",
  "format": "json",
  "concurrency": 2,
  "privacy": {"redactSecrets": false}
}`), 0o644))
	t.Setenv("REVGATE_FORMAT", "sarif")
	t.Setenv("REVGATE_RUN_DEADLINE", "90s")

	cfg, err := Load(map[string]string{"concurrency": "6", "policy": ""})
	require.NoError(t, err)

	assert.Equal(t, "deep", cfg.Mode, "from file")
	assert.Equal(t, "sarif", cfg.Format, "env beats file")
	assert.Equal(t, 6, cfg.Concurrency, "flag beats file")
	assert.False(t, cfg.Privacy.RedactSecrets, "file can switch redaction off")
	assert.Equal(t, []string{"**/.env", "**/*secrets*"}, cfg.Privacy.RedactPaths, "omitted keys keep defaults")
	assert.Equal(t, ".revgate.yaml", cfg.Manifest)

	d, err := cfg.Deadline()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}

func TestLoad_MissingFile(t *testing.T) {
	isolate(t)
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("bad json", func(t *testing.T) {
		dir := isolate(t)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{`), 0o644))
		_, err := Load(nil)
		assert.ErrorContains(t, err, "parsing config file")
	})
	t.Run("bad env", func(t *testing.T) {
		isolate(t)
		t.Setenv("REVGATE_CONCURRENCY", "many")
		_, err := Load(nil)
		assert.ErrorContains(t, err, "REVGATE_CONCURRENCY")
	})
	t.Run("bad override", func(t *testing.T) {
		isolate(t)
		_, err := Load(map[string]string{"mode": "thorough"})
		assert.Error(t, err)
	})
	t.Run("invalid file value", func(t *testing.T) {
		dir := isolate(t)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"format": "html"}`), 0o644))
		_, err := Load(nil)
		assert.ErrorContains(t, err, "invalid configuration")
	})
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	cfg := Default()
	require.NoError(t, SetField(&cfg, "timeouts.secrets", "10s"))
	require.NoError(t, SetField(&cfg, "deny", "dependencies, antipatterns"))
	require.NoError(t, Save(cfg))

	loaded, err := LoadFile()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	timeouts, err := loaded.ModuleTimeouts()
	require.NoError(t, err)
	assert.Equal(t, map[string]time.Duration{"secrets": 10 * time.Second}, timeouts)
}

func TestSetField(t *testing.T) {
	tests := []struct {
		key, value string
		wantErr    bool
		check      func(t *testing.T, cfg Config)
	}{
		{key: "mode", value: "quick", check: func(t *testing.T, c Config) { assert.Equal(t, "quick", c.Mode) }},
		{key: "mode", value: "fast", wantErr: true},
		{key: "format", value: "markdown", check: func(t *testing.T, c Config) { assert.Equal(t, "markdown", c.Format) }},
		{key: "format", value: "html", wantErr: true},
		{key: "concurrency", value: "3", check: func(t *testing.T, c Config) { assert.Equal(t, 3, c.Concurrency) }},
		{key: "concurrency", value: "x", wantErr: true},
		{key: "runDeadline", value: "2m", check: func(t *testing.T, c Config) { assert.Equal(t, "2m", c.RunDeadline) }},
		{key: "runDeadline", value: "soon", wantErr: true},
		{key: "partialReport", value: "true", check: func(t *testing.T, c Config) { assert.True(t, c.PartialReport) }},
		{key: "allow", value: "secrets,,lint", check: func(t *testing.T, c Config) { assert.Equal(t, []string{"secrets", "lint"}, c.Allow) }},
		{key: "redactSecrets", value: "false", check: func(t *testing.T, c Config) { assert.False(t, c.Privacy.RedactSecrets) }},
		{key: "timeouts.", value: "1s", wantErr: true},
		{key: "timeouts.lint", value: "never", wantErr: true},
		{key: "provider", value: "openai", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := Default()
			err := SetField(&cfg, tt.key, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Timeouts = map[string]string{"lint": "-1s"}
	assert.ErrorContains(t, cfg.Validate(), "must be positive")

	cfg = Default()
	cfg.Concurrency = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.RunDeadline = "-5s"
	assert.Error(t, cfg.Validate())
}

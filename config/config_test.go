package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsUseHomeForDataPath(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	cfg, err := Load(LoadOptions{
		Env: map[string]string{"POLYTASKS_HOME": home},
	})
	require.NoError(t, err)
	require.Equal(t, "bolt", cfg.Storage.Backend)
	require.Equal(t, "polyTasks.todoList", cfg.Storage.Key)
	require.Equal(t, filepath.Join(home, "tasks.bolt.db"), cfg.Storage.Path)
	require.Equal(t, "none", cfg.Transport.Kind)
	require.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoadConfigPrecedenceFlagOverEnv(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[storage]
backend = "sqlite"
path = "/tmp/from-file.db"
`)

	flagBackend := "memory"
	cfg, err := Load(LoadOptions{
		ConfigPath: cfgPath,
		Env: map[string]string{
			"POLYTASKS_STORAGE_BACKEND": "bolt",
		},
		Flags: FlagOverrides{Backend: &flagBackend},
	})
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Storage.Backend)
}

func TestLoadConfigPrecedenceEnvOverFile(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[server]
shutdown_timeout = "10s"
`)

	cfg, err := Load(LoadOptions{
		ConfigPath: cfgPath,
		Env: map[string]string{
			"POLYTASKS_HOME":                    t.TempDir(),
			"POLYTASKS_SERVER_SHUTDOWN_TIMEOUT": "20s",
		},
	})
	require.NoError(t, err)
	require.Equal(t, 20*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoadConfigPrecedenceFileOverDefault(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[storage]
backend = "redis"
addr = "localhost:6379"
key = "custom.key"

[transport]
kind = "redis"
addr = "localhost:6379"

[logging]
level = "debug"
`)

	cfg, err := Load(LoadOptions{ConfigPath: cfgPath, Env: map[string]string{}})
	require.NoError(t, err)
	require.Equal(t, "redis", cfg.Storage.Backend)
	require.Equal(t, "custom.key", cfg.Storage.Key)
	require.Equal(t, "redis", cfg.Transport.Kind)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Empty(t, cfg.Storage.Path)
}

func TestLoadRedisPrefixAndTransportSettings(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[storage]
backend = "redis"
addr = "localhost:6379"
prefix = "file:"

[transport]
kind = "redis"
addr = "localhost:6379"
password = "from-file"
resubscribe_interval = "250ms"
resubscribe_attempts = 4
`)

	cfg, err := Load(LoadOptions{
		ConfigPath: cfgPath,
		Env: map[string]string{
			"POLYTASKS_STORAGE_PREFIX":     "env:",
			"POLYTASKS_TRANSPORT_PASSWORD": "secret",
			"POLYTASKS_TRANSPORT_DB":       "3",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "env:", cfg.Storage.Prefix)
	require.Equal(t, "secret", cfg.Transport.Password)
	require.Equal(t, 3, cfg.Transport.DB)
	require.Equal(t, 250*time.Millisecond, cfg.Transport.ResubscribeInterval)
	require.Equal(t, 4, cfg.Transport.ResubscribeAttempts)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	cases := map[string]map[string]string{
		"unknown backend":   {"POLYTASKS_STORAGE_BACKEND": "leveldb"},
		"mysql without dsn": {"POLYTASKS_STORAGE_BACKEND": "mysql"},
		"redis without addr": {
			"POLYTASKS_STORAGE_BACKEND": "redis",
		},
		"unknown transport":  {"POLYTASKS_TRANSPORT_KIND": "carrier-pigeon"},
		"bad storage db":     {"POLYTASKS_STORAGE_DB": "zero"},
		"bad timeout":        {"POLYTASKS_SERVER_SHUTDOWN_TIMEOUT": "soon"},
		"empty key":          {"POLYTASKS_STORAGE_KEY": ""},
		"negative timeout":   {"POLYTASKS_SERVER_SHUTDOWN_TIMEOUT": "-1s"},
		"bad transport db":   {"POLYTASKS_TRANSPORT_DB": "one"},
		"bad resubscribe":    {"POLYTASKS_TRANSPORT_RESUBSCRIBE_INTERVAL": "often"},
		"negative resub":     {"POLYTASKS_TRANSPORT_RESUBSCRIBE_INTERVAL": "-1s"},
	}
	for name, env := range cases {
		env["POLYTASKS_HOME"] = t.TempDir()
		_, err := Load(LoadOptions{Env: env})
		require.ErrorIs(t, err, ErrInvalidConfig, name)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, "[storage\nbackend = ")
	_, err := Load(LoadOptions{ConfigPath: cfgPath, Env: map[string]string{}})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadMissingFileIsIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := Load(LoadOptions{
		ConfigPath: filepath.Join(dir, "missing.toml"),
		Env:        map[string]string{"POLYTASKS_HOME": dir},
	})
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().Storage.Backend, cfg.Storage.Backend)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

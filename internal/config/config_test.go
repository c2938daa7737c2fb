package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dew-77/homework-bot/pkg/logx"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

var fullEnv = map[string]string{
	EnvPracticumToken: "p-token",
	EnvTelegramToken:  "t-token",
	EnvTelegramChatID: "12345",
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadFromEnvOnly(t *testing.T) {
	m := NewConfigManager("")
	m.SetEnvLookup(envMap(fullEnv))

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "p-token", cfg.Practicum.Token)
	assert.Equal(t, int64(12345), cfg.ChatID())
	assert.Equal(t, "10m", cfg.Poll.Schedule)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Same(t, cfg, m.Get())
}

func TestLoadReportsEveryMissingCredential(t *testing.T) {
	m := NewConfigManager("")
	m.SetEnvLookup(envMap(map[string]string{EnvTelegramChatID: "1"}))

	_, err := m.Load()
	require.ErrorIs(t, err, ErrMissingCredentials)
	assert.Equal(t, "missing required configuration: PRACTICUM_TOKEN, TELEGRAM_TOKEN", err.Error())
	assert.Nil(t, m.Get())
}

func TestLoadBlankCredentialCountsAsMissing(t *testing.T) {
	env := map[string]string{EnvPracticumToken: "p", EnvTelegramToken: "t", EnvTelegramChatID: "   "}
	m := NewConfigManager("")
	m.SetEnvLookup(envMap(env))

	_, err := m.Load()
	require.ErrorIs(t, err, ErrMissingCredentials)
	assert.Contains(t, err.Error(), EnvTelegramChatID)
}

func TestLoadRejectsNonNumericChatID(t *testing.T) {
	env := map[string]string{EnvPracticumToken: "p", EnvTelegramToken: "t", EnvTelegramChatID: "@channel"}
	m := NewConfigManager("")
	m.SetEnvLookup(envMap(env))

	_, err := m.Load()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingCredentials))
	assert.Contains(t, err.Error(), "chat id must be an integer")
}

func TestEnvOverridesFile(t *testing.T) {
	p := writeFile(t, "config.json", `{
		"practicum": {"token": "from-file", "request_timeout": "5s"},
		"poll": {"schedule": "cron:*/10 * * * *"}
	}`)
	m := NewConfigManager(p)
	m.SetEnvLookup(envMap(fullEnv))

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "p-token", cfg.Practicum.Token)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout())
	assert.Equal(t, "cron:*/10 * * * *", cfg.Poll.Schedule)
	// untouched sections keep defaults
	assert.Equal(t, "main.log", cfg.Logging.File.Path)
	assert.Equal(t, 2, cfg.Notifier.RetryMax)
}

func TestFileSuppliesCredentials(t *testing.T) {
	p := writeFile(t, "config.yaml", `
practicum:
  token: p
telegram:
  token: t
  chat_id: "-100200"
logging:
  level: warn
storage:
  driver: file
`)
	m := NewConfigManager(p)
	m.SetEnvLookup(envMap(nil))

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(-100200), cfg.ChatID())
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "file", cfg.Storage.Driver)
}

func TestParseStrictDecoding(t *testing.T) {
	tests := map[string]struct {
		name string
		body string
	}{
		"unknown field": {"config.json", `{"pollz": {}}`},
		"trailing data": {"config.json", `{} {}`},
		"broken yaml":   {"config.yaml", "poll: [\n"},
		"wrong type":    {"config.json", `{"notifier": {"retry_max": "two"}}`},
		"yaml unknown":  {"config.yml", "telegram:\n  owner: 1\n"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			m := NewConfigManager(writeFile(t, tt.name, tt.body))
			m.SetEnvLookup(envMap(fullEnv))
			_, err := m.Parse()
			assert.Error(t, err)
		})
	}
}

func TestEmptyYAMLUsesDefaults(t *testing.T) {
	m := NewConfigManager(writeFile(t, "config.yaml", ""))
	m.SetEnvLookup(envMap(fullEnv))

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults().Notifier, cfg.Notifier)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := map[string]struct {
		mutate func(*Config)
		want   string
	}{
		"schedule":  {func(c *Config) { c.Poll.Schedule = "sometimes" }, "invalid schedule"},
		"duration":  {func(c *Config) { c.Notifier.SendTimeout = "ten" }, "invalid duration"},
		"log level": {func(c *Config) { c.Logging.Level = "LOUD" }, "unknown log level"},
		"driver":    {func(c *Config) { c.Storage.Driver = "redis" }, "must be one of"},
		"retries":   {func(c *Config) { c.Notifier.RetryMax = 99 }, "notifier.retry_max"},
		"endpoint":  {func(c *Config) { c.Practicum.Endpoint = "not a url" }, "practicum.endpoint"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Defaults()
			applyEnv(cfg, envMap(fullEnv))
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNotifierDurations(t *testing.T) {
	cfg := Defaults()
	base, maxDelay, send := cfg.NotifierDurations()
	assert.Equal(t, 500*time.Millisecond, base)
	assert.Equal(t, 5*time.Second, maxDelay)
	assert.Equal(t, 10*time.Second, send)
}

func TestSummarizeConfigChangeHidesTokens(t *testing.T) {
	oldCfg := Defaults()
	applyEnv(oldCfg, envMap(fullEnv))
	newCfg := *oldCfg
	newCfg.Practicum.Token = "rotated-secret"
	newCfg.Logging.Level = "ERROR"

	changed, attrs, restart := SummarizeConfigChange(oldCfg, &newCfg)
	assert.Equal(t, []string{"practicum", "logging"}, changed)
	assert.True(t, restart)

	var buf safeBuffer
	logx.NewWriter(&buf, "debug").Info("config changed", attrs...)
	assert.NotContains(t, buf.String(), "rotated-secret")
	assert.Contains(t, buf.String(), `"practicum.token_changed":true`)
}

func TestSummarizeLoggingOnlyNeedsNoRestart(t *testing.T) {
	oldCfg := Defaults()
	newCfg := Defaults()
	newCfg.Logging.Console = false

	changed, _, restart := SummarizeConfigChange(oldCfg, newCfg)
	assert.Equal(t, []string{"logging"}, changed)
	assert.False(t, restart)
}

func TestWatchPublishesReload(t *testing.T) {
	p := writeFile(t, "config.json", `{"logging": {"level": "INFO"}}`)
	m := NewConfigManager(p)
	m.SetEnvLookup(envMap(fullEnv))
	_, err := m.Load()
	require.NoError(t, err)

	updates := m.Subscribe(1)
	defer m.Unsubscribe(updates)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()

	// Give the watcher time to register before writing.
	var got *Config
	require.Eventually(t, func() bool {
		_ = os.WriteFile(p, []byte(`{"logging": {"level": "ERROR"}}`), 0o644)
		select {
		case got = <-updates:
			return true
		case <-time.After(300 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	assert.Equal(t, "ERROR", got.Logging.Level)
	assert.Same(t, got, m.Get())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchRejectsInvalidReload(t *testing.T) {
	p := writeFile(t, "config.json", `{}`)
	m := NewConfigManager(p)
	m.SetEnvLookup(envMap(fullEnv))
	first, err := m.Load()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(p, []byte(`{"poll": {"schedule": "whenever"}}`), 0o644))
	m.reload(context.Background())
	assert.Same(t, first, m.Get())
}

func TestWatchWithoutFileReturns(t *testing.T) {
	require.NoError(t, NewConfigManager("").Watch(context.Background()))
}

func TestLoadDotEnvMissingFileIsFine(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestLoadDotEnvKeepsExistingVariables(t *testing.T) {
	p := writeFile(t, ".env", "HOMEWORK_BOT_TEST_A=from-file\nHOMEWORK_BOT_TEST_B=from-file\n")
	t.Setenv("HOMEWORK_BOT_TEST_A", "from-env")
	t.Setenv("HOMEWORK_BOT_TEST_B", "")
	os.Unsetenv("HOMEWORK_BOT_TEST_B")

	require.NoError(t, LoadDotEnv(p))
	assert.Equal(t, "from-env", os.Getenv("HOMEWORK_BOT_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("HOMEWORK_BOT_TEST_B"))
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DATABASE_URL", "postgres://localhost/mewego")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Europe/Moscow", cfg.DefaultTimezone)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 8, cfg.StatsWorkers)
	assert.Equal(t, 25, cfg.BroadcastRate)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.RedisURL)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "Europe/Moscow", cfg.Location().String())
}

func TestLoad_RequiresToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/mewego")

	_, err := Load()
	assert.ErrorContains(t, err, "BOT_TOKEN")
}

func TestLoad_RequiresDatabase(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoad_InvalidTimezone(t *testing.T) {
	setRequired(t)
	t.Setenv("DEFAULT_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	assert.ErrorContains(t, err, "DEFAULT_TIMEZONE")
}

func TestLoad_InvalidNumbers(t *testing.T) {
	for _, key := range []string{"STATS_WORKERS", "BROADCAST_RATE"} {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, "0")

			_, err := Load()
			assert.ErrorContains(t, err, key)
		})
	}

	setRequired(t)
	t.Setenv("ADMIN_TELEGRAM_ID", "not-a-number")
	_, err := Load()
	assert.ErrorContains(t, err, "ADMIN_TELEGRAM_ID")
}

func TestLoad_AdminUsernames(t *testing.T) {
	setRequired(t)
	t.Setenv("ADMIN_USERNAMES", " @Alice, bob ,,CAROL")
	t.Setenv("ADMIN_TELEGRAM_ID", "42")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob", "carol"}, cfg.AdminUsernames)
	assert.Equal(t, int64(42), cfg.AdminTelegramID)
	assert.True(t, cfg.IsAdminUsername("@ALICE"))
	assert.True(t, cfg.IsAdminUsername("carol"))
	assert.False(t, cfg.IsAdminUsername("dave"))
	assert.False(t, cfg.IsAdminUsername(""))
}

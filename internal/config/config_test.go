package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(body), 0644))
	return dir
}

func TestLoadWritesTemplate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.FileExists(t, Path(dir))

	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, filepath.Join(dir, "journal.db"), cfg.Store.Path)
	assert.Equal(t, 10, cfg.Engine.AlertInterval)
	assert.Equal(t, 20, cfg.Engine.LessonsMinLength)
	assert.Equal(t, 75.0, cfg.Engine.Bands.Green)
	assert.InDelta(t, 1.0, cfg.Engine.TiltWeights.Sum(), 1e-9)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Second, cfg.Cache.Redis.Breaker.Cooldown)
	assert.False(t, cfg.Cache.Enabled)

	// Second load reads the template back.
	again, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg.Engine, again.Engine)
}

func TestLoadCustomWindows(t *testing.T) {
	dir := writeConfig(t, `
timezone = "America/New_York"

[engine]
alert_interval = 5

[[sessions]]
name = "Morning"
start = "09:30"
end = "12:00"

[[zones]]
name = "Open Drive"
start = "09:30"
end = "10:00"
`)
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Engine.AlertInterval)
	require.Len(t, cfg.Sessions, 1)

	c, err := cfg.Classifier()
	require.NoError(t, err)
	// 14:45 UTC is 09:45 in New York in January.
	ts := time.Date(2024, 1, 10, 14, 45, 0, 0, time.UTC)
	assert.Equal(t, "Morning", c.Session(ts))
	assert.Equal(t, "Open Drive", c.Zone(ts))

	mc, err := cfg.MetricsConfig()
	require.NoError(t, err)
	assert.Equal(t, "Morning", mc.Classifier.Session(ts))
	assert.Equal(t, cfg.Engine.RCaps, mc.RCaps)
}

func TestEnvOverrides(t *testing.T) {
	dir := writeConfig(t, "")
	t.Setenv("TRADE_JOURNAL_DB", "/tmp/other.db")
	t.Setenv("TRADE_JOURNAL_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("TRADE_JOURNAL_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.Store.Path)
	assert.Equal(t, "redis.internal:6380", cfg.Cache.Redis.Address)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"weights", "[engine.tilt_weights]\nscore = 0.9\n"},
		{"bands", "[engine.bands]\ngreen = 40.0\nyellow = 60.0\n"},
		{"caps", "[engine.r_caps]\npivot = 5.0\n"},
		{"interval", "[engine]\nalert_interval = 0\n"},
		{"timezone", "timezone = \"Mars/Olympus\"\n"},
		{"window", "[[zones]]\nname = \"Bad\"\nstart = \"25:00\"\nend = \"26:00\"\n"},
		{"unnamed window", "[[sessions]]\nstart = \"01:00\"\nend = \"02:00\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
		})
	}
}

func TestEmptyTimezoneUsesWallClock(t *testing.T) {
	cfg, err := Load(writeConfig(t, "timezone = \"\"\n"))
	require.NoError(t, err)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestNewMemo(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[cache]\nmemory_entries = 0\n"))
	require.NoError(t, err)
	memo, closeFn := cfg.NewMemo(zerolog.Nop())
	assert.Nil(t, memo)
	assert.NoError(t, closeFn())

	cfg.Cache.MemoryEntries = 10
	memo, closeFn = cfg.NewMemo(zerolog.Nop())
	require.NotNil(t, memo)
	defer closeFn()

	ctx := context.Background()
	require.NoError(t, memo.Set(ctx, "t1:fp", models.AutoCalculated{NetPnL: 5}))
	auto, ok, err := memo.Get(ctx, "t1:fp")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5.0, auto.NetPnL)
}

func TestNewMemoDegradedRedis(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[cache]\nenabled = true\nmemory_entries = 0\n[cache.redis]\naddress = \"127.0.0.1:1\"\n"))
	require.NoError(t, err)
	memo, closeFn := cfg.NewMemo(zerolog.Nop())
	require.NotNil(t, memo)
	defer closeFn()

	_, ok, err := memo.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.ErrorIs(t, err, apperrors.ErrCacheUnavailable)
}

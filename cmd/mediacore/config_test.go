package main

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzzra/media_core/pkg/mediaerr"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9464", cfg.MetricsAddr)
	assert.Equal(t, 30, cfg.FrameRate)
	assert.True(t, cfg.ZeroHertz)
	assert.Equal(t, 5, cfg.MinFPS)
	assert.Equal(t, 30, cfg.MaxFPS)
	assert.False(t, cfg.Playout)
	assert.Equal(t, uint8(96), cfg.PayloadType)
	assert.Equal(t, 5*time.Second, cfg.StatsInterval)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.Equal(t, defaultOffer, string(cfg.Offer()))

	tc, err := cfg.TransportConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", tc.LocalAddr)
	assert.Equal(t, "127.0.0.1:5004", tc.RemoteAddr)
	assert.Equal(t, 46, tc.DSCP)
}

func TestConfig_TransportOverride(t *testing.T) {
	t.Setenv("MEDIACORE_RTP_REMOTE_ADDR", "192.0.2.10:40000")
	t.Setenv("MEDIACORE_RTP_DSCP", "0")

	cfg, err := loadConfig()
	require.NoError(t, err)

	tc, err := cfg.TransportConfig()
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.10:40000", tc.RemoteAddr)
	assert.Zero(t, tc.DSCP)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("MEDIACORE_LOG_LEVEL", "debug")
	t.Setenv("MEDIACORE_FRAME_RATE", "60")
	t.Setenv("MEDIACORE_ZERO_HERTZ", "false")
	t.Setenv("MEDIACORE_PLAYOUT", "true")
	t.Setenv("MEDIACORE_SDP_OFFER", "v=0")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, 60, cfg.FrameRate)
	assert.False(t, cfg.ZeroHertz)
	assert.True(t, cfg.Playout)
	assert.Equal(t, "v=0", string(cfg.Offer()))
}

func TestConfig_Validate(t *testing.T) {
	base := Config{LogLevel: "info", FrameRate: 30, MinFPS: 5, MaxFPS: 30, StatsInterval: time.Second}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"нулевая частота", func(c *Config) { c.FrameRate = 0 }},
		{"отрицательный min", func(c *Config) { c.MinFPS = -1 }},
		{"нулевой интервал статистики", func(c *Config) { c.StatsInterval = 0 }},
		{"неизвестный уровень", func(c *Config) { c.LogLevel = "verbose" }},
		{"DSCP вне диапазона", func(c *Config) { c.RTPDSCP = 64 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.True(t, mediaerr.HasErrorCode(err, mediaerr.ErrorCodeConfigInvalid), "ошибка: %v", err)
		})
	}
}

func TestLoadConfig_BadEnv(t *testing.T) {
	t.Setenv("MEDIACORE_FRAME_RATE", "быстро")

	_, err := loadConfig()
	assert.Error(t, err)
}

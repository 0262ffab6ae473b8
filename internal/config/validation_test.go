// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"bad log level", func(c *AppConfig) { c.LogLevel = "loud" }, "logLevel"},
		{"too many shots", func(c *AppConfig) { c.Booth.Shots = 5 }, "booth.shots"},
		{"zero shots", func(c *AppConfig) { c.Booth.Shots = 0 }, "booth.shots"},
		{"unknown device", func(c *AppConfig) { c.Booth.Device = "webcam" }, "booth.device"},
		{"ffmpeg without path", func(c *AppConfig) {
			c.Booth.Device = DeviceFFmpeg
			c.Booth.DevicePath = ""
		}, "booth.devicePath"},
		{"bad redis url", func(c *AppConfig) { c.Redis.URL = "http://x" }, "redis.url"},
		{"jpeg quality", func(c *AppConfig) { c.Booth.JPEGQuality = 0 }, "booth.jpegQuality"},
		{"negative timing", func(c *AppConfig) { c.Booth.Timing.Flash = -1 }, "booth.timing"},
		{"no titles", func(c *AppConfig) { c.Celebration.Titles = nil }, "celebration.titles"},
		{"download name with path", func(c *AppConfig) { c.Celebration.DownloadName = "../collage.jpg" }, "celebration.downloadName"},
		{"bad exporter", func(c *AppConfig) {
			c.Telemetry.Enabled = true
			c.Telemetry.Exporter = "zipkin"
		}, "telemetry.exporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)

			var ve ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, Validate(Defaults()))
}

func TestParseServerConfigForApp(t *testing.T) {
	cfg := Defaults()
	cfg.Server.ListenAddr = ":9000"
	t.Setenv("PARTYBOOTH_SERVER_SHUTDOWN_TIMEOUT", "1s")

	sc := ParseServerConfigForApp(cfg)
	assert.Equal(t, ":9000", sc.ListenAddr)
	assert.Equal(t, minShutdownTimeout, sc.ShutdownTimeout)

	t.Setenv(EnvListen, "127.0.0.1:7000")
	sc = ParseServerConfigForApp(cfg)
	assert.Equal(t, "127.0.0.1:7000", sc.ListenAddr)
}

func TestBindListenAddr(t *testing.T) {
	got, err := BindListenAddr(":8088", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8088", got)

	got, err = BindListenAddr("10.0.0.1:80", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:80", got)

	got, err = BindListenAddr(":8088", "")
	require.NoError(t, err)
	assert.Equal(t, ":8088", got)

	_, err = BindListenAddr(":8088", "if:does-not-exist0")
	assert.Error(t, err)
}

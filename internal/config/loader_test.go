// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := NewLoader("", "v-test").Load()
	require.NoError(t, err)

	assert.Equal(t, "v-test", cfg.Version)
	assert.Equal(t, 3, cfg.Booth.Shots)
	assert.Equal(t, 300*time.Millisecond, cfg.Booth.Timing.Warmup)
	assert.Equal(t, "Jeeya B-Day Memories", cfg.Celebration.Caption)
	assert.Equal(t, "jeeya-sweet16-photobooth.jpg", cfg.Celebration.DownloadName)
	assert.Equal(t, filepath.Join(cfg.DataDir, "blobs"), cfg.Blob.Root)
	require.NoError(t, Validate(cfg))
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
logLevel: debug
booth:
  shots: 4
  timing:
    announce: 250ms
celebration:
  name: Mia
  titles: ["Hello"]
`)
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Booth.Shots)
	assert.Equal(t, 250*time.Millisecond, cfg.Booth.Timing.Announce)
	// untouched nested fields keep their defaults
	assert.Equal(t, 2*time.Second, cfg.Booth.Timing.PostShot)
	assert.Equal(t, "Mia", cfg.Celebration.Name)
	assert.Equal(t, []string{"Hello"}, cfg.Celebration.Titles)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "booth:\n  shots: 4\n")
	t.Setenv(EnvShots, "2")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	t.Setenv(EnvAllowedOrigins, "https://a.example, ,https://b.example")

	l := NewLoader(path, "")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Booth.Shots)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.API.AllowedOrigins)
	assert.Contains(t, l.ConsumedEnvKeys, EnvShots)
	assert.Contains(t, l.ConsumedEnvKeys, EnvRedisURL)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "booth:\n  shotz: 4\n")
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults().Booth, cfg.Booth)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml"), "").Load()
	require.Error(t, err)
}

func TestParseHelpers_InvalidFallsBack(t *testing.T) {
	t.Setenv("PB_TEST_INT", "abc")
	t.Setenv("PB_TEST_DUR", "forever")
	t.Setenv("PB_TEST_BOOL", "maybe")
	t.Setenv("PB_TEST_FLOAT", "x")

	assert.Equal(t, 7, ParseInt("PB_TEST_INT", 7))
	assert.Equal(t, time.Second, ParseDuration("PB_TEST_DUR", time.Second))
	assert.True(t, ParseBool("PB_TEST_BOOL", true))
	assert.InDelta(t, 0.5, ParseFloat("PB_TEST_FLOAT", 0.5), 1e-9)
}

func TestParseBool_Variants(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"true", true}, {"YES", true}, {"1", true},
		{"false", false}, {"no", false}, {"0", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Setenv("PB_TEST_BOOL", tt.in)
			assert.Equal(t, tt.want, ParseBool("PB_TEST_BOOL", !tt.want))
		})
	}
}

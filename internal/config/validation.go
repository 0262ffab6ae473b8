// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the merged configuration and joins every problem found.
func Validate(cfg AppConfig) error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		add("logLevel", "unknown level %q", cfg.LogLevel)
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		add("dataDir", "must not be empty")
	}
	if cfg.Redis.URL != "" {
		if u, err := url.Parse(cfg.Redis.URL); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			add("redis.url", "must be a redis:// or rediss:// URL")
		}
	}

	b := cfg.Booth
	switch b.Device {
	case DevicePattern, DeviceFFmpeg:
	default:
		add("booth.device", "unknown device %q (want %s or %s)", b.Device, DevicePattern, DeviceFFmpeg)
	}
	if b.Device == DeviceFFmpeg && strings.TrimSpace(b.DevicePath) == "" {
		add("booth.devicePath", "required for the ffmpeg device")
	}
	if b.Shots < 1 || b.Shots > 4 {
		add("booth.shots", "must be between 1 and 4, got %d", b.Shots)
	}
	if b.Width <= 0 || b.Height <= 0 {
		add("booth.width", "resolution must be positive, got %dx%d", b.Width, b.Height)
	}
	if b.AspectRatio <= 0 {
		add("booth.aspectRatio", "must be positive")
	}
	if b.JPEGQuality < 1 || b.JPEGQuality > 100 {
		add("booth.jpegQuality", "must be between 1 and 100, got %d", b.JPEGQuality)
	}
	if b.MaxShotRetries < 0 {
		add("booth.maxShotRetries", "must not be negative")
	}
	if b.MaxSessions < 1 {
		add("booth.maxSessions", "must be at least 1")
	}
	t := b.Timing
	if t.Warmup < 0 || t.Announce < 0 || t.Countdown < 0 || t.Flash < 0 || t.PostShot < 0 || t.Assemble < 0 {
		add("booth.timing", "durations must not be negative")
	}

	if n := cfg.Celebration.DownloadName; n != "" && (strings.ContainsAny(n, `/\"`) || strings.HasPrefix(n, ".")) {
		add("celebration.downloadName", "must be a plain file name, got %q", n)
	}
	if len(cfg.Celebration.Titles) == 0 {
		add("celebration.titles", "at least one title is required")
	}
	if cfg.Celebration.GiftCacheTTL <= 0 {
		add("celebration.giftCacheTTL", "must be positive")
	}

	if cfg.Poem.RatePerMinute < 1 || cfg.Poem.Burst < 1 {
		add("poem", "rate and burst must be at least 1")
	}

	if cfg.Telemetry.Enabled {
		switch cfg.Telemetry.Exporter {
		case "grpc", "http":
		default:
			add("telemetry.exporter", "unknown exporter %q", cfg.Telemetry.Exporter)
		}
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			add("telemetry.samplingRate", "must be within [0,1]")
		}
	}

	return errors.Join(errs...)
}

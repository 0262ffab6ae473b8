// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package bootstrap

import (
	"context"
	"fmt"

	"github.com/ManuGH/partybooth/internal/ai"
	"github.com/ManuGH/partybooth/internal/booth"
	"github.com/ManuGH/partybooth/internal/booth/camera"
	"github.com/ManuGH/partybooth/internal/booth/capture"
	"github.com/ManuGH/partybooth/internal/booth/composite"
	"github.com/ManuGH/partybooth/internal/booth/sticker"
	"github.com/ManuGH/partybooth/internal/config"
	xglog "github.com/ManuGH/partybooth/internal/log"
	"github.com/ManuGH/partybooth/internal/telemetry"
	"github.com/rs/zerolog"
)

// buildCameraDevice returns the one capture device shared by every booth.
// Devices are exclusive, so concurrent sessions contend for it.
func buildCameraDevice(cfg config.BoothConfig) camera.Device {
	if cfg.Device == config.DeviceFFmpeg {
		return &camera.FFmpegDevice{
			Path: cfg.DevicePath,
			Bin:  cfg.FFmpegBin,
		}
	}
	return camera.NewPatternDevice()
}

func buildConstraints(cfg config.BoothConfig) camera.Constraints {
	c := camera.DefaultConstraints()
	if cfg.Width > 0 {
		c.Width = cfg.Width
	}
	if cfg.Height > 0 {
		c.Height = cfg.Height
	}
	if cfg.AspectRatio > 0 {
		c.AspectRatio = cfg.AspectRatio
	}
	return c
}

func buildCaptureConfig(cfg config.BoothConfig) capture.Config {
	out := capture.DefaultConfig()
	if cfg.Shots > 0 {
		out.Shots = cfg.Shots
	}
	if cfg.MaxShotRetries >= 0 {
		out.MaxShotRetries = cfg.MaxShotRetries
	}
	if cfg.JPEGQuality > 0 {
		out.JPEGQuality = cfg.JPEGQuality
	}
	t := cfg.Timing
	out.Timing.Warmup = t.Warmup
	out.Timing.Announce = t.Announce
	out.Timing.Countdown = t.Countdown
	out.Timing.Flash = t.Flash
	out.Timing.PostShot = t.PostShot
	out.Timing.Assemble = t.Assemble
	return out
}

func buildRenderer(cfg config.AppConfig) *composite.Renderer {
	return composite.NewRenderer(composite.Options{
		Titles:  cfg.Celebration.Titles,
		Caption: cfg.Celebration.Caption,
		Quality: cfg.Booth.JPEGQuality,
	})
}

// boothFactory builds booths from the config current at creation time, so a
// reload changes pacing and copy for new sessions only.
func boothFactory(get func() config.AppConfig, device camera.Device, art *sticker.Catalog) booth.Factory {
	return func(id string) (*booth.Booth, error) {
		cfg := get()
		return booth.New(booth.Options{
			ID:          id,
			Device:      device,
			Constraints: buildConstraints(cfg.Booth),
			Art:         art,
			Compositor:  buildRenderer(cfg),
			Capture:     buildCaptureConfig(cfg.Booth),
		})
	}
}

// buildGenerator returns the Gemini client, or ai.Disabled when no key is set.
func buildGenerator(ctx context.Context, cfg config.AIConfig, logger zerolog.Logger) (ai.Generator, error) {
	if !cfg.Enabled() {
		logger.Warn().
			Str(xglog.FieldEvent, "ai.disabled").
			Msg("no API key configured; poem and gift generation will answer 500")
		return ai.Disabled{}, nil
	}
	gen, err := ai.NewGenAIClient(ctx, ai.Config{
		APIKey:           cfg.APIKey,
		TextModel:        cfg.TextModel,
		ImageModel:       cfg.ImageModel,
		Timeout:          cfg.Timeout,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerReset:     cfg.BreakerReset,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return gen, nil
}

func telemetryConfig(cfg config.AppConfig) telemetry.Config {
	return telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	}
}

// NewStandaloneBooth builds a single booth with its own camera device for
// terminal use. The caller owns it and must Close it.
func NewStandaloneBooth(cfg config.AppConfig) (*booth.Booth, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	factory := boothFactory(
		func() config.AppConfig { return cfg },
		buildCameraDevice(cfg.Booth),
		sticker.NewCatalog(cfg.Booth.StickerDir),
	)
	return factory("")
}

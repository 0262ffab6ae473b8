// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ManuGH/partybooth/internal/config"
	"github.com/ManuGH/partybooth/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment before the server starts.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	for _, dir := range []string{cfg.DataDir, cfg.BlobRoot()} {
		if err := ensureWritableDir(logger, dir); err != nil {
			return fmt.Errorf("directory check failed: %w", err)
		}
	}
	if err := checkListenAddr(logger, cfg.Server.ListenAddr); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	checkCamera(logger, cfg.Booth)
	checkOptional(logger, cfg)

	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Info().Msg("all startup checks passed")
	return nil
}

func ensureWritableDir(logger zerolog.Logger, path string) error {
	if path == "" {
		return fmt.Errorf("empty directory path")
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := probeWritable(path); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	logger.Info().Str(log.FieldPath, path).Msg("directory is writable")
	return nil
}

func checkListenAddr(logger zerolog.Logger, addr string) error {
	if addr == "" || strings.HasPrefix(addr, "if:") {
		return nil
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, addr)
	}
	logger.Info().Str("addr", addr).Msg("listen address is valid")
	return nil
}

// checkCamera only warns: the site runs without a camera.
func checkCamera(logger zerolog.Logger, booth config.BoothConfig) {
	if booth.Device != config.DeviceFFmpeg {
		logger.Info().Str(log.FieldDevice, booth.Device).Msg("using synthetic camera")
		return
	}
	bin := strings.TrimSpace(booth.FFmpegBin)
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		logger.Warn().Err(err).Str("ffmpeg", bin).Msg("ffmpeg binary not found; photo booth unavailable")
	}
	if _, err := os.Stat(booth.DevicePath); err != nil {
		logger.Warn().Err(err).Str(log.FieldDevice, booth.DevicePath).Msg("camera device not accessible")
	}
	if booth.StickerDir != "" {
		if _, err := os.Stat(filepath.Clean(booth.StickerDir)); err != nil {
			logger.Warn().Err(err).Str(log.FieldPath, booth.StickerDir).Msg("sticker directory missing; using built-in stickers")
		}
	}
}

func checkOptional(logger zerolog.Logger, cfg config.AppConfig) {
	if !cfg.Redis.Enabled() {
		logger.Warn().Msg("REDIS_URL not set; wishes, gallery and gift cache are disabled")
	}
	if !cfg.AI.Enabled() {
		logger.Warn().Msg("API_KEY not set; poem and gift illustration are disabled")
	}
}

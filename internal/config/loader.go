// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment keys.
const (
	EnvConfigFile      = "PARTYBOOTH_CONFIG"
	EnvListen          = "PARTYBOOTH_LISTEN"
	EnvMetricsListen   = "PARTYBOOTH_METRICS_LISTEN"
	EnvDataDir         = "PARTYBOOTH_DATA"
	EnvLogLevel        = "PARTYBOOTH_LOG_LEVEL"
	EnvRedisURL        = "REDIS_URL"
	EnvAPIKey          = "API_KEY"
	EnvBlobRoot        = "PARTYBOOTH_BLOB_ROOT"
	EnvBlobBaseURL     = "PARTYBOOTH_BLOB_BASE_URL"
	EnvCameraDevice    = "PARTYBOOTH_CAMERA_DEVICE"
	EnvCameraPath      = "PARTYBOOTH_CAMERA_PATH"
	EnvFFmpegBin       = "PARTYBOOTH_FFMPEG_BIN"
	EnvShots           = "PARTYBOOTH_SHOTS"
	EnvStickerDir      = "PARTYBOOTH_STICKER_DIR"
	EnvCelebrant       = "PARTYBOOTH_CELEBRANT"
	EnvAllowedOrigins  = "PARTYBOOTH_ALLOWED_ORIGINS"
	EnvRateLimit       = "PARTYBOOTH_RATE_LIMIT"
	EnvOTelEnabled     = "PARTYBOOTH_OTEL_ENABLED"
	EnvOTelExporter    = "PARTYBOOTH_OTEL_EXPORTER"
	EnvOTelEndpoint    = "PARTYBOOTH_OTEL_ENDPOINT"
	EnvOTelEnvironment = "PARTYBOOTH_OTEL_ENVIRONMENT"
	EnvOTelSampling    = "PARTYBOOTH_OTEL_SAMPLING_RATE"
)

// Loader handles configuration loading with precedence ENV > File > Defaults.
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. An empty path means ENV-only.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseList(key, defaultVal)
}

// Load applies defaults, then the YAML file (strict), then the environment.
// The result is not validated; callers run Validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(cfg)
		if err != nil {
			return AppConfig{}, err
		}
		cfg = fileCfg
	}

	l.mergeEnv(&cfg)
	cfg.Version = l.version

	if cfg.Blob.Root == "" {
		cfg.Blob.Root = cfg.BlobRoot()
	}
	return cfg, nil
}

func (l *Loader) loadFile(base AppConfig) (AppConfig, error) {
	f, err := os.Open(l.configPath)
	if err != nil {
		return AppConfig{}, fmt.Errorf("open config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config file: %w", err)
	}
	return decodeStrict(data, base)
}

func decodeStrict(data []byte, base AppConfig) (AppConfig, error) {
	cfg := base
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return base, nil
		}
		return AppConfig{}, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)
	cfg.LogLevel = strings.ToLower(l.envString(EnvLogLevel, cfg.LogLevel))

	cfg.Server.ListenAddr = l.envString(EnvListen, cfg.Server.ListenAddr)
	cfg.Server.MetricsAddr = l.envString(EnvMetricsListen, cfg.Server.MetricsAddr)

	cfg.API.AllowedOrigins = l.envList(EnvAllowedOrigins, cfg.API.AllowedOrigins)
	cfg.API.RateLimitPerMinute = l.envInt(EnvRateLimit, cfg.API.RateLimitPerMinute)

	cfg.Redis.URL = l.envString(EnvRedisURL, cfg.Redis.URL)
	cfg.AI.APIKey = l.envString(EnvAPIKey, cfg.AI.APIKey)
	cfg.AI.Timeout = l.envDuration("PARTYBOOTH_AI_TIMEOUT", cfg.AI.Timeout)

	cfg.Blob.Root = l.envString(EnvBlobRoot, cfg.Blob.Root)
	cfg.Blob.PublicBaseURL = l.envString(EnvBlobBaseURL, cfg.Blob.PublicBaseURL)

	cfg.Celebration.Name = l.envString(EnvCelebrant, cfg.Celebration.Name)

	cfg.Booth.Device = strings.ToLower(l.envString(EnvCameraDevice, cfg.Booth.Device))
	cfg.Booth.DevicePath = l.envString(EnvCameraPath, cfg.Booth.DevicePath)
	cfg.Booth.FFmpegBin = l.envString(EnvFFmpegBin, cfg.Booth.FFmpegBin)
	cfg.Booth.Shots = l.envInt(EnvShots, cfg.Booth.Shots)
	cfg.Booth.StickerDir = l.envString(EnvStickerDir, cfg.Booth.StickerDir)

	cfg.Telemetry.Enabled = l.envBool(EnvOTelEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvOTelExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvOTelEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.Environment = l.envString(EnvOTelEnvironment, cfg.Telemetry.Environment)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvOTelSampling, cfg.Telemetry.SamplingRate)
}

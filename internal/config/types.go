// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"path/filepath"
	"time"
)

// Camera device kinds.
const (
	DevicePattern = "pattern"
	DeviceFFmpeg  = "ffmpeg"
)

// AppConfig is the fully merged application configuration
// (defaults < YAML file < environment).
type AppConfig struct {
	Version    string `yaml:"-"`
	DataDir    string `yaml:"dataDir,omitempty"`
	LogLevel   string `yaml:"logLevel,omitempty"`
	LogService string `yaml:"logService,omitempty"`

	Server      ServerRuntimeConfig `yaml:"server,omitempty"`
	API         APIConfig           `yaml:"api,omitempty"`
	Redis       RedisConfig         `yaml:"redis,omitempty"`
	Blob        BlobConfig          `yaml:"blob,omitempty"`
	AI          AIConfig            `yaml:"ai,omitempty"`
	Celebration CelebrationConfig   `yaml:"celebration,omitempty"`
	Booth       BoothConfig         `yaml:"booth,omitempty"`
	Poem        PoemConfig          `yaml:"poem,omitempty"`
	Telemetry   TelemetryConfig     `yaml:"telemetry,omitempty"`
}

// BlobRoot returns the blob directory, defaulting to <dataDir>/blobs.
func (c AppConfig) BlobRoot() string {
	if c.Blob.Root != "" {
		return c.Blob.Root
	}
	return filepath.Join(c.DataDir, "blobs")
}

// ServerRuntimeConfig holds HTTP listener settings as they appear in the file.
type ServerRuntimeConfig struct {
	ListenAddr      string        `yaml:"listenAddr,omitempty"`
	MetricsAddr     string        `yaml:"metricsAddr,omitempty"`
	ReadTimeout     time.Duration `yaml:"readTimeout,omitempty"`
	WriteTimeout    time.Duration `yaml:"writeTimeout,omitempty"`
	IdleTimeout     time.Duration `yaml:"idleTimeout,omitempty"`
	MaxHeaderBytes  int           `yaml:"maxHeaderBytes,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout,omitempty"`
}

// APIConfig holds HTTP API behaviour.
type APIConfig struct {
	AllowedOrigins     []string `yaml:"allowedOrigins,omitempty"`
	RateLimitPerMinute int      `yaml:"rateLimitPerMinute,omitempty"`
	MaxUploadBytes     int64    `yaml:"maxUploadBytes,omitempty"`
}

// RedisConfig points at the key-value store backing wishes, photos and the gift cache.
type RedisConfig struct {
	URL string `yaml:"url,omitempty"`
}

// Enabled reports whether a Redis store is configured.
func (r RedisConfig) Enabled() bool { return r.URL != "" }

// BlobConfig configures the object store for uploaded and generated images.
type BlobConfig struct {
	Root          string `yaml:"root,omitempty"`
	PublicBaseURL string `yaml:"publicBaseUrl,omitempty"`
}

// AIConfig configures the generative text/image service.
type AIConfig struct {
	APIKey           string        `yaml:"apiKey,omitempty"`
	TextModel        string        `yaml:"textModel,omitempty"`
	ImageModel       string        `yaml:"imageModel,omitempty"`
	Timeout          time.Duration `yaml:"timeout,omitempty"`
	BreakerThreshold int           `yaml:"breakerThreshold,omitempty"`
	BreakerReset     time.Duration `yaml:"breakerReset,omitempty"`
}

// Enabled reports whether an API key is configured.
func (a AIConfig) Enabled() bool { return a.APIKey != "" }

// CelebrationConfig holds the personalised copy used across the site.
type CelebrationConfig struct {
	Name         string        `yaml:"name,omitempty"`
	Caption      string        `yaml:"caption,omitempty"`
	DownloadName string        `yaml:"downloadName,omitempty"`
	Titles       []string      `yaml:"titles,omitempty"`
	GiftSlug     string        `yaml:"giftSlug,omitempty"`
	GiftCacheTTL time.Duration `yaml:"giftCacheTTL,omitempty"`
}

// BoothConfig configures the photo-booth pipeline.
type BoothConfig struct {
	Device         string        `yaml:"device,omitempty"`
	DevicePath     string        `yaml:"devicePath,omitempty"`
	FFmpegBin      string        `yaml:"ffmpegBin,omitempty"`
	Width          int           `yaml:"width,omitempty"`
	Height         int           `yaml:"height,omitempty"`
	AspectRatio    float64       `yaml:"aspectRatio,omitempty"`
	Shots          int           `yaml:"shots,omitempty"`
	MaxShotRetries int           `yaml:"maxShotRetries,omitempty"`
	JPEGQuality    int           `yaml:"jpegQuality,omitempty"`
	StickerDir     string        `yaml:"stickerDir,omitempty"`
	MaxSessions    int           `yaml:"maxSessions,omitempty"`
	IdleTimeout    time.Duration `yaml:"idleTimeout,omitempty"`
	Timing         BoothTiming   `yaml:"timing,omitempty"`
}

// BoothTiming is the pacing of the capture sequence.
type BoothTiming struct {
	Warmup    time.Duration `yaml:"warmup,omitempty"`
	Announce  time.Duration `yaml:"announce,omitempty"`
	Countdown time.Duration `yaml:"countdown,omitempty"`
	Flash     time.Duration `yaml:"flash,omitempty"`
	PostShot  time.Duration `yaml:"postShot,omitempty"`
	Assemble  time.Duration `yaml:"assemble,omitempty"`
}

// PoemConfig limits the poem generator per client.
type PoemConfig struct {
	RatePerMinute int `yaml:"ratePerMinute,omitempty"`
	Burst         int `yaml:"burst,omitempty"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled,omitempty"`
	Exporter     string  `yaml:"exporter,omitempty"`
	Endpoint     string  `yaml:"endpoint,omitempty"`
	Environment  string  `yaml:"environment,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty"`
}

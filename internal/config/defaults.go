// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "time"

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:    "/tmp/partybooth",
		LogLevel:   "info",
		LogService: "partybooth",
		Server: ServerRuntimeConfig{
			ListenAddr:      ":8088",
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			MaxHeaderBytes:  defaultMaxHeaderBytes,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		API: APIConfig{
			RateLimitPerMinute: 600,
			MaxUploadBytes:     10 << 20,
		},
		Blob: BlobConfig{
			PublicBaseURL: "/blob",
		},
		AI: AIConfig{
			TextModel:        "gemini-2.5-flash",
			ImageModel:       "imagen-3.0-generate-002",
			Timeout:          60 * time.Second,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
		},
		Celebration: CelebrationConfig{
			Name:         "Jeeya",
			Caption:      "Jeeya B-Day Memories",
			DownloadName: "jeeya-sweet16-photobooth.jpg",
			Titles: []string{
				"Happy Sweet 16!",
				"Party Time!",
				"Making Memories",
				"Sixteen & Sparkling",
				"Jeeya's Big Day!",
			},
			GiftSlug:     "jeeya-sweet-16",
			GiftCacheTTL: 30 * 24 * time.Hour,
		},
		Booth: BoothConfig{
			Device:         DevicePattern,
			DevicePath:     "/dev/video0",
			FFmpegBin:      "ffmpeg",
			Width:          1280,
			Height:         720,
			AspectRatio:    1,
			Shots:          3,
			MaxShotRetries: 2,
			JPEGQuality:    92,
			MaxSessions:    8,
			IdleTimeout:    10 * time.Minute,
			Timing: BoothTiming{
				Warmup:    300 * time.Millisecond,
				Announce:  2 * time.Second,
				Countdown: 1500 * time.Millisecond,
				Flash:     500 * time.Millisecond,
				PostShot:  2 * time.Second,
				Assemble:  time.Second,
			},
		},
		Poem: PoemConfig{
			RatePerMinute: 6,
			Burst:         3,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			Environment:  "production",
			SamplingRate: 1.0,
		},
	}
}

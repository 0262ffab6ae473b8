// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Command photobooth runs one booth session from the terminal and writes the
// collage to disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ManuGH/partybooth/internal/app/bootstrap"
	"github.com/ManuGH/partybooth/internal/booth"
	"github.com/ManuGH/partybooth/internal/booth/sticker"
	"github.com/ManuGH/partybooth/internal/config"
	"github.com/ManuGH/partybooth/internal/log"
)

var version = "v0.1.0"

type options struct {
	configPath string
	out        string
	shots      int
	device     string
	path       string
	stickers   string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("photobooth", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.configPath, "config", "", "path to YAML configuration file")
	fs.StringVar(&o.out, "out", booth.DownloadFilename, "where to write the collage")
	fs.IntVar(&o.shots, "shots", 0, "number of photos (1-4); 0 keeps the configured value")
	fs.StringVar(&o.device, "device", "", "camera device: pattern or ffmpeg")
	fs.StringVar(&o.path, "path", "", "video device path for the ffmpeg camera")
	fs.StringVar(&o.stickers, "stickers", "", "comma-separated sticker kinds to place before capture")
	fs.StringVar(&o.logLevel, "log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log.Configure(log.Config{Level: o.logLevel, Output: stderr, Console: true, Service: "photobooth", Version: version})
	logger := log.WithComponent("photobooth")

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}

	b, err := bootstrap.NewStandaloneBooth(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	defer func() { _ = b.Close() }()

	if err := placeStickers(b, o.stickers); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	fmt.Fprintln(stdout, "Starting camera...")
	if err := b.StartCamera(ctx); err != nil {
		fmt.Fprintf(stderr, "camera: %v (%s)\n", err, b.Snapshot().Reason)
		return 1
	}

	if err := b.TakePhotos(ctx); err != nil {
		fmt.Fprintf(stderr, "capture: %v\n", err)
		return 1
	}
	if err := follow(ctx, b, stdout); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "photobooth.failed").Msg("capture failed")
		fmt.Fprintf(stderr, "capture: %v\n", err)
		return 1
	}

	if err := b.SaveArtifact(o.out); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Saved %s\n", o.out)
	return 0
}

func loadConfig(o options) (config.AppConfig, error) {
	cfg, err := config.NewLoader(strings.TrimSpace(o.configPath), version).Load()
	if err != nil {
		return config.AppConfig{}, err
	}
	if o.shots != 0 {
		cfg.Booth.Shots = o.shots
	}
	if o.device != "" {
		cfg.Booth.Device = strings.ToLower(o.device)
	}
	if o.path != "" {
		cfg.Booth.DevicePath = o.path
	}
	return cfg, nil
}

func placeStickers(b *booth.Booth, list string) error {
	for _, raw := range strings.Split(list, ",") {
		kind := sticker.Kind(strings.TrimSpace(raw))
		if kind == "" {
			continue
		}
		if _, err := b.PlaceSticker(kind); err != nil {
			return fmt.Errorf("sticker %q: %w", kind, err)
		}
	}
	return nil
}

// follow prints each new status message until the run ends.
func follow(ctx context.Context, b *booth.Booth, w io.Writer) error {
	done := make(chan error, 1)
	go func() { done <- b.Wait(ctx) }()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	var last string
	show := func() {
		snap := b.Snapshot()
		if snap.Message != "" && snap.Message != last {
			last = snap.Message
			fmt.Fprintln(w, snap.Message)
		}
	}
	for {
		select {
		case err := <-done:
			show()
			return err
		case <-ticker.C:
			show()
		}
	}
}

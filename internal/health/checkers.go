// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/ManuGH/partybooth/internal/booth/camera"
	"github.com/redis/go-redis/v9"
)

// RedisChecker pings the KV store.
type RedisChecker struct {
	client redis.UniversalClient
}

// NewRedisChecker creates a checker for client. A nil client reports the store as not configured.
func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	if c.client == nil {
		return CheckResult{Status: StatusDegraded, Message: "not configured; wishes and gallery disabled"}
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "reachable"}
}

// DirChecker checks that a directory exists and is writable.
type DirChecker struct {
	name string
	path string
}

// NewDirChecker creates a checker for a writable directory.
func NewDirChecker(name, path string) *DirChecker {
	return &DirChecker{name: name, path: path}
}

func (c *DirChecker) Name() string { return c.name }

func (c *DirChecker) Check(context.Context) CheckResult {
	if c.path == "" {
		return CheckResult{Status: StatusUnhealthy, Error: "path not configured"}
	}
	info, err := os.Stat(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return CheckResult{Status: StatusUnhealthy, Error: "directory not found", Message: c.path}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected directory, got file", Message: c.path}
	}
	if err := probeWritable(c.path); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.path}
	}
	return CheckResult{Status: StatusHealthy, Message: "writable"}
}

func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".write_test-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(filepath.Clean(name))
}

// CameraChecker probes the capture device. A missing camera only degrades
// the service; the rest of the site keeps working.
type CameraChecker struct {
	device camera.Device
}

// NewCameraChecker creates a checker for device.
func NewCameraChecker(device camera.Device) *CameraChecker {
	return &CameraChecker{device: device}
}

func (c *CameraChecker) Name() string { return "camera" }

func (c *CameraChecker) Check(ctx context.Context) CheckResult {
	p, ok := c.device.(camera.Prober)
	if !ok {
		return CheckResult{Status: StatusHealthy, Message: c.device.Name()}
	}
	if err := p.Probe(ctx); err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error(), Message: string(camera.ReasonFor(err))}
	}
	return CheckResult{Status: StatusHealthy, Message: c.device.Name()}
}

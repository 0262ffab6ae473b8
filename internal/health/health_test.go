// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/partybooth/internal/booth/camera"
	"github.com/ManuGH/partybooth/internal/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(_ context.Context) CheckResult {
	return CheckResult{Status: m.status}
}

type brokenWriter struct {
	header http.Header
	status int
}

func (w *brokenWriter) Header() http.Header {
	if w.header == nil {
		w.header = http.Header{}
	}
	return w.header
}

func (w *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func (w *brokenWriter) WriteHeader(statusCode int) { w.status = statusCode }

func TestManager_Health_NoCheckers(t *testing.T) {
	m := NewManager("v1.0.0")

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.Nil(t, resp.Checks)
}

func TestManager_Health_WithCheckers(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "healthy", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
	assert.Equal(t, StatusHealthy, resp.Checks["healthy"].Status)
	assert.Equal(t, StatusDegraded, resp.Checks["degraded"].Status)
}

func TestManager_Ready(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []Status
		wantReady bool
		want      Status
	}{
		{name: "no checkers", wantReady: true, want: StatusHealthy},
		{name: "all healthy", statuses: []Status{StatusHealthy, StatusHealthy}, wantReady: true, want: StatusHealthy},
		{name: "degraded stays ready", statuses: []Status{StatusHealthy, StatusDegraded}, wantReady: true, want: StatusDegraded},
		{name: "unhealthy wins", statuses: []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, wantReady: false, want: StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("test")
			for i, s := range tt.statuses {
				m.RegisterChecker(&mockChecker{name: string(rune('a' + i)), status: s})
			}
			resp := m.Ready(context.Background())
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Equal(t, tt.want, resp.Status)
		})
	}
}

func TestManager_ServeHealth(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "redis", status: StatusUnhealthy})

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))

	assert.Equal(t, http.StatusOK, rec.Code, "liveness never fails on component status")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Contains(t, resp.Checks, "redis")
}

func TestManager_ServeReady(t *testing.T) {
	m := NewManager("v1.0.0")
	checker := &mockChecker{name: "blob", status: StatusHealthy}
	m.RegisterChecker(checker)

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	checker.status = StatusUnhealthy
	rec = httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Ready)
}

func TestManager_ServeReady_EncodingError(t *testing.T) {
	m := NewManager("v1.0.0")
	w := &brokenWriter{}
	m.ServeReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.status)
}

func TestRedisChecker(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		r := NewRedisChecker(nil).Check(context.Background())
		assert.Equal(t, StatusDegraded, r.Status)
	})

	t.Run("reachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		c := NewRedisChecker(client)
		assert.Equal(t, "redis", c.Name())
		assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)
	})

	t.Run("down", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		t.Cleanup(func() { _ = client.Close() })
		mr.Close()

		r := NewRedisChecker(client).Check(context.Background())
		assert.Equal(t, StatusUnhealthy, r.Status)
		assert.NotEmpty(t, r.Error)
	})
}

func TestDirChecker(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	tests := []struct {
		name string
		path string
		want Status
	}{
		{name: "writable", path: dir, want: StatusHealthy},
		{name: "missing", path: filepath.Join(dir, "nope"), want: StatusUnhealthy},
		{name: "file", path: file, want: StatusUnhealthy},
		{name: "empty", path: "", want: StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewDirChecker("blob", tt.path)
			assert.Equal(t, "blob", c.Name())
			assert.Equal(t, tt.want, c.Check(context.Background()).Status)
		})
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "write probe cleans up after itself")
}

func TestCameraChecker(t *testing.T) {
	ok := NewCameraChecker(camera.NewPatternDevice())
	assert.Equal(t, StatusHealthy, ok.Check(context.Background()).Status)

	missing := NewCameraChecker(&camera.FFmpegDevice{
		Path: filepath.Join(t.TempDir(), "video0"),
		Bin:  "/bin/sh",
	})
	r := missing.Check(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Equal(t, string(camera.ReasonDeviceUnavailable), r.Message)
}

func TestPerformStartupChecks(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.Blob.Root = filepath.Join(dir, "data", "blobs")
	cfg.Server.ListenAddr = ":8080"
	cfg.Booth.Device = config.DevicePattern

	require.NoError(t, PerformStartupChecks(context.Background(), cfg))
	assert.DirExists(t, cfg.Blob.Root)

	cfg.Server.ListenAddr = ":notaport"
	assert.Error(t, PerformStartupChecks(context.Background(), cfg))

	cfg.Server.ListenAddr = ":8080"
	cfg.DataDir = ""
	assert.Error(t, PerformStartupChecks(context.Background(), cfg))
}

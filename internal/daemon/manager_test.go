// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/ManuGH/partybooth/internal/config"
	"github.com/ManuGH/partybooth/internal/log"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testServerConfig(shutdown time.Duration) config.ServerConfig {
	return config.ServerConfig{
		ListenAddr:      "127.0.0.1:0",
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		IdleTimeout:     10 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: shutdown,
	}
}

func newTestManager(t *testing.T, cfg config.ServerConfig, deps Deps) *manager {
	t.Helper()
	if deps.Logger.GetLevel() == zerolog.Disabled {
		deps.Logger = log.WithComponent("test")
	}
	mgr, err := NewManager(cfg, deps)
	require.NoError(t, err)
	return mgr.(*manager)
}

// start runs Start in the background and returns the bound address of name.
func start(t *testing.T, ctx context.Context, m *manager, name string) (string, <-chan error) {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- m.Start(ctx) }()

	waitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	addr, err := m.addr(waitCtx, name)
	require.NoError(t, err)
	return addr, errc
}

func wait(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return")
		return nil
	}
}

func TestNewManager_Deps(t *testing.T) {
	tests := []struct {
		name    string
		deps    Deps
		wantErr error
	}{
		{name: "valid", deps: Deps{Logger: log.WithComponent("test"), APIHandler: http.NotFoundHandler()}},
		{name: "disabled logger", deps: Deps{Logger: zerolog.Nop(), APIHandler: http.NotFoundHandler()}, wantErr: ErrMissingLogger},
		{name: "no api handler", deps: Deps{Logger: log.WithComponent("test")}, wantErr: ErrMissingAPIHandler},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, err := NewManager(testServerConfig(time.Second), tt.deps)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, mgr.(*manager).listeners, 1, "metrics listener needs both handler and addr")
		})
	}
}

func TestManager_ServesUntilCanceled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := newTestManager(t, testServerConfig(2*time.Second), Deps{
		APIHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("booth"))
		}),
	})

	ctx, cancel := context.WithCancel(context.Background())
	addr, errc := start(t, ctx, m, "api")

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: time.Second}
	resp, err := client.Get("http://" + addr + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "booth", string(body))

	cancel()
	assert.NoError(t, wait(t, errc))
	assert.Error(t, m.Start(context.Background()), "a manager starts once")
}

func TestManager_MetricsListener(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := newTestManager(t, testServerConfig(2*time.Second), Deps{
		APIHandler: http.NotFoundHandler(),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# HELP partybooth_booth_sessions\n"))
		}),
		MetricsAddr: "127.0.0.1:0",
	})

	ctx, cancel := context.WithCancel(context.Background())
	addr, errc := start(t, ctx, m, "metrics")

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: time.Second}
	resp, err := client.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "partybooth_booth_sessions")

	cancel()
	assert.NoError(t, wait(t, errc))
}

func TestManager_BindFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = taken.Close() })

	cfg := testServerConfig(time.Second)
	m := newTestManager(t, cfg, Deps{
		APIHandler:     http.NotFoundHandler(),
		MetricsHandler: http.NotFoundHandler(),
		MetricsAddr:    taken.Addr().String(),
	})

	err = m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics server")
	assert.Nil(t, m.listeners[0].ln, "api listener is released when a later bind fails")
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestManager_ShutdownTimesOutOnStuckRequest(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	inFlight := make(chan struct{})
	release := make(chan struct{})
	m := newTestManager(t, testServerConfig(100*time.Millisecond), Deps{
		APIHandler: http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			close(inFlight)
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}),
	})

	ctx, cancel := context.WithCancel(context.Background())
	addr, errc := start(t, ctx, m, "api")

	reqDone := make(chan struct{})
	go func() {
		defer close(reqDone)
		client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
		if resp, err := client.Get("http://" + addr + "/api/booth"); err == nil {
			_ = resp.Body.Close()
		}
	}()
	<-inFlight

	cancel()
	err := wait(t, errc)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	<-reqDone
}

func TestManager_ShutdownNotStarted(t *testing.T) {
	m := newTestManager(t, testServerConfig(time.Second), Deps{APIHandler: http.NotFoundHandler()})
	assert.ErrorIs(t, m.Shutdown(context.Background()), ErrManagerNotStarted)
}

func TestManager_ShutdownHooksRunLIFO(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := newTestManager(t, testServerConfig(time.Second), Deps{APIHandler: http.NotFoundHandler()})

	var order []string
	m.RegisterShutdownHook("redis", func(context.Context) error {
		order = append(order, "redis")
		return nil
	})
	m.RegisterShutdownHook("booths", func(context.Context) error {
		order = append(order, "booths")
		return errors.New("camera stuck")
	})

	ctx, cancel := context.WithCancel(context.Background())
	_, errc := start(t, ctx, m, "api")
	cancel()

	err := wait(t, errc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hook booths: camera stuck")
	assert.Equal(t, []string{"booths", "redis"}, order)
	assert.NoError(t, m.Shutdown(context.Background()), "second shutdown is a no-op")
}

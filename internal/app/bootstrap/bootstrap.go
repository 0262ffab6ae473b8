// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package bootstrap is the production composition root.
package bootstrap

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/partybooth/internal/api"
	"github.com/ManuGH/partybooth/internal/blob"
	"github.com/ManuGH/partybooth/internal/booth"
	"github.com/ManuGH/partybooth/internal/booth/sticker"
	"github.com/ManuGH/partybooth/internal/cache"
	"github.com/ManuGH/partybooth/internal/config"
	"github.com/ManuGH/partybooth/internal/daemon"
	"github.com/ManuGH/partybooth/internal/gift"
	"github.com/ManuGH/partybooth/internal/health"
	xglog "github.com/ManuGH/partybooth/internal/log"
	"github.com/ManuGH/partybooth/internal/photos"
	"github.com/ManuGH/partybooth/internal/poem"
	"github.com/ManuGH/partybooth/internal/telemetry"
	"github.com/ManuGH/partybooth/internal/wishes"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Container is the production composition root output.
type Container struct {
	Config       config.AppConfig
	ConfigHolder *config.ConfigHolder
	Logger       zerolog.Logger
	Server       *api.Server
	Booths       *booth.Registry
	Manager      daemon.Manager
	App          *daemon.App

	// closers run when WireServices fails or Close is called before Run.
	closers []namedCloser

	hooksOnce sync.Once
}

type namedCloser struct {
	name string
	fn   func(context.Context) error
}

// WireServices builds the production dependency graph and returns a runnable container.
func WireServices(ctx context.Context, version, explicitConfigPath string) (_ *Container, err error) {
	if ctx == nil {
		return nil, fmt.Errorf("wire services context is nil")
	}

	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "partybooth",
		Version: version,
	})
	logger := xglog.WithComponent("bootstrap")

	effectiveConfigPath, explicitMode, err := resolveConfigPath(strings.TrimSpace(explicitConfigPath))
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	logger = xglog.WithComponent("bootstrap")

	switch {
	case explicitMode:
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "file").
			Str(xglog.FieldPath, effectiveConfigPath).
			Msg("loaded configuration from file")
	case effectiveConfigPath != "":
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "file(auto)").
			Str(xglog.FieldPath, effectiveConfigPath).
			Msg("loaded configuration from file")
	default:
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if configBytes, marshalErr := json.Marshal(cfg); marshalErr == nil {
		hash := sha256.Sum256(configBytes)
		logger.Info().
			Str(xglog.FieldEvent, "config.snapshot").
			Str("sha256", fmt.Sprintf("%x", hash)).
			Msg("configuration snapshot fingerprint")
	}

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return nil, fmt.Errorf("startup checks failed: %w", err)
	}

	serverCfg := config.ParseServerConfigForApp(cfg)
	if bindHost := strings.TrimSpace(config.ParseString("PARTYBOOTH_BIND_INTERFACE", "")); bindHost != "" {
		newListen, err := config.BindListenAddr(serverCfg.ListenAddr, bindHost)
		if err != nil {
			return nil, fmt.Errorf("invalid PARTYBOOTH_BIND_INTERFACE for API listen: %w", err)
		}
		serverCfg.ListenAddr = newListen
	}

	c := &Container{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			c.closeAll(context.WithoutCancel(ctx))
		}
	}()

	tp, err := telemetry.NewProvider(ctx, telemetryConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}
	c.addCloser("telemetry", tp.Shutdown)

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("connect redis at %s: %w", maskURL(cfg.Redis.URL), err)
		}
		c.addCloser("redis", func(context.Context) error { return rdb.Close() })
	} else {
		logger.Warn().
			Str(xglog.FieldEvent, "redis.disabled").
			Msg("no Redis configured; wishes and photo gallery are unavailable")
	}

	blobs, err := blob.NewFSStore(cfg.BlobRoot(), cfg.Blob.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("initialize blob store: %w", err)
	}

	var giftCache cache.Cache
	if rdb != nil {
		giftCache = cache.NewRedisCache("gift", rdb)
	} else {
		mem := cache.NewMemoryCache("gift", 10*time.Minute)
		c.addCloser("gift_cache", func(context.Context) error {
			mem.Close()
			return nil
		})
		giftCache = mem
	}

	gen, err := buildGenerator(ctx, cfg.AI, logger)
	if err != nil {
		return nil, err
	}

	var wishStore *wishes.Store
	var photoStore *photos.Store
	if rdb != nil {
		wishStore = wishes.NewStore(rdb)
		photoStore = photos.NewStore(rdb, blobs)
	}

	device := buildCameraDevice(cfg.Booth)
	cfgHolder := config.NewConfigHolder(cfg, loader, effectiveConfigPath)
	registry := booth.NewRegistry(
		boothFactory(cfgHolder.Get, device, sticker.NewCatalog(cfg.Booth.StickerDir)),
		booth.RegistryConfig{
			MaxSessions: cfg.Booth.MaxSessions,
			IdleTimeout: cfg.Booth.IdleTimeout,
		},
	)
	c.addCloser("booths", func(context.Context) error {
		registry.CloseAll()
		return nil
	})

	hm := health.NewManager(version)
	var redisClient redis.UniversalClient
	if rdb != nil {
		redisClient = rdb
	}
	hm.RegisterChecker(health.NewRedisChecker(redisClient))
	hm.RegisterChecker(health.NewDirChecker("blob", blobs.Root()))
	hm.RegisterChecker(health.NewDirChecker("data", cfg.DataDir))
	hm.RegisterChecker(health.NewCameraChecker(device))

	server, err := api.New(api.Deps{
		Config: cfg,
		Health: hm,
		Booths: registry,
		Wishes: wishStore,
		Photos: photoStore,
		Blobs:  blobs,
		Poems:  poem.NewWriter(gen, cfg.Celebration.Name),
		Gifts:  gift.NewIllustrator(gen, giftCache, blobs, cfg.Celebration.GiftSlug, cfg.Celebration.GiftCacheTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("initialize api server: %w", err)
	}

	mgr, err := daemon.NewManager(serverCfg, daemon.Deps{
		Logger:         logger,
		APIHandler:     server.Handler(),
		MetricsHandler: promhttp.Handler(),
		MetricsAddr:    strings.TrimSpace(serverCfg.MetricsAddr),
	})
	if err != nil {
		return nil, fmt.Errorf("create daemon manager: %w", err)
	}

	logger.Info().
		Str(xglog.FieldEvent, "startup").
		Str("version", version).
		Str("addr", serverCfg.ListenAddr).
		Str(xglog.FieldDevice, device.Name()).
		Bool("redis", rdb != nil).
		Bool("ai", cfg.AI.Enabled()).
		Str("data_dir", cfg.DataDir).
		Msg("starting partybooth")

	c.ConfigHolder = cfgHolder
	c.Server = server
	c.Booths = registry
	c.Manager = mgr
	c.App = daemon.NewApp(logger, mgr, cfgHolder, registry)
	return c, nil
}

func (c *Container) addCloser(name string, fn func(context.Context) error) {
	c.closers = append(c.closers, namedCloser{name: name, fn: fn})
}

// closeAll releases resources in reverse acquisition order.
func (c *Container) closeAll(ctx context.Context) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		cl := c.closers[i]
		if err := cl.fn(ctx); err != nil {
			c.Logger.Warn().Err(err).Str("resource", cl.name).Msg("failed to release resource")
		}
	}
	c.closers = nil
}

// Close releases everything WireServices acquired. Use it when Run is never called.
func (c *Container) Close(ctx context.Context) {
	if c == nil {
		return
	}
	c.closeAll(ctx)
}

// Run hands resource cleanup to the manager's shutdown hooks and starts the
// daemon app loop.
func (c *Container) Run(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("run context is nil")
	}
	if c == nil {
		return fmt.Errorf("container is nil")
	}
	if c.App == nil || c.Manager == nil || c.Server == nil {
		return fmt.Errorf("container is not fully initialized")
	}

	c.hooksOnce.Do(func() {
		// Hooks run LIFO, matching acquisition order.
		for _, cl := range c.closers {
			c.Manager.RegisterShutdownHook(cl.name, cl.fn)
		}
		c.closers = nil
	})

	return c.App.Run(ctx)
}

func resolveConfigPath(explicit string) (path string, explicitMode bool, err error) {
	if explicit == "" {
		explicit = strings.TrimSpace(config.ParseString(config.EnvConfigFile, ""))
	}
	if explicit != "" {
		absPath, err := filepath.Abs(explicit)
		if err != nil {
			return "", true, fmt.Errorf("resolve absolute path for explicit config %q: %w", explicit, err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return "", true, fmt.Errorf("explicit config file not found %q: %w", absPath, err)
		}
		if info.IsDir() {
			return "", true, fmt.Errorf("explicit config path %q is a directory", absPath)
		}
		return absPath, true, nil
	}

	dataDir := strings.TrimSpace(config.ParseString(config.EnvDataDir, config.Defaults().DataDir))
	if dataDir == "" {
		return "", false, nil
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if info, err := os.Stat(autoPath); err == nil && !info.IsDir() {
		if absPath, absErr := filepath.Abs(autoPath); absErr == nil {
			return absPath, false, nil
		}
	}
	return "", false, nil
}

// maskURL drops credentials so Redis URLs can be logged.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "[invalid_url]"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

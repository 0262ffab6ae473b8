// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"cmp"
	"fmt"
	"net"
	"strings"
	"time"
)

const (
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 120 * time.Second // image generation can be slow
	defaultIdleTimeout     = 120 * time.Second
	defaultMaxHeaderBytes  = 1 << 20
	defaultShutdownTimeout = 15 * time.Second
	minShutdownTimeout     = 3 * time.Second
)

// ServerConfig is the resolved listener configuration the daemon serves with.
type ServerConfig struct {
	ListenAddr      string
	MetricsAddr     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

// ParseServerConfigForApp resolves listener settings. PARTYBOOTH_* variables
// win over the file, and the file wins over defaults.
func ParseServerConfigForApp(cfg AppConfig) ServerConfig {
	file, def := cfg.Server, Defaults().Server

	sc := ServerConfig{
		ListenAddr:      cmp.Or(strings.TrimSpace(file.ListenAddr), def.ListenAddr),
		MetricsAddr:     file.MetricsAddr,
		ReadTimeout:     positive(file.ReadTimeout, def.ReadTimeout),
		WriteTimeout:    positive(file.WriteTimeout, def.WriteTimeout),
		IdleTimeout:     positive(file.IdleTimeout, def.IdleTimeout),
		MaxHeaderBytes:  positive(file.MaxHeaderBytes, def.MaxHeaderBytes),
		ShutdownTimeout: positive(file.ShutdownTimeout, def.ShutdownTimeout),
	}

	sc.ListenAddr = strings.TrimSpace(ParseString(EnvListen, sc.ListenAddr))
	sc.MetricsAddr = ParseString(EnvMetricsListen, sc.MetricsAddr)
	sc.ReadTimeout = ParseDuration("PARTYBOOTH_SERVER_READ_TIMEOUT", sc.ReadTimeout)
	sc.WriteTimeout = ParseDuration("PARTYBOOTH_SERVER_WRITE_TIMEOUT", sc.WriteTimeout)
	sc.IdleTimeout = ParseDuration("PARTYBOOTH_SERVER_IDLE_TIMEOUT", sc.IdleTimeout)
	sc.MaxHeaderBytes = positive(ParseInt("PARTYBOOTH_SERVER_MAX_HEADER_BYTES", sc.MaxHeaderBytes), sc.MaxHeaderBytes)
	sc.ShutdownTimeout = max(ParseDuration("PARTYBOOTH_SERVER_SHUTDOWN_TIMEOUT", sc.ShutdownTimeout), minShutdownTimeout)
	return sc
}

func positive[T int | time.Duration](v, fallback T) T {
	if v > 0 {
		return v
	}
	return fallback
}

// BindListenAddr pins a port-only listen address (":PORT" or empty) to host.
// "if:<name>" selects the first non-loopback IPv4 of that interface.
// Addresses that already carry a host are returned unchanged.
func BindListenAddr(listenAddr, host string) (string, error) {
	if host == "" || (listenAddr != "" && !strings.HasPrefix(listenAddr, ":")) {
		return listenAddr, nil
	}
	port := strings.TrimPrefix(cmp.Or(listenAddr, ":0"), ":")

	if name, ok := strings.CutPrefix(host, "if:"); ok {
		ip, err := interfaceIPv4(name)
		if err != nil {
			return "", err
		}
		host = ip.String()
	}
	return net.JoinHostPort(host, port), nil
}

func interfaceIPv4(name string) (net.IP, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("resolve interface %q: %w", name, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, fmt.Errorf("list addresses of %q: %w", name, err)
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if v4 := ipnet.IP.To4(); v4 != nil {
			return v4, nil
		}
	}
	return nil, fmt.Errorf("interface %q has no usable IPv4 address", name)
}

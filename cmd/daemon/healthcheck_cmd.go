// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ManuGH/partybooth/internal/platform/httpx"
)

// probePaths maps a healthcheck mode to the endpoint it hits.
var probePaths = map[string]string{
	"ready": "/readyz",
	"live":  "/healthz",
}

// runHealthcheckCLI probes a running daemon. Container HEALTHCHECKs call it.
func runHealthcheckCLI(args []string) int {
	fs := flag.NewFlagSet("healthcheck", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	mode := fs.String("mode", "ready", "ready or live")
	port := fs.Int("port", 8088, "API port on localhost")
	timeout := fs.Duration("timeout", 5*time.Second, "probe timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if _, ok := probePaths[*mode]; !ok {
		fmt.Fprintf(os.Stderr, "unknown mode %q (want ready or live)\n", *mode)
		return 2
	}
	base := "http://" + net.JoinHostPort("localhost", strconv.Itoa(*port))
	return probe(base, *mode, *timeout, os.Stdout, os.Stderr)
}

func probeHealth(baseURL, mode string, timeout time.Duration) int {
	return probe(baseURL, mode, timeout, io.Discard, io.Discard)
}

func probe(baseURL, mode string, timeout time.Duration, stdout, stderr io.Writer) int {
	resp, err := httpx.NewClient(timeout).Get(baseURL + probePaths[mode])
	if err != nil {
		fmt.Fprintf(stderr, "%s probe failed: %v\n", mode, err)
		return 1
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(stderr, "%s probe failed: %s\n", mode, resp.Status)
		return 1
	}
	fmt.Fprintf(stdout, "%s probe ok\n", mode)
	return 0
}

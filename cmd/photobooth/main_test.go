// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"bytes"
	"context"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
booth:
  device: pattern
  timing:
    warmup: 0s
    announce: 0s
    countdown: 0s
    flash: 0s
    postShot: 0s
    assemble: 0s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_WritesCollage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	out := filepath.Join(t.TempDir(), "collage.jpg")
	var stdout, stderr bytes.Buffer
	code := run(ctx, []string{"-config", fastConfig(t), "-out", out, "-shots", "2", "-stickers", "crown, heart"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	_, err = jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Saved "+out)
}

func TestRun_Rejections(t *testing.T) {
	ctx := context.Background()
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 2, run(ctx, []string{"-bogus"}, &stdout, &stderr))
	assert.Equal(t, 1, run(ctx, []string{"-config", fastConfig(t), "-shots", "7"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "booth.shots")
	assert.Equal(t, 2, run(ctx, []string{"-config", fastConfig(t), "-stickers", "unicorn"}, &stdout, &stderr))
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package gift

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/partybooth/internal/ai"
	"github.com/ManuGH/partybooth/internal/blob"
	"github.com/ManuGH/partybooth/internal/cache"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type imageGenerator struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
	prompt  atomic.Value
}

func (g *imageGenerator) GenerateText(context.Context, string, ai.TextOptions) (string, error) {
	return "", errors.New("not used")
}

func (g *imageGenerator) GenerateImage(ctx context.Context, prompt string, opts ai.ImageOptions) (ai.Image, error) {
	g.calls.Add(1)
	g.prompt.Store(prompt)
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return ai.Image{}, ctx.Err()
		}
	}
	if g.err != nil {
		return ai.Image{}, g.err
	}
	return ai.Image{Data: []byte("\xFF\xD8gift"), MIMEType: opts.MIMEType}, nil
}

func newIllustrator(t *testing.T, gen ai.Generator) (*Illustrator, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	blobs, err := blob.NewFSStore(filepath.Join(t.TempDir(), "blobs"), "/blob")
	require.NoError(t, err)
	return NewIllustrator(gen, cache.NewRedisCache("gift", client), blobs, "jeeya-sweet-16", 0), mr
}

func TestIllustrator_GeneratesOnceThenCaches(t *testing.T) {
	gen := &imageGenerator{}
	il, mr := newIllustrator(t, gen)
	ctx := context.Background()

	url, err := il.Illustrate(ctx, "a glowing charm bracelet")
	require.NoError(t, err)
	assert.Equal(t, "/blob/gifts/jeeya-sweet-16-gift.jpeg", url)
	assert.Contains(t, gen.prompt.Load(), `"a glowing charm bracelet"`)

	cached, err := mr.Get("gift-image:jeeya-sweet-16")
	require.NoError(t, err)
	assert.Equal(t, url, cached)
	assert.Equal(t, 30*24*time.Hour, mr.TTL("gift-image:jeeya-sweet-16"))

	again, err := il.Illustrate(ctx, "something else entirely")
	require.NoError(t, err)
	assert.Equal(t, url, again)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestIllustrator_ConcurrentCallsShareGeneration(t *testing.T) {
	gen := &imageGenerator{release: make(chan struct{})}
	il, _ := newIllustrator(t, gen)

	const n = 8
	var wg sync.WaitGroup
	urls := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			urls[i], errs[i] = il.Illustrate(context.Background(), "bracelet")
		}()
	}

	require.Eventually(t, func() bool { return gen.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(gen.release)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "/blob/gifts/jeeya-sweet-16-gift.jpeg", urls[i])
	}
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestIllustrator_CanceledCallerDoesNotAbortGeneration(t *testing.T) {
	gen := &imageGenerator{release: make(chan struct{})}
	il, mr := newIllustrator(t, gen)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := il.Illustrate(ctx, "bracelet")
		done <- err
	}()
	require.Eventually(t, func() bool { return gen.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	close(gen.release)
	require.NoError(t, <-done)
	assert.True(t, mr.Exists("gift-image:jeeya-sweet-16"))
}

func TestIllustrator_FailureIsNotCached(t *testing.T) {
	gen := &imageGenerator{err: errors.New("quota")}
	il, mr := newIllustrator(t, gen)

	_, err := il.Illustrate(context.Background(), "bracelet")
	require.Error(t, err)
	assert.False(t, mr.Exists("gift-image:jeeya-sweet-16"))

	gen.err = nil
	_, err = il.Illustrate(context.Background(), "bracelet")
	require.NoError(t, err)
	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestIllustrator_RequiresPrompt(t *testing.T) {
	gen := &imageGenerator{}
	il, _ := newIllustrator(t, gen)
	_, err := il.Illustrate(context.Background(), "  ")
	require.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, "A prompt is required to generate an image.", err.Error())
	assert.Zero(t, gen.calls.Load())
}

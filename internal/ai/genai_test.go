// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/partybooth/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGemini struct {
	calls  atomic.Int32
	status int
	last   atomic.Value // request body map
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.last.Store(body)

	if f.status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, ":generateContent"):
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"  Sixteen candles glow  "}]},"finishReason":"STOP"}]}`))
	case strings.HasSuffix(r.URL.Path, ":predict"):
		payload := base64.StdEncoding.EncodeToString([]byte("\xFF\xD8gift"))
		_, _ = w.Write([]byte(`{"predictions":[{"bytesBase64Encoded":"` + payload + `","mimeType":"image/jpeg"}]}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, f *fakeGemini) *GenAIClient {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	c, err := NewGenAIClient(context.Background(), Config{
		APIKey:           "test-key",
		Timeout:          5 * time.Second,
		BreakerThreshold: 2,
		BreakerReset:     time.Hour,
		BaseURL:          srv.URL + "/",
	})
	require.NoError(t, err)
	return c
}

func TestNewGenAIClient_RequiresKey(t *testing.T) {
	_, err := NewGenAIClient(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestGenAIClient_GenerateText(t *testing.T) {
	f := &fakeGemini{}
	c := newTestClient(t, f)

	text, err := c.GenerateText(context.Background(), "write a poem", TextOptions{Temperature: 0.8})
	require.NoError(t, err)
	assert.Equal(t, "Sixteen candles glow", text)

	body, _ := f.last.Load().(map[string]any)
	require.NotNil(t, body)
	gen, _ := body["generationConfig"].(map[string]any)
	require.NotNil(t, gen, "temperature is sent as generation config")
	assert.InDelta(t, 0.8, gen["temperature"], 0.001)
}

func TestGenAIClient_GenerateImage(t *testing.T) {
	c := newTestClient(t, &fakeGemini{})

	img, err := c.GenerateImage(context.Background(), "a gift", ImageOptions{AspectRatio: "1:1", MIMEType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, []byte("\xFF\xD8gift"), img.Data)
	assert.Equal(t, "image/jpeg", img.MIMEType)
}

func TestGenAIClient_BreakerOpensAfterFailures(t *testing.T) {
	f := &fakeGemini{status: http.StatusInternalServerError}
	c := newTestClient(t, f)

	for i := 0; i < 2; i++ {
		_, err := c.GenerateText(context.Background(), "p", TextOptions{})
		require.Error(t, err)
	}
	calls := f.calls.Load()

	_, err := c.GenerateText(context.Background(), "p", TextOptions{})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, calls, f.calls.Load(), "open breaker short-circuits the upstream")
}

func TestDisabled(t *testing.T) {
	var g Generator = Disabled{}
	_, err := g.GenerateText(context.Background(), "p", TextOptions{})
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = g.GenerateImage(context.Background(), "p", ImageOptions{})
	assert.ErrorIs(t, err, ErrDisabled)
}

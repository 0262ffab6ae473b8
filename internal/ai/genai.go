// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/partybooth/internal/log"
	"github.com/ManuGH/partybooth/internal/metrics"
	"github.com/ManuGH/partybooth/internal/platform/httpx"
	"github.com/ManuGH/partybooth/internal/resilience"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// Config configures the Gemini API client.
type Config struct {
	APIKey           string
	TextModel        string
	ImageModel       string
	Timeout          time.Duration
	BreakerThreshold int
	BreakerReset     time.Duration
	BaseURL          string // overrides the API endpoint; empty uses the default
}

// GenAIClient is a Generator backed by google.golang.org/genai.
type GenAIClient struct {
	client     *genai.Client
	textModel  string
	imageModel string
	breaker    *resilience.Breaker
	logger     zerolog.Logger
}

var _ Generator = (*GenAIClient)(nil)

// NewGenAIClient creates a client for the Gemini API backend.
func NewGenAIClient(ctx context.Context, cfg Config) (*GenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrDisabled
	}
	if cfg.TextModel == "" {
		cfg.TextModel = "gemini-2.5-flash"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "imagen-3.0-generate-002"
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerReset <= 0 {
		cfg.BreakerReset = 30 * time.Second
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpx.NewUpstreamClient("genai", cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("ai: create genai client: %w", err)
	}

	return &GenAIClient{
		client:     client,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		breaker:    resilience.NewBreaker(resilience.Config{Name: "genai", Threshold: cfg.BreakerThreshold, Cooldown: cfg.BreakerReset}),
		logger:     log.WithComponent("ai"),
	}, nil
}

// GenerateText implements Generator.
func (c *GenAIClient) GenerateText(ctx context.Context, prompt string, opts TextOptions) (string, error) {
	var gcc *genai.GenerateContentConfig
	if opts.Temperature > 0 {
		gcc = &genai.GenerateContentConfig{Temperature: genai.Ptr(opts.Temperature)}
	}

	var text string
	err := c.call(ctx, "text", c.textModel, func() error {
		resp, err := c.client.Models.GenerateContent(ctx, c.textModel, genai.Text(prompt), gcc)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(resp.Text())
		if text == "" {
			return ErrEmptyResponse
		}
		return nil
	})
	return text, err
}

// GenerateImage implements Generator.
func (c *GenAIClient) GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (Image, error) {
	gic := &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    opts.AspectRatio,
		OutputMIMEType: opts.MIMEType,
	}

	var img Image
	err := c.call(ctx, "image", c.imageModel, func() error {
		resp, err := c.client.Models.GenerateImages(ctx, c.imageModel, prompt, gic)
		if err != nil {
			return err
		}
		if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil ||
			len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
			return ErrEmptyResponse
		}
		out := resp.GeneratedImages[0].Image
		img = Image{Data: out.ImageBytes, MIMEType: out.MIMEType}
		if img.MIMEType == "" {
			img.MIMEType = opts.MIMEType
		}
		return nil
	})
	return img, err
}

func (c *GenAIClient) call(ctx context.Context, kind, model string, fn func() error) error {
	start := time.Now()
	err := c.breaker.Do(fn)
	d := time.Since(start)
	metrics.RecordAIRequest(kind, d, err)

	lg := log.WithContext(ctx, c.logger)
	ev := lg.Debug()
	if err != nil {
		ev = lg.Warn().Err(err)
	}
	ev.Str(log.FieldEvent, "ai."+kind).
		Str("model", model).
		Dur("duration", d).
		Msg("model call finished")

	if err != nil {
		return fmt.Errorf("ai: %s generation: %w", kind, err)
	}
	return nil
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package gift illustrates the birthday gift once and serves the cached picture.
package gift

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/partybooth/internal/ai"
	"github.com/ManuGH/partybooth/internal/blob"
	"github.com/ManuGH/partybooth/internal/cache"
	"github.com/ManuGH/partybooth/internal/log"
	"github.com/ManuGH/partybooth/internal/sanitize"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// RetiredMessage is returned by the old gift concept endpoint.
const RetiredMessage = "This feature is no longer available."

const (
	// MaxPrompt caps the prompt length in runes.
	MaxPrompt  = 300
	defaultTTL = 30 * 24 * time.Hour
)

// ErrInvalid classifies prompt validation failures.
var ErrInvalid = errors.New("gift: invalid prompt")

// ValidationError carries a message safe to show to guests.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

const promptTemplate = `A sleek, professional product shot of the following item: "%s". The item should look elegant, futuristic and magical, displayed on a clean, dark, ethereal background with soft glowing particles. High resolution, photorealistic, 8k.`

// Illustrator generates the gift picture on first request and caches its URL.
type Illustrator struct {
	gen    ai.Generator
	cache  cache.Cache
	blobs  blob.Store
	slug   string
	ttl    time.Duration
	group  singleflight.Group
	logger zerolog.Logger
}

// NewIllustrator creates an Illustrator for the gift identified by slug.
// A non-positive ttl uses thirty days.
func NewIllustrator(gen ai.Generator, c cache.Cache, blobs blob.Store, slug string, ttl time.Duration) *Illustrator {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Illustrator{
		gen:    gen,
		cache:  c,
		blobs:  blobs,
		slug:   slug,
		ttl:    ttl,
		logger: log.WithComponent("gift"),
	}
}

// CacheKey is the KV key holding the picture URL.
func (i *Illustrator) CacheKey() string { return "gift-image:" + i.slug }

// Pathname is the blob path of the picture.
func (i *Illustrator) Pathname() string { return "gifts/" + i.slug + "-gift.jpeg" }

// Illustrate returns the URL of the gift picture, generating it when the
// cache is empty. Concurrent calls share one generation.
func (i *Illustrator) Illustrate(ctx context.Context, prompt string) (string, error) {
	prompt = sanitize.Line(prompt, MaxPrompt)
	if prompt == "" {
		return "", &ValidationError{Message: "A prompt is required to generate an image."}
	}

	key := i.CacheKey()
	if url, ok := i.cache.Get(ctx, key); ok {
		return url, nil
	}

	// Waiters share the result, so the generation must outlive any one request.
	shared := context.WithoutCancel(ctx)
	v, err, dup := i.group.Do(key, func() (any, error) {
		if url, ok := i.cache.Get(shared, key); ok {
			return url, nil
		}
		return i.generate(shared, prompt)
	})
	if err != nil {
		return "", err
	}
	if dup {
		lg := log.WithContext(ctx, i.logger)
		lg.Debug().Str(log.FieldKey, key).Msg("joined in-flight gift generation")
	}
	return v.(string), nil
}

func (i *Illustrator) generate(ctx context.Context, prompt string) (string, error) {
	full := fmt.Sprintf(promptTemplate, strings.ReplaceAll(prompt, `"`, `'`))
	img, err := i.gen.GenerateImage(ctx, full, ai.ImageOptions{AspectRatio: "1:1", MIMEType: "image/jpeg"})
	if err != nil {
		return "", fmt.Errorf("gift: generate image: %w", err)
	}
	obj, err := i.blobs.Put(ctx, i.Pathname(), img.Data, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("gift: store image: %w", err)
	}
	i.cache.Set(ctx, i.CacheKey(), obj.URL, i.ttl)

	lg := log.WithContext(ctx, i.logger)
	lg.Info().
		Str(log.FieldEvent, "gift.illustrated").
		Str(log.FieldPath, obj.Pathname).
		Int(log.FieldBytes, len(img.Data)).
		Msg("gift picture generated")
	return obj.URL, nil
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ai generates text and images with a hosted model.
package ai

import (
	"context"
	"errors"
)

var (
	// ErrDisabled is returned when no API key is configured.
	ErrDisabled = errors.New("ai: API key not configured")
	// ErrEmptyResponse is returned when the model answers without content.
	ErrEmptyResponse = errors.New("ai: empty response")
)

// TextOptions tune a text generation call. Zero values use model defaults.
type TextOptions struct {
	Temperature float32
}

// ImageOptions tune an image generation call.
type ImageOptions struct {
	AspectRatio string // e.g. "1:1"
	MIMEType    string // e.g. "image/jpeg"
}

// Image is generated image data.
type Image struct {
	Data     []byte
	MIMEType string
}

// Generator produces text and images from prompts.
type Generator interface {
	GenerateText(ctx context.Context, prompt string, opts TextOptions) (string, error)
	GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (Image, error)
}

// Disabled is the Generator used without an API key.
type Disabled struct{}

func (Disabled) GenerateText(context.Context, string, TextOptions) (string, error) {
	return "", ErrDisabled
}

func (Disabled) GenerateImage(context.Context, string, ImageOptions) (Image, error) {
	return Image{}, ErrDisabled
}

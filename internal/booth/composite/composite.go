// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package composite assembles captured shots into the shareable collage:
// gradient background, confetti, a title and one polaroid per shot.
package composite

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // decoder for captured frames
	_ "image/png"
	"time"

	"github.com/ManuGH/partybooth/internal/booth/capture"
)

// ErrCompositeFailure is returned when a frame cannot be decoded or the
// collage cannot be encoded. No artifact is produced.
var ErrCompositeFailure = errors.New("composite: render failed")

// Canvas size of the collage.
const (
	CanvasWidth  = 800
	CanvasHeight = 1100
)

// LayoutSlot is a fixed polaroid position keyed by shot index.
type LayoutSlot struct {
	Center image.Point
	Angle  float64 // degrees, clockwise
}

// layout holds one entry per supported shot.
var layout = [capture.MaxShots]LayoutSlot{
	{Center: image.Pt(400, 320), Angle: -6},
	{Center: image.Pt(220, 680), Angle: 8},
	{Center: image.Pt(580, 700), Angle: -3},
	{Center: image.Pt(400, 905), Angle: 4},
}

// Layout returns the slot table.
func Layout() []LayoutSlot {
	out := make([]LayoutSlot, len(layout))
	copy(out, layout[:])
	return out
}

// Slot describes where a frame was drawn on the canvas.
type Slot struct {
	Index  int             `json:"index"`
	Center image.Point     `json:"center"`
	Angle  float64         `json:"angle"`
	Bounds image.Rectangle `json:"bounds"`
}

// Artifact is the finished collage.
type Artifact struct {
	Data      []byte    `json:"-"`
	MIME      string    `json:"mime"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Title     string    `json:"title"`
	Slots     []Slot    `json:"slots"`
	CreatedAt time.Time `json:"createdAt"`
}

// DataURI returns the artifact as a data: URI.
func (a *Artifact) DataURI() string {
	return "data:" + a.MIME + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// FrameLoader decodes a captured frame. Render waits for every Load to return.
type FrameLoader interface {
	Load(ctx context.Context, f capture.Frame) (image.Image, error)
}

// DecodeLoader decodes frame bytes with the registered image decoders.
type DecodeLoader struct{}

// Load implements FrameLoader.
func (DecodeLoader) Load(ctx context.Context, f capture.Frame) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.Data) == 0 {
		return nil, fmt.Errorf("frame %d: no data", f.Index)
	}
	img, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", f.Index, err)
	}
	return img, nil
}

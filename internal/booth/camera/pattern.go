// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package camera

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
)

// PatternDevice is a synthetic camera producing a test card. It is exclusive
// like a real device: a second Open while a stream is live fails with ErrDeviceBusy.
type PatternDevice struct {
	mu   sync.Mutex
	open bool
}

// NewPatternDevice returns a synthetic device.
func NewPatternDevice() *PatternDevice { return &PatternDevice{} }

// Name implements Device.
func (d *PatternDevice) Name() string { return "pattern" }

// Open implements Device.
func (d *PatternDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return nil, ErrDeviceBusy
	}
	d.open = true
	w, h := c.Width, c.Height
	if w <= 0 || h <= 0 {
		w, h = 1280, 720
	}
	return &patternStream{dev: d, w: w, h: h}, nil
}

// Probe implements Prober. The synthetic device is always present.
func (d *PatternDevice) Probe(context.Context) error { return nil }

// InUse reports whether a stream is currently open.
func (d *PatternDevice) InUse() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

type patternStream struct {
	dev    *PatternDevice
	w, h   int
	tick   atomic.Uint64
	closed atomic.Bool
}

func (s *patternStream) Size() (int, int) { return s.w, s.h }

// Frame draws a gradient with a marker square in the top-left quadrant and a
// bar that moves across the frame on each call.
func (s *patternStream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrNoStream
	}
	n := s.tick.Add(1)
	img := image.NewRGBA(image.Rect(0, 0, s.w, s.h))
	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 255 / s.w),
				G: uint8(y * 255 / s.h),
				B: 160,
				A: 255,
			})
		}
	}
	marker := image.Rect(s.w/8, s.h/8, s.w/4, s.h/4)
	fillRect(img, marker, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	barW := max(s.w/20, 1)
	barX := int(n*uint64(barW)) % s.w
	fillRect(img, image.Rect(barX, 0, barX+barW, s.h), color.RGBA{R: 233, G: 69, B: 96, A: 255})
	return img, nil
}

func (s *patternStream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.dev.mu.Lock()
	s.dev.open = false
	s.dev.mu.Unlock()
	return nil
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

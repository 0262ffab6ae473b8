// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/ManuGH/partybooth/internal/booth/sticker"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// ErrEmptyFrame is returned when the camera frame has no pixels.
var ErrEmptyFrame = errors.New("capture: empty frame")

// Viewport is the on-screen video box. Display is its size in pixels and
// Origin its top-left corner in the same coordinate space as sticker positions.
type Viewport struct {
	Display image.Point `json:"display"`
	Origin  image.Point `json:"origin"`
}

// DefaultViewport is a 640px square container at the origin.
func DefaultViewport() Viewport {
	return Viewport{Display: image.Pt(640, 640)}
}

// Valid reports whether the viewport has a positive area.
func (v Viewport) Valid() bool {
	return v.Display.X > 0 && v.Display.Y > 0
}

// Flatten renders frame at the displayed size with object-fit cover, mirrored
// left-right, then draws each placement's artwork into its on-screen box.
// Placements are drawn in slice order, so later stickers cover earlier ones.
func Flatten(frame image.Image, vp Viewport, placements []sticker.Placement, art ArtSource) (*image.RGBA, error) {
	if !vp.Valid() {
		return nil, fmt.Errorf("flatten: invalid viewport %v", vp.Display)
	}
	src := frame.Bounds()
	if src.Empty() {
		return nil, ErrEmptyFrame
	}

	dst := image.NewRGBA(image.Rectangle{Max: vp.Display})
	draw.BiLinear.Transform(dst, coverMirror(src, vp.Display), frame, src, draw.Src, nil)

	for _, p := range placements {
		box := p.Box().Sub(vp.Origin)
		if box.Intersect(dst.Bounds()).Empty() {
			continue
		}
		img, err := art.Image(p.Kind)
		if err != nil {
			return nil, fmt.Errorf("flatten: sticker %d: %w", p.RenderID, err)
		}
		draw.BiLinear.Scale(dst, box, img, img.Bounds(), draw.Over, nil)
	}
	return dst, nil
}

// coverMirror maps source pixels onto a display of size d: scaled to cover,
// centred, and flipped horizontally.
func coverMirror(src image.Rectangle, d image.Point) f64.Aff3 {
	sw, sh := float64(src.Dx()), float64(src.Dy())
	dw, dh := float64(d.X), float64(d.Y)
	scale := max(dw/sw, dh/sh)
	offX := (dw - sw*scale) / 2
	offY := (dh - sh*scale) / 2
	minX, minY := float64(src.Min.X), float64(src.Min.Y)
	return f64.Aff3{
		-scale, 0, dw - offX + scale*minX,
		0, scale, offY - scale*minY,
	}
}

// EncodeJPEG encodes img at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

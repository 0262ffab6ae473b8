// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sticker

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/vector"
)

// GlyphSize is the edge length of procedurally drawn stickers.
const GlyphSize = 160

// Catalog resolves sticker kinds to artwork. Artwork is read from
// <dir>/<kind>.png when present and drawn procedurally otherwise.
type Catalog struct {
	dir string

	mu    sync.RWMutex
	cache map[Kind]image.Image
}

// NewCatalog returns a catalog reading from dir. An empty dir uses built-in glyphs only.
func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir, cache: make(map[Kind]image.Image)}
}

// Image returns the artwork for kind.
func (c *Catalog) Image(kind Kind) (image.Image, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	c.mu.RLock()
	img, ok := c.cache[kind]
	c.mu.RUnlock()
	if ok {
		return img, nil
	}

	img, err := c.load(kind)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cache[kind] = img
	c.mu.Unlock()
	return img, nil
}

func (c *Catalog) load(kind Kind) (image.Image, error) {
	if c.dir != "" {
		f, err := os.Open(filepath.Join(c.dir, string(kind)+".png"))
		switch {
		case err == nil:
			defer func() { _ = f.Close() }()
			img, err := png.Decode(f)
			if err != nil {
				return nil, fmt.Errorf("decode sticker %s: %w", kind, err)
			}
			return img, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("open sticker %s: %w", kind, err)
		}
	}
	return Glyph(kind, GlyphSize), nil
}

var (
	yellow = color.RGBA{R: 0xFD, G: 0xCB, B: 0x6E, A: 0xFF}
	pink   = color.RGBA{R: 0xFF, G: 0x76, B: 0x75, A: 0xFF}
	red    = color.RGBA{R: 0xE9, G: 0x45, B: 0x60, A: 0xFF}
	purple = color.RGBA{R: 0xA2, G: 0x9B, B: 0xFE, A: 0xFF}
	cyan   = color.RGBA{R: 0x81, G: 0xEC, B: 0xEC, A: 0xFF}
	gold   = color.RGBA{R: 0xF1, G: 0xC4, B: 0x0F, A: 0xFF}
	ink    = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xFF}
	white  = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

// Glyph draws a built-in sticker of the given size on a transparent background.
func Glyph(kind Kind, size int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	s := float32(size)
	p := &painter{dst: dst, s: s}

	switch kind {
	case PartyingFace:
		p.circle(0.5, 0.58, 0.38, yellow)
		p.poly(purple, 0.30, 0.30, 0.50, 0.0, 0.70, 0.30)
		p.circle(0.38, 0.52, 0.05, ink)
		p.circle(0.62, 0.52, 0.05, ink)
		p.rect(0.38, 0.72, 0.62, 0.76, ink)
	case BirthdayCake:
		p.rect(0.15, 0.50, 0.85, 0.90, pink)
		p.rect(0.15, 0.50, 0.85, 0.58, white)
		p.rect(0.47, 0.25, 0.53, 0.50, cyan)
		p.poly(gold, 0.44, 0.25, 0.50, 0.08, 0.56, 0.25)
	case StarStruck:
		p.circle(0.5, 0.5, 0.42, yellow)
		p.star(0.36, 0.42, 0.09, red)
		p.star(0.64, 0.42, 0.09, red)
		p.rect(0.36, 0.68, 0.64, 0.73, ink)
	case Heart:
		p.heart(red)
	case Crown:
		p.poly(gold, 0.10, 0.80, 0.10, 0.30, 0.30, 0.55, 0.50, 0.20, 0.70, 0.55, 0.90, 0.30, 0.90, 0.80)
		p.circle(0.50, 0.62, 0.06, red)
	case Sunglasses:
		p.rect(0.08, 0.38, 0.44, 0.62, ink)
		p.rect(0.56, 0.38, 0.92, 0.62, ink)
		p.rect(0.44, 0.42, 0.56, 0.47, ink)
	}
	return dst
}

// painter draws filled shapes in unit coordinates scaled to the canvas.
type painter struct {
	dst *image.RGBA
	s   float32
}

func (p *painter) fill(c color.Color, path func(z *vector.Rasterizer)) {
	b := p.dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	path(z)
	z.Draw(p.dst, b, image.NewUniform(c), image.Point{})
}

func (p *painter) poly(c color.Color, xy ...float32) {
	p.fill(c, func(z *vector.Rasterizer) {
		z.MoveTo(xy[0]*p.s, xy[1]*p.s)
		for i := 2; i+1 < len(xy); i += 2 {
			z.LineTo(xy[i]*p.s, xy[i+1]*p.s)
		}
		z.ClosePath()
	})
}

func (p *painter) rect(x0, y0, x1, y1 float32, c color.Color) {
	p.poly(c, x0, y0, x1, y0, x1, y1, x0, y1)
}

func (p *painter) circle(cx, cy, r float32, c color.Color) {
	const segments = 48
	xy := make([]float32, 0, segments*2)
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / segments
		xy = append(xy, cx+r*float32(math.Cos(a)), cy+r*float32(math.Sin(a)))
	}
	p.poly(c, xy...)
}

func (p *painter) star(cx, cy, r float32, c color.Color) {
	xy := make([]float32, 0, 20)
	for i := 0; i < 10; i++ {
		rr := r
		if i%2 == 1 {
			rr = r * 0.45
		}
		a := -math.Pi/2 + math.Pi*float64(i)/5
		xy = append(xy, cx+rr*float32(math.Cos(a)), cy+rr*float32(math.Sin(a)))
	}
	p.poly(c, xy...)
}

func (p *painter) heart(c color.Color) {
	s := p.s
	p.fill(c, func(z *vector.Rasterizer) {
		z.MoveTo(0.5*s, 0.88*s)
		z.CubeTo(0.05*s, 0.55*s, 0.05*s, 0.15*s, 0.5*s, 0.32*s)
		z.CubeTo(0.95*s, 0.15*s, 0.95*s, 0.55*s, 0.5*s, 0.88*s)
		z.ClosePath()
	})
}

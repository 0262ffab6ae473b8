// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package composite

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Polaroid geometry.
const (
	cardWidth    = 320
	cardHeight   = 380
	photoSize    = 280
	photoOffsetY = 20
	captionY     = photoOffsetY + photoSize + 45
	shadowOffset = 10
	shadowBlur   = 25
)

var (
	gradientInner = color.RGBA{R: 0x3a, G: 0x32, B: 0x7a, A: 0xff}
	gradientOuter = color.RGBA{R: 0x0f, G: 0x0c, B: 0x29, A: 0xff}
	titleColor    = color.RGBA{R: 0xe9, G: 0x45, B: 0x60, A: 0xff}
	cardColor     = color.RGBA{R: 0xfd, G: 0xfd, B: 0xfd, A: 0xff}
	captionColor  = color.RGBA{R: 0x55, G: 0x55, B: 0x55, A: 0xff}

	confettiPalette = []color.RGBA{
		{R: 0xe9, G: 0x45, B: 0x60, A: 0xff},
		{R: 0xff, G: 0x76, B: 0x75, A: 0xff},
		{R: 0xfd, G: 0xcb, B: 0x6e, A: 0xff},
		{R: 0xa2, G: 0x9b, B: 0xfe, A: 0xff},
		{R: 0x81, G: 0xec, B: 0xec, A: 0xff},
	}
)

// radialGradient fills dst from inner at the centre to outer at radius and beyond.
func radialGradient(dst *image.RGBA, radius float64, inner, outer color.RGBA) {
	b := dst.Bounds()
	cx := float64(b.Min.X+b.Max.X) / 2
	cy := float64(b.Min.Y+b.Max.Y) / 2
	lerp := func(a, b uint8, t float64) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			t := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) / radius
			if t > 1 {
				t = 1
			}
			dst.SetRGBA(x, y, color.RGBA{
				R: lerp(inner.R, outer.R, t),
				G: lerp(inner.G, outer.G, t),
				B: lerp(inner.B, outer.B, t),
				A: 0xff,
			})
		}
	}
}

// confetti scatters count rotated rectangles with random colour and opacity.
func confetti(dst *image.RGBA, rng *rand.Rand, count int) {
	b := dst.Bounds()
	for i := 0; i < count; i++ {
		x := rng.Float64() * float64(b.Dx())
		y := rng.Float64() * float64(b.Dy())
		w := rng.Float64()*8 + 4
		h := rng.Float64()*15 + 5
		angle := rng.Float64() * 2 * math.Pi
		c := confettiPalette[rng.IntN(len(confettiPalette))]
		alpha := rng.Float64()*0.6 + 0.4
		fill := color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(alpha * 255)}
		fillPolygon(dst, fill, rectCorners(x, y, w, h, angle, 0))
	}
}

// rectCorners returns the corners of a w×h rectangle centred on (cx,cy),
// grown by inflate on every side and rotated by angle radians.
func rectCorners(cx, cy, w, h, angle, inflate float64) []f64.Vec2 {
	hw, hh := w/2+inflate, h/2+inflate
	sin, cos := math.Sincos(angle)
	pts := []f64.Vec2{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}
	for i, p := range pts {
		pts[i] = f64.Vec2{cx + p[0]*cos - p[1]*sin, cy + p[0]*sin + p[1]*cos}
	}
	return pts
}

func fillPolygon(dst *image.RGBA, c color.Color, pts []f64.Vec2) {
	if len(pts) < 3 {
		return
	}
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	z.MoveTo(float32(pts[0][0]), float32(pts[0][1]))
	for _, p := range pts[1:] {
		z.LineTo(float32(p[0]), float32(p[1]))
	}
	z.ClosePath()
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

// drawCentered draws text horizontally centred on cx with its baseline at y.
func drawCentered(dst *image.RGBA, face font.Face, text string, cx, y int, c color.Color) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face}
	width := d.MeasureString(text)
	d.Dot = fixed.Point26_6{X: fixed.I(cx) - width/2, Y: fixed.I(y)}
	d.DrawString(text)
}

// drawTitle draws text with a soft drop shadow.
func drawTitle(dst *image.RGBA, face font.Face, text string, cx, y int) {
	shadow := color.NRGBA{A: 0x40}
	for _, off := range []image.Point{{2, 2}, {4, 4}, {3, 5}, {5, 3}} {
		drawCentered(dst, face, text, cx+off.X, y+off.Y, shadow)
	}
	drawCentered(dst, face, text, cx, y, titleColor)
}

// polaroidCard renders the card with the photo cropped to a square and the caption below it.
func polaroidCard(photo image.Image, caption string, face font.Face) *image.RGBA {
	card := image.NewRGBA(image.Rect(0, 0, cardWidth, cardHeight))
	draw.Draw(card, card.Bounds(), image.NewUniform(cardColor), image.Point{}, draw.Src)

	left := (cardWidth - photoSize) / 2
	area := image.Rect(left, photoOffsetY, left+photoSize, photoOffsetY+photoSize)
	draw.BiLinear.Scale(card, area, photo, squareCrop(photo.Bounds()), draw.Src, nil)

	if caption != "" {
		drawCentered(card, face, caption, cardWidth/2, captionY, captionColor)
	}
	return card
}

// squareCrop returns the centred square of r (object-fit cover into a square).
func squareCrop(r image.Rectangle) image.Rectangle {
	side := min(r.Dx(), r.Dy())
	x0 := r.Min.X + (r.Dx()-side)/2
	y0 := r.Min.Y + (r.Dy()-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}

// drawRotated composites src onto dst centred on c, rotated clockwise by
// deg degrees, and returns the covered bounding box.
func drawRotated(dst *image.RGBA, src *image.RGBA, c image.Point, deg float64) image.Rectangle {
	sin, cos := math.Sincos(deg * math.Pi / 180)
	sb := src.Bounds()
	scx, scy := float64(sb.Dx())/2, float64(sb.Dy())/2
	px, py := float64(c.X), float64(c.Y)
	m := f64.Aff3{
		cos, -sin, px - (cos*scx - sin*scy),
		sin, cos, py - (sin*scx + cos*scy),
	}
	draw.BiLinear.Transform(dst, m, src, sb, draw.Over, nil)

	corners := rectCorners(px, py, float64(sb.Dx()), float64(sb.Dy()), deg*math.Pi/180, 0)
	return boundsOf(corners)
}

// dropShadow draws a blurred rotated shadow for a w×h card centred on c.
func dropShadow(dst *image.RGBA, c image.Point, w, h int, deg float64) {
	const steps = 5
	angle := deg * math.Pi / 180
	cx, cy := float64(c.X+shadowOffset), float64(c.Y+shadowOffset)
	for i := 0; i < steps; i++ {
		inflate := float64(shadowBlur) * float64(steps-i) / steps / 2
		fillPolygon(dst, color.NRGBA{A: 0x15}, rectCorners(cx, cy, float64(w), float64(h), angle, inflate))
	}
}

func boundsOf(pts []f64.Vec2) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
		minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

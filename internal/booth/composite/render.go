// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package composite

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/ManuGH/partybooth/internal/booth/capture"
	"github.com/ManuGH/partybooth/internal/log"
	"github.com/ManuGH/partybooth/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultTitles is the title pool.
var DefaultTitles = []string{
	"Happy Sweet 16!",
	"Party Time!",
	"Making Memories",
	"Sixteen & Sparkling",
	"Jeeya's Big Day!",
}

// Options configure a Renderer. Zero values take defaults.
type Options struct {
	Titles   []string
	Caption  string
	Quality  int
	Confetti int
	Loader   FrameLoader
	// Rand returns the randomness source for one render.
	Rand func() *rand.Rand
	Now  func() time.Time
}

// Renderer produces collages. It is safe for concurrent use.
type Renderer struct {
	opts   Options
	logger zerolog.Logger
}

var seedCounter atomic.Uint64

// NewRenderer applies defaults to opts.
func NewRenderer(opts Options) *Renderer {
	if len(opts.Titles) == 0 {
		opts.Titles = DefaultTitles
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 95
	}
	if opts.Confetti <= 0 {
		opts.Confetti = 200
	}
	if opts.Loader == nil {
		opts.Loader = DecodeLoader{}
	}
	if opts.Rand == nil {
		opts.Rand = func() *rand.Rand {
			return rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), seedCounter.Add(1)))
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Renderer{opts: opts, logger: log.WithComponent("composite")}
}

// Render decodes every frame, then draws the collage. Nothing is drawn until
// all frames are decoded; a decode failure yields ErrCompositeFailure and a
// canceled ctx yields ctx.Err(). Frame i goes to layout slot i.
func (r *Renderer) Render(ctx context.Context, frames []capture.Frame) (*Artifact, error) {
	start := r.opts.Now()
	art, err := r.render(ctx, frames)
	d := r.opts.Now().Sub(start)

	switch {
	case err == nil:
		metrics.RecordCompositeRender("success", d)
		r.logger.Info().
			Str(log.FieldEvent, "booth.composite.rendered").
			Int(log.FieldShots, len(frames)).
			Int(log.FieldBytes, len(art.Data)).
			Dur("duration", d).
			Msg("composite rendered")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		metrics.RecordCompositeRender("canceled", d)
	default:
		metrics.RecordCompositeRender("failure", d)
		r.logger.Error().Err(err).Str(log.FieldEvent, "booth.composite.failed").Msg("composite render failed")
	}
	return art, err
}

func (r *Renderer) render(ctx context.Context, frames []capture.Frame) (*Artifact, error) {
	if len(frames) == 0 || len(frames) > len(layout) {
		return nil, fmt.Errorf("%w: %d frames, layout holds 1..%d", ErrCompositeFailure, len(frames), len(layout))
	}

	photos, err := r.loadAll(ctx, frames)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrCompositeFailure, err)
	}

	fc, err := newFaces(60, 24)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompositeFailure, err)
	}
	defer fc.Close()

	rng := r.opts.Rand()
	canvas := image.NewRGBA(image.Rect(0, 0, CanvasWidth, CanvasHeight))
	radialGradient(canvas, 0.8*CanvasWidth, gradientInner, gradientOuter)
	confetti(canvas, rng, r.opts.Confetti)

	title := r.opts.Titles[rng.IntN(len(r.opts.Titles))]
	drawTitle(canvas, fc.title, title, CanvasWidth/2, 100)

	slots := make([]Slot, len(photos))
	for i, photo := range photos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ls := layout[i]
		card := polaroidCard(photo, r.opts.Caption, fc.caption)
		dropShadow(canvas, ls.Center, cardWidth, cardHeight, ls.Angle)
		bounds := drawRotated(canvas, card, ls.Center, ls.Angle)
		slots[i] = Slot{Index: i, Center: ls.Center, Angle: ls.Angle, Bounds: bounds}
	}

	data, err := capture.EncodeJPEG(canvas, r.opts.Quality)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompositeFailure, err)
	}
	return &Artifact{
		Data:      data,
		MIME:      "image/jpeg",
		Width:     CanvasWidth,
		Height:    CanvasHeight,
		Title:     title,
		Slots:     slots,
		CreatedAt: r.opts.Now(),
	}, nil
}

// loadAll decodes frames concurrently and returns only when every load has returned.
func (r *Renderer) loadAll(ctx context.Context, frames []capture.Frame) ([]image.Image, error) {
	photos := make([]image.Image, len(frames))
	g, gctx := errgroup.WithContext(ctx)
	for i := range frames {
		g.Go(func() error {
			img, err := r.opts.Loader.Load(gctx, frames[i])
			if err != nil {
				return err
			}
			if img == nil || img.Bounds().Empty() {
				return fmt.Errorf("frame %d: empty image", frames[i].Index)
			}
			photos[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return photos, nil
}

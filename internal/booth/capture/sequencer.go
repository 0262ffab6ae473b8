// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/partybooth/internal/log"
	"github.com/ManuGH/partybooth/internal/metrics"
	"github.com/rs/zerolog"
)

// Deps are the collaborators of a Sequencer.
type Deps struct {
	Frames   FrameSource
	Stickers PlacementSource
	Art      ArtSource
	// Viewport is read at flatten time for every shot.
	Viewport func() Viewport
	// Release is called once after the last shot, before assembling.
	Release func()
	// OnFrame is called after each successful shot.
	OnFrame  func(Frame)
	Sleeper  Sleeper
	Observer Observer
	Now      func() time.Time
	Logger   *zerolog.Logger
}

// Validate checks that required collaborators are present.
func (d Deps) Validate() error {
	var errs []error
	if d.Frames == nil {
		errs = append(errs, errors.New("frames source is required"))
	}
	if d.Stickers == nil {
		errs = append(errs, errors.New("sticker source is required"))
	}
	if d.Art == nil {
		errs = append(errs, errors.New("sticker art is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Sequencer drives one capture run. It is not reusable concurrently; the
// booth creates one per run.
type Sequencer struct {
	cfg  Config
	deps Deps
	log  zerolog.Logger
}

// NewSequencer validates cfg and deps.
func NewSequencer(cfg Config, deps Deps) (*Sequencer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if deps.Sleeper == nil {
		deps.Sleeper = TimerSleeper{}
	}
	if deps.Observer == nil {
		deps.Observer = func(Status) {}
	}
	if deps.Viewport == nil {
		deps.Viewport = DefaultViewport
	}
	if deps.Release == nil {
		deps.Release = func() {}
	}
	if deps.OnFrame == nil {
		deps.OnFrame = func(Frame) {}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	logger := log.WithComponent("capture")
	if deps.Logger != nil {
		logger = *deps.Logger
	}
	return &Sequencer{cfg: cfg, deps: deps, log: logger}, nil
}

// Run captures exactly cfg.Shots frames in order. On cancellation it returns
// ErrAborted; when a shot keeps failing it returns ErrCaptureFailure. No
// frames are returned on error.
func (s *Sequencer) Run(ctx context.Context) ([]Frame, error) {
	start := s.deps.Now()
	frames, err := s.run(ctx)

	outcome := "done"
	switch {
	case errors.Is(err, ErrAborted):
		outcome = "aborted"
		s.emit(Status{Phase: PhaseAborted, Total: s.cfg.Shots})
	case err != nil:
		outcome = "failed"
		s.emit(Status{Phase: PhaseFailed, Total: s.cfg.Shots})
	}
	metrics.RecordCaptureSequence(outcome, s.deps.Now().Sub(start))
	if err != nil {
		s.log.Warn().Err(err).Str(log.FieldEvent, "booth.capture."+outcome).Msg("capture sequence ended early")
		return nil, err
	}
	s.log.Info().
		Str(log.FieldEvent, "booth.capture.done").
		Int(log.FieldShots, len(frames)).
		Msg("capture sequence complete")
	return frames, nil
}

func (s *Sequencer) run(ctx context.Context) ([]Frame, error) {
	n := s.cfg.Shots
	t := s.cfg.Timing
	frames := make([]Frame, 0, n)

	s.emit(Status{Phase: PhaseRunning, Total: n})
	if err := s.pause(ctx, t.Warmup); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		pre, post := ShotMessages(i, n)

		s.emit(Status{Phase: PhaseRunning, Shot: i + 1, Total: n, Message: pre})
		if err := s.pause(ctx, t.Announce); err != nil {
			return nil, err
		}

		countdown := CountdownMessage(i, n)
		s.emit(Status{Phase: PhaseRunning, Shot: i + 1, Total: n, Message: countdown})
		if err := s.pause(ctx, t.Countdown); err != nil {
			return nil, err
		}

		s.emit(Status{Phase: PhaseRunning, Shot: i + 1, Total: n, Message: countdown, Flash: true})
		frame, err := s.shoot(ctx, i)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
		s.deps.OnFrame(frame)
		if err := s.pause(ctx, t.Flash); err != nil {
			return nil, err
		}
		s.emit(Status{Phase: PhaseRunning, Shot: i + 1, Total: n, Message: countdown})

		s.emit(Status{Phase: PhaseRunning, Shot: i + 1, Total: n, Message: post})
		if err := s.pause(ctx, t.PostShot); err != nil {
			return nil, err
		}
	}

	if len(frames) != n {
		return nil, fmt.Errorf("%w: have %d of %d frames", ErrCaptureFailure, len(frames), n)
	}

	s.deps.Release()
	s.emit(Status{Phase: PhaseAssembling, Total: n, Message: MsgAssembling})
	if err := s.pause(ctx, t.Assemble); err != nil {
		return nil, err
	}
	s.emit(Status{Phase: PhaseDone, Total: n})
	return frames, nil
}

// shoot captures shot i, retrying up to MaxShotRetries times.
func (s *Sequencer) shoot(ctx context.Context, i int) (Frame, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxShotRetries; attempt++ {
		if attempt > 0 {
			if err := s.pause(ctx, s.cfg.Timing.Retry); err != nil {
				return Frame{}, err
			}
		}
		frame, err := s.shootOnce(ctx, i)
		if err == nil {
			metrics.RecordCaptureShot("success")
			s.log.Debug().
				Str(log.FieldEvent, "booth.capture.shot").
				Int(log.FieldShot, i+1).
				Int(log.FieldAttempt, attempt+1).
				Int(log.FieldBytes, len(frame.Data)).
				Msg("shot captured")
			return frame, nil
		}
		if ctx.Err() != nil {
			return Frame{}, fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
		}
		lastErr = err
		metrics.RecordCaptureShot("retry")
		s.log.Warn().
			Err(err).
			Str(log.FieldEvent, "booth.capture.shot_failed").
			Int(log.FieldShot, i+1).
			Int(log.FieldAttempt, attempt+1).
			Msg("shot capture failed")
	}
	metrics.RecordCaptureShot("failure")
	return Frame{}, fmt.Errorf("%w: shot %d: %w", ErrCaptureFailure, i+1, lastErr)
}

func (s *Sequencer) shootOnce(ctx context.Context, i int) (Frame, error) {
	img, err := s.deps.Frames.Frame(ctx)
	if err != nil {
		return Frame{}, fmt.Errorf("read frame: %w", err)
	}
	if img == nil {
		return Frame{}, ErrEmptyFrame
	}
	placements := s.deps.Stickers.List()
	vp := s.deps.Viewport()
	flat, err := Flatten(img, vp, placements, s.deps.Art)
	if err != nil {
		return Frame{}, err
	}
	data, err := EncodeJPEG(flat, s.cfg.JPEGQuality)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Index:      i,
		Data:       data,
		MIME:       "image/jpeg",
		Width:      vp.Display.X,
		Height:     vp.Display.Y,
		Stickers:   placements,
		CapturedAt: s.deps.Now(),
	}, nil
}

// pause sleeps for d and maps cancellation to ErrAborted.
func (s *Sequencer) pause(ctx context.Context, d time.Duration) error {
	if err := s.deps.Sleeper.Sleep(ctx, d); err != nil {
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}
	return nil
}

func (s *Sequencer) emit(st Status) {
	s.deps.Observer(st)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package capture runs the timed multi-shot sequence and flattens each shot
// (mirrored video plus stickers) into an encoded still.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/ManuGH/partybooth/internal/booth/sticker"
)

// MaxShots is the largest supported shot count; it equals the composite layout size.
const MaxShots = 4

var (
	// ErrCaptureFailure is returned when a shot produced no frame after all retries.
	ErrCaptureFailure = errors.New("capture: shot failed")
	// ErrAborted is returned when the sequence was canceled.
	ErrAborted = errors.New("capture: sequence aborted")
	// ErrInvalidConfig is returned by NewSequencer for unusable settings.
	ErrInvalidConfig = errors.New("capture: invalid config")
)

// Phase is the sequencer state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseRunning    Phase = "running"
	PhaseAssembling Phase = "assembling"
	PhaseDone       Phase = "done"
	PhaseAborted    Phase = "aborted"
	PhaseFailed     Phase = "failed"
)

// Status is one observable step of the sequence.
type Status struct {
	Phase   Phase  `json:"phase"`
	Shot    int    `json:"shot"` // 1-based; 0 outside running
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`
	Flash   bool   `json:"flash"`
}

// Observer receives status updates. It runs on the sequencer goroutine and must not block.
type Observer func(Status)

// Frame is one encoded, immutable shot.
type Frame struct {
	Index      int                 `json:"index"`
	Data       []byte              `json:"-"`
	MIME       string              `json:"mime"`
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	Stickers   []sticker.Placement `json:"stickers"`
	CapturedAt time.Time           `json:"capturedAt"`
}

// Timing is the pacing of the sequence.
type Timing struct {
	Warmup    time.Duration
	Announce  time.Duration
	Countdown time.Duration
	Flash     time.Duration
	PostShot  time.Duration
	Assemble  time.Duration
	Retry     time.Duration
}

// DefaultTiming matches the booth's on-screen pacing.
func DefaultTiming() Timing {
	return Timing{
		Warmup:    300 * time.Millisecond,
		Announce:  2 * time.Second,
		Countdown: 1500 * time.Millisecond,
		Flash:     500 * time.Millisecond,
		PostShot:  2 * time.Second,
		Assemble:  time.Second,
		Retry:     200 * time.Millisecond,
	}
}

// Config configures a sequencer.
type Config struct {
	Shots          int
	Timing         Timing
	MaxShotRetries int
	JPEGQuality    int
}

// DefaultConfig is three shots, two retries per shot and JPEG quality 92.
func DefaultConfig() Config {
	return Config{Shots: 3, Timing: DefaultTiming(), MaxShotRetries: 2, JPEGQuality: 92}
}

func (c Config) validate() error {
	if c.Shots < 1 || c.Shots > MaxShots {
		return fmt.Errorf("%w: shots must be 1..%d, got %d", ErrInvalidConfig, MaxShots, c.Shots)
	}
	if c.MaxShotRetries < 0 {
		return fmt.Errorf("%w: negative retries", ErrInvalidConfig)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("%w: jpeg quality %d", ErrInvalidConfig, c.JPEGQuality)
	}
	return nil
}

// Messages shown around each shot.
const (
	MsgAssembling = "Creating your masterpiece..."
)

// ShotMessages returns the pre- and post-shot lines for shot i (0-based) of n.
func ShotMessages(i, n int) (pre, post string) {
	switch {
	case i == 0:
		return "Get Ready...", "Amazing Shot!"
	case i == n-1:
		return "Last one, make it count!", "Perfect! 🎉"
	default:
		return "Ready for the next one?", "Awesome!"
	}
}

// CountdownMessage is the line shown right before the flash.
func CountdownMessage(i, n int) string {
	return fmt.Sprintf("Photo %d of %d", i+1, n)
}

// FrameSource yields the current live camera frame.
type FrameSource interface {
	Frame(ctx context.Context) (image.Image, error)
}

// PlacementSource lists stickers at flatten time.
type PlacementSource interface {
	List() []sticker.Placement
}

// ArtSource resolves sticker artwork.
type ArtSource interface {
	Image(kind sticker.Kind) (image.Image, error)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/ManuGH/partybooth/internal/log"
	"github.com/ManuGH/partybooth/internal/metrics"
	"github.com/rs/zerolog"
)

var (
	// ErrStartInProgress is returned when Start is called while another Start is pending.
	ErrStartInProgress = errors.New("camera: start already in progress")
	// ErrStoppedDuringStart is returned when Stop ran while the device was opening.
	ErrStoppedDuringStart = errors.New("camera: stopped while starting")
	// ErrWrongState is returned by Mark* when the session is not in the required state.
	ErrWrongState = errors.New("camera: invalid state for operation")
)

// Session tracks one camera acquisition. It owns at most one Stream and
// guarantees that each opened stream is closed exactly once.
type Session struct {
	device      Device
	constraints Constraints
	logger      zerolog.Logger

	mu     sync.Mutex
	state  State
	reason Reason
	stream Stream
	// generation changes on every Stop so a pending Start can tell it was superseded.
	generation uint64
}

// NewSession creates an idle session for device.
func NewSession(device Device, c Constraints) *Session {
	return &Session{
		device:      device,
		constraints: c,
		state:       StateIdle,
		logger:      log.WithComponent("camera").With().Str(log.FieldDevice, device.Name()).Logger(),
	}
}

// Start acquires the camera. Calling Start while a stream is held returns that stream.
func (s *Session) Start(ctx context.Context) (Stream, error) {
	s.mu.Lock()
	if s.stream != nil {
		st := s.stream
		s.mu.Unlock()
		return st, nil
	}
	if s.state == StateInitializing {
		s.mu.Unlock()
		return nil, ErrStartInProgress
	}
	s.setStateLocked(StateInitializing)
	s.reason = ReasonNone
	gen := s.generation
	s.mu.Unlock()

	st, err := s.device.Open(ctx, s.constraints)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		if st != nil {
			_ = st.Close()
		}
		return nil, ErrStoppedDuringStart
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ErrPermissionDenied) {
			s.setStateLocked(StateIdle)
			return nil, fmt.Errorf("camera start: %w", ctxErr)
		}
		s.reason = ReasonFor(err)
		if s.reason == ReasonPermissionDenied {
			s.setStateLocked(StateDenied)
			metrics.RecordCameraStart("denied")
			s.logger.Warn().Err(err).Str(log.FieldEvent, "camera.start.denied").Msg("camera access denied")
		} else {
			s.setStateLocked(StateError)
			metrics.RecordCameraStart("error")
			s.logger.Error().Err(err).Str(log.FieldEvent, "camera.start.error").Msg("camera unavailable")
		}
		return nil, err
	}

	s.stream = st
	s.setStateLocked(StateReady)
	metrics.RecordCameraStart("ready")
	metrics.CameraStreamOpened()
	w, h := st.Size()
	s.logger.Info().
		Str(log.FieldEvent, "camera.start.ready").
		Str(log.FieldResolution, fmt.Sprintf("%dx%d", w, h)).
		Msg("camera ready")
	return st, nil
}

// Stop releases the stream if one is held. It is idempotent and safe in any state.
// Denied, error and captured states are kept so callers can still report them.
func (s *Session) Stop() {
	s.mu.Lock()
	st := s.stream
	s.stream = nil
	s.generation++
	if s.state.HoldsStream() || s.state == StateInitializing {
		s.setStateLocked(StateIdle)
	}
	s.mu.Unlock()

	if st == nil {
		return
	}
	metrics.CameraStreamClosed()
	if err := st.Close(); err != nil {
		s.logger.Warn().Err(err).Str(log.FieldEvent, "camera.stop.close_failed").Msg("closing camera stream failed")
		return
	}
	s.logger.Info().Str(log.FieldEvent, "camera.stop").Msg("camera released")
}

// Reset stops the camera and clears any terminal state back to idle.
func (s *Session) Reset() {
	s.Stop()
	s.mu.Lock()
	s.setStateLocked(StateIdle)
	s.reason = ReasonNone
	s.mu.Unlock()
}

// MarkCapturing moves ready → capturing.
func (s *Session) MarkCapturing() error {
	return s.advance(StateReady, StateCapturing)
}

// MarkCaptured moves capturing → captured.
func (s *Session) MarkCaptured() error {
	return s.advance(StateCapturing, StateCaptured)
}

func (s *Session) advance(from, to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return fmt.Errorf("%w: %s → %s from %s", ErrWrongState, from, to, s.state)
	}
	s.setStateLocked(to)
	return nil
}

// Frame reads the current frame from the held stream.
func (s *Session) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	st := s.stream
	s.mu.Unlock()
	if st == nil {
		return nil, ErrNoStream
	}
	return st.Frame(ctx)
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reason returns why the session is denied or in error.
func (s *Session) Reason() Reason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Stream returns the held stream, or nil.
func (s *Session) Stream() Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}

func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	s.logger.Debug().
		Str(log.FieldOldState, string(s.state)).
		Str(log.FieldNewState, string(next)).
		Msg("camera state changed")
	s.state = next
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package camera owns the booth's single camera stream: acquiring it from a
// Device, tracking session state, and releasing it exactly once.
package camera

import (
	"context"
	"errors"
	"image"
)

// State is the camera session state.
type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateDenied       State = "denied"
	StateError        State = "error"
	StateCapturing    State = "capturing"
	StateCaptured     State = "captured"
)

// HoldsStream reports whether a session in this state owns a live stream.
func (s State) HoldsStream() bool {
	return s == StateReady || s == StateCapturing
}

// Reason explains why a session ended up in denied or error.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonPermissionDenied  Reason = "permission_denied"
	ReasonDeviceUnavailable Reason = "device_unavailable"
)

var (
	// ErrPermissionDenied is returned when the OS or user refuses camera access.
	ErrPermissionDenied = errors.New("camera: permission denied")
	// ErrDeviceUnavailable is returned when no capture device exists.
	ErrDeviceUnavailable = errors.New("camera: no capture device available")
	// ErrDeviceBusy is returned when another process holds the device.
	ErrDeviceBusy = errors.New("camera: device busy")
	// ErrNoStream is returned when a frame is requested without a live stream.
	ErrNoStream = errors.New("camera: no active stream")
)

// ReasonFor classifies a Device.Open error.
func ReasonFor(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrPermissionDenied):
		return ReasonPermissionDenied
	default:
		return ReasonDeviceUnavailable
	}
}

// Constraints is the requested capture format.
type Constraints struct {
	Width       int
	Height      int
	AspectRatio float64
}

// DefaultConstraints is 1280x720 with a square display aspect.
func DefaultConstraints() Constraints {
	return Constraints{Width: 1280, Height: 720, AspectRatio: 1}
}

// Device opens camera streams.
type Device interface {
	// Name identifies the device in logs.
	Name() string
	// Open acquires the device. It fails with ErrPermissionDenied,
	// ErrDeviceUnavailable or ErrDeviceBusy.
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is a live camera feed. Frame returns the most recent frame.
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	Size() (width, height int)
	Close() error
}

// Prober is implemented by devices that can report availability without
// opening a stream.
type Prober interface {
	Probe(ctx context.Context) error
}

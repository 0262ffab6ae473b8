// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package booth

import (
	"errors"
	"fmt"
)

// State is the booth pipeline state.
type State string

const (
	StateIdle        State = "idle"
	StateStarting    State = "starting"
	StateReady       State = "ready"
	StateDenied      State = "denied"
	StateError       State = "error"
	StateCapturing   State = "capturing"
	StateCompositing State = "compositing"
	StateComplete    State = "complete"
	StateFailed      State = "failed"
	StateClosed      State = "closed"
)

// Busy reports whether a capture run owns the booth in this state.
func (s State) Busy() bool {
	return s == StateCapturing || s == StateCompositing
}

// Reason says why the booth is in denied, error or failed.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonPermissionDenied  Reason = "permission_denied"
	ReasonDeviceUnavailable Reason = "device_unavailable"
	ReasonCaptureFailure    Reason = "capture_failure"
	ReasonCompositeFailure  Reason = "composite_failure"
)

// EventKind drives state transitions.
type EventKind string

const (
	EvStartCamera     EventKind = "start_camera"
	EvCameraReady     EventKind = "camera_ready"
	EvCameraDenied    EventKind = "camera_denied"
	EvCameraFailed    EventKind = "camera_failed"
	EvCameraCanceled  EventKind = "camera_canceled"
	EvCaptureStarted  EventKind = "capture_started"
	EvCaptureDone     EventKind = "capture_done"
	EvCaptureFailed   EventKind = "capture_failed"
	EvCaptureAborted  EventKind = "capture_aborted"
	EvCompositeDone   EventKind = "composite_done"
	EvCompositeFailed EventKind = "composite_failed"
	EvRetake          EventKind = "retake"
	EvClose           EventKind = "close"
)

// Transition is a single allowed edge in the booth state machine.
type Transition struct {
	From   State
	To     State
	Event  EventKind
	Reason Reason
}

var (
	// ErrIllegalTransition is returned when an operation is not allowed in the current state.
	ErrIllegalTransition = errors.New("booth: operation not allowed in current state")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("booth: closed")
)

var transitionsTable = []Transition{
	// Camera acquisition
	{From: StateIdle, To: StateStarting, Event: EvStartCamera},
	{From: StateDenied, To: StateStarting, Event: EvStartCamera},
	{From: StateError, To: StateStarting, Event: EvStartCamera},
	{From: StateStarting, To: StateReady, Event: EvCameraReady},
	{From: StateStarting, To: StateDenied, Event: EvCameraDenied, Reason: ReasonPermissionDenied},
	{From: StateStarting, To: StateError, Event: EvCameraFailed, Reason: ReasonDeviceUnavailable},
	{From: StateStarting, To: StateIdle, Event: EvCameraCanceled},

	// Capture run
	{From: StateReady, To: StateCapturing, Event: EvCaptureStarted},
	{From: StateCapturing, To: StateCompositing, Event: EvCaptureDone},
	{From: StateCapturing, To: StateFailed, Event: EvCaptureFailed, Reason: ReasonCaptureFailure},
	{From: StateCapturing, To: StateIdle, Event: EvCaptureAborted},
	{From: StateCompositing, To: StateComplete, Event: EvCompositeDone},
	{From: StateCompositing, To: StateFailed, Event: EvCompositeFailed, Reason: ReasonCompositeFailure},
	{From: StateCompositing, To: StateIdle, Event: EvCaptureAborted},

	// Retake resets everything short of Close
	{From: StateIdle, To: StateIdle, Event: EvRetake},
	{From: StateStarting, To: StateIdle, Event: EvRetake},
	{From: StateReady, To: StateIdle, Event: EvRetake},
	{From: StateDenied, To: StateIdle, Event: EvRetake},
	{From: StateError, To: StateIdle, Event: EvRetake},
	{From: StateCapturing, To: StateIdle, Event: EvRetake},
	{From: StateCompositing, To: StateIdle, Event: EvRetake},
	{From: StateComplete, To: StateIdle, Event: EvRetake},
	{From: StateFailed, To: StateIdle, Event: EvRetake},
}

// TransitionFor returns the allowed transition for a given state+event.
// Close is allowed from every state except closed.
func TransitionFor(from State, ev EventKind) (Transition, bool) {
	if ev == EvClose {
		if from == StateClosed {
			return Transition{}, false
		}
		return Transition{From: from, To: StateClosed, Event: EvClose}, true
	}
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}

func illegal(from State, ev EventKind) error {
	if from == StateClosed {
		return ErrClosed
	}
	return fmt.Errorf("%w: %s in %s", ErrIllegalTransition, ev, from)
}
